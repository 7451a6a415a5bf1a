package casfa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// NodeFetcher retrieves a remote node by its navigation index-path: the
// "~"-delimited child-index sequence from the one externally-authorized
// remote root ("" addresses the root itself). Returning nil bytes with a
// nil error means the remote could not produce the node; the puller then
// abandons that branch and continues with its siblings.
type NodeFetcher interface {
	FetchNode(ctx context.Context, navPath string) ([]byte, error)
}

// NodeFetcherFunc adapts a function to NodeFetcher.
type NodeFetcherFunc func(ctx context.Context, navPath string) ([]byte, error)

// FetchNode calls f.
func (f NodeFetcherFunc) FetchNode(ctx context.Context, navPath string) ([]byte, error) {
	return f(ctx, navPath)
}

// PullStats reports what a pull fetched and what short-circuiting skipped.
type PullStats struct {
	NodesFetched int
	NodesSkipped int
}

// PullTree makes every node that a later comparison of baseRoot and
// remoteRoot will need available in local storage, fetching only what hash
// short-circuiting cannot rule out. It only decides fetch necessity and
// never diffs; its puts are idempotent because the key is the hash of the
// bytes.
func PullTree(ctx context.Context, s Store, fetcher NodeFetcher, baseRoot, remoteRoot string, opts ...PullOption) (PullStats, error) {
	if baseRoot == remoteRoot {
		return PullStats{}, nil
	}
	p := &puller{store: s, fetcher: fetcher, wellKnown: newPullOptions(opts).wellKnown}
	err := p.walk(ctx, "", baseRoot, remoteRoot)
	return p.stats, err
}

type puller struct {
	store     Store
	fetcher   NodeFetcher
	wellKnown WellKnown
	stats     PullStats
}

// walk makes remoteKey and everything under it that differs from the base
// locally resolvable. baseKey is "" when the base has no pair for this
// position.
func (p *puller) walk(ctx context.Context, navPath, baseKey, remoteKey string) error {
	if baseKey == remoteKey {
		// Equal hash: the whole subtree is already local by definition.
		p.stats.NodesSkipped++
		return nil
	}

	data, err := p.resolve(ctx, navPath, remoteKey)
	if err != nil {
		return err
	}
	if data == nil {
		// Remote claimed reachability but could not produce the node.
		return nil
	}

	node, err := DecodeNode(data)
	if err != nil {
		return &IntegrityError{Path: navPath, Key: remoteKey, Reason: err.Error()}
	}
	if node.Kind != KindDict {
		return nil
	}

	baseChildren := p.baseChildren(ctx, baseKey)
	for i, name := range node.Names {
		childNav := navPath + "~" + strconv.Itoa(i)
		if err := p.walk(ctx, childNav, baseChildren[name], node.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolve produces the remote node bytes, preferring the well-known
// registry and local storage over a remote round trip. nil bytes with nil
// error means the remote had nothing for this navPath.
func (p *puller) resolve(ctx context.Context, navPath, key string) ([]byte, error) {
	if data, ok := p.wellKnown[key]; ok {
		p.stats.NodesSkipped++
		return data, nil
	}

	data, err := p.store.Get(ctx, key)
	if err == nil {
		p.stats.NodesSkipped++
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("read local node %s: %w", key, err)
	}

	data, err = p.fetcher.FetchNode(ctx, navPath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch node %q: %w", navPath, err)
	}
	if data == nil {
		return nil, nil
	}
	if HashKey(data) != key {
		return nil, &IntegrityError{Path: navPath, Key: key, Reason: "fetched bytes do not hash to the requested key"}
	}
	if err := p.store.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store fetched node %s: %w", key, err)
	}
	p.stats.NodesFetched++
	return data, nil
}

// baseChildren maps the base dict's child names to keys when the base node
// resolves locally. Names the base lacks pair with the empty key.
func (p *puller) baseChildren(ctx context.Context, baseKey string) map[string]string {
	if baseKey == "" {
		return nil
	}
	data, ok := p.wellKnown[baseKey]
	if !ok {
		var err error
		data, err = p.store.Get(ctx, baseKey)
		if err != nil {
			return nil
		}
	}
	node, err := DecodeNode(data)
	if err != nil || node.Kind != KindDict {
		return nil
	}
	children := make(map[string]string, len(node.Names))
	for i, name := range node.Names {
		children[name] = node.Children[i]
	}
	return children
}
