package casfa

import (
	"context"
	"fmt"
)

// CollectLeaves expands an entirely added or removed subtree into one entry
// per leaf: files, and empty dicts, which count as leaves of their own.
// side must be EntryAdded or EntryRemoved. The same bounds as a diff apply;
// hitting the entry budget reports truncated=true with the partial output.
func CollectLeaves(ctx context.Context, s Store, key, basePath string, side EntryKind, opts ...DiffOption) (entries []Entry, truncated bool, err error) {
	if side != EntryAdded && side != EntryRemoved {
		return nil, false, fmt.Errorf("collect leaves: side must be added or removed, got %s", side)
	}
	sess := &session{store: s, opts: newDiffOptions(opts)}
	sess.collectLeaves(ctx, key, basePath, side, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	if sess.err != nil {
		return nil, false, sess.err
	}
	return entries, sess.truncated, nil
}

// collectLeaves is the lazy worker behind CollectLeaves and the diff
// stream's wholly-added/removed branches. The entry budget is checked
// before expanding a subtree and again before every emitted leaf.
func (s *session) collectLeaves(ctx context.Context, key, basePath string, side EntryKind, yield func(Entry) bool) bool {
	if s.opts.maxEntries > 0 && s.emitted >= s.opts.maxEntries {
		s.truncated = true
		return false
	}

	node, err := s.load(ctx, basePath, key)
	if err != nil {
		return s.fail(err)
	}

	switch node.Kind {
	case KindFile:
		return s.emit(Entry{Kind: side, Path: basePath, NodeKey: key, NodeKind: KindFile}, yield)
	case KindDict:
		if len(node.Names) == 0 {
			return s.emit(Entry{Kind: side, Path: basePath, NodeKey: key, NodeKind: KindDict}, yield)
		}
		for i, name := range node.Names {
			if !s.collectLeaves(ctx, node.Children[i], joinPath(basePath, name), side, yield) {
				return false
			}
		}
		return true
	default:
		return s.fail(&IntegrityError{Path: basePath, Key: key, Reason: node.Kind.String() + " node where only dict or file may appear"})
	}
}
