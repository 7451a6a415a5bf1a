package casfa

import (
	"context"
	"sort"
	"strconv"

	"github.com/sourcegraph/conc/pool"
)

// Side identifies a merge input.
type Side string

const (
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// ConflictKind classifies overlapping concurrent edits of one path.
type ConflictKind string

const (
	// ConflictBothAdded: the path is absent in the base and both sides
	// created it with different content.
	ConflictBothAdded ConflictKind = "both-added"
	// ConflictBothModified: the path exists in the base and both sides
	// altered it differently.
	ConflictBothModified ConflictKind = "both-modified"
	// ConflictModifyRemove: one side changed the content, the other
	// deleted the path.
	ConflictModifyRemove ConflictKind = "modify-remove"
)

// OpKind classifies a merge plan step.
type OpKind uint8

const (
	OpAdd OpKind = iota + 1
	OpRemove
	OpUpdate
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpUpdate:
		return "update"
	}
	return "op(" + strconv.Itoa(int(k)) + ")"
}

// MarshalJSON renders the op kind as its name.
func (k OpKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// Op is one step of a merge plan. NodeKey is empty for removes.
type Op struct {
	Kind    OpKind `json:"kind"`
	Path    string `json:"path"`
	NodeKey string `json:"nodeKey,omitempty"`
}

// Resolution records how one conflicting path was decided. An empty side
// key means that side removed the path.
type Resolution struct {
	Path      string       `json:"path"`
	Winner    Side         `json:"winner"`
	Conflict  ConflictKind `json:"conflict"`
	OursKey   string       `json:"oursNodeKey,omitempty"`
	TheirsKey string       `json:"theirsNodeKey,omitempty"`
}

// MergeResult is a merge plan: the engine performs no writes, applying the
// operations is the caller's job. Operations and resolutions are sorted by
// path ascending.
type MergeResult struct {
	Operations  []Op         `json:"operations"`
	Resolutions []Resolution `json:"resolutions"`
}

// Merge computes a deterministic three-way merge of the trees rooted at
// baseKey, oursKey and theirsKey. Paths changed on one side carry over
// unchanged; paths changed on both sides with different results resolve by
// last-writer-wins on the configured timestamps, ours winning an exact tie.
func Merge(ctx context.Context, s Store, baseKey, oursKey, theirsKey string, opts ...MergeOption) (*MergeResult, error) {
	o := newMergeOptions(opts)

	// Fast paths: with at most one divergent side no conflict is possible
	// and a single diff already is the plan.
	switch {
	case baseKey == oursKey && baseKey == theirsKey:
		return &MergeResult{}, nil
	case baseKey == oursKey, oursKey == theirsKey:
		return planFromDiff(ctx, s, baseKey, theirsKey, o)
	case baseKey == theirsKey:
		return planFromDiff(ctx, s, baseKey, oursKey, o)
	}

	// Both diffs are pure reads against the immutable base; run them
	// concurrently.
	var oursDiff, theirsDiff *Result
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		oursDiff, err = Diff(ctx, s, baseKey, oursKey, o.diffOpts...)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		theirsDiff, err = Diff(ctx, s, baseKey, theirsKey, o.diffOpts...)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	ours := changesByPath(oursDiff)
	theirs := changesByPath(theirsDiff)

	paths := make([]string, 0, len(ours)+len(theirs))
	for path := range ours {
		paths = append(paths, path)
	}
	for path := range theirs {
		if _, seen := ours[path]; !seen {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	// Walking paths in sorted order keeps both output slices sorted.
	out := &MergeResult{}
	for _, path := range paths {
		oc, inOurs := ours[path]
		tc, inTheirs := theirs[path]
		switch {
		case !inTheirs:
			out.Operations = append(out.Operations, oc.op)
		case !inOurs:
			out.Operations = append(out.Operations, tc.op)
		case oc.resultKey == tc.resultKey:
			// Both sides arrived at the same content: no real conflict.
			out.Operations = append(out.Operations, oc.op)
		default:
			winner, winOp := SideOurs, oc.op
			if o.theirsTimestamp > o.oursTimestamp {
				winner, winOp = SideTheirs, tc.op
			}
			out.Operations = append(out.Operations, winOp)
			out.Resolutions = append(out.Resolutions, Resolution{
				Path:      path,
				Winner:    winner,
				Conflict:  classifyConflict(oc, tc),
				OursKey:   oc.resultKey,
				TheirsKey: tc.resultKey,
			})
		}
	}
	return out, nil
}

// pathChange is one side's effect on a single path.
type pathChange struct {
	op        Op
	resultKey string // "" when the side removed the path
	inBase    bool
}

// changesByPath flattens a batch diff into per-path operations. Moved
// entries expand back into their removed and added locations: the merge
// works path by path, move correlation does not survive it.
func changesByPath(res *Result) map[string]pathChange {
	m := make(map[string]pathChange, len(res.Entries))
	for _, e := range res.Entries {
		switch e.Kind {
		case EntryAdded:
			m[e.Path] = pathChange{op: Op{Kind: OpAdd, Path: e.Path, NodeKey: e.NodeKey}, resultKey: e.NodeKey}
		case EntryRemoved:
			m[e.Path] = pathChange{op: Op{Kind: OpRemove, Path: e.Path}, inBase: true}
		case EntryModified:
			m[e.Path] = pathChange{op: Op{Kind: OpUpdate, Path: e.Path, NodeKey: e.NewKey}, resultKey: e.NewKey, inBase: true}
		case EntryMoved:
			for _, path := range e.FromPaths {
				m[path] = pathChange{op: Op{Kind: OpRemove, Path: path}, inBase: true}
			}
			for _, path := range e.ToPaths {
				m[path] = pathChange{op: Op{Kind: OpAdd, Path: path, NodeKey: e.NodeKey}, resultKey: e.NodeKey}
			}
		}
	}
	return m
}

func classifyConflict(ours, theirs pathChange) ConflictKind {
	switch {
	case ours.resultKey == "" || theirs.resultKey == "":
		return ConflictModifyRemove
	case ours.inBase || theirs.inBase:
		return ConflictBothModified
	default:
		return ConflictBothAdded
	}
}

// planFromDiff turns a single diff into a conflict-free merge plan.
func planFromDiff(ctx context.Context, s Store, oldKey, newKey string, o *mergeOptions) (*MergeResult, error) {
	res, err := Diff(ctx, s, oldKey, newKey, o.diffOpts...)
	if err != nil {
		return nil, err
	}
	changes := changesByPath(res)
	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := &MergeResult{Operations: make([]Op, 0, len(paths))}
	for _, path := range paths {
		out.Operations = append(out.Operations, changes[path].op)
	}
	return out, nil
}
