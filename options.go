package casfa

type diffOptions struct {
	maxDepth   int
	maxEntries int
	wellKnown  WellKnown
}

// DiffOption configures a diff stream or batch diff.
type DiffOption func(*diffOptions)

func newDiffOptions(opts []DiffOption) *diffOptions {
	o := &diffOptions{wellKnown: DefaultWellKnown()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMaxDepth bounds dict recursion. A subtree still differing at the
// limit collapses into a single modified entry. Zero means unbounded.
func WithMaxDepth(n int) DiffOption {
	return func(o *diffOptions) { o.maxDepth = n }
}

// WithMaxEntries bounds the number of entries a diff may produce. Reaching
// the bound is a normal outcome reported through Truncated, not an error.
// Zero means unbounded.
func WithMaxEntries(n int) DiffOption {
	return func(o *diffOptions) { o.maxEntries = n }
}

// WithWellKnown substitutes the registry of canonical nodes resolvable
// without a storage round trip.
func WithWellKnown(w WellKnown) DiffOption {
	return func(o *diffOptions) { o.wellKnown = w }
}

type mergeOptions struct {
	oursTimestamp   int64
	theirsTimestamp int64
	diffOpts        []DiffOption
}

// MergeOption configures a three-way merge.
type MergeOption func(*mergeOptions)

func newMergeOptions(opts []MergeOption) *mergeOptions {
	o := &mergeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithTimestamps sets the per-side edit timestamps driving last-writer-wins
// resolution. On an exact tie ours wins.
func WithTimestamps(ours, theirs int64) MergeOption {
	return func(o *mergeOptions) {
		o.oursTimestamp = ours
		o.theirsTimestamp = theirs
	}
}

// WithMergeDiffOptions forwards diff options to the merge's two base diffs.
func WithMergeDiffOptions(opts ...DiffOption) MergeOption {
	return func(o *mergeOptions) { o.diffOpts = opts }
}

type pullOptions struct {
	wellKnown WellKnown
}

// PullOption configures a tree pull.
type PullOption func(*pullOptions)

func newPullOptions(opts []PullOption) *pullOptions {
	o := &pullOptions{wellKnown: DefaultWellKnown()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPullWellKnown substitutes the canonical node registry used to avoid
// remote round trips.
func WithPullWellKnown(w WellKnown) PullOption {
	return func(o *pullOptions) { o.wellKnown = w }
}
