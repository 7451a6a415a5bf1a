// Package casfa implements the diff and three-way merge engine for
// content-addressed merkle trees.
//
// Trees are snapshots identified only by their root content key: a dict
// node is a byte-sorted list of (name, child key) pairs, a file node is an
// atomic leaf. Equal keys mean equal subtrees, so comparisons short-circuit
// whole subtrees in O(1) no matter their size.
//
// Streaming diff, consumer-driven:
//
//	stream := casfa.StreamDiff(store, oldRoot, newRoot, casfa.WithMaxEntries(1000))
//	for e := range stream.All(ctx) {
//	    fmt.Println(e.Kind, e.Path)
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Batch diff with rename detection:
//
//	res, err := casfa.Diff(ctx, store, oldRoot, newRoot)
//	fmt.Println(res.Stats.Added, res.Stats.Moved)
//
// Three-way merge with last-writer-wins resolution:
//
//	plan, err := casfa.Merge(ctx, store, base, ours, theirs,
//	    casfa.WithTimestamps(oursTS, theirsTS))
//
// The engine owns no persistent state and performs no writes except
// PullTree's idempotent puts of fetched nodes; applying a merge plan is the
// caller's job.
package casfa
