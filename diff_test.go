package casfa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalRoots(t *testing.T) {
	s := newTestStore()
	root := putDict(t, s, map[string]string{"a.txt": putFile(t, s, "a")})

	res, err := Diff(context.Background(), s, root, root)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.False(t, res.Truncated)
	assert.Equal(t, Stats{}, res.Stats)
}

func TestDiffAddedFile(t *testing.T) {
	s := newTestStore()
	fileKey := putFile(t, s, "hello")
	newRoot := putDict(t, s, map[string]string{"a.txt": fileKey})

	res, err := Diff(context.Background(), s, EmptyDictKey(), newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	assert.Equal(t, EntryAdded, e.Kind)
	assert.Equal(t, "a.txt", e.Path)
	assert.Equal(t, fileKey, e.NodeKey)
	assert.Equal(t, KindFile, e.NodeKind)
	assert.Equal(t, Stats{Added: 1}, res.Stats)
}

func TestDiffRemovedSubtreeExpandsLeaves(t *testing.T) {
	s := newTestStore()
	sub := putDict(t, s, map[string]string{
		"one": putFile(t, s, "1"),
		"two": putFile(t, s, "2"),
	})
	oldRoot := putDict(t, s, map[string]string{"dir": sub})

	res, err := Diff(context.Background(), s, oldRoot, EmptyDictKey())
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/one", "dir/two"}, entryPaths(res.Entries))
	for _, e := range res.Entries {
		assert.Equal(t, EntryRemoved, e.Kind)
	}
	assert.Equal(t, Stats{Removed: 2}, res.Stats)
}

func TestDiffEmptyDirIsALeaf(t *testing.T) {
	s := newTestStore()
	newRoot := putDict(t, s, map[string]string{"empty": EmptyDictKey()})

	res, err := Diff(context.Background(), s, EmptyDictKey(), newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, EntryAdded, res.Entries[0].Kind)
	assert.Equal(t, "empty", res.Entries[0].Path)
	assert.Equal(t, KindDict, res.Entries[0].NodeKind)
}

func TestDiffModifiedFile(t *testing.T) {
	s := newTestStore()
	oldKey := putFile(t, s, "v1")
	newKey := putFile(t, s, "v2")
	oldRoot := putDict(t, s, map[string]string{"f.txt": oldKey})
	newRoot := putDict(t, s, map[string]string{"f.txt": newKey})

	res, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	assert.Equal(t, EntryModified, e.Kind)
	assert.Equal(t, "f.txt", e.Path)
	assert.Equal(t, oldKey, e.OldKey)
	assert.Equal(t, newKey, e.NewKey)
	assert.Equal(t, TypeChangeNone, e.TypeChange)
}

func TestDiffTypeChange(t *testing.T) {
	s := newTestStore()
	fileKey := putFile(t, s, "plain")
	dirKey := putDict(t, s, map[string]string{"inner": putFile(t, s, "x")})
	oldRoot := putDict(t, s, map[string]string{"thing": fileKey})
	newRoot := putDict(t, s, map[string]string{"thing": dirKey})

	res, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, TypeChangeFileToDir, res.Entries[0].TypeChange)

	// The subtree behind a type change is not expanded.
	assert.Equal(t, "thing", res.Entries[0].Path)

	back, err := Diff(context.Background(), s, newRoot, oldRoot)
	require.NoError(t, err)
	require.Len(t, back.Entries, 1)
	assert.Equal(t, TypeChangeDirToFile, back.Entries[0].TypeChange)
}

func TestDiffSwapSymmetry(t *testing.T) {
	s := newTestStore()
	shared := putFile(t, s, "same")
	oldRoot := putDict(t, s, map[string]string{
		"keep.txt": shared,
		"gone.txt": putFile(t, s, "old only"),
		"f.txt":    putFile(t, s, "v1"),
	})
	newRoot := putDict(t, s, map[string]string{
		"keep.txt": shared,
		"new.txt":  putFile(t, s, "new only"),
		"f.txt":    putFile(t, s, "v2"),
	})

	fwd, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	rev, err := Diff(context.Background(), s, newRoot, oldRoot)
	require.NoError(t, err)

	assert.Equal(t, fwd.Stats.Added, rev.Stats.Removed)
	assert.Equal(t, fwd.Stats.Removed, rev.Stats.Added)
	assert.Equal(t, fwd.Stats.Modified, rev.Stats.Modified)

	var fwdMod, revMod Entry
	for _, e := range fwd.Entries {
		if e.Kind == EntryModified {
			fwdMod = e
		}
	}
	for _, e := range rev.Entries {
		if e.Kind == EntryModified {
			revMod = e
		}
	}
	assert.Equal(t, fwdMod.OldKey, revMod.NewKey)
	assert.Equal(t, fwdMod.NewKey, revMod.OldKey)
}

func TestDiffShortCircuitSkipsEqualSubtrees(t *testing.T) {
	s := newTestStore()
	innerOne := putFile(t, s, "inner one")
	innerTwo := putFile(t, s, "inner two")
	shared := putDict(t, s, map[string]string{"one": innerOne, "two": innerTwo})

	oldRoot := putDict(t, s, map[string]string{"shared": shared, "a.txt": putFile(t, s, "v1")})
	newRoot := putDict(t, s, map[string]string{"shared": shared, "a.txt": putFile(t, s, "v2")})

	counting := newCountingStore(s)
	res, err := Diff(context.Background(), counting, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "a.txt", res.Entries[0].Path)

	// Nothing inside (or at the root of) the equal subtree is ever read.
	assert.Zero(t, counting.gets[shared])
	assert.Zero(t, counting.gets[innerOne])
	assert.Zero(t, counting.gets[innerTwo])
}

func TestDiffMaxDepthCollapses(t *testing.T) {
	s := newTestStore()
	oldLeaf := putDict(t, s, map[string]string{"f": putFile(t, s, "v1")})
	newLeaf := putDict(t, s, map[string]string{"f": putFile(t, s, "v2")})
	oldDir := putDict(t, s, map[string]string{"sub": oldLeaf})
	newDir := putDict(t, s, map[string]string{"sub": newLeaf})
	oldRoot := putDict(t, s, map[string]string{"dir": oldDir})
	newRoot := putDict(t, s, map[string]string{"dir": newDir})

	res, err := Diff(context.Background(), s, oldRoot, newRoot, WithMaxDepth(1))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	assert.Equal(t, EntryModified, e.Kind)
	assert.Equal(t, "dir", e.Path)
	assert.Equal(t, oldDir, e.OldKey)
	assert.Equal(t, newDir, e.NewKey)
	assert.Equal(t, TypeChangeNone, e.TypeChange)

	// Without the bound the change surfaces at the leaf.
	full, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, full.Entries, 1)
	assert.Equal(t, "dir/sub/f", full.Entries[0].Path)
}

func TestDiffMaxEntriesTruncates(t *testing.T) {
	s := newTestStore()
	newRoot := putDict(t, s, map[string]string{"big": wideTree(t, s, 40)})

	res, err := Diff(context.Background(), s, EmptyDictKey(), newRoot, WithMaxEntries(10))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Entries), 10)

	// Shrinking the budget never yields more entries and never clears the
	// truncation signal.
	smaller, err := Diff(context.Background(), s, EmptyDictKey(), newRoot, WithMaxEntries(5))
	require.NoError(t, err)
	assert.True(t, smaller.Truncated)
	assert.LessOrEqual(t, len(smaller.Entries), len(res.Entries))
}

func TestDiffStreamConsumerStops(t *testing.T) {
	s := newTestStore()
	newRoot := putDict(t, s, map[string]string{"big": wideTree(t, s, 40)})

	stream := StreamDiff(s, EmptyDictKey(), newRoot)
	seen := 0
	for range stream.All(context.Background()) {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
	assert.NoError(t, stream.Err())
	assert.False(t, stream.Truncated(), "abandoning the stream is not truncation")
}

func TestDiffRejectsSetChild(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	member := putFile(t, s, "member")
	setKey, setData, err := EncodeSet([]string{member})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, setKey, setData))
	newRoot := putDict(t, s, map[string]string{"x": setKey})

	_, err = Diff(ctx, s, EmptyDictKey(), newRoot)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataIntegrity)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "x", ie.Path)
	assert.Equal(t, setKey, ie.Key)
}

func TestDiffMissingNodeIsNotFound(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	danglingKey := HashKey([]byte("never stored"))
	dictKey, dictData, err := EncodeDict([]DictEntry{{Name: "ghost", Key: danglingKey}})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, dictKey, dictData))

	_, err = Diff(ctx, s, EmptyDictKey(), dictKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCollectLeaves(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tree := putDict(t, s, map[string]string{
		"a":     putFile(t, s, "a"),
		"dir":   putDict(t, s, map[string]string{"b": putFile(t, s, "b")}),
		"empty": EmptyDictKey(),
	})

	entries, truncated, err := CollectLeaves(ctx, s, tree, "", EntryAdded)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, []string{"a", "dir/b", "empty"}, entryPaths(entries))

	_, _, err = CollectLeaves(ctx, s, tree, "", EntryModified)
	assert.Error(t, err, "only added and removed are leaf sides")
}

func TestDiffMoveDetection(t *testing.T) {
	s := newTestStore()
	content := putFile(t, s, "moved content")
	oldRoot := putDict(t, s, map[string]string{
		"old": putDict(t, s, map[string]string{"a.txt": content}),
	})
	newRoot := putDict(t, s, map[string]string{
		"new": putDict(t, s, map[string]string{"a.txt": content}),
	})

	res, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	assert.Equal(t, EntryMoved, e.Kind)
	assert.Equal(t, []string{"old/a.txt"}, e.FromPaths)
	assert.Equal(t, []string{"new/a.txt"}, e.ToPaths)
	assert.Equal(t, content, e.NodeKey)
	assert.Equal(t, Stats{Moved: 1}, res.Stats)
}

func TestDiffMoveManyToMany(t *testing.T) {
	s := newTestStore()
	content := putFile(t, s, "duplicated")
	oldRoot := putDict(t, s, map[string]string{
		"x": putDict(t, s, map[string]string{"a": content, "b": content}),
	})
	newRoot := putDict(t, s, map[string]string{
		"y": putDict(t, s, map[string]string{"c": content}),
	})

	res, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1, "all locations of one content key collapse into one record")

	e := res.Entries[0]
	assert.Equal(t, EntryMoved, e.Kind)
	assert.Equal(t, []string{"x/a", "x/b"}, e.FromPaths)
	assert.Equal(t, []string{"y/c"}, e.ToPaths)
	assert.Equal(t, Stats{Moved: 1}, res.Stats)
}

func TestDiffResultOrdering(t *testing.T) {
	s := newTestStore()
	moved := putFile(t, s, "moved")
	oldRoot := putDict(t, s, map[string]string{
		"deleted.txt": putFile(t, s, "deleted"),
		"edited.txt":  putFile(t, s, "v1"),
		"from.txt":    moved,
	})
	newRoot := putDict(t, s, map[string]string{
		"created.txt": putFile(t, s, "created"),
		"edited.txt":  putFile(t, s, "v2"),
		"to.txt":      moved,
	})

	res, err := Diff(context.Background(), s, oldRoot, newRoot)
	require.NoError(t, err)
	require.Len(t, res.Entries, 4)

	kinds := make([]EntryKind, 0, 4)
	for _, e := range res.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EntryKind{EntryRemoved, EntryAdded, EntryModified, EntryMoved}, kinds)
	assert.Equal(t, Stats{Added: 1, Removed: 1, Modified: 1, Moved: 1}, res.Stats)
}
