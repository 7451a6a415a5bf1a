package casfa

import (
	"context"
	"sort"
)

// Stats tallies the final entry set of a batch diff.
type Stats struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Moved    int `json:"moved"`
}

// Result is a drained, move-aware diff between two tree roots.
type Result struct {
	Entries   []Entry `json:"entries"`
	Truncated bool    `json:"truncated"`
	Stats     Stats   `json:"stats"`
}

// Diff drains the raw stream between oldKey and newKey, collapses moves,
// and orders the result by entry type (removed, added, modified, moved)
// then path.
func Diff(ctx context.Context, s Store, oldKey, newKey string, opts ...DiffOption) (*Result, error) {
	stream := StreamDiff(s, oldKey, newKey, opts...)

	var added, removed, modified []Entry
	for e := range stream.All(ctx) {
		switch e.Kind {
		case EntryAdded:
			added = append(added, e)
		case EntryRemoved:
			removed = append(removed, e)
		default:
			modified = append(modified, e)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	moved, added, removed := detectMoves(added, removed)

	res := &Result{Truncated: stream.Truncated()}
	res.Entries = append(res.Entries, removed...)
	res.Entries = append(res.Entries, added...)
	res.Entries = append(res.Entries, modified...)
	res.Entries = append(res.Entries, moved...)
	sort.SliceStable(res.Entries, func(i, j int) bool {
		a, b := &res.Entries[i], &res.Entries[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.sortPath() < b.sortPath()
	})

	for _, e := range res.Entries {
		switch e.Kind {
		case EntryRemoved:
			res.Stats.Removed++
		case EntryAdded:
			res.Stats.Added++
		case EntryModified:
			res.Stats.Modified++
		case EntryMoved:
			res.Stats.Moved++
		}
	}
	return res, nil
}

// detectMoves collapses every content key present on both sides into a
// single moved entry covering all of its locations. Duplicate content at
// several paths, changed on both sides, becomes one many-to-many record;
// no pairing between individual from and to paths is implied.
func detectMoves(added, removed []Entry) (moved, restAdded, restRemoved []Entry) {
	addedByKey := make(map[string][]Entry)
	for _, e := range added {
		addedByKey[e.NodeKey] = append(addedByKey[e.NodeKey], e)
	}
	removedByKey := make(map[string][]Entry)
	for _, e := range removed {
		removedByKey[e.NodeKey] = append(removedByKey[e.NodeKey], e)
	}

	var movedKeys []string
	for key := range addedByKey {
		if _, ok := removedByKey[key]; ok {
			movedKeys = append(movedKeys, key)
		}
	}
	sort.Strings(movedKeys)

	for _, key := range movedKeys {
		adds, removes := addedByKey[key], removedByKey[key]
		entry := Entry{
			Kind:     EntryMoved,
			NodeKey:  key,
			NodeKind: adds[0].NodeKind,
		}
		for _, e := range removes {
			entry.FromPaths = append(entry.FromPaths, e.Path)
		}
		for _, e := range adds {
			entry.ToPaths = append(entry.ToPaths, e.Path)
		}
		sort.Strings(entry.FromPaths)
		sort.Strings(entry.ToPaths)
		moved = append(moved, entry)
	}

	for _, e := range added {
		if _, ok := removedByKey[e.NodeKey]; !ok {
			restAdded = append(restAdded, e)
		}
	}
	for _, e := range removed {
		if _, ok := addedByKey[e.NodeKey]; !ok {
			restRemoved = append(restRemoved, e)
		}
	}
	return moved, restAdded, restRemoved
}
