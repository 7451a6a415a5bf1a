package casfa

import (
	"context"
	"fmt"
	"iter"
	"strconv"
)

// EntryKind classifies a diff entry. The numeric order is the type rank
// used when a batch result is assembled.
type EntryKind uint8

const (
	EntryRemoved EntryKind = iota + 1
	EntryAdded
	EntryModified
	EntryMoved
)

func (k EntryKind) String() string {
	switch k {
	case EntryRemoved:
		return "removed"
	case EntryAdded:
		return "added"
	case EntryModified:
		return "modified"
	case EntryMoved:
		return "moved"
	}
	return "entry(" + strconv.Itoa(int(k)) + ")"
}

// MarshalJSON renders the kind as its name.
func (k EntryKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// TypeChange records a file/dict kind flip on a modified path.
type TypeChange uint8

const (
	TypeChangeNone TypeChange = iota
	TypeChangeFileToDir
	TypeChangeDirToFile
)

func (t TypeChange) String() string {
	switch t {
	case TypeChangeFileToDir:
		return "file-to-dir"
	case TypeChangeDirToFile:
		return "dir-to-file"
	}
	return "none"
}

// MarshalJSON renders the type change as its name.
func (t TypeChange) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// Entry is one file-granularity difference between two trees. Paths join
// with "/" and the root path is "".
type Entry struct {
	Kind EntryKind `json:"kind"`
	Path string    `json:"path,omitempty"`

	// Added, removed and moved entries.
	NodeKey  string   `json:"nodeKey,omitempty"`
	NodeKind NodeKind `json:"nodeKind,omitempty"`

	// Modified entries.
	OldKey     string     `json:"oldNodeKey,omitempty"`
	NewKey     string     `json:"newNodeKey,omitempty"`
	TypeChange TypeChange `json:"typeChange,omitempty"`

	// Moved entries aggregate every location of one content key: several
	// removed and added paths sharing a hash collapse into one record.
	FromPaths []string `json:"pathsFrom,omitempty"`
	ToPaths   []string `json:"pathsTo,omitempty"`
}

// sortPath is the path a batch result orders the entry by.
func (e *Entry) sortPath() string {
	if e.Kind == EntryMoved && len(e.FromPaths) > 0 {
		return e.FromPaths[0]
	}
	return e.Path
}

// session carries one diff call's shared state: the storage handle, the
// bounds, and the truncation counter threaded through the whole recursive
// walk. Sessions are per call, so concurrent diffs never interfere.
type session struct {
	store Store
	opts  *diffOptions

	emitted   int
	truncated bool
	err       error
}

// load resolves and decodes a node, consulting the well-known registry
// before storage. Decode failures surface as integrity faults carrying the
// path and key.
func (s *session) load(ctx context.Context, path, key string) (*Node, error) {
	data, ok := s.opts.wellKnown[key]
	if !ok {
		var err error
		data, err = s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load node %s at %q: %w", key, path, err)
		}
	}
	node, err := DecodeNode(data)
	if err != nil {
		return nil, &IntegrityError{Path: path, Key: key, Reason: err.Error()}
	}
	return node, nil
}

// emit applies the entry budget before handing one entry to the consumer.
func (s *session) emit(e Entry, yield func(Entry) bool) bool {
	if s.opts.maxEntries > 0 && s.emitted >= s.opts.maxEntries {
		s.truncated = true
		return false
	}
	s.emitted++
	return yield(e)
}

func (s *session) fail(err error) bool {
	s.err = err
	return false
}

// rejectOpaque guards the dict/file-only positions of a tree walk.
func rejectOpaque(path, key string, n *Node) error {
	if n.Kind == KindSet || n.Kind == KindSuccessor {
		return &IntegrityError{Path: path, Key: key, Reason: n.Kind.String() + " node where only dict or file may appear"}
	}
	return nil
}

// DiffStream is a lazy, consumer-driven diff between two tree roots.
// Each pulled entry may perform storage reads; abandoning the iteration
// simply stops them. A stream is single use: iterate All once, then
// consult Err and Truncated.
type DiffStream struct {
	oldKey string
	newKey string
	sess   *session
}

// StreamDiff prepares a raw diff of the trees rooted at oldKey and newKey.
func StreamDiff(s Store, oldKey, newKey string, opts ...DiffOption) *DiffStream {
	return &DiffStream{
		oldKey: oldKey,
		newKey: newKey,
		sess:   &session{store: s, opts: newDiffOptions(opts)},
	}
}

// All returns the raw added/removed/modified entries in depth-first,
// sorted-name order. Iteration stops early on error; check Err afterwards.
func (d *DiffStream) All(ctx context.Context) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if d.oldKey == d.newKey {
			return
		}
		d.sess.diffNodes(ctx, "", d.oldKey, d.newKey, 0, yield)
	}
}

// Err reports the first failure encountered while streaming.
func (d *DiffStream) Err() error { return d.sess.err }

// Truncated reports whether the entry budget cut the stream short.
func (d *DiffStream) Truncated() bool { return d.sess.truncated }

// diffNodes compares two differing nodes at path. Equal keys are never
// passed in: the callers short-circuit them without any I/O. Returns false
// when the consumer stopped, the budget ran out, or an error was recorded.
func (s *session) diffNodes(ctx context.Context, path, oldKey, newKey string, depth int, yield func(Entry) bool) bool {
	oldNode, err := s.load(ctx, path, oldKey)
	if err != nil {
		return s.fail(err)
	}
	newNode, err := s.load(ctx, path, newKey)
	if err != nil {
		return s.fail(err)
	}
	if err := rejectOpaque(path, oldKey, oldNode); err != nil {
		return s.fail(err)
	}
	if err := rejectOpaque(path, newKey, newNode); err != nil {
		return s.fail(err)
	}

	modified := Entry{Kind: EntryModified, Path: path, OldKey: oldKey, NewKey: newKey}
	switch {
	case oldNode.Kind == KindFile && newNode.Kind == KindFile:
		// Files are atomic units: one modified entry, no content diff.
		return s.emit(modified, yield)
	case oldNode.Kind == KindFile && newNode.Kind == KindDict:
		modified.TypeChange = TypeChangeFileToDir
		return s.emit(modified, yield)
	case oldNode.Kind == KindDict && newNode.Kind == KindFile:
		modified.TypeChange = TypeChangeDirToFile
		return s.emit(modified, yield)
	}

	// Both dicts. At the depth bound the whole subtree collapses into a
	// single modified entry instead of recursing.
	if s.opts.maxDepth > 0 && depth >= s.opts.maxDepth {
		return s.emit(modified, yield)
	}
	return s.diffChildren(ctx, path, oldNode, newNode, depth, yield)
}

// diffChildren runs the sorted merge-join over two dicts' child lists.
func (s *session) diffChildren(ctx context.Context, path string, oldNode, newNode *Node, depth int, yield func(Entry) bool) bool {
	i, j := 0, 0
	for i < len(oldNode.Names) && j < len(newNode.Names) {
		oldName, newName := oldNode.Names[i], newNode.Names[j]
		switch {
		case oldName == newName:
			if oldNode.Children[i] != newNode.Children[j] {
				if !s.diffNodes(ctx, joinPath(path, oldName), oldNode.Children[i], newNode.Children[j], depth+1, yield) {
					return false
				}
			}
			i++
			j++
		case oldName < newName:
			if !s.collectLeaves(ctx, oldNode.Children[i], joinPath(path, oldName), EntryRemoved, yield) {
				return false
			}
			i++
		default:
			if !s.collectLeaves(ctx, newNode.Children[j], joinPath(path, newName), EntryAdded, yield) {
				return false
			}
			j++
		}
	}
	for ; i < len(oldNode.Names); i++ {
		if !s.collectLeaves(ctx, oldNode.Children[i], joinPath(path, oldNode.Names[i]), EntryRemoved, yield) {
			return false
		}
	}
	for ; j < len(newNode.Names); j++ {
		if !s.collectLeaves(ctx, newNode.Children[j], joinPath(path, newNode.Names[j]), EntryAdded, yield) {
			return false
		}
	}
	return true
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
