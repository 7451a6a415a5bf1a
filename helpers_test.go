package casfa

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shazhou-ww/casfa-sub008/internal/store"
)

func newTestStore() *store.MemStore {
	return store.NewMemStore()
}

func putFile(t *testing.T, s Store, content string) string {
	t.Helper()
	key, err := PutFile(context.Background(), s, []byte(content))
	require.NoError(t, err)
	return key
}

func putDict(t *testing.T, s Store, entries map[string]string) string {
	t.Helper()
	key, err := PutDict(context.Background(), s, entries)
	require.NoError(t, err)
	return key
}

// countingStore records how often each key is read, so tests can prove the
// hash short-circuit never touches storage for equal subtrees.
type countingStore struct {
	Store
	gets map[string]int
}

func newCountingStore(inner Store) *countingStore {
	return &countingStore{Store: inner, gets: make(map[string]int)}
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets[key]++
	return c.Store.Get(ctx, key)
}

// wideTree stores a dict of n distinct files named f000..f(n-1).
func wideTree(t *testing.T, s Store, n int) string {
	t.Helper()
	entries := make(map[string]string, n)
	for i := 0; i < n; i++ {
		entries[fmt.Sprintf("f%03d", i)] = putFile(t, s, fmt.Sprintf("content-%d", i))
	}
	return putDict(t, s, entries)
}

func entryPaths(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}
