package casfa

import "github.com/shazhou-ww/casfa-sub008/internal/store"

// Store is the content-addressed storage provider required by the engine.
// Re-exported from internal/store for convenience.
type Store = store.Store
