// Package manager owns the single GPU model slot. It is structured into small
// files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: LoadRequest, Precision, State, LoadedModel, Snapshot.
//   - errors.go: error types and helpers (IsLoadFailed, IsModelNotFound, ...).
//   - helpers.go: request normalization, path resolution, backend spec.
//   - lock.go: the slot lock (context-aware, capacity-1 channel).
//   - acquire.go: Acquire (cache hit, swap, load) and touch.
//   - evict.go: Evict and the unload path shared by swap and shutdown.
//   - reaper.go: Reaper, the idle eviction loop.
//   - status_report.go: Snapshot/Status reporting.
//   - ops.go: Preload and Close.
//   - sanity.go: external dependency checks.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: prometheus collectors for slot activity.
//
// At most one model is materialized at any time. Acquire and Evict serialize
// on the slot lock and call the backend while holding it; inference on an
// acquired handle never takes the lock. Status reads a separate RWMutex and
// never waits behind a load.
//
// External packages should use public methods only (NewWithConfig, Acquire,
// Evict, Status, Snapshot, NewReaper). Internal fields are subject to change.
package manager
