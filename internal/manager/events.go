package manager

// Event names published by the manager.
const (
	EventCacheHit     = "cache_hit"
	EventLoadStart    = "load_start"
	EventLoadDone     = "load_done"
	EventLoadFailed   = "load_failed"
	EventUnloadStart  = "unload_start"
	EventUnloadDone   = "unload_done"
	EventUnloadError  = "unload_error"
	EventEvictSkipped = "evict_skipped"
)

// Event represents a slot lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
