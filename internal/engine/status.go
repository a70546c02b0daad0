package engine

// Status is the observable sync state reported to subscribers.
type Status string

// The five engine states.
const (
	// StatusSynced: online, idle, empty queue.
	StatusSynced Status = "synced"
	// StatusPending: online, queue non-empty, not draining.
	StatusPending Status = "pending"
	// StatusSyncing: actively draining.
	StatusSyncing Status = "syncing"
	// StatusOffline: no connectivity.
	StatusOffline Status = "offline"
	// StatusError: an entry exceeded the retry ceiling and awaits manual
	// retry. Advisory only.
	StatusError Status = "error"
)
