package router

import (
	"sync"
	"time"

	"mcpmux/pkg/logging"
)

// Kind is a listChanged notification category.
type Kind string

const (
	KindTools     Kind = "notifications/tools/list_changed"
	KindResources Kind = "notifications/resources/list_changed"
	KindPrompts   Kind = "notifications/prompts/list_changed"
)

// Sender delivers one targeted notification to a single inbound session,
// e.g. (*server.MCPServer).SendNotificationToSpecificClient.
type Sender func(sessionID string, method string) error

// Notifier batches listChanged notifications per (session, kind) within a
// batch-delay window before sending, coalescing bursts of index rebuilds
// into a single notification (spec §4.2: "coalesce notifications arriving
// within batch-delay"). The debounce-timer shape is the same one
// internal/configwatch's Watcher uses for config-file write bursts.
type Notifier struct {
	Send       Sender
	BatchDelay time.Duration

	listSessionIDs func() []string

	mu      sync.Mutex
	pending map[pendingKey]*time.Timer
}

type pendingKey struct {
	session string
	kind    Kind
}

const defaultBatchDelay = 50 * time.Millisecond

// NewNotifier builds a Notifier; Send must be assigned before use.
func NewNotifier(listSessionIDs func() []string) *Notifier {
	return &Notifier{
		BatchDelay:     defaultBatchDelay,
		listSessionIDs: listSessionIDs,
		pending:        make(map[pendingKey]*time.Timer),
	}
}

// NotifyAll schedules a notification of the given kind for every currently
// active session.
func (n *Notifier) NotifyAll(kind Kind) {
	for _, id := range n.listSessionIDs() {
		n.Notify(id, kind)
	}
}

// Notify schedules a notification for one session, coalescing with any
// already-pending notification of the same kind for that session.
func (n *Notifier) Notify(sessionID string, kind Kind) {
	key := pendingKey{session: sessionID, kind: kind}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, scheduled := n.pending[key]; scheduled {
		return
	}

	n.pending[key] = time.AfterFunc(n.BatchDelay, func() {
		n.mu.Lock()
		delete(n.pending, key)
		n.mu.Unlock()

		if n.Send == nil {
			return
		}
		if err := n.Send(sessionID, string(kind)); err != nil {
			logging.Warn("router", "failed to send %s to session %s: %v", kind, logging.TruncateSessionID(sessionID), err)
		}
	})
}
