package compliance

import (
	"context"
	"sync"
)

// MemoryRecorder keeps the audit trail in memory. Used in tests and in
// ephemeral batch runs where no durable trail is configured.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []AuditEvent
	nextID int64
}

// NewMemoryRecorder creates an empty in-memory audit recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{nextID: 1}
}

// Record appends an event to the trail
func (m *MemoryRecorder) Record(_ context.Context, event AuditEvent) (AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = m.nextID
	m.nextID++
	m.events = append(m.events, event)

	return event, nil
}

// List returns recorded events matching the filter, oldest first
func (m *MemoryRecorder) List(_ context.Context, filter Filter) ([]AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []AuditEvent
	for _, event := range m.events {
		if filter.InvoiceID != "" && event.InvoiceID != filter.InvoiceID {
			continue
		}
		if filter.Action != "" && event.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
			continue
		}

		matched = append(matched, event)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}

	return matched, nil
}

// Close is a no-op for the in-memory recorder
func (m *MemoryRecorder) Close() error {
	return nil
}
