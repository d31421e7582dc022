// Package compliance records the immutable audit trail for clearing actions.
//
// Every disposition that touches invoice state produces an AuditEvent carrying
// a SHA-256 integrity token derived from the event's content. The trail is
// append-only; there is no update or delete path, and auditors verify a
// record by recomputing its token.
package compliance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DefaultPrincipal is recorded when no acting principal is supplied.
// Automated STP dispositions run under this identity.
const DefaultPrincipal = "AI_AGENT"

// auditTimeFormat pins the timestamp layout inside the token preimage.
// Changing it invalidates every previously issued token.
const auditTimeFormat = "2006-01-02 15:04:05"

// AuditEvent is one immutable record of a clearing action
type AuditEvent struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	InvoiceID string    `json:"invoice_id"`
	Action    string    `json:"action"`
	Principal string    `json:"principal"`
	Token     string    `json:"token"`
}

// NewAuditEvent creates an audit event for a clearing action, stamping it
// with the current time and its integrity token. An empty principal records
// the automated agent.
func NewAuditEvent(invoiceID, action, principal string) AuditEvent {
	if strings.TrimSpace(principal) == "" {
		principal = DefaultPrincipal
	}

	timestamp := time.Now().UTC().Truncate(time.Second)

	return AuditEvent{
		Timestamp: timestamp,
		InvoiceID: invoiceID,
		Action:    action,
		Principal: principal,
		Token:     ComputeToken(timestamp, invoiceID, action, principal),
	}
}

// ComputeToken derives the integrity token for an audit record: the first 16
// hex characters of the SHA-256 digest over the record's canonical form.
func ComputeToken(timestamp time.Time, invoiceID, action, principal string) string {
	preimage := fmt.Sprintf("%s-%s-%s-%s",
		timestamp.UTC().Format(auditTimeFormat), invoiceID, action, principal)

	digest := sha256.Sum256([]byte(preimage))
	return hex.EncodeToString(digest[:])[:16]
}

// Verify recomputes the event's token and reports whether it matches the
// stored one
func (e AuditEvent) Verify() bool {
	return e.Token == ComputeToken(e.Timestamp, e.InvoiceID, e.Action, e.Principal)
}

// Filter narrows an audit trail query. Zero values match everything.
type Filter struct {
	InvoiceID string
	Action    string
	Since     time.Time
	Limit     int
}

// Recorder is the audit trail contract: append events, read them back.
// There is deliberately no way to change or remove a recorded event.
type Recorder interface {
	Record(ctx context.Context, event AuditEvent) (AuditEvent, error)
	List(ctx context.Context, filter Filter) ([]AuditEvent, error)
	Close() error
}
