package compliance

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp  TEXT NOT NULL,
	invoice_id TEXT NOT NULL,
	action     TEXT NOT NULL,
	principal  TEXT NOT NULL,
	token      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_invoice ON audit_events(invoice_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
`

// SQLiteRecorder persists the audit trail in a SQLite database
type SQLiteRecorder struct {
	db     *sql.DB
	dbPath string
	log    logger.Logger
}

// NewSQLiteRecorder opens (creating if necessary) the audit database at the
// given path
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dbPath == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "audit_db_path", dbPath, nil)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.FileError(errors.CodeFilePermission, dir, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.AuditError(errors.CodeAuditWriteFailed, "open", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, errors.AuditError(errors.CodeAuditWriteFailed, "ping", err)
	}

	if _, err := db.Exec(auditSchema); err != nil {
		return nil, errors.AuditError(errors.CodeAuditWriteFailed, "migrate", err)
	}

	return &SQLiteRecorder{
		db:     db,
		dbPath: dbPath,
		log:    logger.GetGlobalLogger().WithComponent("audit_store"),
	}, nil
}

// Record appends an event to the audit trail. The write is the source of
// truth for the disposition having happened; callers must treat a failed
// write as a failed disposition.
func (s *SQLiteRecorder) Record(ctx context.Context, event AuditEvent) (AuditEvent, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (timestamp, invoice_id, action, principal, token)
		 VALUES (?, ?, ?, ?, ?)`,
		event.Timestamp.UTC().Format(time.RFC3339),
		event.InvoiceID,
		event.Action,
		event.Principal,
		event.Token,
	)
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{
			"invoice_id": event.InvoiceID,
			"action":     event.Action,
		}).Error("Failed to record audit event")
		return AuditEvent{}, errors.AuditError(errors.CodeAuditWriteFailed, "record", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return AuditEvent{}, errors.AuditError(errors.CodeAuditWriteFailed, "record", err)
	}
	event.ID = id

	s.log.WithFields(logger.Fields{
		"audit_id":   event.ID,
		"invoice_id": event.InvoiceID,
		"action":     event.Action,
		"principal":  event.Principal,
		"token":      event.Token,
	}).Info("Audit event recorded")

	return event, nil
}

// List returns recorded events matching the filter, oldest first
func (s *SQLiteRecorder) List(ctx context.Context, filter Filter) ([]AuditEvent, error) {
	query := `SELECT id, timestamp, invoice_id, action, principal, token FROM audit_events WHERE 1=1`
	var args []interface{}

	if filter.InvoiceID != "" {
		query += " AND invoice_id = ?"
		args = append(args, filter.InvoiceID)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, filter.Action)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}

	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.AuditError(errors.CodeAuditReadFailed, "list", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var event AuditEvent
		var timestamp string

		if err := rows.Scan(&event.ID, &timestamp, &event.InvoiceID, &event.Action, &event.Principal, &event.Token); err != nil {
			return nil, errors.AuditError(errors.CodeAuditReadFailed, "scan", err)
		}

		event.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, errors.AuditError(errors.CodeAuditReadFailed, "parse_timestamp", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.AuditError(errors.CodeAuditReadFailed, "list", err)
	}

	return events, nil
}

// Close closes the database connection
func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}
