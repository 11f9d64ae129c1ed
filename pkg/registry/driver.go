// Package registry persists sheet and template records and caches live
// sheet instances for a conversation.
//
// Sheets live in a per-conversation namespace; templates are user-level and
// shared across conversations. Both are stored as full Records (cell history
// plus grid) so any turn's hash_sheets snapshot can be dereferenced later.
package registry

import (
	"context"

	"github.com/tabulahq/tabula/pkg/sheet"
)

// Driver defines the persistence backend for sheet and template records.
type Driver interface {
	// PutSheet upserts a sheet record by uid.
	PutSheet(ctx context.Context, conversation string, rec sheet.Record) error

	// GetSheet retrieves a sheet record by uid.
	GetSheet(ctx context.Context, conversation, uid string) (sheet.Record, error)

	// ListSheets returns all sheet records for a conversation in insertion
	// order.
	ListSheets(ctx context.Context, conversation string) ([]sheet.Record, error)

	// DeleteSheet removes a sheet record.
	DeleteSheet(ctx context.Context, conversation, uid string) error

	// PutTemplate upserts a user-level template record by uid.
	PutTemplate(ctx context.Context, rec sheet.Record) error

	// GetTemplate retrieves a template record by uid.
	GetTemplate(ctx context.Context, uid string) (sheet.Record, error)

	// ListTemplates returns all template records in insertion order.
	ListTemplates(ctx context.Context) ([]sheet.Record, error)

	// DeleteTemplate removes a template record.
	DeleteTemplate(ctx context.Context, uid string) error

	// Close releases backend resources.
	Close() error
}

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	UID string
}

func (e NotFoundError) Error() string {
	if e.UID == "" {
		return "record not found"
	}
	return "record not found: " + e.UID
}
