package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
)

// Store is the persistence surface the commit operation needs.
type Store interface {
	// GetAuditSession returns the audit session or (nil, nil) when missing.
	GetAuditSession(ctx context.Context, id int64) (*types.AuditSession, error)

	// InsertItemAudit writes exactly one item audit. A repeated idempotency
	// key must not create a second row; the store reports that by returning
	// (0, nil).
	InsertItemAudit(ctx context.Context, audit types.ItemAudit) (int64, error)
}

// Receipt reports the outcome of a commit.
type Receipt struct {
	ItemAuditID int64
	// Duplicate is true when the idempotency key had already been committed
	// and no new row was written.
	Duplicate bool
}

// Committer records item audits against a Store.
type Committer struct {
	store Store
}

// NewCommitter creates a Committer backed by the given store.
func NewCommitter(store Store) *Committer {
	return &Committer{store: store}
}

// Commit verifies the parent audit session and writes one ItemAudit in state
// requires_validation. idempotencyKey is the model's tool-call identifier; a
// duplicated tool-call event yields a Duplicate receipt instead of a second
// row. An empty key gets a generated one, which disables deduplication for
// that call.
func (c *Committer) Commit(ctx context.Context, args *Args, idempotencyKey string) (*Receipt, error) {
	if args == nil {
		return nil, core.NewValidationError("arguments are required", "")
	}

	session, err := c.store.GetAuditSession(ctx, args.AuditID)
	if err != nil {
		return nil, core.NewPersistenceError("load audit session", err)
	}
	if session == nil {
		return nil, core.NewPersistenceError("audit session does not exist", nil)
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	audit := types.ItemAudit{
		ItemID:         args.ItemID,
		AuditorID:      args.AuditerID,
		AuditID:        args.AuditID,
		LocationID:     args.LocationID,
		State:          types.ItemAuditStateRequiresValidation,
		IdempotencyKey: idempotencyKey,
	}
	if m := args.Metadata; m != nil {
		audit.Latitude = m.Latitude
		audit.Longitude = m.Longitude
		audit.Comments = m.Comments
		audit.Condition = m.Condition
		audit.ImageURL = m.ImageURL
		audit.ImageConfirmed = m.ImageConfirmed
		audit.SerialNumber = m.SerialNumber
	}

	id, err := c.store.InsertItemAudit(ctx, audit)
	if err != nil {
		return nil, core.NewPersistenceError("insert item audit", err)
	}
	if id == 0 {
		return &Receipt{Duplicate: true}, nil
	}

	return &Receipt{ItemAuditID: id}, nil
}
