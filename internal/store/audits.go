package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/junctionhq/auditline/pkg/core/types"
)

// InsertItemAudit writes one item audit. A repeated idempotency key does not
// create a second row; it is reported as (0, nil) per the audit.Store
// contract.
func (s *Store) InsertItemAudit(ctx context.Context, audit types.ItemAudit) (int64, error) {
	sql, args, err := builder.
		Insert("item_audits").
		Columns(
			"item_id", "auditor_id", "audit_id", "location_id", "state",
			"latitude", "longitude", "comments", "condition", "image_url",
			"image_confirmed", "serial_number", "idempotency_key",
		).
		Values(
			audit.ItemID, audit.AuditorID, audit.AuditID, audit.LocationID, audit.State,
			audit.Latitude, audit.Longitude, nullString(audit.Comments), nullString(audit.Condition), nullString(audit.ImageURL),
			audit.ImageConfirmed, nullString(audit.SerialNumber), audit.IdempotencyKey,
		).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert item audit: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// The key already committed; DO NOTHING returns no row.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert item audit: %w", err)
	}
	return id, nil
}

// ListItemAudits returns the item audits recorded under an audit session,
// oldest first.
func (s *Store) ListItemAudits(ctx context.Context, auditID int64) ([]types.ItemAudit, error) {
	sql, args, err := builder.
		Select(
			"id", "item_id", "auditor_id", "audit_id", "location_id", "state",
			"latitude", "longitude", "comments", "condition", "image_url",
			"image_confirmed", "serial_number", "idempotency_key", "created_at",
		).
		From("item_audits").
		Where("audit_id = ?", auditID).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select item audits: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select item audits: %w", err)
	}
	defer rows.Close()

	var audits []types.ItemAudit
	for rows.Next() {
		var a types.ItemAudit
		var comments, condition, imageURL, serialNumber *string
		err = rows.Scan(
			&a.ID, &a.ItemID, &a.AuditorID, &a.AuditID, &a.LocationID, &a.State,
			&a.Latitude, &a.Longitude, &comments, &condition, &imageURL,
			&a.ImageConfirmed, &serialNumber, &a.IdempotencyKey, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item audit: %w", err)
		}
		a.Comments = deref(comments)
		a.Condition = deref(condition)
		a.ImageURL = deref(imageURL)
		a.SerialNumber = deref(serialNumber)
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item audits: %w", err)
	}
	return audits, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
