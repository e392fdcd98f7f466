package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/junctionhq/auditline/pkg/core/types"
)

var auditSessionColumns = []string{
	"id", "uuid", "organization_id", "location_id", "auditor_id", "auditor_name", "created_at",
}

// CreateAuditSession inserts a new audit session. A missing UUID gets a
// generated one.
func (s *Store) CreateAuditSession(ctx context.Context, session types.AuditSession) (types.AuditSession, error) {
	if session.UUID == "" {
		session.UUID = uuid.NewString()
	}

	sql, args, err := builder.
		Insert("audits").
		Columns("uuid", "organization_id", "location_id", "auditor_id", "auditor_name").
		Values(session.UUID, session.OrganizationID, session.LocationID, session.AuditorID, session.AuditorName).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return types.AuditSession{}, fmt.Errorf("build insert audit session: %w", err)
	}

	err = s.db.QueryRow(ctx, sql, args...).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return types.AuditSession{}, fmt.Errorf("insert audit session: %w", err)
	}
	return session, nil
}

// GetAuditSession returns the session by row id, or (nil, nil) when missing.
func (s *Store) GetAuditSession(ctx context.Context, id int64) (*types.AuditSession, error) {
	return s.getAuditSession(ctx, squirrel.Eq{"id": id})
}

// GetAuditSessionByUUID returns the session by its public reference, or
// (nil, nil) when missing.
func (s *Store) GetAuditSessionByUUID(ctx context.Context, ref string) (*types.AuditSession, error) {
	return s.getAuditSession(ctx, squirrel.Eq{"uuid": ref})
}

func (s *Store) getAuditSession(ctx context.Context, where squirrel.Eq) (*types.AuditSession, error) {
	sql, args, err := builder.
		Select(auditSessionColumns...).
		From("audits").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select audit session: %w", err)
	}

	var session types.AuditSession
	err = s.db.QueryRow(ctx, sql, args...).Scan(
		&session.ID,
		&session.UUID,
		&session.OrganizationID,
		&session.LocationID,
		&session.AuditorID,
		&session.AuditorName,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select audit session: %w", err)
	}
	return &session, nil
}
