package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/junctionhq/auditline/pkg/chat"
)

var itemColumns = []string{
	"i.id", "i.require_image", "i.identifier", "i.identifier_type",
	"i.item_type", "i.collection_amount", "i.metadata",
}

// AuditContext loads everything the context narrative needs for a session:
// who is auditing, where, which items have been audited to the location and
// when, and which never have. Returns (nil, nil) when the session reference
// does not exist.
func (s *Store) AuditContext(ctx context.Context, sessionRef string) (*chat.ContextData, error) {
	session, err := s.GetAuditSessionByUUID(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	data := &chat.ContextData{
		AuditorID:   session.AuditorID,
		AuditorName: session.AuditorName,
	}

	if err := s.loadOrganization(ctx, session.OrganizationID, data); err != nil {
		return nil, err
	}
	if err := s.loadLocation(ctx, session.LocationID, data); err != nil {
		return nil, err
	}

	data.AuditedItems, err = s.auditedItems(ctx, session.LocationID)
	if err != nil {
		return nil, err
	}
	data.UnauditedItems, err = s.unauditedItems(ctx, session.OrganizationID, session.LocationID)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) loadOrganization(ctx context.Context, id int64, data *chat.ContextData) error {
	sql, args, err := builder.
		Select("name").
		From("organizations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select organization: %w", err)
	}

	var name *string
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&name); err != nil {
		return fmt.Errorf("select organization: %w", err)
	}
	data.OrganizationName = deref(name)
	return nil
}

func (s *Store) loadLocation(ctx context.Context, id int64, data *chat.ContextData) error {
	sql, args, err := builder.
		Select("name", "latitude", "longitude").
		From("locations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select location: %w", err)
	}

	var name *string
	err = s.db.QueryRow(ctx, sql, args...).Scan(&name, &data.LocationLat, &data.LocationLng)
	if err != nil {
		return fmt.Errorf("select location: %w", err)
	}
	data.LocationName = deref(name)
	return nil
}

// auditedItems returns each item audited to the location with its most
// recent audit time.
func (s *Store) auditedItems(ctx context.Context, locationID int64) ([]chat.AuditedItem, error) {
	columns := append([]string{}, itemColumns...)
	columns = append(columns, "ia.created_at")

	sql, args, err := builder.
		Select(columns...).
		Options("DISTINCT ON (i.id)").
		From("items i").
		Join("item_audits ia ON ia.item_id = i.id").
		Where(squirrel.Eq{"ia.location_id": locationID}).
		OrderBy("i.id", "ia.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select audited items: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select audited items: %w", err)
	}
	defer rows.Close()

	var audited []chat.AuditedItem
	for rows.Next() {
		var entry chat.AuditedItem
		err = rows.Scan(
			&entry.Item.ID,
			&entry.Item.RequireImage,
			&entry.Item.Identifier,
			&entry.Item.IdentifierType,
			&entry.Item.ItemType,
			&entry.Item.CollectionAmount,
			&entry.Item.Metadata,
			&entry.AuditedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audited item: %w", err)
		}
		audited = append(audited, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audited items: %w", err)
	}
	return audited, nil
}

// unauditedItems returns the organization's items that have never been
// audited to the location.
func (s *Store) unauditedItems(ctx context.Context, organizationID, locationID int64) ([]chat.ContextItem, error) {
	sql, args, err := builder.
		Select(itemColumns...).
		From("items i").
		Where(squirrel.Eq{"i.organization_id": organizationID}).
		Where("NOT EXISTS (SELECT 1 FROM item_audits ia WHERE ia.item_id = i.id AND ia.location_id = ?)", locationID).
		OrderBy("i.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select unaudited items: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select unaudited items: %w", err)
	}
	defer rows.Close()

	var items []chat.ContextItem
	for rows.Next() {
		var item chat.ContextItem
		err = rows.Scan(
			&item.ID,
			&item.RequireImage,
			&item.Identifier,
			&item.IdentifierType,
			&item.ItemType,
			&item.CollectionAmount,
			&item.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan unaudited item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unaudited items: %w", err)
	}
	return items, nil
}
