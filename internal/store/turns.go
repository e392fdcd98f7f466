package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/junctionhq/auditline/pkg/core/types"
)

var turnColumns = []string{
	"id", "session_id", "role", "text", "image_url", "latitude", "longitude", "hidden", "created_at",
}

// AppendTurn inserts one conversation turn and returns it with its id and
// timestamp filled in.
func (s *Store) AppendTurn(ctx context.Context, turn types.Turn) (types.Turn, error) {
	sql, args, err := builder.
		Insert("chats").
		Columns("session_id", "role", "text", "image_url", "latitude", "longitude", "hidden").
		Values(turn.SessionID, turn.Role, turn.Text, nullString(turn.ImageURL), turn.Latitude, turn.Longitude, turn.Hidden).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return types.Turn{}, fmt.Errorf("build insert turn: %w", err)
	}

	err = s.db.QueryRow(ctx, sql, args...).Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return types.Turn{}, fmt.Errorf("insert turn: %w", err)
	}
	return turn, nil
}

// ListTurns returns the session's turns in creation order. Hidden turns are
// included only when includeHidden is set.
func (s *Store) ListTurns(ctx context.Context, sessionID int64, includeHidden bool) ([]types.Turn, error) {
	query := builder.
		Select(turnColumns...).
		From("chats").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC", "id ASC")
	if !includeHidden {
		query = query.Where(squirrel.Eq{"hidden": false})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select turns: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var turn types.Turn
		var imageURL *string
		err = rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Role,
			&turn.Text,
			&imageURL,
			&turn.Latitude,
			&turn.Longitude,
			&turn.Hidden,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if imageURL != nil {
			turn.ImageURL = *imageURL
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// nullString maps the empty string to NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
