package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junctionhq/auditline/pkg/core/types"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestStore_InsertItemAudit(t *testing.T) {
	locationID := int64(3)

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantID  int64
		wantErr bool
	}{
		{
			name: "inserts and returns id",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(11))
				mock.ExpectQuery(`INSERT INTO item_audits`).
					WithArgs(int64(4), int64(9), int64(1), &locationID, types.ItemAuditStateRequiresValidation,
						(*float64)(nil), (*float64)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
						(*bool)(nil), (*string)(nil), "call_7").
					WillReturnRows(rows)
			},
			wantID: 11,
		},
		{
			name: "duplicate idempotency key returns zero without error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO item_audits`).
					WillReturnError(pgx.ErrNoRows)
			},
			wantID: 0,
		},
		{
			name: "database error is wrapped",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO item_audits`).
					WillReturnError(assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			id, err := store.InsertItemAudit(context.Background(), types.ItemAudit{
				ItemID:         4,
				AuditorID:      9,
				AuditID:        1,
				LocationID:     &locationID,
				State:          types.ItemAuditStateRequiresValidation,
				IdempotencyKey: "call_7",
			})

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_InsertItemAudit_NullableFields(t *testing.T) {
	store, mock := newMockStore(t)

	lat, lng := 51.5, -0.12
	confirmed := true
	comments := "left side panel scratched"
	condition := "fair"
	imageURL := "https://img.example/1.jpg"
	serial := "SN-100"
	rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(2))
	mock.ExpectQuery(`INSERT INTO item_audits`).
		WithArgs(int64(4), int64(9), int64(1), (*int64)(nil), types.ItemAuditStateRequiresValidation,
			&lat, &lng, &comments, &condition, &imageURL, &confirmed, &serial, "call_8").
		WillReturnRows(rows)

	id, err := store.InsertItemAudit(context.Background(), types.ItemAudit{
		ItemID:         4,
		AuditorID:      9,
		AuditID:        1,
		State:          types.ItemAuditStateRequiresValidation,
		Latitude:       &lat,
		Longitude:      &lng,
		Comments:       comments,
		Condition:      condition,
		ImageURL:       imageURL,
		ImageConfirmed: &confirmed,
		SerialNumber:   serial,
		IdempotencyKey: "call_8",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
