package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS snapshots").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2019, 10, 23, 16, 0, 0, 0, time.UTC)
	payload := []byte(`{"patient":"S1234567A"}`)

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs("APPOINTMENT_ADDED", "2019-10-23 16:00", payload, &at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), Event{
		Type:      "APPOINTMENT_ADDED",
		Subject:   "2019-10-23 16:00",
		Payload:   payload,
		CreatedAt: at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEventWrapsError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err := repo.InsertEvent(context.Background(), Event{Type: "REMINDER_ADDED", Subject: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "insert event log")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)
	payload := []byte(`{"version":1}`)
	created := time.Date(2019, 10, 23, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO snapshots").
		WithArgs(payload).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("SELECT id, payload, created_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}).
			AddRow(int64(7), payload, created))

	id, err := repo.SaveSnapshot(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	snap, err := repo.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.ID)
	assert.JSONEq(t, string(payload), string(snap.Payload))
	assert.True(t, created.Equal(snap.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSnapshotEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, payload, created_at").WillReturnError(pgx.ErrNoRows)

	_, err := repo.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestPruneSnapshots(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM snapshots").
		WithArgs(1).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.PruneSnapshots(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
