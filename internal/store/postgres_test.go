package store_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturador/internal/store"
)

func TestPostgresUpsertUpdatesByAccessKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// The access key matched an existing row: no insert follows.
	mock.ExpectExec(`update documents set`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := store.NewPostgresStore(db)
	doc := sampleDoc()
	updated, err := s.Upsert(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, updated.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertFallsBackToInsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// No row carries this access key yet: the id-keyed upsert runs.
	mock.ExpectExec(`update documents set`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := store.NewPostgresStore(db)
	_, err = s.Upsert(context.Background(), sampleDoc())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertWithoutKeySkipsKeyedUpdate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`insert into documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := store.NewPostgresStore(db)
	doc := sampleDoc()
	doc.AccessKey = ""
	_, err = s.Upsert(context.Background(), doc)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteAll(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`delete from documents`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	s := store.NewPostgresStore(db)
	require.NoError(t, s.DeleteAll(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
