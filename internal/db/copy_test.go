package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "documents", []string{"filing_id", "document_url"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"filing_id", "document_url"}
	mock.ExpectCopyFrom(pgx.Identifier{"documents"}, cols).WillReturnResult(3)

	rows := [][]any{
		{int64(1), "https://example.org/a.pdf"},
		{int64(1), "https://example.org/b.pdf"},
		{int64(2), "https://example.org/c.pdf"},
	}
	n, err := CopyFrom(context.Background(), mock, "documents", cols, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"filing_id", "document_url"}
	mock.ExpectCopyFrom(pgx.Identifier{"documents"}, cols).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{int64(1), "https://example.org/a.pdf"}}
	_, err = CopyFrom(context.Background(), mock, "documents", cols, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO documents")
	assert.NoError(t, mock.ExpectationsWereMet())
}
