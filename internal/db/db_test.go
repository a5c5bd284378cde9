package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Connect(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSQLiteProvider(t *testing.T) {
	p := NewSQLiteProvider("/tmp/data")
	assert.Equal(t, "sqlite3", p.Dialect())
	assert.Equal(t, "/tmp/data/lspbridge.db", p.Path())

	_, err := NewSQLiteProvider("").Connect()
	assert.ErrorContains(t, err, "data directory is not set")
}

func TestConnect_MigratesTwice(t *testing.T) {
	dir := t.TempDir()
	first, err := Connect(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Connect(context.Background(), dir)
	require.NoError(t, err)
	defer second.Close()

	var n int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM files").Scan(&n))
	assert.Zero(t, n)
}

func TestQueries_Files(t *testing.T) {
	ctx := context.Background()
	q := New(connect(t))

	_, err := q.CreateSession(ctx, CreateSessionParams{ID: "s1", ProjectID: "proj"})
	require.NoError(t, err)

	for v, content := range []string{"let x=1", "let x=2"} {
		_, err := q.CreateFile(ctx, CreateFileParams{
			ID:        "f" + content,
			SessionID: "s1",
			URI:       "file:///a.ts",
			Content:   content,
			Version:   int64(v + 1),
		})
		require.NoError(t, err)
	}

	latest, err := q.GetLatestFile(ctx, GetLatestFileParams{SessionID: "s1", URI: "file:///a.ts"})
	require.NoError(t, err)
	assert.Equal(t, "let x=2", latest.Content)
	assert.Equal(t, int64(2), latest.Version)

	_, err = q.CreateFile(ctx, CreateFileParams{ID: "dup", SessionID: "s1", URI: "file:///a.ts", Version: 2})
	assert.True(t, IsUniqueViolation(err), "got %v", err)

	files, err := q.ListFilesBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = q.GetLatestFile(ctx, GetLatestFileParams{SessionID: "s1", URI: "file:///missing.ts"})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, q.DeleteSession(ctx, "s1"))
	files, err = q.ListFilesByURI(ctx, "file:///a.ts")
	require.NoError(t, err)
	assert.Empty(t, files, "files go with their session")
}

func TestQueries_RequiresSession(t *testing.T) {
	q := New(connect(t))
	_, err := q.CreateFile(context.Background(), CreateFileParams{ID: "f", SessionID: "nope", URI: "u", Version: 1})
	assert.Error(t, err)
}
