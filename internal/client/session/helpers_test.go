package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func metadataRows(t *testing.T, db *sql.DB) map[string]string {
	t.Helper()
	rows, err := db.Query(`SELECT key, value FROM metadata`)
	require.NoError(t, err)
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k string
		var v []byte
		require.NoError(t, rows.Scan(&k, &v))
		out[k] = string(v)
	}
	require.NoError(t, rows.Err())
	return out
}

// failingPersister fails every write; loads return the preset value.
type failingPersister struct {
	loaded  Persisted
	loadErr error
}

var errDisk = errors.New("disk full")

func (f *failingPersister) Load(context.Context) (Persisted, error) { return f.loaded, f.loadErr }
func (f *failingPersister) Save(context.Context, Persisted) error   { return errDisk }
func (f *failingPersister) SaveAccessToken(context.Context, string, Persisted) error {
	return errDisk
}
func (f *failingPersister) Clear(context.Context) error { return errDisk }
