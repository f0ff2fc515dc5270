package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/session"
	"github.com/dmitrijs2005/connecta/internal/logging"
	"github.com/dmitrijs2005/connecta/internal/testkit/fakeapi"
)

type env struct {
	db    *sql.DB
	api   *fakeapi.Server
	store *session.Store
	http  *client.HTTPClient
	auth  AuthService
}

func setup(t *testing.T, opts ...fakeapi.Option) *env {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "connecta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	api := fakeapi.New(t, opts...)
	store := session.NewStore(session.NewMetadataPersister(db), logging.Discard())
	hc, err := client.NewHTTPClient(api.URL, 5*time.Second, store, logging.Discard())
	require.NoError(t, err)

	return &env{
		db:    db,
		api:   api,
		store: store,
		http:  hc,
		auth:  NewAuthService(hc, store, logging.Discard()),
	}
}

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}
