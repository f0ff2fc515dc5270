package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/connecta/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/connecta/internal/dbx"
)

// Metadata keys. The durable state and the raw tokens live under separate
// keys and are cleared together.
const (
	keyState        = "auth_state"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Persisted is what survives a restart.
type Persisted struct {
	Authenticated bool      `json:"is_authenticated"`
	Identity      *Identity `json:"user"`
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
}

// Persister stores session state between runs.
type Persister interface {
	Load(ctx context.Context) (Persisted, error)
	Save(ctx context.Context, p Persisted) error
	SaveAccessToken(ctx context.Context, token string, state Persisted) error
	Clear(ctx context.Context) error
}

// MetadataPersister keeps the session in the metadata table of the local
// SQLite database.
type MetadataPersister struct {
	db *sql.DB
}

func NewMetadataPersister(db *sql.DB) *MetadataPersister {
	return &MetadataPersister{db: db}
}

func (m *MetadataPersister) Load(ctx context.Context) (Persisted, error) {
	var p Persisted
	repo := metadata.NewSQLiteRepository(m.db)

	state, err := repo.Get(ctx, keyState)
	if err != nil {
		return p, err
	}
	if state != nil {
		// a corrupt state blob is treated like a missing one
		_ = json.Unmarshal(state, &p)
	}

	access, err := repo.Get(ctx, keyAccessToken)
	if err != nil {
		return p, err
	}
	refresh, err := repo.Get(ctx, keyRefreshToken)
	if err != nil {
		return p, err
	}
	p.AccessToken = string(access)
	p.RefreshToken = string(refresh)
	return p, nil
}

func (m *MetadataPersister) Save(ctx context.Context, p Persisted) error {
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			keyState:        state,
			keyAccessToken:  []byte(p.AccessToken),
			keyRefreshToken: []byte(p.RefreshToken),
		})
	})
}

func (m *MetadataPersister) SaveAccessToken(ctx context.Context, token string, p Persisted) error {
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			keyState:       state,
			keyAccessToken: []byte(token),
		})
	})
}

func (m *MetadataPersister) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, keyState, keyAccessToken, keyRefreshToken)
	})
}
