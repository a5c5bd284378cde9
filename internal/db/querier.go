package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Querier interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessionsByProject(ctx context.Context, projectID string) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
	CreateFile(ctx context.Context, arg CreateFileParams) (File, error)
	GetLatestFile(ctx context.Context, arg GetLatestFileParams) (File, error)
	ListFilesBySession(ctx context.Context, sessionID string) ([]File, error)
	ListFilesByURI(ctx context.Context, uri string) ([]File, error)
	DeleteSessionFiles(ctx context.Context, sessionID string) error
}

// QuerierWithTx extends Querier with transaction support.
type QuerierWithTx interface {
	Querier
	WithTx(tx *sql.Tx) QuerierWithTx
}

var _ QuerierWithTx = (*Queries)(nil)

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) QuerierWithTx {
	return &Queries{db: tx}
}
