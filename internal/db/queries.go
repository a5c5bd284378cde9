package db

import (
	"context"
	"time"
)

const createSession = `INSERT INTO sessions (id, project_id, created_at)
VALUES (?, ?, ?)
RETURNING id, project_id, created_at`

type CreateSessionParams struct {
	ID        string
	ProjectID string
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, createSession, arg.ID, arg.ProjectID, time.Now().UnixMilli())
	var i Session
	err := row.Scan(&i.ID, &i.ProjectID, &i.CreatedAt)
	return i, err
}

const getSession = `SELECT id, project_id, created_at FROM sessions WHERE id = ? LIMIT 1`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i Session
	err := row.Scan(&i.ID, &i.ProjectID, &i.CreatedAt)
	return i, err
}

const listSessionsByProject = `SELECT id, project_id, created_at FROM sessions
WHERE project_id = ?
ORDER BY created_at DESC, id`

func (q *Queries) ListSessionsByProject(ctx context.Context, projectID string) ([]Session, error) {
	rows, err := q.db.QueryContext(ctx, listSessionsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Session{}
	for rows.Next() {
		var i Session
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSession = `DELETE FROM sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const createFile = `INSERT INTO files (id, session_id, uri, content, version, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, session_id, uri, content, version, created_at`

type CreateFileParams struct {
	ID        string
	SessionID string
	URI       string
	Content   string
	Version   int64
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (File, error) {
	row := q.db.QueryRowContext(ctx, createFile,
		arg.ID,
		arg.SessionID,
		arg.URI,
		arg.Content,
		arg.Version,
		time.Now().UnixMilli(),
	)
	var i File
	err := row.Scan(&i.ID, &i.SessionID, &i.URI, &i.Content, &i.Version, &i.CreatedAt)
	return i, err
}

const getLatestFile = `SELECT id, session_id, uri, content, version, created_at FROM files
WHERE session_id = ? AND uri = ?
ORDER BY version DESC
LIMIT 1`

type GetLatestFileParams struct {
	SessionID string
	URI       string
}

func (q *Queries) GetLatestFile(ctx context.Context, arg GetLatestFileParams) (File, error) {
	row := q.db.QueryRowContext(ctx, getLatestFile, arg.SessionID, arg.URI)
	var i File
	err := row.Scan(&i.ID, &i.SessionID, &i.URI, &i.Content, &i.Version, &i.CreatedAt)
	return i, err
}

const listFilesBySession = `SELECT id, session_id, uri, content, version, created_at FROM files
WHERE session_id = ?
ORDER BY uri, version`

func (q *Queries) ListFilesBySession(ctx context.Context, sessionID string) ([]File, error) {
	return q.listFiles(ctx, listFilesBySession, sessionID)
}

const listFilesByURI = `SELECT id, session_id, uri, content, version, created_at FROM files
WHERE uri = ?
ORDER BY created_at, version`

func (q *Queries) ListFilesByURI(ctx context.Context, uri string) ([]File, error) {
	return q.listFiles(ctx, listFilesByURI, uri)
}

func (q *Queries) listFiles(ctx context.Context, query string, arg string) ([]File, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []File{}
	for rows.Next() {
		var i File
		if err := rows.Scan(&i.ID, &i.SessionID, &i.URI, &i.Content, &i.Version, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSessionFiles = `DELETE FROM files WHERE session_id = ?`

func (q *Queries) DeleteSessionFiles(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, deleteSessionFiles, sessionID)
	return err
}
