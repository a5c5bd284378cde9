// Package history records every saved version of a document in the local
// database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opencode-ai/lspbridge/internal/autosave"
	"github.com/opencode-ai/lspbridge/internal/db"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

var ErrNotFound = errors.New("no saved version")

type Version struct {
	ID        string
	SessionID string
	URI       string
	Content   string
	Version   int64
	CreatedAt int64
}

type Service interface {
	pubsub.Suscriber[Version]
	// StartSession registers an editor session under projectID.
	StartSession(ctx context.Context, sessionID, projectID string) error
	// Record stores content as the next version of uri. Content identical
	// to the latest version is not stored again.
	Record(ctx context.Context, sessionID, uri, content string) (Version, error)
	Latest(ctx context.Context, sessionID, uri string) (Version, error)
	ListBySession(ctx context.Context, sessionID string) ([]Version, error)
	ListByURI(ctx context.Context, uri string) ([]Version, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// Saver records versions of sessionID through the autosave pipeline.
	Saver(sessionID string) autosave.Saver
}

type service struct {
	*pubsub.Broker[Version]
	db *sql.DB
	q  db.QuerierWithTx
}

func NewService(q db.QuerierWithTx, database *sql.DB) Service {
	return &service{
		Broker: pubsub.NewBroker[Version](),
		q:      q,
		db:     database,
	}
}

func (s *service) StartSession(ctx context.Context, sessionID, projectID string) error {
	_, err := s.q.CreateSession(ctx, db.CreateSessionParams{ID: sessionID, ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("failed to create history session: %w", err)
	}
	return nil
}

func (s *service) Record(ctx context.Context, sessionID, uri, content string) (Version, error) {
	const maxRetries = 3

	var lastErr error
	for range maxRetries {
		version, skipped, err := s.record(ctx, sessionID, uri, content)
		if err == nil {
			if !skipped {
				s.Publish(pubsub.CreatedEvent, version)
				logging.Debug("Version recorded", "uri", uri, "session", sessionID, "version", version.Version)
			}
			return version, nil
		}
		if !db.IsUniqueViolation(err) {
			logging.Error("Failed to record version", "uri", uri, "session", sessionID, "error", err)
			return Version{}, err
		}
		// Another writer took the version number; read the latest again.
		lastErr = err
	}
	logging.Warn("Version recording retries exceeded", "uri", uri, "session", sessionID)
	return Version{}, lastErr
}

func (s *service) record(ctx context.Context, sessionID, uri, content string) (Version, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	qtx := s.q.WithTx(tx)

	next := int64(1)
	latest, err := qtx.GetLatestFile(ctx, db.GetLatestFileParams{SessionID: sessionID, URI: uri})
	switch {
	case err == nil:
		if latest.Content == content {
			return fromDBItem(latest), true, nil
		}
		next = latest.Version + 1
	case !errors.Is(err, sql.ErrNoRows):
		return Version{}, false, err
	}

	file, err := qtx.CreateFile(ctx, db.CreateFileParams{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		URI:       uri,
		Content:   content,
		Version:   next,
	})
	if err != nil {
		return Version{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return fromDBItem(file), false, nil
}

func (s *service) Latest(ctx context.Context, sessionID, uri string) (Version, error) {
	file, err := s.q.GetLatestFile(ctx, db.GetLatestFileParams{SessionID: sessionID, URI: uri})
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("%s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return Version{}, err
	}
	return fromDBItem(file), nil
}

func (s *service) ListBySession(ctx context.Context, sessionID string) ([]Version, error) {
	files, err := s.q.ListFilesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return fromDBItems(files), nil
}

func (s *service) ListByURI(ctx context.Context, uri string) ([]Version, error) {
	files, err := s.q.ListFilesByURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fromDBItems(files), nil
}

func (s *service) DeleteSession(ctx context.Context, sessionID string) error {
	versions, err := s.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.q.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	for _, v := range versions {
		s.Publish(pubsub.DeletedEvent, v)
	}
	return nil
}

func (s *service) Saver(sessionID string) autosave.Saver {
	return autosave.SaverFunc(func(ctx context.Context, uri, content string) error {
		_, err := s.Record(ctx, sessionID, uri, content)
		return err
	})
}

func fromDBItem(item db.File) Version {
	return Version{
		ID:        item.ID,
		SessionID: item.SessionID,
		URI:       item.URI,
		Content:   item.Content,
		Version:   item.Version,
		CreatedAt: item.CreatedAt,
	}
}

func fromDBItems(items []db.File) []Version {
	versions := make([]Version, len(items))
	for i, item := range items {
		versions[i] = fromDBItem(item)
	}
	return versions
}
