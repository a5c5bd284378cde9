// Package app wires configuration, storage and the language service into a
// ready editor session for the command line.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-ai/lspbridge/internal/autosave"
	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/db"
	"github.com/opencode-ai/lspbridge/internal/history"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/lsp"
	"github.com/opencode-ai/lspbridge/internal/session"
	"github.com/opencode-ai/lspbridge/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	// Files decide which built-in server is started when the configuration
	// names none.
	Files []string
	// Watch reloads open documents changed on disk.
	Watch bool
	// ReadOnly disables writing documents back to disk.
	ReadOnly  bool
	Callbacks session.Callbacks
}

type App struct {
	Session *session.Session
	Surface *HeadlessSurface
	History history.Service

	cfg     *config.Config
	conn    *sql.DB
	watcher *workspace.Watcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{cfg: cfg}

	dialer, initialization, err := newDialer(cfg, opts.Files)
	if err != nil {
		return nil, err
	}
	client := lsp.NewClient(lsp.Options{
		Dialer:           dialer,
		RootURI:          lsp.PathToURI(cfg.WorkingDir),
		FormatTimeout:    cfg.LanguageService.FormatTimeout,
		HandshakeTimeout: cfg.LanguageService.HandshakeTimeout,
		MinBackoff:       cfg.LanguageService.MinBackoff,
		MaxBackoff:       cfg.LanguageService.MaxBackoff,
		Initialization:   initialization,
		Debug:            cfg.DebugLSP,
	})

	id := uuid.New().String()
	var savers []autosave.Saver
	if !opts.ReadOnly {
		savers = append(savers, &workspace.FileSaver{})
	}
	if !cfg.History.Disabled {
		if err := app.initHistory(ctx, id); err != nil {
			// Editing works without history.
			logging.Warn("history disabled", "error", err)
			app.closeDB()
			app.History = nil
		} else {
			savers = append(savers, app.History.Saver(id))
		}
	}

	app.Surface = NewHeadlessSurface()
	sess := session.New(session.Options{
		ID:              id,
		Editor:          cfg.Editor,
		Surface:         app.Surface,
		LanguageService: client,
		Saver:           autosave.Chain(savers...),
		Callbacks:       opts.Callbacks,
	})
	app.Session = sess

	if err := sess.Mount(app.Surface); err != nil {
		app.closeDB()
		return nil, fmt.Errorf("failed to mount session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel
	if opts.Watch && cfg.Workspace.Watch {
		if err := app.startWatcher(runCtx); err != nil {
			logging.Warn("workspace watcher not started", "error", err)
		}
	}
	return app, nil
}

func (app *App) initHistory(ctx context.Context, sessionID string) error {
	conn, err := db.Connect(ctx, app.cfg.Data.Directory)
	if err != nil {
		return err
	}
	app.conn = conn
	app.History = history.NewService(db.New(conn), conn)
	return app.History.StartSession(ctx, sessionID, db.ProjectID(app.cfg.WorkingDir))
}

func (app *App) startWatcher(ctx context.Context) error {
	watcher, err := workspace.NewWatcher(workspace.WatcherOptions{
		Root:   app.cfg.WorkingDir,
		Ignore: app.cfg.Workspace.Ignore,
		Target: app.Session,
	})
	if err != nil {
		return err
	}
	app.watcher = watcher

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("workspace watcher stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown unmounts the session, which writes pending saves, then stops the
// watcher and closes the database.
func (app *App) Shutdown() error {
	var err error
	app.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = app.Session.Unmount(ctx)
		if app.cancel != nil {
			app.cancel()
		}
		app.wg.Wait()
		app.closeDB()
		logging.Info("shutdown complete")
	})
	return err
}

func (app *App) closeDB() {
	if app.conn == nil {
		return
	}
	if err := app.conn.Close(); err != nil {
		logging.Error("failed to close database", "error", err)
	}
	app.conn = nil
}
