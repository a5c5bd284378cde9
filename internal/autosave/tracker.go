// Package autosave turns bursts of edits into a single save per document
// once the document has been quiet for a while.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opencode-ai/lspbridge/internal/logging"
	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("autosave tracker closed")

type Options struct {
	// Delay is the quiet period after the last change before saving.
	Delay time.Duration
	Saver Saver
	// OnSaved is called after every save attempt, successful or not.
	OnSaved func(uri, content string, err error)
}

type pendingSave struct {
	content string
	timer   *time.Timer
	gen     uint64
}

// Tracker debounces saves per URI. A failed save is reported and not
// retried; the next change schedules a new one.
type Tracker struct {
	delay   time.Duration
	saver   Saver
	onSaved func(uri, content string, err error)

	mu       sync.Mutex
	pending  map[string]*pendingSave
	gen      uint64
	closed   bool
	inflight sync.WaitGroup
}

func New(opts Options) *Tracker {
	return &Tracker{
		delay:   opts.Delay,
		saver:   opts.Saver,
		onSaved: opts.OnSaved,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule (re)arms the timer for uri with the latest content.
func (t *Tracker) Schedule(uri, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	p, ok := t.pending[uri]
	if ok {
		p.timer.Stop()
	} else {
		p = &pendingSave{}
		t.pending[uri] = p
	}
	t.gen++
	p.content = content
	p.gen = t.gen
	p.timer = t.arm(uri, p.gen)
	return nil
}

func (t *Tracker) arm(uri string, gen uint64) *time.Timer {
	return time.AfterFunc(t.delay, func() { t.fire(uri, gen) })
}

func (t *Tracker) fire(uri string, gen uint64) {
	t.mu.Lock()
	p, ok := t.pending[uri]
	// A stopped timer may still fire if it raced with Stop; the generation
	// tells a superseded timer apart from the current one.
	if t.closed || !ok || p.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.pending, uri)
	t.inflight.Add(1)
	t.mu.Unlock()

	defer t.inflight.Done()
	defer logging.RecoverPanic("autosave", nil)
	t.save(context.Background(), uri, p.content)
}

func (t *Tracker) save(ctx context.Context, uri, content string) error {
	err := t.saver.Save(ctx, uri, content)
	if err != nil {
		logging.Warn("autosave failed", "uri", uri, "error", err)
	} else {
		logging.Debug("autosaved", "uri", uri, "bytes", len(content))
	}
	if t.onSaved != nil {
		t.onSaved(uri, content, err)
	}
	return err
}

func (t *Tracker) take(uri string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[uri]
	if !ok {
		return "", false
	}
	p.timer.Stop()
	delete(t.pending, uri)
	return p.content, true
}

// Flush saves the pending content of uri now, if any.
func (t *Tracker) Flush(ctx context.Context, uri string) error {
	content, ok := t.take(uri)
	if !ok {
		return nil
	}
	return t.save(ctx, uri, content)
}

// Save drops any pending save of uri and saves content now.
func (t *Tracker) Save(ctx context.Context, uri, content string) error {
	t.take(uri)
	return t.save(ctx, uri, content)
}

// Cancel drops the pending save of uri without saving.
func (t *Tracker) Cancel(uri string) bool {
	_, ok := t.take(uri)
	return ok
}

// Rename moves a pending save to newURI. The quiet period starts over.
func (t *Tracker) Rename(oldURI, newURI string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[oldURI]
	if !ok || t.closed {
		return
	}
	p.timer.Stop()
	delete(t.pending, oldURI)

	if existing, ok := t.pending[newURI]; ok {
		existing.timer.Stop()
	}
	t.gen++
	p.gen = t.gen
	p.timer = t.arm(newURI, p.gen)
	t.pending[newURI] = p
}

func (t *Tracker) Pending(uri string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[uri]
	return ok
}

// Close saves everything still pending and waits for saves already running.
// It returns the first save error. Further calls do nothing.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pending := t.pending
	t.pending = make(map[string]*pendingSave)
	for _, p := range pending {
		p.timer.Stop()
	}
	t.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for uri, p := range pending {
		g.Go(func() error {
			return t.save(gctx, uri, p.content)
		})
	}
	err := g.Wait()
	t.inflight.Wait()
	return err
}
