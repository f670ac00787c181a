package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/events"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/replay/codec"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// Archiver stores decoded games. *storage.Service satisfies it.
type Archiver interface {
	Archive(ctx context.Context, data *bingo.GameLogData, source models.Source) (*models.GameLog, error)
}

// ImportStats counts importer outcomes.
type ImportStats struct {
	Archived   int64 `json:"archived"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// Importer archives report files dropped into a directory.
type Importer struct {
	dir        string
	debounce   time.Duration
	archiver   Archiver
	dispatcher *events.EventDispatcher
	log        *logrus.Entry

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
	done    chan struct{}

	archived   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewImporter creates an importer for dir. dispatcher may be nil.
func NewImporter(dir string, debounce time.Duration, archiver Archiver, dispatcher *events.EventDispatcher) *Importer {
	return &Importer{
		dir:        dir,
		debounce:   debounce,
		archiver:   archiver,
		dispatcher: dispatcher,
		log:        logger.Component("importer").WithField("dir", dir),
		pending:    make(map[string]*time.Timer),
	}
}

// Dir returns the watched directory.
func (im *Importer) Dir() string {
	return im.dir
}

// Stats returns the counters since creation.
func (im *Importer) Stats() ImportStats {
	return ImportStats{
		Archived:   im.archived.Load(),
		Duplicates: im.duplicates.Load(),
		Failed:     im.failed.Load(),
	}
}

// IsReport reports whether path looks like a downloaded report.
func IsReport(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// ImportFile decodes the report at path and archives it. A report that is
// already archived returns the stored record and storage.ErrDuplicateGame.
func (im *Importer) ImportFile(ctx context.Context, path string) (*models.GameLog, error) {
	rec, err := im.importFile(ctx, path)
	switch {
	case errors.Is(err, storage.ErrDuplicateGame):
		im.duplicates.Add(1)
		im.log.WithField("file", filepath.Base(path)).Debug("report already archived")
	case err != nil:
		im.failed.Add(1)
		im.log.WithError(err).WithField("file", filepath.Base(path)).Warn("failed to import report")
		im.dispatch(events.TypeImportFailed, events.ImportFailedEvent{Path: path, Error: err.Error()})
	default:
		im.archived.Add(1)
		im.log.WithFields(logrus.Fields{
			"file": filepath.Base(path),
			"id":   rec.ID,
		}).Info("report archived")
		im.dispatch(events.TypeGameArchived, events.GameArchivedEvent{
			ID:      rec.ID,
			Players: []string{rec.PlayerA, rec.PlayerB},
			Source:  string(rec.Source),
		})
	}
	return rec, err
}

func (im *Importer) importFile(ctx context.Context, path string) (*models.GameLog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	payload, err := codec.DecodeReport(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return im.archiver.Archive(ctx, &payload.Data, models.SourceImport)
}

// Scan imports every report already in the directory and returns how many
// were newly archived.
func (im *Importer) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(im.dir)
	if err != nil {
		return 0, fmt.Errorf("read import dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !IsReport(e.Name()) {
			continue
		}
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if _, err := im.ImportFile(ctx, filepath.Join(im.dir, e.Name())); err == nil {
			n++
		}
	}
	return n, nil
}

// Start creates the directory if needed and begins watching it. Files are
// imported once no write has touched them for the debounce period. Watching
// stops when ctx is cancelled; Wait blocks until then.
func (im *Importer) Start(ctx context.Context) error {
	if err := os.MkdirAll(im.dir, 0o755); err != nil {
		return fmt.Errorf("create import dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(im.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch import dir: %w", err)
	}

	im.done = make(chan struct{})
	go im.watch(ctx, watcher)
	im.log.Info("watching for reports")
	return nil
}

// Wait blocks until the watcher has stopped and pending imports finished.
func (im *Importer) Wait() {
	if im.done != nil {
		<-im.done
	}
	im.wg.Wait()
}

func (im *Importer) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(im.done)
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			im.cancelPending()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if IsReport(ev.Name) {
				im.schedule(ctx, ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			im.log.WithError(err).Warn("watcher error")
		}
	}
}

// schedule (re)arms the debounce timer of path.
func (im *Importer) schedule(ctx context.Context, path string) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if t, ok := im.pending[path]; ok && t.Stop() {
		im.wg.Done()
	}
	im.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(im.debounce, func() {
		defer im.wg.Done()
		im.mu.Lock()
		if im.pending[path] == timer {
			delete(im.pending, path)
		}
		im.mu.Unlock()
		if ctx.Err() == nil {
			_, _ = im.ImportFile(ctx, path)
		}
	})
	im.pending[path] = timer
}

func (im *Importer) cancelPending() {
	im.mu.Lock()
	defer im.mu.Unlock()
	for path, t := range im.pending {
		if t.Stop() {
			im.wg.Done()
		}
		delete(im.pending, path)
	}
}

func (im *Importer) dispatch(eventType string, data any) {
	if im.dispatcher == nil {
		return
	}
	im.dispatcher.Dispatch(events.NewEvent(context.Background(), eventType, data))
}
