package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajsharma/dom_tail/internal/events"
)

const (
	// DefaultBufferSize is the default buffer size for log writers (8 KB).
	DefaultBufferSize = 8 * 1024

	// DefaultFlushInterval is the default interval between automatic flushes.
	DefaultFlushInterval = 100 * time.Millisecond
)

// flushMode says how soon a written line must reach the file.
type flushMode int

const (
	flushDeferred flushMode = iota
	flushNow
	syncNow
)

// flushModeFor classifies an event type. Lifecycle and diagnostic lines are
// synced, a new document is flushed, and mutations ride the timer.
func flushModeFor(eventType string) flushMode {
	switch {
	case strings.HasPrefix(eventType, "meta."), strings.HasPrefix(eventType, "mirror."):
		return syncNow
	case eventType == events.EventDOMDocumentUpdated:
		return flushNow
	default:
		return flushDeferred
	}
}

// logWriter owns one JSONL file for a tab on a site.
type logWriter struct {
	file       *os.File
	writer     *bufio.Writer
	flushTimer *time.Timer
	mu         sync.Mutex
	site       string
	tabID      string
	lines      int
}

// FileManager manages the JSONL files of all tabs.
type FileManager struct {
	baseDir       string
	files         map[string]*logWriter // key: tabID + ":" + site
	mu            sync.RWMutex
	flushInterval time.Duration
	bufferSize    int
	log           *zap.Logger
}

// Option configures a FileManager.
type Option func(*FileManager)

// WithFlushInterval sets the deferred flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(fm *FileManager) { fm.flushInterval = d }
}

// WithBufferSize sets the buffer size of new writers.
func WithBufferSize(size int) Option {
	return func(fm *FileManager) { fm.bufferSize = size }
}

// WithLogger sets the operator logger used for background flush errors.
func WithLogger(l *zap.Logger) Option {
	return func(fm *FileManager) {
		if l != nil {
			fm.log = l
		}
	}
}

// NewFileManager creates a FileManager rooted at baseDir.
func NewFileManager(baseDir string, opts ...Option) *FileManager {
	fm := &FileManager{
		baseDir:       baseDir,
		files:         make(map[string]*logWriter),
		flushInterval: DefaultFlushInterval,
		bufferSize:    DefaultBufferSize,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fm)
	}
	return fm
}

func fileKey(tabID, site string) string {
	return tabID + ":" + site
}

// getWriter returns the writer for a tab and site, opening the file on
// first use.
func (fm *FileManager) getWriter(tabID, site string) (*logWriter, error) {
	key := fileKey(tabID, site)

	fm.mu.RLock()
	if lw, exists := fm.files[key]; exists {
		fm.mu.RUnlock()
		return lw, nil
	}
	fm.mu.RUnlock()

	fm.mu.Lock()
	defer fm.mu.Unlock()

	// Double-check after acquiring write lock
	if lw, exists := fm.files[key]; exists {
		return lw, nil
	}

	path := GetLogPath(fm.baseDir, site, tabID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	lw := &logWriter{
		file:   f,
		writer: bufio.NewWriterSize(f, fm.bufferSize),
		site:   site,
		tabID:  tabID,
	}
	fm.files[key] = lw
	return lw, nil
}

// WriteEvent appends an event to the file of its tab and site.
func (fm *FileManager) WriteEvent(tabID string, event *events.LogEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType, err)
	}

	lw, err := fm.getWriter(tabID, event.Site)
	if err != nil {
		return err
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	if _, err := lw.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", event.EventType, err)
	}
	lw.lines++

	return fm.handleFlush(lw, flushModeFor(event.EventType))
}

// handleFlush applies the flush mode, escalating to an immediate flush when
// the buffer is nearly full. Callers hold lw.mu.
func (fm *FileManager) handleFlush(lw *logWriter, mode flushMode) error {
	if mode == flushDeferred && lw.writer.Buffered() > lw.writer.Size()*3/4 {
		mode = flushNow
	}

	switch mode {
	case syncNow:
		lw.cancelFlushTimer()
		if err := lw.writer.Flush(); err != nil {
			return err
		}
		return lw.file.Sync()
	case flushNow:
		lw.cancelFlushTimer()
		return lw.writer.Flush()
	default:
		fm.scheduleFlush(lw)
		return nil
	}
}

func (fm *FileManager) scheduleFlush(lw *logWriter) {
	if lw.flushTimer != nil {
		return
	}
	lw.flushTimer = time.AfterFunc(fm.flushInterval, func() {
		lw.mu.Lock()
		defer lw.mu.Unlock()
		lw.flushTimer = nil
		if err := lw.writer.Flush(); err != nil {
			fm.log.Warn("deferred flush failed",
				zap.String("tab", lw.tabID), zap.String("site", lw.site), zap.Error(err))
		}
	})
}

func (lw *logWriter) cancelFlushTimer() {
	if lw.flushTimer != nil {
		lw.flushTimer.Stop()
		lw.flushTimer = nil
	}
}

// close flushes, syncs and closes the file.
func (lw *logWriter) close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.cancelFlushTimer()
	return errors.Join(lw.writer.Flush(), lw.file.Sync(), lw.file.Close())
}

// Flush pushes all buffered lines to the OS without closing files.
func (fm *FileManager) Flush() error {
	fm.mu.RLock()
	writers := make([]*logWriter, 0, len(fm.files))
	for _, lw := range fm.files {
		writers = append(writers, lw)
	}
	fm.mu.RUnlock()

	var errs []error
	for _, lw := range writers {
		lw.mu.Lock()
		lw.cancelFlushTimer()
		errs = append(errs, lw.writer.Flush())
		lw.mu.Unlock()
	}
	return errors.Join(errs...)
}

// CloseTab closes the file of one tab on one site.
func (fm *FileManager) CloseTab(tabID, site string) error {
	key := fileKey(tabID, site)

	fm.mu.Lock()
	lw, exists := fm.files[key]
	delete(fm.files, key)
	fm.mu.Unlock()

	if !exists {
		return nil
	}
	return lw.close()
}

// CloseAllForTab closes every file of a tab, across sites.
func (fm *FileManager) CloseAllForTab(tabID string) error {
	return fm.closeWhere(func(lw *logWriter) bool { return lw.tabID == tabID })
}

// Close closes all open files.
func (fm *FileManager) Close() error {
	return fm.closeWhere(func(*logWriter) bool { return true })
}

func (fm *FileManager) closeWhere(match func(*logWriter) bool) error {
	fm.mu.Lock()
	var toClose []*logWriter
	for key, lw := range fm.files {
		if match(lw) {
			toClose = append(toClose, lw)
			delete(fm.files, key)
		}
	}
	fm.mu.Unlock()

	var errs []error
	for _, lw := range toClose {
		errs = append(errs, lw.close())
	}
	return errors.Join(errs...)
}

// GetOpenFiles returns the number of currently open log files.
func (fm *FileManager) GetOpenFiles() int {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return len(fm.files)
}

// LinesWritten returns how many lines were written for a tab on a site
// since its file was opened.
func (fm *FileManager) LinesWritten(tabID, site string) int {
	fm.mu.RLock()
	lw, ok := fm.files[fileKey(tabID, site)]
	fm.mu.RUnlock()
	if !ok {
		return 0
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.lines
}
