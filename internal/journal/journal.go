// Package journal appends chart cycle events to date-organized JSONL files.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one journal line.
type Entry struct {
	Time  time.Time       `json:"ts"`
	Chart string          `json:"chart"`
	Event json.RawMessage `json:"event"`
}

// Writer queues entries and writes them from a single goroutine to
// <dir>/<YYYY-MM-DD>/cycles.jsonl, rotated by size.
type Writer struct {
	dir       string
	maxSizeMB int
	writeCh   chan Entry
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
	now         func() time.Time
}

// NewWriter starts a Writer. bufferSize bounds the queue; entries beyond it are dropped.
func NewWriter(dir string, bufferSize, maxSizeMB int) *Writer {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	w := &Writer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan Entry, bufferSize),
		done:      make(chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// PublishJSON records v under chart. It never blocks.
func (w *Writer) PublishJSON(chart string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("journal marshal failed", "chart", chart, "error", err)
		return
	}
	if err := w.Write(Entry{Time: w.now(), Chart: chart, Event: data}); err != nil {
		slog.Warn("journal entry dropped", "chart", chart, "error", err)
	}
}

// Write queues an entry.
func (w *Writer) Write(e Entry) error {
	select {
	case <-w.done:
		return fmt.Errorf("journal closed")
	default:
	}
	select {
	case w.writeCh <- e:
		return nil
	default:
		return fmt.Errorf("journal buffer full")
	}
}

// Close flushes queued entries and closes the current file.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case e := <-w.writeCh:
			w.writeEntry(e)
		case <-w.done:
			for {
				select {
				case e := <-w.writeCh:
					w.writeEntry(e)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) writeEntry(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("journal marshal failed", "chart", e.Chart, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := e.Time.UTC().Format("2006-01-02")
	if date != w.currentDate || w.logger == nil {
		if err := w.rotateForDate(date); err != nil {
			slog.Error("journal rotate failed", "date", date, "error", err)
			return
		}
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "chart", e.Chart, "error", err)
	}
}

func (w *Writer) rotateForDate(date string) error {
	if w.logger != nil {
		if err := w.logger.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
		w.logger = nil
	}

	dir := filepath.Join(w.dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filename := filepath.Join(dir, "cycles.jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Info("journal file opened", "file", filename)
	return nil
}
