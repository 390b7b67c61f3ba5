package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/watcher"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 1 << 20

// FileLedger reads a JSONL ledger export, one fact per line, in ledger order.
// Lines that do not decode are logged and skipped.
type FileLedger struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex // serializes Append
}

var _ Client = (*FileLedger)(nil)

// NewFileLedger creates a ledger over the export at path. The file may not exist yet.
func NewFileLedger(path string, logger *slog.Logger) *FileLedger {
	return &FileLedger{path: path, logger: logger}
}

// Path returns the export file path.
func (l *FileLedger) Path() string {
	return l.path
}

// Append writes facts to the end of the export and syncs the file.
func (l *FileLedger) Append(facts ...domain.Fact) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range facts {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode fact %s: %w", f.ID, err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger export: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("write ledger export: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync ledger export: %w", err)
	}
	return file.Close()
}

// FactsAfter implements Client by scanning the export.
func (l *FileLedger) FactsAfter(ctx context.Context, after domain.EventID, limit int) ([]domain.Fact, error) {
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		if after.IsZero() {
			return []domain.Fact{}, nil
		}
		return nil, ErrUnknownEvent.WithDetails(map[string]string{"event_id": after.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger export: %w", err)
	}
	defer file.Close()

	found := after.IsZero()
	out := []domain.Fact{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if line%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fact, ok := l.decodeLine(scanner.Bytes(), line)
		if !ok {
			continue
		}
		if !found {
			found = fact.ID == after
			continue
		}
		out = append(out, fact)
		if limit > 0 && len(out) == limit {
			return out, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger export: %w", err)
	}
	if !found {
		return nil, ErrUnknownEvent.WithDetails(map[string]string{"event_id": after.String()})
	}
	return out, nil
}

func (l *FileLedger) decodeLine(raw []byte, line int) (domain.Fact, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Fact{}, false
	}
	var fact domain.Fact
	if err := json.Unmarshal(raw, &fact); err != nil {
		l.logger.Warn("skipping malformed ledger line", "path", l.path, "line", line, "error", err)
		return domain.Fact{}, false
	}
	return fact, true
}

// FileFeedOptions configures a tailing feed.
type FileFeedOptions struct {
	// After is the last event already handled; the zero id starts at the beginning.
	After domain.EventID
	// Watcher, when set, wakes the feed as soon as the export is written.
	Watcher *watcher.Watcher
	// PollInterval re-checks the export when no watcher event arrives.
	PollInterval time.Duration
}

// Feed tails the export, delivering facts appended after opts.After.
func (l *FileLedger) Feed(opts FileFeedOptions) Feed {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	f := &fileFeed{
		ledger: l,
		opts:   opts,
		skip:   !opts.After.IsZero(),
		closed: make(chan struct{}),
	}
	if opts.Watcher != nil {
		f.wake = opts.Watcher.Events()
	}
	return f
}

type fileFeed struct {
	ledger *FileLedger
	opts   FileFeedOptions

	offset  int64
	line    int
	skip    bool // still looking for opts.After
	pending []domain.Fact
	wake    <-chan watcher.Event

	closeOnce sync.Once
	closed    chan struct{}
}

func (f *fileFeed) Next(ctx context.Context) (Delivery, error) {
	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	for {
		if len(f.pending) > 0 {
			fact := f.pending[0]
			f.pending = f.pending[1:]
			return Delivery{Fact: fact, Ack: noAck}, nil
		}

		if err := f.readAvailable(); err != nil {
			return Delivery{}, err
		}
		if len(f.pending) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-f.closed:
			return Delivery{}, ErrClosed
		case ev, ok := <-f.wake:
			if !ok {
				f.wake = nil
				continue
			}
			if ev.Type == watcher.EventRemoved {
				f.ledger.logger.Warn("ledger export removed; waiting for it to reappear", "path", ev.Path)
			}
		case <-ticker.C:
		}
	}
}

// readAvailable reads complete lines appended since the last read.
func (f *fileFeed) readAvailable() error {
	file, err := os.Open(f.ledger.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open ledger export: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger export: %w", err)
	}
	if info.Size() < f.offset {
		// Truncated or replaced: the export is append-only, so start over and
		// let the writer's idempotency absorb the replay.
		f.ledger.logger.Warn("ledger export shrank; rereading from start", "path", f.ledger.path)
		f.offset, f.line = 0, 0
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek ledger export: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		raw, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A trailing partial line is read again once it is complete.
			return nil
		}
		if err != nil {
			return fmt.Errorf("read ledger export: %w", err)
		}
		f.offset += int64(len(raw))
		f.line++

		fact, ok := f.ledger.decodeLine(raw, f.line)
		if !ok {
			continue
		}
		if f.skip {
			f.skip = fact.ID != f.opts.After
			continue
		}
		f.pending = append(f.pending, fact)
	}
}

func (f *fileFeed) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}
