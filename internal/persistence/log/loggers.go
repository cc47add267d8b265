package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/viz"
)

// Segments are named <prefix>-<run>-<first tick>.jsonl.zst. run is the UTC
// start time of the writing process and the tick is zero padded, so a
// directory sorts chronologically and tick numbers only restart where the
// run stamp changes.
const (
	RunLayout  = "20060102T150405Z"
	tickDigits = 12

	// DefaultSegmentTicks is one hour at the default 20 Hz tick rate.
	DefaultSegmentTicks = 72000
)

// SegmentName returns the file name of the segment starting at tick.
func SegmentName(prefix, run string, tick uint64) string {
	return fmt.Sprintf("%s-%s-%0*d.jsonl.zst", prefix, run, tickDigits, tick)
}

// segmentLog appends JSON lines to zstd segments cut on host tick windows.
// A segment is only readable once it has been closed by rotation or Close.
type segmentLog[T any] struct {
	dir    string
	prefix string
	run    string
	span   uint64
	tickOf func(T) uint64

	mu    sync.Mutex
	start uint64
	f     *os.File
	zw    *zstd.Encoder
	enc   *json.Encoder
}

func newSegmentLog[T any](dir, prefix string, span uint64, tickOf func(T) uint64) *segmentLog[T] {
	if span == 0 {
		span = DefaultSegmentTicks
	}
	return &segmentLog[T]{
		dir:    dir,
		prefix: prefix,
		run:    time.Now().UTC().Format(RunLayout),
		span:   span,
		tickOf: tickOf,
	}
}

func (l *segmentLog[T]) write(v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tick := l.tickOf(v)
	start := tick - tick%l.span
	if l.zw == nil || start != l.start {
		if err := l.openLocked(start); err != nil {
			return err
		}
	}
	return l.enc.Encode(v)
}

func (l *segmentLog[T]) openLocked(start uint64) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, SegmentName(l.prefix, l.run, start))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	l.f, l.zw, l.enc, l.start = f, zw, enc, start
	return nil
}

func (l *segmentLog[T]) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *segmentLog[T]) closeLocked() error {
	if l.zw == nil {
		return nil
	}
	err := l.zw.Close()
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f, l.zw, l.enc = nil, nil, nil
	return err
}

// TickLogger writes the host's non-idle ticks to <data>/ticks.
type TickLogger struct{ l *segmentLog[host.TickLogEntry] }

// NewTickLogger cuts a new segment every segmentTicks ticks; zero means
// DefaultSegmentTicks.
func NewTickLogger(dataDir string, segmentTicks uint64) *TickLogger {
	return &TickLogger{l: newSegmentLog(filepath.Join(dataDir, "ticks"), "ticks", segmentTicks,
		func(e host.TickLogEntry) uint64 { return e.Tick })}
}

func (t *TickLogger) WriteTick(e host.TickLogEntry) error { return t.l.write(e) }
func (t *TickLogger) Close() error                        { return t.l.close() }

// AuditLogger writes the visualization lifecycle to <data>/audit, segmented
// on the same tick windows as the tick log.
type AuditLogger struct{ l *segmentLog[viz.AuditEntry] }

func NewAuditLogger(dataDir string, segmentTicks uint64) *AuditLogger {
	return &AuditLogger{l: newSegmentLog(filepath.Join(dataDir, "audit"), "audit", segmentTicks,
		func(e viz.AuditEntry) uint64 { return e.Tick })}
}

func (a *AuditLogger) WriteAudit(e viz.AuditEntry) error { return a.l.write(e) }
func (a *AuditLogger) Close() error                      { return a.l.close() }
