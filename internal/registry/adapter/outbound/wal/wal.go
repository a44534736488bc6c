package wal

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
	"github.com/spaolacci/murmur3"
)

const (
	SegmentPrefix = "events_"
	SegmentSuffix = ".log"

	// DefaultMaxSegmentSize is 16MB; ledger events are small, so a segment
	// holds tens of thousands of them.
	DefaultMaxSegmentSize = 16 * 1024 * 1024

	// frame header: 4-byte payload length + 8-byte murmur3-64 checksum.
	headerSize = 12
)

var ErrCorruptSegment = errors.New("corrupt wal segment")

// Config controls where and how the event log is persisted.
type Config struct {
	Dir            string
	MaxSegmentSize int64
	FSync          bool
}

// Log is a segmented append-only store for ledger events. Each event is a
// length-prefixed, checksummed gob frame. Segments rotate by size and are
// replayed in full on open; a torn write at the tail of the newest segment
// is truncated away, corruption anywhere else refuses to open.
type Log struct {
	mu sync.Mutex

	dir            string
	active         *os.File
	activeID       uint64
	activeSize     int64
	maxSegmentSize int64
	fsync          bool
}

// Ensure Log implements port.EventLog.
var _ port.EventLog = (*Log)(nil)

// Open replays every segment under cfg.Dir and returns the log ready for
// appends together with the recovered events in order.
func Open(cfg Config) (*Log, []*domain.Event, error) {
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, nil, fmt.Errorf("create wal directory: %w", err)
	}

	l := &Log{
		dir:            filepath.Clean(cfg.Dir),
		maxSegmentSize: cfg.MaxSegmentSize,
		fsync:          cfg.FSync,
	}
	if l.maxSegmentSize <= 0 {
		l.maxSegmentSize = DefaultMaxSegmentSize
	}

	segments, err := l.listSegments()
	if err != nil {
		return nil, nil, err
	}

	var events []*domain.Event
	for i, id := range segments {
		tail := i == len(segments)-1
		segEvents, err := l.replaySegment(id, tail)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, segEvents...)
	}

	l.activeID = 1
	if n := len(segments); n > 0 {
		l.activeID = segments[n-1]
	}
	if err := l.openActive(); err != nil {
		return nil, nil, err
	}

	return l, events, nil
}

// Append durably records one event. The event is visible to a future replay
// only after Append returns nil.
func (l *Log) Append(ctx context.Context, ev *domain.Event) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(ev); err != nil {
		return fmt.Errorf("encode event %d: %w", ev.Seq, err)
	}

	frame := make([]byte, headerSize+payload.Len())
	binary.BigEndian.PutUint32(frame[0:4], uint32(payload.Len()))
	binary.BigEndian.PutUint64(frame[4:12], murmur3.Sum64(payload.Bytes()))
	copy(frame[headerSize:], payload.Bytes())

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return fmt.Errorf("append event %d: log is closed", ev.Seq)
	}
	if l.activeSize > 0 && l.activeSize+int64(len(frame)) > l.maxSegmentSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate segment: %w", err)
		}
	}

	if _, err := l.active.Write(frame); err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}
	if l.fsync {
		if err := l.active.Sync(); err != nil {
			return fmt.Errorf("sync event %d: %w", ev.Seq, err)
		}
	}
	l.activeSize += int64(len(frame))
	return nil
}

// Close flushes and closes the active segment.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return nil
	}
	if err := l.active.Sync(); err != nil {
		_ = l.active.Close()
		l.active = nil
		return err
	}
	err := l.active.Close()
	l.active = nil
	return err
}

func (l *Log) segmentPath(id uint64) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s%05d%s", SegmentPrefix, id, SegmentSuffix))
}

func (l *Log) listSegments() ([]uint64, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list wal directory: %w", err)
	}

	var ids []uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, SegmentPrefix) || !strings.HasSuffix(name, SegmentSuffix) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, SegmentPrefix), SegmentSuffix)
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// replaySegment decodes every frame in one segment. When tail is set, a
// partial frame at the end is treated as a torn write and truncated; in any
// other position it is corruption.
func (l *Log) replaySegment(id uint64, tail bool) ([]*domain.Event, error) {
	path := l.segmentPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segment %d: %w", id, err)
	}

	var events []*domain.Event
	offset := 0
	for offset < len(data) {
		rest := data[offset:]
		if len(rest) < headerSize {
			break
		}
		payloadLen := int(binary.BigEndian.Uint32(rest[0:4]))
		if len(rest) < headerSize+payloadLen {
			break
		}
		payload := rest[headerSize : headerSize+payloadLen]
		if murmur3.Sum64(payload) != binary.BigEndian.Uint64(rest[4:12]) {
			return nil, fmt.Errorf("segment %d offset %d: checksum mismatch: %w", id, offset, ErrCorruptSegment)
		}

		ev := &domain.Event{}
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(ev); err != nil {
			return nil, fmt.Errorf("segment %d offset %d: decode: %w", id, offset, ErrCorruptSegment)
		}
		events = append(events, ev)
		offset += headerSize + payloadLen
	}

	if offset < len(data) {
		if !tail {
			return nil, fmt.Errorf("segment %d: partial frame at offset %d: %w", id, offset, ErrCorruptSegment)
		}
		logger.Warnw("Truncating torn write at wal tail",
			"segment", id, "offset", offset, "dropped_bytes", len(data)-offset)
		if err := os.Truncate(path, int64(offset)); err != nil {
			return nil, fmt.Errorf("truncate segment %d: %w", id, err)
		}
	}

	return events, nil
}

func (l *Log) openActive() error {
	f, err := os.OpenFile(l.segmentPath(l.activeID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open segment %d: %w", l.activeID, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat segment %d: %w", l.activeID, err)
	}
	l.active = f
	l.activeSize = info.Size()
	return nil
}

func (l *Log) rotate() error {
	if err := l.active.Sync(); err != nil {
		return err
	}
	if err := l.active.Close(); err != nil {
		return err
	}
	l.activeID++
	return l.openActive()
}
