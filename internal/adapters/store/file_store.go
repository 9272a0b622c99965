package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

const (
	recordHeaderLen = 12
	logName         = "results.log"

	opPut = "put"
	opDel = "del"
)

type logEntry struct {
	Op     string               `json:"op"`
	Key    string               `json:"key"`
	Record *domain.ResultRecord `json:"record,omitempty"`
}

// FileOptions tunes FileStore durability and compaction.
type FileOptions struct {
	// Sync fsyncs after every write.
	Sync bool
	// CompactBytes rewrites the log once it grows past this size. 0 disables.
	CompactBytes int64
	// ReadOnly opens the log for inspection without writing or truncating.
	ReadOnly bool
}

// FileStore is an append-only log of keyed records. The latest entry per key
// wins; the log is replayed on open so records survive restarts and can be
// read by another process.
type FileStore struct {
	mu        sync.Mutex
	path      string
	opts      FileOptions
	file      *os.File
	writer    *bufio.Writer
	seq       uint64
	sizeBytes int64
	recs      map[string]*domain.ResultRecord
	closed    bool
}

func NewFileStore(dir string, opts FileOptions) (*FileStore, error) {
	path := filepath.Join(dir, logName)
	s := &FileStore{
		path: path,
		opts: opts,
		recs: make(map[string]*domain.ResultRecord),
	}

	if opts.ReadOnly {
		if err := s.replay(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.file = f
	s.writer = bufio.NewWriterSize(f, 64<<10)
	if err := s.replay(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Name() string { return "file" }

// replay rebuilds the key index. A torn tail is truncated unless read only.
func (s *FileStore) replay() error {
	rf, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("result log scan header: %w", err)
		}
		seq := binary.BigEndian.Uint64(hdr[0:8])
		length := binary.BigEndian.Uint32(hdr[8:12])

		body := make([]byte, length)
		if _, err := io.ReadFull(reader, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("result log scan body: %w", err)
		}

		var entry logEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return fmt.Errorf("corrupt result log entry %d: %w", seq, err)
		}
		s.applyLocked(entry)
		offset += recordHeaderLen + int64(length)
		s.seq = seq
	}

	if s.file != nil {
		if err := s.file.Truncate(offset); err != nil {
			return err
		}
		if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}
	s.sizeBytes = offset
	return nil
}

func (s *FileStore) applyLocked(e logEntry) {
	switch e.Op {
	case opPut:
		if e.Record != nil {
			s.recs[e.Key] = e.Record
		}
	case opDel:
		delete(s.recs, e.Key)
	}
}

func (s *FileStore) Publish(_ context.Context, key string, rec *domain.ResultRecord) error {
	if rec == nil {
		return nil
	}
	cp := *rec
	return s.write(logEntry{Op: opPut, Key: key, Record: &cp})
}

func (s *FileStore) Clear(_ context.Context, key string) error {
	return s.write(logEntry{Op: opDel, Key: key})
}

func (s *FileStore) write(e logEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.ErrStoreClosed
	}
	if s.opts.ReadOnly {
		return fmt.Errorf("result log %s opened read only", s.path)
	}

	n, err := s.appendLocked(s.writer, s.seq+1, e)
	if err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.opts.Sync {
		if err := s.file.Sync(); err != nil {
			return err
		}
	}
	s.seq++
	s.sizeBytes += n
	s.applyLocked(e)

	if s.opts.CompactBytes > 0 && s.sizeBytes > s.opts.CompactBytes {
		return s.compactLocked()
	}
	return nil
}

// entry format: [8 bytes seq][4 bytes len][len bytes json]
func (s *FileStore) appendLocked(w io.Writer, seq uint64, e logEntry) (int64, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return 0, err
	}
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(b); err != nil {
		return 0, err
	}
	return int64(len(hdr) + len(b)), nil
}

func (s *FileStore) Consume(_ context.Context, key string) (*domain.ResultRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (s *FileStore) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.recs))
	for k := range s.recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Compact rewrites the log with one entry per live key.
func (s *FileStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.ErrStoreClosed
	}
	if s.opts.ReadOnly {
		return fmt.Errorf("result log %s opened read only", s.path)
	}
	return s.compactLocked()
}

func (s *FileStore) compactLocked() error {
	tmpPath := s.path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(tmp)

	keys := make([]string, 0, len(s.recs))
	for k := range s.recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		size int64
		seq  uint64
	)
	for _, k := range keys {
		seq++
		n, err := s.appendLocked(w, seq, logEntry{Op: opPut, Key: k, Record: s.recs[k]})
		if err != nil {
			_ = tmp.Close()
			return err
		}
		size += n
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.writer = bufio.NewWriterSize(f, 64<<10)
	s.seq = seq
	s.sizeBytes = size
	return nil
}

// Reload replays the log again so a read only store sees records written
// by another process since it was opened.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opts.ReadOnly {
		return nil
	}
	s.recs = make(map[string]*domain.ResultRecord)
	s.seq = 0
	return s.replay()
}

// SizeBytes reports the current log size.
func (s *FileStore) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeBytes
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.file == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	if err := s.writer.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

var _ ports.ResultChannel = (*FileStore)(nil)
