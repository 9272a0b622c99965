package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/BeaconFlow/internal/domain"
)

func TestFileStorePublishReplay(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first := &domain.ResultRecord{TaskName: "watcher", EventCount: 1, Status: domain.StatusSuccess}
	second := &domain.ResultRecord{TaskName: "watcher", EventCount: 3, Status: domain.StatusRadioNotAvailable, SummaryText: "a\nb\nc"}
	other := &domain.ResultRecord{TaskName: "other", EventCount: 9}

	for _, rec := range []*domain.ResultRecord{first, second, other} {
		if err := s.Publish(ctx, rec.TaskName, rec); err != nil {
			t.Fatalf("publish %s: %v", rec.TaskName, err)
		}
	}

	got, ok, err := s.Consume(ctx, "watcher")
	if err != nil || !ok {
		t.Fatalf("consume: ok=%v err=%v", ok, err)
	}
	if got.EventCount != 3 {
		t.Fatalf("latest write should win, got %d events", got.EventCount)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err = reopened.Consume(ctx, "watcher")
	if err != nil || !ok {
		t.Fatalf("consume after reopen: ok=%v err=%v", ok, err)
	}
	if got.EventCount != 3 || got.Status != domain.StatusRadioNotAvailable || got.SummaryText != "a\nb\nc" {
		t.Fatalf("unexpected record after replay: %+v", got)
	}

	keys, err := reopened.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "other" || keys[1] != "watcher" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestFileStoreTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w", EventCount: 2}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	size := s.SizeBytes()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := appendGarbage(filepath.Join(dir, logName)); err != nil {
		t.Fatalf("append garbage: %v", err)
	}

	reopened, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer reopened.Close()

	if reopened.SizeBytes() != size {
		t.Fatalf("expected torn tail to be truncated to %d, got %d", size, reopened.SizeBytes())
	}
	if rec, ok, _ := reopened.Consume(ctx, "w"); !ok || rec.EventCount != 2 {
		t.Fatalf("record lost after truncation: %+v", rec)
	}
	if err := reopened.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w", EventCount: 5}); err != nil {
		t.Fatalf("publish after truncation: %v", err)
	}
}

func TestFileStoreClear(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, FileOptions{Sync: true})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Clear(ctx, "w"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Consume(ctx, "w"); ok {
		t.Fatalf("record should be cleared")
	}
	_ = s.Close()

	reopened, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, _ := reopened.Consume(ctx, "w"); ok {
		t.Fatalf("clear should survive replay")
	}
}

func TestFileStoreCompacts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, FileOptions{CompactBytes: 2048})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for i := 0; i < 100; i++ {
		if err := s.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w", EventCount: i}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if s.SizeBytes() > 2048 {
		t.Fatalf("log should have been compacted, size=%d", s.SizeBytes())
	}
	_ = s.Close()

	reopened, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rec, ok, _ := reopened.Consume(ctx, "w")
	if !ok || rec.EventCount != 99 {
		t.Fatalf("expected latest record after compaction, got %+v", rec)
	}
}

func TestFileStoreReadOnly(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, FileOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w", EventCount: 4}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	reader, err := NewFileStore(dir, FileOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("open read only: %v", err)
	}
	if rec, ok, _ := reader.Consume(ctx, "w"); !ok || rec.EventCount != 4 {
		t.Fatalf("reader should see published record, got %+v", rec)
	}
	if err := reader.Publish(ctx, "w", &domain.ResultRecord{}); err == nil {
		t.Fatalf("read only store must reject writes")
	}

	if err := s.Publish(ctx, "w", &domain.ResultRecord{TaskName: "w", EventCount: 9}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Clear(ctx, "gone"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := reader.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rec, ok, _ := reader.Consume(ctx, "w"); !ok || rec.EventCount != 9 {
		t.Fatalf("reader should see the newer record after reload, got %+v", rec)
	}
	_ = reader.Close()
	_ = s.Close()
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0xFF, 0xAA})
	return err
}
