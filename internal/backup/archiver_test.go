// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/models"
)

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func testState() models.AppState {
	return models.AppState{
		Records: []models.Record{{ID: "p1", Name: "Bed 4", UpdatedAt: 2000}},
		Theme:   models.ThemeLight,
	}
}

func newTestArchiver(t *testing.T, opts ...ArchiverOption) (*Archiver, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]ArchiverOption{
		WithClock(stepClock(time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC))),
		WithLogger(logging.NewTestLogger(io.Discard)),
	}, opts...)
	a, err := NewArchiver(dir, testState, opts...)
	if err != nil {
		t.Fatalf("NewArchiver() error = %v", err)
	}
	return a, dir
}

type recordingUploader struct {
	mu    sync.Mutex
	names []string
	sizes []int
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	u.sizes = append(u.sizes, len(data))
	return u.err
}

func TestArchiver_ArchiveAndOpen(t *testing.T) {
	a, dir := newTestArchiver(t)
	before := testutil.ToFloat64(metrics.BackupArchives.WithLabelValues("success"))

	arc, err := a.Archive(context.Background())
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if arc.Name != "wardbook-20261016T080000Z.json.gz" {
		t.Errorf("Name = %q", arc.Name)
	}
	if len(arc.Checksum) != 64 {
		t.Errorf("Checksum = %q, want 64 hex chars", arc.Checksum)
	}
	info, err := os.Stat(filepath.Join(dir, arc.Name))
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if info.Size() != arc.Size {
		t.Errorf("Size = %d, file is %d bytes", arc.Size, info.Size())
	}

	sidecar, err := os.ReadFile(filepath.Join(dir, arc.Name+".sha256"))
	if err != nil {
		t.Fatalf("checksum file missing: %v", err)
	}
	if want := arc.Checksum + "  " + arc.Name + "\n"; string(sidecar) != want {
		t.Errorf("checksum file = %q, want %q", sidecar, want)
	}

	b, err := Open(arc.Path, testNormalizer())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(b.Records) != 1 || b.Records[0].ID != "p1" {
		t.Errorf("Records = %+v", b.Records)
	}

	if got := testutil.ToFloat64(metrics.BackupArchives.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("success archives delta = %v, want 1", got)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".wardbook-archive-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestArchiver_Retention(t *testing.T) {
	a, dir := newTestArchiver(t, WithKeep(2))

	var names []string
	for i := 0; i < 4; i++ {
		arc, err := a.Archive(context.Background())
		if err != nil {
			t.Fatalf("Archive() #%d error = %v", i, err)
		}
		names = append(names, arc.Name)
	}

	list, err := a.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d archives, want 2", len(list))
	}
	if list[0].Name != names[3] || list[1].Name != names[2] {
		t.Errorf("kept %s, %s; want the two newest", list[0].Name, list[1].Name)
	}
	for _, old := range names[:2] {
		if _, err := os.Stat(filepath.Join(dir, old+".sha256")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("checksum for pruned %s still present", old)
		}
	}
}

func TestArchiver_ListIgnoresForeignFiles(t *testing.T) {
	a, dir := newTestArchiver(t)
	for _, name := range []string{"notes.txt", "wardbook-garbage.json.gz", "wardbook-20261016T080000Z.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.Archive(context.Background()); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	list, err := a.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() = %+v, want only the real archive", list)
	}
}

func TestArchiver_Uploader(t *testing.T) {
	up := &recordingUploader{}
	a, _ := newTestArchiver(t, WithUploader(up))

	arc, err := a.Archive(context.Background())
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if len(up.names) != 1 || up.names[0] != arc.Name || int64(up.sizes[0]) != arc.Size {
		t.Errorf("uploads = %v sizes %v, want %s (%d bytes)", up.names, up.sizes, arc.Name, arc.Size)
	}

	up.err = errors.New("drive unavailable")
	if _, err := a.Archive(context.Background()); err != nil {
		t.Errorf("upload failure failed the archive: %v", err)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	a, _ := newTestArchiver(t)
	arc, err := a.Archive(context.Background())
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if err := Verify(arc.Path); err != nil {
		t.Fatalf("Verify() on fresh archive = %v", err)
	}

	data, err := os.ReadFile(arc.Path)
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, bytes.Repeat([]byte{0}, 8)...)
	if err := os.WriteFile(arc.Path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Verify(arc.Path); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify() = %v, want ErrChecksumMismatch", err)
	}
	if _, err := Open(arc.Path, testNormalizer()); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Open() = %v, want ErrChecksumMismatch", err)
	}
}

func TestArchiver_CanceledContext(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Archive(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Archive() = %v, want context.Canceled", err)
	}
}

func TestArchiver_RunStopsOnCancel(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, 10*time.Millisecond) }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if list, _ := a.List(); len(list) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop")
	}
	if list, _ := a.List(); len(list) == 0 {
		t.Error("Run() wrote no archives")
	}
}

func TestNewArchiver_RequiresDirAndSource(t *testing.T) {
	if _, err := NewArchiver("", testState); err == nil {
		t.Error("expected error for empty dir")
	}
	if _, err := NewArchiver(t.TempDir(), nil); err == nil {
		t.Error("expected error for nil source")
	}
}
