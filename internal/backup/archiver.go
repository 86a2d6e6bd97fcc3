// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
archiver.go - Scheduled Bundle Archives

Archive layout in the backup directory:

	wardbook-20261016T101500Z.json.gz         (gzip-compressed bundle)
	wardbook-20261016T101500Z.json.gz.sha256  (sha256sum-compatible checksum)

Archives are written to a temporary file and renamed into place, so a crash
never leaves a truncated archive under a final name. The checksum covers the
compressed bytes.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"bufio"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

const (
	archivePrefix   = "wardbook-"
	archiveSuffix   = ".json.gz"
	checksumSuffix  = ".sha256"
	archiveTimeFmt  = "20060102T150405Z"
	defaultKeep     = 14
	archiveFileMode = 0o640
)

// ErrChecksumMismatch is returned by Verify when an archive does not match
// its checksum file.
var ErrChecksumMismatch = errors.New("backup: checksum mismatch")

// Uploader receives every archive after it is written, for example to copy
// it to a cloud drive. Upload failures are logged and do not fail the archive.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// Archive describes one archive on disk.
type Archive struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"createdAt"`
}

// Archiver writes periodic bundle archives of the current app state.
type Archiver struct {
	dir      string
	keep     int
	source   func() models.AppState
	uploader Uploader
	now      func() time.Time
	logger   zerolog.Logger
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithKeep sets how many archives retention keeps. Values below one keep
// the default.
func WithKeep(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.keep = n
		}
	}
}

// WithUploader hands every new archive to u.
func WithUploader(u Uploader) ArchiverOption {
	return func(a *Archiver) {
		a.uploader = u
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ArchiverOption {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the archiver's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = logger
	}
}

// NewArchiver creates dir if needed. source is called once per archive and
// must return a consistent snapshot of the app state.
func NewArchiver(dir string, source func() models.AppState, opts ...ArchiverOption) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if source == nil {
		return nil, fmt.Errorf("backup state source is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	a := &Archiver{
		dir:    dir,
		keep:   defaultKeep,
		source: source,
		now:    time.Now,
		logger: logging.WithComponent("backup"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Archive writes one archive of the current state, applies retention and
// uploads the archive when an Uploader is configured.
func (a *Archiver) Archive(ctx context.Context) (arc Archive, err error) {
	defer func() { metrics.RecordBackup(err) }()

	if err := ctx.Err(); err != nil {
		return Archive{}, err
	}

	createdAt := a.now().UTC().Truncate(time.Second)
	name := archivePrefix + createdAt.Format(archiveTimeFmt) + archiveSuffix
	path := filepath.Join(a.dir, name)

	data, err := Export(a.source(), createdAt)
	if err != nil {
		return Archive{}, err
	}

	size, sum, err := writeArchive(path, data)
	if err != nil {
		return Archive{}, err
	}
	if err := os.WriteFile(path+checksumSuffix, []byte(sum+"  "+name+"\n"), archiveFileMode); err != nil {
		return Archive{}, fmt.Errorf("failed to write checksum: %w", err)
	}

	arc = Archive{Name: name, Path: path, Size: size, Checksum: sum, CreatedAt: createdAt}
	a.logger.Info().
		Str("archive", name).
		Int64("size_bytes", size).
		Msg("backup archive written")

	if _, err := a.Prune(); err != nil {
		a.logger.Warn().Err(err).Msg("backup retention failed")
	}
	a.upload(ctx, arc)
	return arc, nil
}

// writeArchive compresses data into path via a temp file and returns the
// compressed size and its hex SHA-256.
//
//nolint:gosec // G304: path is built from the configured backup directory
func writeArchive(path string, data []byte) (int64, string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wardbook-archive-*")
	if err != nil {
		return 0, "", fmt.Errorf("failed to create backup file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}
	gz := gzip.NewWriter(counter)
	if _, err := gz.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", fmt.Errorf("failed to sync backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to close backup file: %w", err)
	}
	if err := os.Chmod(tmpName, archiveFileMode); err != nil {
		return 0, "", fmt.Errorf("failed to set backup permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, "", fmt.Errorf("failed to move backup into place: %w", err)
	}
	committed = true
	return counter.n, hex.EncodeToString(hasher.Sum(nil)), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

//nolint:gosec // G304: arc.Path is inside the backup directory
func (a *Archiver) upload(ctx context.Context, arc Archive) {
	if a.uploader == nil {
		return
	}
	f, err := os.Open(arc.Path)
	if err != nil {
		a.logger.Warn().Err(err).Str("archive", arc.Name).Msg("backup upload skipped")
		return
	}
	defer f.Close() //nolint:errcheck // read-only

	if err := a.uploader.Upload(ctx, arc.Name, f); err != nil {
		a.logger.Warn().Err(err).Str("archive", arc.Name).Msg("backup upload failed")
		return
	}
	a.logger.Debug().Str("archive", arc.Name).Msg("backup uploaded")
}

// List returns the archives in the directory, newest first.
func (a *Archiver) List() ([]Archive, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	archives := make([]Archive, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		createdAt, err := time.Parse(archiveTimeFmt, stamp)
		if err != nil {
			continue
		}
		arc := Archive{Name: name, Path: filepath.Join(a.dir, name), CreatedAt: createdAt}
		if info, err := e.Info(); err == nil {
			arc.Size = info.Size()
		}
		if sum, err := readChecksum(arc.Path); err == nil {
			arc.Checksum = sum
		}
		archives = append(archives, arc)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].CreatedAt.After(archives[j].CreatedAt)
	})
	return archives, nil
}

// Prune removes all but the newest keep archives and returns how many were
// removed.
func (a *Archiver) Prune() (int, error) {
	archives, err := a.List()
	if err != nil {
		return 0, err
	}
	if len(archives) <= a.keep {
		return 0, nil
	}

	removed := 0
	var firstErr error
	for _, arc := range archives[a.keep:] {
		if err := os.Remove(arc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", arc.Name, err)
			}
			continue
		}
		_ = os.Remove(arc.Path + checksumSuffix)
		removed++
	}
	if removed > 0 {
		a.logger.Info().Int("removed", removed).Int("kept", a.keep).Msg("backup retention applied")
	}
	return removed, firstErr
}

// Run archives every interval until ctx is done.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Archive(ctx); err != nil {
				a.logger.Error().Err(err).Msg("scheduled backup failed")
			}
		}
	}
}

// readChecksum returns the hex digest from a sha256sum-style sidecar file.
//
//nolint:gosec // G304: path is inside the backup directory
func readChecksum(archivePath string) (string, error) {
	f, err := os.Open(archivePath + checksumSuffix)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}
	return fields[0], nil
}

// Verify recomputes the archive's SHA-256 and compares it with the checksum
// file written next to it.
//
//nolint:gosec // G304: path is inside the backup directory
func Verify(archivePath string) error {
	want, err := readChecksum(archivePath)
	if err != nil {
		return fmt.Errorf("failed to read checksum: %w", err)
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("failed to hash archive: %w", err)
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); got != want {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, filepath.Base(archivePath))
	}
	return nil
}

// Open verifies and decodes an archive into a normalized Bundle.
//
//nolint:gosec // G304: path is inside the backup directory
func Open(archivePath string, n *validation.Normalizer) (Bundle, error) {
	if err := Verify(archivePath); err != nil {
		return Bundle{}, err
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to decompress archive: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(gz)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to decompress archive: %w", err)
	}
	return Import(data, n)
}
