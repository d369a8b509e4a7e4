package manifest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"otapush/internal/hash"
)

var (
	// ErrNoContent is returned when a directory or archive holds no
	// hashable files at all.
	ErrNoContent = errors.New("no files found to hash")

	// ErrNotAnArchive signals that a path is not a readable zip. It is an
	// expected probe result, not a failure: callers fall back to directory
	// semantics and must never surface it to the end user.
	ErrNotAnArchive = errors.New("not a zip archive")
)

// FromDirectory walks dir recursively and hashes every non-ignored file,
// keying entries by their slash-normalized path relative to base. Files are
// hashed one at a time; bundle trees are thousands of small files and
// parallel disk reads measured no faster while complicating error handling.
func FromDirectory(dir, base string) (Manifest, error) {
	m := Manifest{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			if Ignored(name + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if Ignored(name) {
			return nil
		}

		digest, err := hash.File(path)
		if err != nil {
			return fmt.Errorf("hash %q: %w", name, err)
		}
		m[name] = digest
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dir, err)
	}

	if len(m) == 0 {
		return nil, fmt.Errorf("directory %q: %w", dir, ErrNoContent)
	}
	return m, nil
}

// FromArchiveFile builds a manifest from a zip file on disk. A path that is
// not a valid zip yields ErrNotAnArchive so the caller can retry the input
// as a directory.
func FromArchiveFile(path string) (Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNotAnArchive)
	}
	defer zr.Close()

	return FromZipReader(&zr.Reader)
}

// FromZipReader hashes every non-ignored entry of an already-open zip.
// Entries are hashed concurrently, bounded by CPU count; each entry stream
// is fully drained and closed before the group finishes, so the archive
// handle itself stays valid for the whole build. Any entry failure discards
// the partial manifest.
func FromZipReader(zr *zip.Reader) (Manifest, error) {
	var (
		mu sync.Mutex
		m  = make(Manifest, len(zr.File))
	)

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for _, f := range zr.File {
		f := f
		name := NormalizeEntryName(f.Name)
		if name == "" || Ignored(name) {
			continue
		}
		g.Go(func() error {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open entry %q: %w", name, err)
			}
			digest, err := hash.Reader(rc)
			cerr := rc.Close()
			if err != nil {
				return fmt.Errorf("hash entry %q: %w", name, err)
			}
			if cerr != nil {
				return fmt.Errorf("close entry %q: %w", name, cerr)
			}

			mu.Lock()
			m[name] = digest
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("archive: %w", ErrNoContent)
	}
	return m, nil
}
