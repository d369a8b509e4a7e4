package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"otapush/internal/fs"
	"otapush/internal/util"
)

const indexFile = "index.json"

// blobInfo is the per-blob record in the store index. The checksum is a
// fast xxh3-128 digest used only for local integrity scans; it is never
// part of any wire format.
type blobInfo struct {
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Local is a filesystem-backed Store. Blobs live under Root, written
// atomically via temp file + rename, tracked in an index for integrity
// verification.
type Local struct {
	fsys fs.FS
	root string

	mu    sync.Mutex
	index map[string]blobInfo
}

// NewLocal opens (or initializes) a local blob store rooted at root.
func NewLocal(fsys fs.FS, root string) (*Local, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %q: %w", root, err)
	}

	l := &Local{fsys: fsys, root: root, index: map[string]blobInfo{}}

	indexPath := filepath.Join(root, indexFile)
	if err := util.ReadJSON(fsys, indexPath, &l.index); err != nil && !fsys.IsNotExist(err) {
		return nil, fmt.Errorf("load blob index: %w", err)
	}
	return l, nil
}

func (l *Local) blobPath(name string) string {
	// Blob names are flat; path separators would escape the root.
	return filepath.Join(l.root, path.Base(filepath.ToSlash(name)))
}

func (l *Local) Store(name string, r io.Reader, size int64) (string, error) {
	dst := l.blobPath(name)

	tmp, tmpPath, err := l.fsys.CreateTempFile(l.root, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	defer l.fsys.Remove(tmpPath)

	h := xxh3.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp blob: %w", err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("blob %q: wrote %d bytes, expected %d", name, written, size)
	}

	if err := l.fsys.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("finalize blob %q: %w", name, err)
	}

	sum := h.Sum128().Bytes()
	base := path.Base(filepath.ToSlash(name))
	l.mu.Lock()
	l.index[base] = blobInfo{
		Size:     written,
		Checksum: hex.EncodeToString(sum[:]),
	}
	err = util.WriteJSON(l.fsys, filepath.Join(l.root, indexFile), l.index)
	if err != nil {
		// An unindexed blob would be unreachable through LocationOf and
		// invisible to Verify; roll the store back to its prior state.
		delete(l.index, base)
	}
	l.mu.Unlock()
	if err != nil {
		l.fsys.Remove(dst)
		return "", fmt.Errorf("update blob index: %w", err)
	}

	return dst, nil
}

func (l *Local) LocationOf(name string) (string, error) {
	base := path.Base(filepath.ToSlash(name))
	l.mu.Lock()
	_, ok := l.index[base]
	l.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("blob %q not stored", name)
	}
	return l.blobPath(name), nil
}

func (l *Local) Open(location string) (io.ReadCloser, error) {
	rc, err := l.fsys.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open blob %q: %w", location, err)
	}
	return rc, nil
}

// Verify checks every indexed blob concurrently and streams results. A
// mismatch between stored bytes and the indexed checksum reports Damaged;
// an unreadable blob reports Missing.
func (l *Local) Verify(workers int) <-chan BlobCheck {
	l.mu.Lock()
	names := util.SortedKeys(l.index)
	infos := make(map[string]blobInfo, len(l.index))
	for k, v := range l.index {
		infos[k] = v
	}
	l.mu.Unlock()

	out := make(chan BlobCheck, 64)
	go func() {
		defer close(out)
		_ = util.Parallel(names, workers, func(name string) error {
			out <- BlobCheck{Name: name, Status: l.verifyBlob(name, infos[name])}
			return nil
		})
	}()
	return out
}

func (l *Local) verifyBlob(name string, info blobInfo) BlobStatus {
	data, err := l.fsys.ReadFile(l.blobPath(name))
	if err != nil {
		return Missing
	}
	if int64(len(data)) != info.Size {
		return Damaged
	}
	sum := xxh3.Hash128(data).Bytes()
	if hex.EncodeToString(sum[:]) != info.Checksum {
		return Damaged
	}
	return OK
}

// CleanupTemp removes leftover temp files from interrupted stores.
func (l *Local) CleanupTemp() error {
	entries, err := l.fsys.ReadDir(l.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		_ = l.fsys.Remove(filepath.Join(l.root, e.Name()))
	}
	return nil
}
