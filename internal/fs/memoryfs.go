package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFS is a pure in-memory FS for tests. Paths are normalized to
// slash-separated, cleaned form. Safe for concurrent use.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
	tmpN  int
}

func NewMemoryFS() *MemoryFS {
	f := &MemoryFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
	f.dirs["."] = struct{}{}
	f.dirs["/"] = struct{}{}
	return f
}

func clean(p string) string {
	if p == "" {
		return "."
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func (f *MemoryFS) dirExists(p string) bool {
	_, ok := f.dirs[clean(p)]
	return ok
}

func (f *MemoryFS) Open(p string) (io.ReadSeekCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("open %q: %w", p, iofs.ErrNotExist)
	}
	return &memFile{Reader: bytes.NewReader(append([]byte(nil), data...))}, nil
}

type memFile struct {
	*bytes.Reader
}

func (m *memFile) Close() error { return nil }

func (f *MemoryFS) ReadFile(p string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", p, iofs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (f *MemoryFS) WriteFile(p string, data []byte, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	if !f.dirExists(path.Dir(p)) {
		return fmt.Errorf("write %q: parent dir: %w", p, iofs.ErrNotExist)
	}
	f.files[p] = append([]byte(nil), data...)
	return nil
}

func (f *MemoryFS) MkdirAll(p string, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := ""
	for _, seg := range strings.Split(clean(p), "/") {
		if seg == "" || seg == "." {
			continue
		}
		cur = path.Join(cur, seg)
		f.dirs[cur] = struct{}{}
	}
	return nil
}

func (f *MemoryFS) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	if _, ok := f.files[p]; ok {
		delete(f.files, p)
		return nil
	}
	if _, ok := f.dirs[p]; ok {
		delete(f.dirs, p)
		return nil
	}
	return fmt.Errorf("remove %q: %w", p, iofs.ErrNotExist)
}

func (f *MemoryFS) Rename(oldp, newp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	oldp, newp = clean(oldp), clean(newp)
	data, ok := f.files[oldp]
	if !ok {
		return fmt.Errorf("rename %q: %w", oldp, iofs.ErrNotExist)
	}
	if !f.dirExists(path.Dir(newp)) {
		return fmt.Errorf("rename to %q: parent dir: %w", newp, iofs.ErrNotExist)
	}
	delete(f.files, oldp)
	f.files[newp] = data
	return nil
}

func (f *MemoryFS) Stat(p string) (os.FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p = clean(p)
	if data, ok := f.files[p]; ok {
		return &memInfo{name: path.Base(p), size: int64(len(data))}, nil
	}
	if _, ok := f.dirs[p]; ok {
		return &memInfo{name: path.Base(p), dir: true}, nil
	}
	return nil, fmt.Errorf("stat %q: %w", p, iofs.ErrNotExist)
}

func (f *MemoryFS) ReadDir(p string) ([]os.DirEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p = clean(p)
	if !f.dirExists(p) {
		return nil, fmt.Errorf("readdir %q: %w", p, iofs.ErrNotExist)
	}

	prefix := p + "/"
	if p == "." || p == "/" {
		prefix = ""
	}

	seen := map[string]bool{}
	var out []os.DirEntry
	collect := func(full string, isDir bool) {
		if !strings.HasPrefix(full, prefix) || full == p {
			return
		}
		rest := strings.TrimPrefix(full, prefix)
		name := strings.Split(rest, "/")[0]
		if name == "" || name == "." || seen[name] {
			return
		}
		seen[name] = true
		// A nested path's first segment is a directory regardless of what
		// the full path points at.
		out = append(out, memDirEntry{name: name, dir: isDir || strings.Contains(rest, "/")})
	}
	for dp := range f.dirs {
		collect(dp, true)
	}
	for fp := range f.files {
		collect(fp, false)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (f *MemoryFS) CreateTempFile(dir, pattern string) (io.WriteCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirExists(dir) {
		return nil, "", fmt.Errorf("temp in %q: %w", dir, iofs.ErrNotExist)
	}
	f.tmpN++
	name := strings.Replace(pattern, "*", fmt.Sprintf("%d", f.tmpN), 1)
	tmpPath := clean(path.Join(dir, name))

	buf := &bytes.Buffer{}
	return &memTempFile{fs: f, path: tmpPath, buf: buf}, tmpPath, nil
}

type memTempFile struct {
	fs   *MemoryFS
	path string
	buf  *bytes.Buffer
}

func (m *memTempFile) Write(p []byte) (int, error) { return m.buf.Write(p) }

func (m *memTempFile) Close() error {
	m.fs.mu.Lock()
	defer m.fs.mu.Unlock()
	m.fs.files[m.path] = append([]byte(nil), m.buf.Bytes()...)
	return nil
}

func (f *MemoryFS) IsNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}

type memInfo struct {
	name string
	size int64
	dir  bool
}

func (i *memInfo) Name() string       { return i.name }
func (i *memInfo) Size() int64        { return i.size }
func (i *memInfo) Mode() os.FileMode  { return 0o644 }
func (i *memInfo) ModTime() time.Time { return time.Time{} }
func (i *memInfo) IsDir() bool        { return i.dir }
func (i *memInfo) Sys() any           { return nil }

type memDirEntry struct {
	name string
	dir  bool
}

func (e memDirEntry) Name() string               { return e.name }
func (e memDirEntry) IsDir() bool                { return e.dir }
func (e memDirEntry) Type() os.FileMode          { return 0 }
func (e memDirEntry) Info() (os.FileInfo, error) { return &memInfo{name: e.name, dir: e.dir}, nil }
