package storage_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"otapush/internal/fs"
	"otapush/internal/storage"
)

// Both backends must satisfy the Store contract identically.
func stores(t *testing.T) map[string]storage.Store {
	t.Helper()
	local, err := storage.NewLocal(fs.NewMemoryFS(), "blobs")
	if err != nil {
		t.Fatal(err)
	}
	return map[string]storage.Store{
		"local":  local,
		"memory": storage.NewMemory(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			loc, err := s.Store("pkg.zip", strings.NewReader("archive bytes"), 13)
			if err != nil {
				t.Fatal(err)
			}

			resolved, err := s.LocationOf("pkg.zip")
			if err != nil {
				t.Fatal(err)
			}
			if resolved != loc {
				t.Errorf("LocationOf = %q, want %q", resolved, loc)
			}

			rc, err := s.Open(loc)
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "archive bytes" {
				t.Errorf("blob content = %q, want %q", data, "archive bytes")
			}
		})
	}
}

func TestStoreSizeMismatch(t *testing.T) {
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			if _, err := s.Store("bad.zip", strings.NewReader("short"), 99); err == nil {
				t.Fatal("expected size-mismatch error")
			}
			if _, err := s.LocationOf("bad.zip"); err == nil {
				t.Error("failed store still resolvable")
			}
		})
	}
}

func TestStoreUnknownName(t *testing.T) {
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			if _, err := s.LocationOf("never-stored"); err == nil {
				t.Error("expected error for unknown name")
			}
			if _, err := s.Open("no/such/location"); err == nil {
				t.Error("expected error for unknown location")
			}
		})
	}
}

func TestLocalVerify(t *testing.T) {
	fsys := fs.NewMemoryFS()
	local, err := storage.NewLocal(fsys, "blobs")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := local.Store("good.bin", strings.NewReader("good"), -1); err != nil {
		t.Fatal(err)
	}
	if _, err := local.Store("bad.bin", strings.NewReader("pristine"), -1); err != nil {
		t.Fatal(err)
	}
	if _, err := local.Store("gone.bin", strings.NewReader("gone"), -1); err != nil {
		t.Fatal(err)
	}

	// Corrupt one blob and delete another behind the store's back.
	if err := fsys.WriteFile("blobs/bad.bin", []byte("corrupt!"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fsys.Remove("blobs/gone.bin"); err != nil {
		t.Fatal(err)
	}

	got := map[string]storage.BlobStatus{}
	for check := range local.Verify(2) {
		got[check.Name] = check.Status
	}

	want := map[string]storage.BlobStatus{
		"good.bin": storage.OK,
		"bad.bin":  storage.Damaged,
		"gone.bin": storage.Missing,
	}
	for name, status := range want {
		if got[name] != status {
			t.Errorf("%s status = %v, want %v", name, got[name], status)
		}
	}
}

// flakyTempFS fails the nth CreateTempFile call and delegates everything
// else. The blob store creates one temp file for the blob and one for the
// index write, so call #2 of a single Store is the index write.
type flakyTempFS struct {
	fs.FS
	calls    int
	failCall int
}

func (f *flakyTempFS) CreateTempFile(dir, pattern string) (io.WriteCloser, string, error) {
	f.calls++
	if f.calls == f.failCall {
		return nil, "", errors.New("temp file unavailable")
	}
	return f.FS.CreateTempFile(dir, pattern)
}

func TestLocalIndexWriteFailureRemovesBlob(t *testing.T) {
	mem := fs.NewMemoryFS()
	flaky := &flakyTempFS{FS: mem, failCall: 2}
	local, err := storage.NewLocal(flaky, "blobs")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := local.Store("pkg.zip", strings.NewReader("archive bytes"), -1); err == nil {
		t.Fatal("expected store to fail when the index write fails")
	}
	if _, err := local.LocationOf("pkg.zip"); err == nil {
		t.Error("failed store still resolvable")
	}
	if _, err := mem.Stat("blobs/pkg.zip"); !mem.IsNotExist(err) {
		t.Error("orphaned blob left behind after index write failure")
	}

	// Once the fault clears, the same name stores cleanly.
	if _, err := local.Store("pkg.zip", strings.NewReader("archive bytes"), -1); err != nil {
		t.Fatal(err)
	}
	if _, err := local.LocationOf("pkg.zip"); err != nil {
		t.Errorf("retried store not resolvable: %v", err)
	}
}

func TestLocalReopenKeepsIndex(t *testing.T) {
	fsys := fs.NewMemoryFS()
	local, err := storage.NewLocal(fsys, "blobs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := local.Store("keep.bin", strings.NewReader("keep"), -1); err != nil {
		t.Fatal(err)
	}

	reopened, err := storage.NewLocal(fsys, "blobs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.LocationOf("keep.bin"); err != nil {
		t.Errorf("reopened store lost blob: %v", err)
	}
}
