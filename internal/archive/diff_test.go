package archive_test

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"otapush/internal/archive"
	"otapush/internal/config"
	"otapush/internal/hash"
	"otapush/internal/manifest"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// readDiff returns the entry names of a diff archive and its parsed change
// manifest.
func readDiff(t *testing.T, path string) ([]string, archive.DiffManifest) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var names []string
	var dm archive.DiffManifest
	for _, f := range zr.File {
		if f.Name == config.DiffManifestEntry {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			if err := json.Unmarshal(data, &dm); err != nil {
				t.Fatalf("change manifest does not parse: %v", err)
			}
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, dm
}

func TestDiffMinimality(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{
		"b.txt": "b content",
		"c.txt": "c content v2",
		"d.txt": "d content",
	})

	oldM := manifest.Manifest{
		"a.txt": hash.Bytes([]byte("a content")),
		"b.txt": hash.Bytes([]byte("b content")),
		"c.txt": "previoushash",
	}
	newM, err := manifest.FromArchiveFile(newArchive)
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "diff.zip")
	if err := archive.WriteDiff(oldM, newM, newArchive, outPath); err != nil {
		t.Fatal(err)
	}

	names, dm := readDiff(t, outPath)
	if want := []string{"c.txt", "d.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v (b.txt must be absent)", names, want)
	}
	if want := []string{"a.txt"}; !reflect.DeepEqual(dm.DeletedFiles, want) {
		t.Errorf("deleted files = %v, want %v", dm.DeletedFiles, want)
	}
	if !reflect.DeepEqual(dm.NewPackageManifest, map[string]string(newM)) {
		t.Errorf("embedded manifest = %v, want %v", dm.NewPackageManifest, newM)
	}
}

func TestDiffNewFolder(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{
		"www/folderA/": "",
		"www/folderB/": "",
	})

	emptyDigest := hash.Bytes(nil)
	oldM := manifest.Manifest{"www/folderA/": emptyDigest}
	newM := manifest.Manifest{
		"www/folderA/": emptyDigest,
		"www/folderB/": emptyDigest,
	}

	outPath := filepath.Join(dir, "diff.zip")
	if err := archive.WriteDiff(oldM, newM, newArchive, outPath); err != nil {
		t.Fatal(err)
	}

	names, dm := readDiff(t, outPath)
	if want := []string{"www/folderB/"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v", names, want)
	}
	if len(dm.DeletedFiles) != 0 {
		t.Errorf("deleted files = %v, want none", dm.DeletedFiles)
	}
}

func TestDiffNoOverlap(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{
		"x.txt": "x",
		"y.txt": "y",
	})

	oldM := manifest.Manifest{"gone.txt": hash.Bytes([]byte("gone"))}
	newM, err := manifest.FromArchiveFile(newArchive)
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "diff.zip")
	if err := archive.WriteDiff(oldM, newM, newArchive, outPath); err != nil {
		t.Fatal(err)
	}

	// Degenerate but correct: every new file plus the change manifest.
	names, dm := readDiff(t, outPath)
	if want := []string{"x.txt", "y.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v", names, want)
	}
	if want := []string{"gone.txt"}; !reflect.DeepEqual(dm.DeletedFiles, want) {
		t.Errorf("deleted files = %v, want %v", dm.DeletedFiles, want)
	}
}

func TestDiffSkipsTrashEntries(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{
		"app.js":        "code",
		"www/.DS_Store": "junk",
	})

	newM := manifest.Manifest{"app.js": hash.Bytes([]byte("code"))}

	outPath := filepath.Join(dir, "diff.zip")
	if err := archive.WriteDiff(manifest.Manifest{}, newM, newArchive, outPath); err != nil {
		t.Fatal(err)
	}

	names, _ := readDiff(t, outPath)
	if want := []string{"app.js"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v", names, want)
	}
}

func TestDiffBackslashEntryNames(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{
		`www\app.js`:     "var x = 1;",
		`www\index.html`: "<html></html>",
	})

	newM, err := manifest.FromArchiveFile(newArchive)
	if err != nil {
		t.Fatal(err)
	}
	// The old release already holds www/app.js under its normalized name;
	// only the unmatched entry may enter the diff, under a normalized name.
	oldM := manifest.Manifest{"www/app.js": hash.Bytes([]byte("var x = 1;"))}

	outPath := filepath.Join(dir, "diff.zip")
	if err := archive.WriteDiff(oldM, newM, newArchive, outPath); err != nil {
		t.Fatal(err)
	}

	names, dm := readDiff(t, outPath)
	if want := []string{"www/index.html"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v", names, want)
	}
	if len(dm.DeletedFiles) != 0 {
		t.Errorf("deleted files = %v, want none", dm.DeletedFiles)
	}
}

func TestDiffTempFile(t *testing.T) {
	dir := t.TempDir()
	newArchive := filepath.Join(dir, "new.zip")
	writeZip(t, newArchive, map[string]string{"a.txt": "a"})

	newM, err := manifest.FromArchiveFile(newArchive)
	if err != nil {
		t.Fatal(err)
	}

	path, err := archive.Diff(manifest.Manifest{}, newM, newArchive)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("diff temp file missing: %v", err)
	}
	names, _ := readDiff(t, path)
	if want := []string{"a.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("diff entries = %v, want %v", names, want)
	}
}

func TestDiffMissingArchive(t *testing.T) {
	_, err := archive.Diff(manifest.Manifest{}, manifest.Manifest{}, filepath.Join(t.TempDir(), "absent.zip"))
	if err == nil {
		t.Fatal("expected error for missing archive")
	}
}
