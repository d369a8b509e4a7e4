// Package archive builds diff archives: minimal zips letting a client
// upgrade from one specific old release to a specific new release.
//
// A diff archive contains every entry of the new release whose path is
// absent from the old manifest or whose digest changed, plus one synthetic
// change-manifest entry. Output is deterministic: entries keep archive
// order, carry a fixed timestamp, and use Deflate throughout.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"otapush/internal/config"
	"otapush/internal/manifest"
)

// DiffManifest is the payload of the synthetic change-manifest entry.
// Wire-format contract: clients parse it to delete removed files and to
// verify the reconstructed package against the full new manifest.
type DiffManifest struct {
	DeletedFiles       []string          `json:"deletedFiles"`
	NewPackageManifest map[string]string `json:"newPackageManifest"`
}

// fixedZipTime keeps diff archives byte-stable across rebuilds.
// (ZIP epoch: 1980-01-01)
var fixedZipTime = time.Unix(315532800, 0).UTC()

// Diff writes a diff archive for the old→new manifest pair into a fresh
// temp file and returns its path. The caller removes the file after
// uploading it.
func Diff(oldM, newM manifest.Manifest, newArchivePath string) (string, error) {
	out, err := os.CreateTemp("", "otapush-diff-*.zip")
	if err != nil {
		return "", fmt.Errorf("create diff temp: %w", err)
	}
	path := out.Name()
	out.Close()

	if err := WriteDiff(oldM, newM, newArchivePath, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// WriteDiff streams the changed and added entries of the new release's full
// archive into a diff archive at outPath and appends the change manifest.
// A partial output file is removed on failure.
func WriteDiff(oldM, newM manifest.Manifest, newArchivePath, outPath string) (err error) {
	zr, err := zip.OpenReader(newArchivePath)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", newArchivePath, err)
	}
	defer zr.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create diff %q: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()

	zw := zip.NewWriter(out)

	werr := WalkEntries(&zr.Reader, func(name string, f *zip.File, r io.Reader) error {
		oldDigest, inOld := oldM[name]
		if inOld && oldDigest == newM[name] {
			return nil // unchanged, client already has it
		}
		return copyEntry(zw, name, f, r)
	})
	if werr != nil {
		return werr
	}

	if err := writeDiffManifest(zw, oldM, newM); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize diff: %w", err)
	}
	return nil
}

func copyEntry(zw *zip.Writer, name string, f *zip.File, r io.Reader) error {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate}
	h.SetMode(f.Mode())
	h.Modified = fixedZipTime

	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("add entry %q: %w", name, err)
	}
	if isDirEntry(name) {
		return nil
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copy entry %q: %w", name, err)
	}
	return nil
}

func writeDiffManifest(zw *zip.Writer, oldM, newM manifest.Manifest) error {
	deleted := []string{}
	for p := range oldM {
		if _, ok := newM[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(DiffManifest{
		DeletedFiles:       deleted,
		NewPackageManifest: newM,
	}); err != nil {
		return fmt.Errorf("encode change manifest: %w", err)
	}

	h := &zip.FileHeader{Name: config.DiffManifestEntry, Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = fixedZipTime

	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("add change manifest: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write change manifest: %w", err)
	}
	return nil
}

// WalkEntries visits every non-ignored entry of a zip in archive order,
// handing fn a scoped read stream. Each stream is closed before the next
// entry opens, so archive teardown can never race an open entry.
func WalkEntries(zr *zip.Reader, fn func(name string, f *zip.File, r io.Reader) error) error {
	for _, f := range zr.File {
		name := manifest.NormalizeEntryName(f.Name)
		if name == "" || manifest.Ignored(name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open entry %q: %w", name, err)
		}
		ferr := fn(name, f, rc)
		cerr := rc.Close()
		if ferr != nil {
			return ferr
		}
		if cerr != nil {
			return fmt.Errorf("close entry %q: %w", name, cerr)
		}
	}
	return nil
}

func isDirEntry(name string) bool {
	return name[len(name)-1] == '/'
}
