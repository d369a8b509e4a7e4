// Package history plans incremental updates: given a deployment's release
// history and a newly committed release, it decides which historical
// releases get a precomputed diff archive and builds the resulting
// hash→diff-blob index.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"otapush/internal/archive"
	"otapush/internal/manifest"
	"otapush/internal/release"
	"otapush/internal/storage"
	"otapush/internal/version"
)

// ErrInvalidArguments marks caller mistakes: a nil release, or one missing
// its archive or manifest location.
var ErrInvalidArguments = errors.New("invalid release arguments")

// Planner computes diff archives for a bounded, version-filtered window of
// release history. Planners are cheap; several with different lookback
// policies can coexist.
type Planner struct {
	// MaxDiffs bounds how many historical releases receive a diff.
	MaxDiffs int
	// Workers caps concurrent diff computations; the effective bound is
	// min(MaxDiffs, Workers).
	Workers int

	Blobs   storage.Store
	History release.History
}

// NewPlanner wires a planner with the given lookback bound.
func NewPlanner(maxDiffs, workers int, blobs storage.Store, hist release.History) *Planner {
	return &Planner{MaxDiffs: maxDiffs, Workers: workers, Blobs: blobs, History: hist}
}

// GenerateDiffPackageMap builds diff archives from each eligible historical
// release to newRelease, uploads them, and returns the index keyed by the
// historical package hash. A nil index (with nil error) means there is
// nothing to diff against: first release, empty history, or no
// version-compatible predecessor. The index is all-or-nothing: the first
// diff failure aborts the call and no partial index is returned.
func (p *Planner) GenerateDiffPackageMap(account, app, deployment string, newRelease *release.Release) (release.DiffIndex, error) {
	if newRelease == nil {
		return nil, fmt.Errorf("%w: nil release", ErrInvalidArguments)
	}
	if newRelease.BlobURL == "" || newRelease.ManifestBlobURL == "" {
		return nil, fmt.Errorf("%w: release %q needs both archive and manifest locations",
			ErrInvalidArguments, newRelease.Label)
	}

	hist, err := p.History.Releases(account, app, deployment)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	candidates := p.selectCandidates(hist, newRelease)
	if len(candidates) == 0 {
		return nil, nil
	}

	newM, err := p.loadManifest(newRelease.ManifestBlobURL)
	if err != nil {
		return nil, fmt.Errorf("new release manifest: %w", err)
	}
	archivePath, err := p.fetchArchive(newRelease)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archivePath)

	// One slot per candidate; a skipped candidate leaves its slot nil so
	// no concurrent writers ever share a map.
	type diffResult struct {
		packageHash string
		info        release.DiffBlobInfo
	}
	results := make([]*diffResult, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(min(p.MaxDiffs, max(p.Workers, 1)))

	for i, old := range candidates {
		i, old := i, old
		g.Go(func() error {
			oldM, err := p.loadManifest(old.ManifestBlobURL)
			if err != nil {
				// Manifest unavailable or malformed: this historical
				// release simply gets no diff.
				return nil
			}

			diffPath, err := archive.Diff(oldM, newM, archivePath)
			if err != nil {
				return fmt.Errorf("diff against %q: %w", old.Label, err)
			}
			defer os.Remove(diffPath)

			loc, size, err := p.uploadDiff(old, newRelease, diffPath)
			if err != nil {
				return fmt.Errorf("upload diff for %q: %w", old.Label, err)
			}
			results[i] = &diffResult{
				packageHash: old.PackageHash,
				info:        release.DiffBlobInfo{URL: loc, Size: size},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := release.DiffIndex{}
	for _, r := range results {
		if r != nil {
			ix[r.packageHash] = r.info
		}
	}
	if len(ix) == 0 {
		return nil, nil
	}
	return ix, nil
}

// selectCandidates walks backward from the entry preceding newRelease and
// keeps at most MaxDiffs releases whose app-version target intersects the
// new release's. Non-intersecting releases do not consume the window.
func (p *Planner) selectCandidates(hist []release.Release, newRelease *release.Release) []release.Release {
	pos := len(hist) - 1
	for pos >= 0 && hist[pos].PackageHash != newRelease.PackageHash {
		pos--
	}
	if pos < 0 {
		// Not committed to history yet; everything before the end is fair.
		pos = len(hist)
	}

	var out []release.Release
	for i := pos - 1; i >= 0 && len(out) < p.MaxDiffs; i-- {
		old := hist[i]
		if old.PackageHash == "" || old.ManifestBlobURL == "" {
			continue
		}
		if !version.Intersect(old.AppVersion, newRelease.AppVersion) {
			continue
		}
		out = append(out, old)
	}
	return out
}

func (p *Planner) loadManifest(location string) (manifest.Manifest, error) {
	rc, err := p.Blobs.Open(location)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}
	return manifest.Deserialize(data)
}

// fetchArchive copies the new release's full archive to a local temp file
// so each diff computation can open its own read handle.
func (p *Planner) fetchArchive(r *release.Release) (string, error) {
	rc, err := p.Blobs.Open(r.BlobURL)
	if err != nil {
		return "", fmt.Errorf("fetch archive for %q: %w", r.Label, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "otapush-archive-*.zip")
	if err != nil {
		return "", fmt.Errorf("archive temp: %w", err)
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download archive for %q: %w", r.Label, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (p *Planner) uploadDiff(old release.Release, newRelease *release.Release, diffPath string) (string, int64, error) {
	f, err := os.Open(diffPath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	name := fmt.Sprintf("diff_%s_%s.zip", old.PackageHash, newRelease.PackageHash)
	loc, err := p.Blobs.Store(name, f, fi.Size())
	if err != nil {
		return "", 0, err
	}
	return loc, fi.Size(), nil
}
