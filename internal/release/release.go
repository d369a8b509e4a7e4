// Package release holds the metadata describing committed packages and the
// read-only contract for a deployment's release history.
package release

// Release describes one committed package in a deployment's history.
// BlobURL locates the full release archive, ManifestBlobURL the persisted
// package manifest.
type Release struct {
	Label           string `json:"label"`
	AppVersion      string `json:"appVersion"`
	PackageHash     string `json:"packageHash"`
	BlobURL         string `json:"blobUrl"`
	ManifestBlobURL string `json:"manifestBlobUrl"`
	Size            int64  `json:"size"`
}

// DiffBlobInfo locates one precomputed diff archive.
type DiffBlobInfo struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// DiffIndex maps an old release's package hash to the diff archive that
// upgrades it to the current release. An absent key means "no precomputed
// diff; fetch the full archive".
type DiffIndex map[string]DiffBlobInfo

// Resolve picks the smallest artifact for a device currently running the
// package identified by currentHash. full is the new release's complete
// archive, returned when no diff applies.
func (ix DiffIndex) Resolve(currentHash string, full DiffBlobInfo) DiffBlobInfo {
	if info, ok := ix[currentHash]; ok {
		return info
	}
	return full
}

// History reads a deployment's committed releases, ordered oldest first.
// The diffing core only ever reads history; ownership stays with the
// persistent store.
type History interface {
	Releases(account, app, deployment string) ([]Release, error)
}
