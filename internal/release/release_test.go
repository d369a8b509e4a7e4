package release_test

import (
	"testing"

	"otapush/internal/release"
)

func TestDiffIndexResolve(t *testing.T) {
	full := release.DiffBlobInfo{URL: "mem://full.zip", Size: 1000}
	ix := release.DiffIndex{
		"hash-old": {URL: "mem://diff.zip", Size: 120},
	}

	if got := ix.Resolve("hash-old", full); got.URL != "mem://diff.zip" {
		t.Errorf("Resolve known hash = %v, want diff artifact", got)
	}
	if got := ix.Resolve("hash-unknown", full); got != full {
		t.Errorf("Resolve unknown hash = %v, want full archive", got)
	}

	var none release.DiffIndex
	if got := none.Resolve("any", full); got != full {
		t.Errorf("nil index Resolve = %v, want full archive", got)
	}
}

func TestMemoryHistoryOrder(t *testing.T) {
	h := release.NewMemoryHistory()
	h.Commit("acct", "app", "Production", release.Release{Label: "v1"})
	h.Commit("acct", "app", "Production", release.Release{Label: "v2"})
	h.Commit("acct", "app", "Staging", release.Release{Label: "s1"})

	got, err := h.Releases("acct", "app", "Production")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Label != "v1" || got[1].Label != "v2" {
		t.Errorf("history = %v, want [v1 v2] oldest first", got)
	}

	empty, err := h.Releases("acct", "app", "Nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown deployment history = %v, want empty", empty)
	}
}
