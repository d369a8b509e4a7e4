package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// Every digest in the system is SHA-256 rendered as lowercase hex. Per-file
// manifest digests, package hashes and client-side verification all share
// this encoding; changing it is a breaking wire-format change.

// HexLen is the length of an encoded digest string.
const HexLen = sha256.Size * 2

// Reader drains r and returns the digest of everything read.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the digest of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// File returns the digest of a local file's content. The file is
// memory-mapped rather than read through a buffer; bundle trees are mostly
// small files and the mapping keeps the sequential walk cheap.
func File(path string) (string, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer r.Close()

	digest, err := Reader(io.NewSectionReader(r, 0, int64(r.Len())))
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return digest, nil
}
