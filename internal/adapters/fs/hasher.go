// Package fs provides filesystem adapters: file fingerprinting and source
// resolution under the include/exclude roots.
package fs

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher fingerprints files with their mtime and a BLAKE3 content digest.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint stats and digests the file at path.
func (h *Hasher) Fingerprint(path string) (domain.DepFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.DepFingerprint{}, zerr.With(zerr.Wrap(err, "failed to stat dependency"), "path", path)
	}

	digest, err := h.digest(path)
	if err != nil {
		return domain.DepFingerprint{}, err
	}

	return domain.DepFingerprint{
		Path:    path,
		MTimeNS: info.ModTime().UnixNano(),
		Digest:  digest,
	}, nil
}

func (h *Hasher) digest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the target graph
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // best effort close in defer

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
