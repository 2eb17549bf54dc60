package ports

import "go.trai.ch/forge/internal/core/domain"

// Hasher fingerprints files for cache records.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Fingerprint stats and digests the file at path.
	Fingerprint(path string) (domain.DepFingerprint, error)
}
