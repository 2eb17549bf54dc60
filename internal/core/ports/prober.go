package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// Prober inspects the host once per invocation: driver paths, the system
// include search path, core count, endianness.
//
//go:generate go run go.uber.org/mock/mockgen -source=prober.go -destination=mocks/mock_prober.go -package=mocks
type Prober interface {
	Probe(ctx context.Context, ccPath, cxxPath string) (*domain.Toolchain, error)
}
