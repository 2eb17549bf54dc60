package toolchain

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/shell"
	"go.trai.ch/forge/internal/core/ports"
)

const (
	// ProberNodeID is the unique identifier for the prober Graft node.
	ProberNodeID graft.ID = "adapter.prober"
	// ScannerNodeID is the unique identifier for the dep scanner Graft node.
	ScannerNodeID graft.ID = "adapter.dep_scanner"
)

func init() {
	graft.Register(graft.Node[ports.Prober]{
		ID:        ProberNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.Prober, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewProber(executor), nil
		},
	})

	graft.Register(graft.Node[ports.DepScanner]{
		ID:        ScannerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.DepScanner, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewScanner(executor), nil
		},
	})
}
