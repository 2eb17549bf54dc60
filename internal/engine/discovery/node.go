package discovery

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/logger"
	"go.trai.ch/forge/internal/adapters/toolchain"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the discovery Graft node.
const NodeID graft.ID = "engine.discovery"

func init() {
	graft.Register(graft.Node[*Discovery]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			toolchain.ScannerNodeID,
			fs.HasherNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Discovery, error) {
			scanner, err := graft.Dep[ports.DepScanner](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(scanner, hasher, log), nil
		},
	})
}
