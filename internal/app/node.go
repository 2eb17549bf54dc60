package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/project"   //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/store"     //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/toolchain" //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/discovery"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/forge/internal/ui/output"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			project.NodeID,
			toolchain.ProberNodeID,
			discovery.NodeID,
			scheduler.NodeID,
			fs.HasherNodeID,
			store.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ProjectLoader](ctx)
			if err != nil {
				return nil, err
			}
			prober, err := graft.Dep[ports.Prober](ctx)
			if err != nil {
				return nil, err
			}
			disc, err := graft.Dep[*discovery.Discovery](ctx)
			if err != nil {
				return nil, err
			}
			sched, err := graft.Dep[*scheduler.Scheduler](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			opener, err := graft.Dep[ports.StoreOpener](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(loader, prober, disc, sched, hasher, opener, log, output.NewPrinter()), nil
		},
	})
}
