package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	var (
		projectPath string
		srcRoot     string
		objRoot     string
		ccPath      string
		cxxPath     string
		jobs        int
		maxLoad     float64
		buildType   string
		linkType    string
		version     string
		noCache     bool
		dumpCache   bool
	)

	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build the requested targets (or the project defaults)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := domain.ParseBuildType(buildType)
			if err != nil {
				return err
			}
			link, err := domain.ParseLinkType(linkType)
			if err != nil {
				return err
			}

			return c.app.Build(cmd.Context(), app.BuildOptions{
				ProjectPath: projectPath,
				SrcRoot:     srcRoot,
				ObjRoot:     objRoot,
				CC:          ccPath,
				CXX:         cxxPath,
				Jobs:        jobs,
				MaxLoad:     maxLoad,
				Build:       build,
				Link:        link,
				Version:     version,
				Targets:     args,
				NoCache:     noCache,
				DumpCache:   dumpCache,
			})
		},
	}

	cmd.Flags().StringVarP(&projectPath, "project", "f", "forge.yaml", "Path to the project description")
	cmd.Flags().StringVar(&srcRoot, "src-root", ".", "Source root directory")
	cmd.Flags().StringVar(&objRoot, "obj-root", "out", "Output root directory")
	cmd.Flags().StringVar(&ccPath, "cc", "gcc", "C compiler driver")
	cmd.Flags().StringVar(&cxxPath, "cxx", "g++", "C++ compiler driver")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Worker pool size (0 = detected core count)")
	cmd.Flags().Float64VarP(&maxLoad, "max-load", "l", 0, "Cap the pool by the host load average")
	cmd.Flags().StringVar(&buildType, "build-type", "debug", "Build type: debug, optimized or release")
	cmd.Flags().StringVar(&linkType, "link-type", "dynamic", "Link type: dynamic or static")
	cmd.Flags().StringVar(&version, "version-str", "", "Version string X.Y[.Z] for shared libraries")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and reset the persistent cache")
	cmd.Flags().BoolVar(&dumpCache, "dump-cache", false, "Print the persistent cache and exit")

	return cmd
}
