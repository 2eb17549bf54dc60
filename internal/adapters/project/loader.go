// Package project provides the loader for user-authored project
// descriptions.
package project

import (
	"os"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ProjectLoader = (*Loader)(nil)

// Loader implements ports.ProjectLoader on a YAML file.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates a project description file.
func (l *Loader) Load(path string) (*domain.Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read project file")
	}

	var file Forgefile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse project file")
	}

	globals, err := mapGlobals(file.Globals)
	if err != nil {
		return nil, err
	}

	proj := &domain.Project{Globals: globals}
	for _, dto := range file.Bundles {
		bundle, err := mapBundle(dto)
		if err != nil {
			return nil, err
		}
		proj.Bundles = append(proj.Bundles, bundle)
	}
	return proj, nil
}

func mapGlobals(globals map[string][]string) (map[domain.ProcessorKind][]string, error) {
	out := make(map[domain.ProcessorKind][]string, len(globals))
	for name, tokens := range globals {
		kind, err := processorKind(name)
		if err != nil {
			return nil, err
		}
		out[kind] = tokens
	}
	return out, nil
}

func mapBundle(dto BundleDTO) (domain.Bundle, error) {
	if dto.Name == "" {
		return domain.Bundle{}, zerr.New("bundle requires a name")
	}

	bundle := domain.Bundle{
		Name:     dto.Name,
		Include:  dto.Include,
		Exclude:  dto.Exclude,
		Defaults: dto.Defaults,
	}

	for _, lib := range dto.Libraries {
		decl, err := mapArtifact(lib)
		if err != nil {
			return domain.Bundle{}, err
		}
		bundle.Libraries = append(bundle.Libraries, domain.LibraryDecl(decl))
	}
	for _, exe := range dto.Executables {
		decl, err := mapArtifact(exe)
		if err != nil {
			return domain.Bundle{}, err
		}
		bundle.Executables = append(bundle.Executables, domain.ExecutableDecl(decl))
	}
	for _, gen := range dto.Generated {
		if gen.Output == "" || gen.Script == "" || gen.Interpreter == "" {
			return domain.Bundle{}, zerr.With(
				zerr.New("generated source requires output, interpreter and script"),
				"bundle", dto.Name)
		}
		bundle.Generated = append(bundle.Generated, domain.GeneratedDecl(gen))
	}
	for _, to := range dto.TargetOptions {
		kind, err := processorKind(to.Kind)
		if err != nil {
			return domain.Bundle{}, err
		}
		bundle.TargetOptions = append(bundle.TargetOptions, domain.TargetOptionsDecl{
			Target: to.Target,
			Kind:   kind,
			Add:    to.Add,
			Delete: to.Delete,
		})
	}
	return bundle, nil
}

func mapArtifact(dto ArtifactDTO) (domain.LibraryDecl, error) {
	if dto.Name == "" {
		return domain.LibraryDecl{}, zerr.New("artifact requires a name")
	}
	if len(dto.Files) == 0 {
		return domain.LibraryDecl{}, zerr.With(zerr.New("artifact requires files"), "name", dto.Name)
	}

	linker := domain.LangC
	switch dto.Linker {
	case "", "cc":
	case "cxx":
		linker = domain.LangCXX
	default:
		return domain.LibraryDecl{}, zerr.With(zerr.New("unknown linker"), "linker", dto.Linker)
	}

	return domain.LibraryDecl{
		Name:   dto.Name,
		Files:  dto.Files,
		Libs:   dto.Libs,
		Linker: linker,
	}, nil
}

func processorKind(name string) (domain.ProcessorKind, error) {
	for _, kind := range domain.ProcessorKinds() {
		if name == string(kind) {
			return kind, nil
		}
	}
	return "", zerr.With(zerr.New("unknown processor kind"), "kind", name)
}
