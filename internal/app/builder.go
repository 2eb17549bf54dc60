package app

import (
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder evaluates project declarations into the global OptionGroup and
// the target graph. Projects reach it only through the narrow operations:
// SetGlobals, AddLibrary, AddExecutable, AddTargetOptions,
// DeleteTargetOptions, RegisterGeneratedSource.
type Builder struct {
	layout   domain.Layout
	resolver *fs.Resolver
	logger   ports.Logger

	group *domain.OptionGroup
	graph *domain.Graph

	// pendingLibs defers library-name resolution until every artifact is
	// declared, so bundles may reference libraries in any order.
	pendingLibs map[domain.InternedString][]string

	defaults []string
}

// NewBuilder creates a Builder for one invocation.
func NewBuilder(layout domain.Layout, resolver *fs.Resolver, logger ports.Logger) *Builder {
	return &Builder{
		layout:      layout,
		resolver:    resolver,
		logger:      logger,
		group:       domain.NewOptionGroup(layout.Build),
		graph:       domain.NewGraph(),
		pendingLibs: make(map[domain.InternedString][]string),
	}
}

// Evaluate runs a whole project through the builder operations and
// finalizes the graph.
func (b *Builder) Evaluate(p *domain.Project) (*domain.Graph, *domain.OptionGroup, []string, error) {
	if err := b.SetGlobals(p.Globals); err != nil {
		return nil, nil, nil, err
	}
	for _, bundle := range p.Bundles {
		for _, gen := range bundle.Generated {
			if err := b.RegisterGeneratedSource(bundle, gen); err != nil {
				return nil, nil, nil, err
			}
		}
		for _, lib := range bundle.Libraries {
			if err := b.AddLibrary(bundle, lib); err != nil {
				return nil, nil, nil, err
			}
		}
		for _, exe := range bundle.Executables {
			if err := b.AddExecutable(bundle, exe); err != nil {
				return nil, nil, nil, err
			}
		}
		b.defaults = append(b.defaults, bundle.Defaults...)
	}
	for _, bundle := range p.Bundles {
		for _, to := range bundle.TargetOptions {
			var err error
			if len(to.Add) > 0 {
				err = b.AddTargetOptions(to.Target, to.Kind, to.Add)
			}
			if err == nil && len(to.Delete) > 0 {
				err = b.DeleteTargetOptions(to.Target, to.Kind, to.Delete)
			}
			if err != nil {
				return nil, nil, nil, err
			}
		}
	}
	if err := b.finalize(); err != nil {
		return nil, nil, nil, err
	}
	return b.graph, b.group, b.defaults, nil
}

// SetGlobals parses the declared option tokens into the eight canonical
// sets, then seeds the linkage defaults the invocation's link type implies:
// dynamic linkage compiles with -fPIC and links libraries with -shared.
func (b *Builder) SetGlobals(globals map[domain.ProcessorKind][]string) error {
	for _, kind := range domain.ProcessorKinds() {
		tokens, ok := globals[kind]
		if !ok {
			continue
		}
		parser := domain.OptionParser{Kind: kind, Build: b.layout.Build}
		opts, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		if err := b.group.Set(kind).AddAll(opts, false); err != nil {
			return err
		}
	}

	if b.layout.Link == domain.LinkDynamic {
		if err := b.seedDynamicDefaults(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) seedDynamicDefaults() error {
	for _, kind := range []domain.ProcessorKind{domain.ProcCC, domain.ProcCXX} {
		parser := domain.OptionParser{Kind: kind, Build: b.layout.Build}
		opts, err := parser.Parse([]string{"-fPIC"})
		if err != nil {
			return err
		}
		for _, opt := range opts {
			if _, err := b.group.Set(kind).Add(opt, true); err != nil {
				return err
			}
		}
	}
	for _, kind := range []domain.ProcessorKind{domain.ProcLinkCCLib, domain.ProcLinkCXXLib} {
		parser := domain.OptionParser{Kind: kind, Build: b.layout.Build}
		opts, err := parser.Parse([]string{"-shared"})
		if err != nil {
			return err
		}
		for _, opt := range opts {
			if _, err := b.group.Set(kind).Add(opt, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddLibrary declares a library target and one object target per listed
// file.
func (b *Builder) AddLibrary(bundle domain.Bundle, decl domain.LibraryDecl) error {
	objects, err := b.addObjects(bundle, decl.Files)
	if err != nil {
		return zerr.With(err, "library", decl.Name)
	}

	kind := domain.TargetSharedLibrary
	if b.layout.Link == domain.LinkStatic {
		kind = domain.TargetStaticLibrary
	}

	lib := &domain.Target{
		Out:     domain.Intern(b.layout.LibraryPath(decl.Name)),
		Kind:    kind,
		Name:    decl.Name,
		Lang:    decl.Linker,
		Objects: objects,
		Version: b.layout.Version,
	}
	if err := b.graph.AddTarget(lib); err != nil {
		return err
	}
	b.pendingLibs[lib.Out] = decl.Libs
	return nil
}

// AddExecutable declares an executable target and its objects.
func (b *Builder) AddExecutable(bundle domain.Bundle, decl domain.ExecutableDecl) error {
	objects, err := b.addObjects(bundle, decl.Files)
	if err != nil {
		return zerr.With(err, "executable", decl.Name)
	}

	exe := &domain.Target{
		Out:     domain.Intern(b.layout.ExecutablePath(decl.Name)),
		Kind:    domain.TargetExecutable,
		Name:    decl.Name,
		Lang:    decl.Linker,
		Objects: objects,
	}
	if err := b.graph.AddTarget(exe); err != nil {
		return err
	}
	b.pendingLibs[exe.Out] = decl.Libs
	return nil
}

// addObjects resolves each declared file under the bundle's include roots
// and emits an object target per file. A file already declared by another
// artifact reuses its object.
func (b *Builder) addObjects(bundle domain.Bundle, files []string) ([]domain.InternedString, error) {
	objects := make([]domain.InternedString, 0, len(files))
	for _, file := range files {
		src, err := b.resolveSource(bundle, file)
		if err != nil {
			return nil, err
		}

		lang, ok := domain.LanguageForSource(src.String())
		if !ok {
			return nil, zerr.With(zerr.New("file is not compilable"), "path", src.String())
		}

		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		obj := &domain.Target{
			Out:    domain.Intern(b.layout.ObjectPath(base)),
			Kind:   domain.TargetObject,
			Lang:   lang,
			Source: src,
		}
		if err := b.graph.AddTarget(obj); err != nil {
			existing, found := b.graph.Target(obj.Out)
			if !found || existing.Source != obj.Source {
				return nil, err
			}
			// Same source listed by two artifacts shares one object.
			objects = append(objects, existing.Out)
			continue
		}
		objects = append(objects, obj.Out)
	}
	return objects, nil
}

// resolveSource finds the file on disk (or as a generated source) and
// ensures a terminal Source target exists for it.
func (b *Builder) resolveSource(bundle domain.Bundle, file string) (domain.InternedString, error) {
	// Generated sources are referenced by their declared output name.
	genPath := b.layout.GeneratedPath(file)
	if t, ok := b.graph.Target(domain.Intern(genPath)); ok && t.Kind == domain.TargetGeneratedSource {
		return t.Out, nil
	}

	path, err := b.resolver.ResolveSource(file, bundle.Include, bundle.Exclude)
	if err != nil {
		return domain.InternedString{}, err
	}

	id := domain.Intern(path)
	if _, ok := b.graph.Target(id); !ok {
		if err := b.graph.AddTarget(&domain.Target{Out: id, Kind: domain.TargetSource}); err != nil {
			return domain.InternedString{}, err
		}
	}
	return id, nil
}

// RegisterGeneratedSource declares a rule producing a source file under the
// output root. The rule depends on its script and inputs.
func (b *Builder) RegisterGeneratedSource(bundle domain.Bundle, decl domain.GeneratedDecl) error {
	script, err := b.resolveSupportFile(decl.Script)
	if err != nil {
		return zerr.With(err, "generated", decl.Output)
	}

	inputs := make([]domain.InternedString, 0, len(decl.Inputs))
	for _, in := range decl.Inputs {
		id, err := b.resolveSupportFile(in)
		if err != nil {
			return zerr.With(err, "generated", decl.Output)
		}
		inputs = append(inputs, id)
	}

	gen := &domain.Target{
		Out:         domain.Intern(b.layout.GeneratedPath(decl.Output)),
		Kind:        domain.TargetGeneratedSource,
		Interpreter: decl.Interpreter,
		Script:      script,
		Inputs:      inputs,
	}
	return b.graph.AddTarget(gen)
}

// resolveSupportFile registers a Source target for a script or rule input,
// resolved relative to the source root.
func (b *Builder) resolveSupportFile(rel string) (domain.InternedString, error) {
	path := filepath.Join(b.layout.SrcRoot, rel)
	id := domain.Intern(path)
	if _, ok := b.graph.Target(id); !ok {
		if err := b.graph.AddTarget(&domain.Target{Out: id, Kind: domain.TargetSource}); err != nil {
			return domain.InternedString{}, err
		}
	}
	return id, nil
}

// AddTargetOptions applies per-target option additions on top of the global
// group. The per-target parser is the explicit escape hatch that permits
// optimization in a debug build.
func (b *Builder) AddTargetOptions(name string, kind domain.ProcessorKind, tokens []string) error {
	t, ok := b.graph.Lookup(name)
	if !ok {
		return zerr.With(domain.ErrTargetNotFound, "name", name)
	}

	parser := domain.OptionParser{Kind: kind, Build: b.layout.Build, AllowDebugOptimization: true}
	opts, err := parser.Parse(tokens)
	if err != nil {
		return err
	}

	local := t.MaterializeOptions(b.group)
	for _, opt := range opts {
		added, err := local.Set(kind).Add(opt, true)
		if err != nil {
			return err
		}
		if !added {
			b.logger.Warn("option already present for " + name + ": " + opt.Render())
		}
	}
	return nil
}

// DeleteTargetOptions removes options from a target's effective group.
func (b *Builder) DeleteTargetOptions(name string, kind domain.ProcessorKind, tokens []string) error {
	t, ok := b.graph.Lookup(name)
	if !ok {
		return zerr.With(domain.ErrTargetNotFound, "name", name)
	}

	parser := domain.OptionParser{Kind: kind, Build: b.layout.Build, AllowDebugOptimization: true}
	opts, err := parser.Parse(tokens)
	if err != nil {
		return err
	}

	local := t.MaterializeOptions(b.group)
	for _, opt := range opts {
		if !local.Set(kind).Remove(opt) {
			b.logger.Warn("option not present for " + name + ": " + opt.Render())
		}
	}
	return nil
}

// finalize resolves deferred library references and validates the graph.
func (b *Builder) finalize() error {
	for id, libNames := range b.pendingLibs {
		t, _ := b.graph.Target(id)
		for _, libName := range libNames {
			dep, ok := b.graph.Lookup(libName)
			if !ok {
				return zerr.With(zerr.With(domain.ErrTargetNotFound, "library", libName), "needed_by", t.Name)
			}
			if !dep.IsLibrary() {
				return zerr.With(domain.ErrExecutableDependency, "library", libName)
			}
			t.Libs = append(t.Libs, dep.Out)
		}
	}
	return b.graph.Validate()
}
