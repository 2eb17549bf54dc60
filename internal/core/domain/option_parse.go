package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// OptionParser turns command-line tokens into typed Options for one
// processor kind. Build-type constraints (-g in release, -s outside release,
// -O levels, optimization -f flags in debug) are enforced during parsing so that an
// invalid flag never reaches an OptionSet.
type OptionParser struct {
	Kind  ProcessorKind
	Build BuildType

	// AllowDebugOptimization permits -O above 0 in a debug build. This is
	// the explicit per-target escape hatch; it does not relax -f checks.
	AllowDebugOptimization bool
}

// Parse maps a sequence of tokens to Options. Tokens that match no rule for
// the parser's processor kind are errors. The two-token pass-through pairs
// -Wl,-rpath/-Wl,-soname and the space-separated linker and --param forms
// consume their following token.
func (p OptionParser) Parse(tokens []string) ([]Option, error) {
	opts := make([]Option, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		opt, consumed, err := p.parseOne(tok, tokens[i+1:])
		if err != nil {
			return nil, zerr.With(zerr.With(err, "token", tok), "processor", string(p.Kind))
		}
		i += consumed
		opts = append(opts, opt)
	}
	return opts, nil
}

// parseOne parses tok, looking ahead into rest for space-separated
// parameters. It returns the option and how many lookahead tokens were
// consumed.
func (p OptionParser) parseOne(tok string, rest []string) (Option, int, error) {
	switch {
	case strings.HasPrefix(tok, "-D"):
		return p.parseDefine(tok)
	case strings.HasPrefix(tok, "-U"):
		return p.parseUndefine(tok)
	case strings.HasPrefix(tok, "-I"):
		return p.parseInclude(tok)
	case tok == "--param":
		return p.parseParam(rest)
	case strings.HasPrefix(tok, "-Wa,"):
		return p.parseAsmPassThrough(tok)
	case strings.HasPrefix(tok, "-Wl,"):
		return p.parseLinkPassThrough(tok, rest)
	case strings.HasPrefix(tok, "-W"):
		return p.parseWarning(tok)
	case strings.HasPrefix(tok, "-f") && tok != "-framework":
		return p.parseMachineIndependent(tok)
	case strings.HasPrefix(tok, "-std="):
		return p.parseStd(tok)
	case strings.HasPrefix(tok, "-m"):
		return p.parseMachine(tok)
	case strings.HasPrefix(tok, "-O"):
		return p.parseOptLevel(tok)
	case tok == "-g":
		return p.parseDebugInfo()
	case tok == "-s":
		return p.parseStrip()
	case strings.HasPrefix(tok, "-l"):
		return p.parseLinkLib(tok)
	case strings.HasPrefix(tok, "-L"):
		return p.parseLinkDir(tok)
	case tok == "-shared" || tok == "-static" || tok == "-nostdlib" || tok == "-dynamiclib":
		return p.parseLinkMode(tok)
	case tok == "-install_name" || tok == "-compatibility_version" ||
		tok == "-current_version" || tok == "-framework":
		return p.parseLinkNamed(tok, rest)
	}
	return Option{}, 0, ErrUnknownOption
}

func (p OptionParser) requireKind(kinds ...ProcessorKind) error {
	for _, k := range kinds {
		if p.Kind == k {
			return nil
		}
	}
	return ErrUnknownOption
}

func (p OptionParser) requireLinker() error {
	if !p.Kind.IsLinker() {
		return ErrUnknownOption
	}
	return nil
}

func (p OptionParser) parseDefine(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCPP, ProcAS); err != nil {
		return Option{}, 0, err
	}
	body := tok[len("-D"):]
	if body == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-D requires a symbol")
	}
	if strings.Count(body, "=") > 1 {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "more than one '=' in define")
	}
	key, val, _ := strings.Cut(body, "=")
	return Option{
		Name:  "-D",
		Kind:  OptPreprocessor,
		Param: ParamRequired,
		Value: body,
		Key:   key,
		Val:   val,
	}, 0, nil
}

func (p OptionParser) parseUndefine(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCPP, ProcAS); err != nil {
		return Option{}, 0, err
	}
	sym := tok[len("-U"):]
	if sym == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-U requires a symbol")
	}
	return Option{
		Name:  "-U",
		Kind:  OptPreprocessor,
		Param: ParamRequired,
		Value: sym,
		Key:   sym,
	}, 0, nil
}

func (p OptionParser) parseInclude(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCPP, ProcAS); err != nil {
		return Option{}, 0, err
	}
	dir := tok[len("-I"):]
	if dir == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-I requires a directory")
	}
	return Option{
		Name:  "-I",
		Kind:  OptPreprocessor,
		Param: ParamRequired,
		Value: dir,
	}, 0, nil
}

func (p OptionParser) parseParam(rest []string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX); err != nil {
		return Option{}, 0, err
	}
	if len(rest) == 0 {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "--param requires a key=value argument")
	}
	body := rest[0]
	key, val, found := strings.Cut(body, "=")
	if !found || key == "" || val == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "--param argument must be key=value")
	}
	if !paramKeys[key] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown --param key"), "key", key)
	}
	return Option{
		Name:  "--param",
		Kind:  OptCompiler,
		Param: ParamRequired,
		Value: body,
		Sep:   SepSpace,
		Key:   key,
		Val:   val,
	}, 1, nil
}

func (p OptionParser) parseAsmPassThrough(tok string) (Option, int, error) {
	if err := p.requireKind(ProcAS); err != nil {
		return Option{}, 0, err
	}
	body := tok[len("-Wa,"):]
	if body == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-Wa, requires a pass-through token")
	}
	return Option{
		Name:  "-Wa,",
		Kind:  OptAssembler,
		Param: ParamRequired,
		Value: body,
	}, 0, nil
}

// parseLinkPassThrough handles -Wl, tokens, including the two-token pairs
// -Wl,-rpath -Wl,<path> and -Wl,-soname -Wl,<name>. The pair recognition is
// a two-state machine: seeing -rpath/-soname moves to the "want second
// token" state, and the pair is emitted as one logical option.
func (p OptionParser) parseLinkPassThrough(tok string, rest []string) (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	body := tok[len("-Wl,"):]
	if body == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-Wl, requires a pass-through token")
	}
	if body == "-rpath" || body == "-soname" {
		if len(rest) == 0 || !strings.HasPrefix(rest[0], "-Wl,") || rest[0] == "-Wl," {
			return Option{}, 0, zerr.With(
				zerr.Wrap(ErrOptionParam, "pass-through pair missing its second token"),
				"pair", body)
		}
		return Option{
			Name:  "-Wl," + body,
			Kind:  OptLinker,
			Param: ParamRequired,
			Value: rest[0][len("-Wl,"):],
			Sep:   SepSpace,
		}, 1, nil
	}
	return Option{
		Name:  "-Wl,",
		Kind:  OptLinker,
		Param: ParamRequired,
		Value: body,
	}, 0, nil
}

func (p OptionParser) parseWarning(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX); err != nil {
		return Option{}, 0, err
	}
	body := tok[len("-W"):]
	negated := false
	if strings.HasPrefix(body, "no-") {
		negated = true
		body = body[len("no-"):]
	}
	name, value, hasValue := strings.Cut(body, "=")
	if !warningNames[name] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown warning"), "warning", name)
	}
	if hasValue {
		if negated {
			return Option{}, 0, zerr.Wrap(ErrOptionParam, "negated warning cannot carry a value")
		}
		if !warningValueOK(name, value) {
			return Option{}, 0, zerr.With(zerr.With(
				zerr.Wrap(ErrOptionParam, "warning value out of range"),
				"warning", name), "value", value)
		}
		return Option{
			Name:  "-W" + name,
			Kind:  OptCompiler,
			Param: ParamOptional,
			Value: value,
			Sep:   SepEquals,
		}, 0, nil
	}
	return Option{
		Name:    "-W" + name,
		Kind:    OptCompiler,
		Param:   ParamOptional,
		Negated: negated,
	}, 0, nil
}

func (p OptionParser) parseMachineIndependent(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX); err != nil {
		return Option{}, 0, err
	}
	body := tok[len("-f"):]
	negated := false
	if strings.HasPrefix(body, "no-") {
		negated = true
		body = body[len("no-"):]
	}
	name, value, hasValue := strings.Cut(body, "=")
	if !fFlags[name] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown -f flag"), "flag", name)
	}
	if p.Build == BuildDebug && fOptimization[name] && !negated {
		return Option{}, 0, zerr.With(
			zerr.Wrap(ErrOptionBuildType, "optimization flag in debug build"),
			"flag", "-f"+name)
	}
	if hasValue {
		allowed, ok := fValued[name]
		if !ok || !allowed[value] {
			return Option{}, 0, zerr.With(zerr.With(
				zerr.Wrap(ErrOptionParam, "invalid -f flag value"),
				"flag", name), "value", value)
		}
		return Option{
			Name:  "-f" + name,
			Kind:  OptCompiler,
			Param: ParamOptional,
			Value: value,
			Sep:   SepEquals,
		}, 0, nil
	}
	return Option{
		Name:    "-f" + name,
		Kind:    OptCompiler,
		Param:   ParamOptional,
		Negated: negated,
	}, 0, nil
}

func (p OptionParser) parseStd(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX); err != nil {
		return Option{}, 0, err
	}
	dialect := tok[len("-std="):]
	if !stdDialects[dialect] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown dialect"), "dialect", dialect)
	}
	return Option{
		Name:  "-std",
		Kind:  OptCompiler,
		Param: ParamRequired,
		Value: dialect,
		Sep:   SepEquals,
	}, 0, nil
}

func (p OptionParser) parseMachine(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX, ProcAS); err != nil {
		return Option{}, 0, err
	}
	param := tok[len("-m"):]
	if !mParams[param] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown machine flag"), "param", param)
	}
	return Option{
		Name:  "-m",
		Kind:  OptCompiler,
		Param: ParamRequired,
		Value: param,
	}, 0, nil
}

func (p OptionParser) parseOptLevel(tok string) (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX); err != nil {
		return Option{}, 0, err
	}
	level := tok[len("-O"):]
	if !oLevels[level] {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "unknown optimization level"), "level", level)
	}
	if p.Build == BuildRelease && level == "0" {
		return Option{}, 0, zerr.Wrap(ErrOptionBuildType, "-O0 in release build")
	}
	if p.Build == BuildDebug && level != "0" && !p.AllowDebugOptimization {
		return Option{}, 0, zerr.With(
			zerr.Wrap(ErrOptionBuildType, "optimization in debug build"),
			"level", level)
	}
	return Option{
		Name:  "-O",
		Kind:  OptCompiler,
		Param: ParamRequired,
		Value: level,
	}, 0, nil
}

func (p OptionParser) parseDebugInfo() (Option, int, error) {
	if err := p.requireKind(ProcCC, ProcCXX, ProcAS); err != nil {
		return Option{}, 0, err
	}
	if p.Build == BuildRelease {
		return Option{}, 0, zerr.Wrap(ErrOptionBuildType, "-g in release build")
	}
	return Option{Name: "-g", Kind: OptCompiler}, 0, nil
}

func (p OptionParser) parseStrip() (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	if p.Build != BuildRelease {
		return Option{}, 0, zerr.Wrap(ErrOptionBuildType, "-s outside release build")
	}
	return Option{Name: "-s", Kind: OptLinker}, 0, nil
}

func (p OptionParser) parseLinkLib(tok string) (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	lib := tok[len("-l"):]
	if lib == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-l requires a library name")
	}
	return Option{
		Name:  "-l",
		Kind:  OptLinker,
		Param: ParamRequired,
		Value: lib,
	}, 0, nil
}

func (p OptionParser) parseLinkDir(tok string) (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	dir := tok[len("-L"):]
	if dir == "" {
		return Option{}, 0, zerr.Wrap(ErrOptionParam, "-L requires a directory")
	}
	return Option{
		Name:  "-L",
		Kind:  OptLinker,
		Param: ParamRequired,
		Value: dir,
	}, 0, nil
}

func (p OptionParser) parseLinkMode(tok string) (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	return Option{Name: tok, Kind: OptLinker}, 0, nil
}

func (p OptionParser) parseLinkNamed(tok string, rest []string) (Option, int, error) {
	if err := p.requireLinker(); err != nil {
		return Option{}, 0, err
	}
	if len(rest) == 0 {
		return Option{}, 0, zerr.With(zerr.Wrap(ErrOptionParam, "missing argument"), "option", tok)
	}
	return Option{
		Name:  tok,
		Kind:  OptLinker,
		Param: ParamRequired,
		Value: rest[0],
		Sep:   SepSpace,
	}, 1, nil
}
