package domain

// Allow-lists for enumerated option families. A name missing from its table
// is a parse error, which keeps typos out of the cache key space.

var warningNames = map[string]bool{
	"all":                   true,
	"extra":                 true,
	"error":                 true,
	"pedantic":              true,
	"shadow":                true,
	"conversion":            true,
	"sign-conversion":       true,
	"sign-compare":          true,
	"unused":                true,
	"unused-parameter":      true,
	"unused-variable":       true,
	"unused-function":       true,
	"uninitialized":         true,
	"format":                true,
	"format-security":       true,
	"strict-overflow":       true,
	"cast-align":            true,
	"cast-qual":             true,
	"pointer-arith":         true,
	"write-strings":         true,
	"missing-declarations":  true,
	"missing-prototypes":    true,
	"redundant-decls":       true,
	"switch":                true,
	"switch-enum":           true,
	"switch-default":        true,
	"undef":                 true,
	"float-equal":           true,
	"old-style-cast":        true,
	"overloaded-virtual":    true,
	"non-virtual-dtor":      true,
	"ctor-dtor-privacy":     true,
	"effc++":                true,
	"inline":                true,
	"disabled-optimization": true,
	"padded":                true,
	"packed":                true,
	"aggregate-return":      true,
	"deprecated":            true,
	"deprecated-declarations": true,
	"fatal-errors":          true,
	"stack-protector":       true,
}

// warningValueOK constrains the valued warnings: -Wstrict-overflow=N wants
// N in 1..5, -Wformat accepts only =2.
func warningValueOK(name, value string) bool {
	switch name {
	case "strict-overflow":
		return value == "1" || value == "2" || value == "3" || value == "4" || value == "5"
	case "format":
		return value == "2"
	}
	return false
}

var fFlags = map[string]bool{
	"PIC":                      true,
	"pic":                      true,
	"PIE":                      true,
	"pie":                      true,
	"lto":                      true,
	"common":                   true,
	"signed-char":              true,
	"unsigned-char":            true,
	"inline-functions":         true,
	"strict-aliasing":          true,
	"diagnostics-show-option":  true,
	"omit-frame-pointer":       true,
	"exceptions":               true,
	"rtti":                     true,
	"stack-protector":          true,
	"stack-protector-strong":   true,
	"data-sections":            true,
	"function-sections":        true,
	"fast-math":                true,
	"unroll-loops":             true,
	"profile-arcs":             true,
	"test-coverage":            true,
	"visibility":               true,
}

// fValued lists the -f flags that take an =value, with their legal values.
var fValued = map[string]map[string]bool{
	"visibility": {"default": true, "hidden": true, "internal": true, "protected": true},
}

// fOptimization marks the optimization-class -f flags that a debug build
// rejects.
var fOptimization = map[string]bool{
	"lto":                true,
	"inline-functions":   true,
	"strict-aliasing":    true,
	"omit-frame-pointer": true,
	"fast-math":          true,
	"unroll-loops":       true,
	"data-sections":      true,
	"function-sections":  true,
}

var mParams = map[string]bool{
	"32":            true,
	"64":            true,
	"sse2":          true,
	"sse3":          true,
	"ssse3":         true,
	"sse4.1":        true,
	"sse4.2":        true,
	"avx":           true,
	"avx2":          true,
	"fma":           true,
	"tune=native":   true,
	"tune=generic":  true,
	"arch=native":   true,
	"arch=x86-64":   true,
	"fpmath=sse":    true,
	"no-red-zone":   true,
}

var stdDialects = map[string]bool{
	"c89":     true,
	"c90":     true,
	"c99":     true,
	"c11":     true,
	"c17":     true,
	"gnu89":   true,
	"gnu99":   true,
	"gnu11":   true,
	"gnu17":   true,
	"c++98":   true,
	"c++11":   true,
	"c++14":   true,
	"c++17":   true,
	"c++20":   true,
	"gnu++11": true,
	"gnu++14": true,
	"gnu++17": true,
	"gnu++20": true,
}

var paramKeys = map[string]bool{
	"max-inline-insns-single": true,
	"max-inline-insns-auto":   true,
	"inline-unit-growth":      true,
	"large-function-growth":   true,
	"large-function-insns":    true,
	"max-unrolled-insns":      true,
	"ggc-min-expand":          true,
	"ggc-min-heapsize":        true,
}

var oLevels = map[string]bool{
	"0": true, "1": true, "2": true, "3": true, "s": true, "fast": true,
}

// singleValued lists option names of which a set holds at most one instance;
// a second add with a differing value is a conflict.
var singleValued = map[string]bool{
	"-install_name":          true,
	"-compatibility_version": true,
	"-current_version":       true,
	"-m":                     true,
	"-std":                   true,
	"-O":                     true,
}
