package ports

import "context"

// DepScanner enumerates the headers a compilable source includes, by running
// the preprocessor in dependency-emitting mode.
//
//go:generate go run go.uber.org/mock/mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type DepScanner interface {
	// ScanIncludes runs driver with the dependency-emitting flags and args
	// (the source's effective preprocessor flags) over source, returning the
	// included paths as reported, system headers still present.
	ScanIncludes(ctx context.Context, driver, source string, args []string) ([]string, error)
}
