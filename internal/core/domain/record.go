package domain

import (
	"encoding/json"
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// CodecVersion is bumped whenever the persisted encoding changes shape.
// A record carrying any other version decodes as corrupt, which the oracle
// treats as stale.
const CodecVersion = 1

// GlobalKey is the store key of the single GlobalHeader record.
const GlobalKey = "__globals__"

// Store keys of the global header fields, fixed by the persistence format.
const (
	KeySrcRoot = "src_root"
	KeyObjRoot = "obj_root"
	KeyCCPath  = "cc_path"
	KeyCXXPath = "cxx_path"
)

// DepFingerprint captures one dependency as it was when a target was last
// built: its path, its modification time, and a content digest.
type DepFingerprint struct {
	Path    string `json:"path"`
	MTimeNS int64  `json:"mtime_ns"`
	Digest  string `json:"digest,omitempty"`
}

// CacheRecord is the per-target persistent fingerprint: the exact inputs
// used the last time the target was built. Any field-wise mismatch against
// the freshly computed record makes the target stale.
type CacheRecord struct {
	Version      int                 `json:"version"`
	Out          string              `json:"out"`
	Deps         []DepFingerprint    `json:"deps"`
	Options      map[string][]string `json:"options"`
	Tool         string              `json:"tool"`
	NoHeaderDeps bool                `json:"no_header_deps,omitempty"`
}

// Equal is explicit field-enumerated equality.
func (r *CacheRecord) Equal(o *CacheRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Version == o.Version &&
		r.Out == o.Out &&
		slices.Equal(r.Deps, o.Deps) &&
		equalOptionArgs(r.Options, o.Options) &&
		r.Tool == o.Tool &&
		r.NoHeaderDeps == o.NoHeaderDeps
}

// DepPaths returns the recorded dependency paths in order.
func (r *CacheRecord) DepPaths() []string {
	paths := make([]string, len(r.Deps))
	for i, d := range r.Deps {
		paths[i] = d.Path
	}
	return paths
}

func equalOptionArgs(a, b map[string][]string) bool {
	return maps.EqualFunc(a, b, slices.Equal)
}

// EncodeRecord serializes r deterministically. encoding/json writes struct
// fields in declaration order and map keys sorted, so equal records encode
// to identical bytes.
func EncodeRecord(r *CacheRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode cache record")
	}
	return data, nil
}

// DecodeRecord deserializes a record, mapping any malformed or
// version-mismatched payload to ErrCorruptRecord.
func DecodeRecord(data []byte) (*CacheRecord, error) {
	var r CacheRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, zerr.Wrap(ErrCorruptRecord, err.Error())
	}
	if r.Version != CodecVersion {
		return nil, zerr.With(ErrCorruptRecord, "version", r.Version)
	}
	return &r, nil
}

// GlobalHeader is the single record keyed by GlobalKey: the roots, tool
// paths, and the eight canonical option sets of the invocation. Any
// mismatch invalidates the entire cache, deliberately conservative.
// The archiver path is deliberately absent: an ar change surfaces
// per-target through CacheRecord.Tool instead of invalidating everything.
type GlobalHeader struct {
	Version int                 `json:"version"`
	SrcRoot string              `json:"src_root"`
	ObjRoot string              `json:"obj_root"`
	CCPath  string              `json:"cc_path"`
	CXXPath string              `json:"cxx_path"`
	Sets    map[string][]string `json:"option_sets"`
}

// NewGlobalHeader builds the header for the current invocation.
func NewGlobalHeader(srcRoot, objRoot, ccPath, cxxPath string, group *OptionGroup) *GlobalHeader {
	return &GlobalHeader{
		Version: CodecVersion,
		SrcRoot: srcRoot,
		ObjRoot: objRoot,
		CCPath:  ccPath,
		CXXPath: cxxPath,
		Sets:    group.Encoded(),
	}
}

// Equal is explicit field-enumerated equality.
func (h *GlobalHeader) Equal(o *GlobalHeader) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.Version == o.Version &&
		h.SrcRoot == o.SrcRoot &&
		h.ObjRoot == o.ObjRoot &&
		h.CCPath == o.CCPath &&
		h.CXXPath == o.CXXPath &&
		equalOptionArgs(h.Sets, o.Sets)
}

// EncodeHeader serializes the global header deterministically.
func EncodeHeader(h *GlobalHeader) ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode global header")
	}
	return data, nil
}

// DecodeHeader deserializes the global header.
func DecodeHeader(data []byte) (*GlobalHeader, error) {
	var h GlobalHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, zerr.Wrap(ErrCorruptRecord, err.Error())
	}
	if h.Version != CodecVersion {
		return nil, zerr.With(ErrCorruptRecord, "version", h.Version)
	}
	return &h, nil
}
