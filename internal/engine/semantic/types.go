// Package semantic builds the per-file semantic index: typed definitions
// anchored to their defining scopes, references with resolution metadata,
// import/export records, and type bindings. Per-file indexing is pure and
// shares no state across files.
package semantic

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/scope"
)

// SymbolID is deterministic for a given file, span and name, and therefore
// stable across rebuilds from identical captures.
type SymbolID uint64

// NoSymbol is the zero SymbolID, used where a symbol is not (yet) known.
const NoSymbol SymbolID = 0

// NewSymbolID derives a symbol id from the declaration's file, span and name.
func NewSymbolID(loc capture.Location, name string) SymbolID {
	h := xxhash.New()
	sep := []byte{0}
	var buf [4]byte
	_, _ = h.WriteString(loc.File)
	_, _ = h.Write(sep)
	binary.LittleEndian.PutUint32(buf[:], loc.StartByte)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], loc.EndByte)
	_, _ = h.Write(buf[:])
	_, _ = h.Write(sep)
	_, _ = h.WriteString(name)
	id := SymbolID(h.Sum64())
	if id == NoSymbol {
		id = 1
	}
	return id
}

// ContentHash fingerprints file content for cache keys and change checks.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

type DefKind string

const (
	DefFunction    DefKind = "function"
	DefClass       DefKind = "class"
	DefInterface   DefKind = "interface"
	DefEnum        DefKind = "enum"
	DefVariable    DefKind = "variable"
	DefParameter   DefKind = "parameter"
	DefMethod      DefKind = "method"
	DefConstructor DefKind = "constructor"
	DefProperty    DefKind = "property"
	DefTypeAlias   DefKind = "type_alias"
)

// Callable reports whether definitions of this kind become call graph nodes.
func (k DefKind) Callable() bool {
	return k == DefFunction || k == DefMethod || k == DefConstructor
}

// Typelike reports whether definitions of this kind can own members and act
// as a receiver type.
func (k DefKind) Typelike() bool {
	return k == DefClass || k == DefInterface || k == DefEnum
}

// DefMeta is the kind-specific payload, populated by the per-language
// metadata extractors. The core reads Owner, Extends and TypeName; the rest
// is carried through to the serialized index for external tooling.
type DefMeta struct {
	Parameters []string `json:"parameters,omitempty"`
	Extends    []string `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Decorators []string `json:"decorators,omitempty"`
	Variants   []string `json:"variants,omitempty"`
	TypeName   string   `json:"type_name,omitempty"`
	Owner      SymbolID `json:"owner,omitempty"`
	// OwnerName carries the textual owner type for members declared outside
	// the owner's span (rust impl blocks); the builder links it to Owner
	// when the type lives in the same file.
	OwnerName string `json:"owner_name,omitempty"`
}

type Definition struct {
	Symbol SymbolID `json:"symbol"`
	Name   string   `json:"name"`
	Kind   DefKind  `json:"kind"`
	// Location is the full declaration span, which may itself contain
	// nested scopes.
	Location capture.Location `json:"location"`
	// DefiningScope is computed from the declaration's start point only.
	// It must never be a scope created strictly inside the declaration's
	// own body.
	DefiningScope scope.ID   `json:"defining_scope"`
	Visibility    Visibility `json:"visibility"`
	Meta          DefMeta    `json:"meta,omitempty"`
}

type RefKind string

const (
	RefCall           RefKind = "call"
	RefMemberAccess   RefKind = "member_access"
	RefAssignment     RefKind = "assignment"
	RefReturn         RefKind = "return"
	RefTypeAnnotation RefKind = "type_annotation"
)

// Receiver identifies the expression a member reference was invoked on.
type Receiver struct {
	Name     string           `json:"name"`
	Location capture.Location `json:"location"`
}

type Reference struct {
	Kind           RefKind          `json:"kind"`
	Name           string           `json:"name"`
	Location       capture.Location `json:"location"`
	EnclosingScope scope.ID         `json:"enclosing_scope"`
	Receiver       *Receiver        `json:"receiver,omitempty"`
	PropertyChain  []string         `json:"property_chain,omitempty"`
	AssignmentType string           `json:"assignment_type,omitempty"`
	OptionalChain  bool             `json:"optional_chain,omitempty"`
}

type ImportKind string

const (
	ImportNamed      ImportKind = "named"
	ImportDefault    ImportKind = "default"
	ImportNamespace  ImportKind = "namespace"
	ImportSideEffect ImportKind = "side_effect"
	ImportReExport   ImportKind = "re_export"
)

// Import is one imported binding. Path is the raw, unresolved module path
// string exactly as written; resolution to a file is the ImportRegistry's
// job.
type Import struct {
	Name     string           `json:"name,omitempty"`
	Path     string           `json:"path"`
	Alias    string           `json:"alias,omitempty"`
	Kind     ImportKind       `json:"kind"`
	Location capture.Location `json:"location"`
}

// LocalName is the identifier this import binds in the importing file.
func (i Import) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

type ExportKind string

const (
	ExportNamed     ExportKind = "named"
	ExportDefault   ExportKind = "default"
	ExportNamespace ExportKind = "namespace"
	ExportWildcard  ExportKind = "wildcard"
	ExportImplicit  ExportKind = "implicit"
)

// Export is one exported name. For re-exports, From carries the raw source
// module path and Symbol is NoSymbol until the chain is followed.
type Export struct {
	Name     string           `json:"name,omitempty"`
	Alias    string           `json:"alias,omitempty"`
	Kind     ExportKind       `json:"kind"`
	Symbol   SymbolID         `json:"symbol,omitempty"`
	From     string           `json:"from,omitempty"`
	Location capture.Location `json:"location"`
}

// ExportedName is the name this export is visible under from other files.
func (e Export) ExportedName() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Name
}

type BindingSource string

const (
	BindingAnnotation  BindingSource = "annotation"
	BindingConstructor BindingSource = "constructor"
)

// TypeBinding associates a declaration location with a type name. The name
// is raw source text; resolving it to a type symbol happens in the
// TypeContext via scope-chain lookup.
type TypeBinding struct {
	Location capture.Location `json:"location"`
	TypeName string           `json:"type_name"`
	Source   BindingSource    `json:"source"`
}
