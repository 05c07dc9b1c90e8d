package semantic

import (
	"sort"
	"strings"
	"time"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/scope"
)

// Extractors translates opaque node handles into core-level values. One
// implementation exists per language; the builder itself stays
// language-agnostic.
type Extractors interface {
	// ReceiverLocation returns the receiver expression of a member
	// reference, if the node shape has one.
	ReceiverLocation(n capture.NodeHandle) (Receiver, bool)
	// PropertyChain returns the textual member access chain, outermost
	// first, or nil.
	PropertyChain(n capture.NodeHandle) []string
	// TypeAnnotation returns the explicit type annotation on a declaration
	// node, if any.
	TypeAnnotation(n capture.NodeHandle) (string, bool)
	// ConstructorTarget returns the type name constructed on the right-hand
	// side of a declaration, if the initializer is a constructor call.
	ConstructorTarget(n capture.NodeHandle) (string, bool)
	// DefinitionMeta fills the kind-specific payload for a definition node.
	DefinitionMeta(n capture.NodeHandle) DefMeta
	// ImportRecord interprets an import capture's node.
	ImportRecord(n capture.NodeHandle) (Import, bool)
	// ExportRecord interprets an export capture's node.
	ExportRecord(n capture.NodeHandle) (Export, bool)
}

// BuildInput is everything the builder needs for one file.
type BuildInput struct {
	Path        string
	Language    string
	FileSpan    capture.Location
	ContentHash uint64
	Captures    []capture.Capture
	Extractors  Extractors
}

// Build turns one file's capture stream into its semantic index. Pure:
// identical input yields an identical index, including all scope and symbol
// ids.
func Build(in BuildInput) *FileIndex {
	tree := scope.Build(in.Path, in.FileSpan, in.Captures)

	idx := &FileIndex{
		Path:        in.Path,
		Language:    in.Language,
		ContentHash: in.ContentHash,
		IndexedAt:   time.Now(),
		Scopes:      tree,
	}

	for _, c := range in.Captures {
		switch c.Kind {
		case capture.KindDefinition:
			idx.addDefinition(c, in.Extractors)
		case capture.KindReference:
			idx.addReference(c, in.Extractors)
		case capture.KindImport:
			if in.Extractors == nil {
				continue
			}
			if imp, ok := in.Extractors.ImportRecord(c.Node); ok {
				imp.Location = c.Location
				idx.Imports = append(idx.Imports, imp)
			}
		case capture.KindExport:
			if in.Extractors == nil {
				continue
			}
			if exp, ok := in.Extractors.ExportRecord(c.Node); ok {
				exp.Location = c.Location
				idx.Exports = append(idx.Exports, exp)
			}
		}
	}

	idx.assignOwners()
	idx.linkExports()
	idx.buildNameIndex()
	return idx
}

// Definition capture subtypes carry the kind plus optional dotted modifiers,
// e.g. "function.exported" or "variable.block_local".
func (x *FileIndex) addDefinition(c capture.Capture, ex Extractors) {
	parts := strings.Split(c.Subtype, ".")
	kind := DefKind(parts[0])
	exported := false
	blockLocal := false
	exportKind := ExportNamed
	visOverride := VisibilityKind("")
	for _, mod := range parts[1:] {
		switch mod {
		case "exported":
			exported = true
		case "exported_default":
			exported = true
			exportKind = ExportDefault
		case "exported_implicit":
			exported = true
			exportKind = ExportImplicit
		case "block_local":
			blockLocal = true
		case "scope_local":
			visOverride = VisScopeLocal
		}
	}

	defScope := x.Scopes.Defining(c.Location)

	def := Definition{
		Symbol:        NewSymbolID(c.Location, c.Text),
		Name:          c.Text,
		Kind:          kind,
		Location:      c.Location,
		DefiningScope: defScope,
	}

	isTopLevel := defScope == scope.Root
	isParamOrLocal := kind == DefParameter || blockLocal ||
		(kind == DefVariable && !isTopLevel)
	def.Visibility = ComputeVisibility(exported, exportKind, isTopLevel, isParamOrLocal)
	if visOverride != "" {
		def.Visibility = Visibility{Kind: visOverride}
	}

	if ex != nil {
		def.Meta = ex.DefinitionMeta(c.Node)

		// Type bindings live at the declaration location. An explicit
		// annotation and a constructor initializer can coexist; the
		// TypeContext prefers the annotation.
		if name, ok := ex.TypeAnnotation(c.Node); ok && name != "" {
			x.Bindings = append(x.Bindings, TypeBinding{
				Location: c.Location, TypeName: name, Source: BindingAnnotation,
			})
		}
		if name, ok := ex.ConstructorTarget(c.Node); ok && name != "" {
			x.Bindings = append(x.Bindings, TypeBinding{
				Location: c.Location, TypeName: name, Source: BindingConstructor,
			})
		}
	}

	x.Definitions = append(x.Definitions, def)
}

func (x *FileIndex) addReference(c capture.Capture, ex Extractors) {
	parts := strings.Split(c.Subtype, ".")
	ref := Reference{
		Kind:           RefKind(parts[0]),
		Name:           c.Text,
		Location:       c.Location,
		EnclosingScope: x.Scopes.Innermost(c.Location),
	}
	for _, mod := range parts[1:] {
		if mod == "optional" {
			ref.OptionalChain = true
		}
	}
	if ex != nil {
		if recv, ok := ex.ReceiverLocation(c.Node); ok {
			ref.Receiver = &recv
		}
		ref.PropertyChain = ex.PropertyChain(c.Node)
		if ref.Kind == RefAssignment {
			if name, ok := ex.TypeAnnotation(c.Node); ok {
				ref.AssignmentType = name
			} else if name, ok := ex.ConstructorTarget(c.Node); ok {
				ref.AssignmentType = name
			}
		}
	}
	x.References = append(x.References, ref)
}

// assignOwners records, for each member definition, the smallest typelike
// definition whose declaration span strictly contains it.
func (x *FileIndex) assignOwners() {
	type typeDef struct {
		i    int
		span uint32
	}
	var types []typeDef
	for i := range x.Definitions {
		if x.Definitions[i].Kind.Typelike() {
			types = append(types, typeDef{i, x.Definitions[i].Location.Span()})
		}
	}
	if len(types) == 0 {
		return
	}
	sort.Slice(types, func(a, b int) bool { return types[a].span < types[b].span })

	for i := range x.Definitions {
		d := &x.Definitions[i]
		if d.Kind != DefMethod && d.Kind != DefProperty && d.Kind != DefConstructor {
			continue
		}
		for _, t := range types {
			owner := &x.Definitions[t.i]
			if owner.Location.StrictlyContains(d.Location) {
				d.Meta.Owner = owner.Symbol
				break
			}
		}
		if d.Meta.Owner == NoSymbol && d.Meta.OwnerName != "" {
			for _, t := range types {
				owner := &x.Definitions[t.i]
				if owner.Name == d.Meta.OwnerName {
					d.Meta.Owner = owner.Symbol
					break
				}
			}
		}
	}
}

// linkExports attaches symbol ids to exports of local definitions, then
// derives export records for definitions marked exported inline (`export
// function f`, `pub fn`, python's implicit module surface) that no explicit
// record covers. Exports that re-export from another module keep Symbol
// zero; the export registry follows the chain at resolution time.
func (x *FileIndex) linkExports() {
	for i := range x.Exports {
		exp := &x.Exports[i]
		if exp.From != "" || exp.Symbol != NoSymbol || exp.Name == "" {
			continue
		}
		for j := range x.Definitions {
			d := &x.Definitions[j]
			if d.Name == exp.Name && d.DefiningScope == scope.Root {
				exp.Symbol = d.Symbol
				break
			}
		}
	}

	covered := make(map[string]struct{}, len(x.Exports))
	for i := range x.Exports {
		if n := x.Exports[i].ExportedName(); n != "" {
			covered[n] = struct{}{}
		}
	}
	for i := range x.Definitions {
		d := &x.Definitions[i]
		if d.Visibility.Kind != VisExported || d.DefiningScope != scope.Root {
			continue
		}
		exp := Export{
			Kind:     d.Visibility.Export,
			Name:     d.Name,
			Symbol:   d.Symbol,
			Location: d.Location,
		}
		if d.Visibility.Export == ExportDefault {
			exp.Alias = "default"
		}
		if _, dup := covered[exp.ExportedName()]; dup {
			continue
		}
		covered[exp.ExportedName()] = struct{}{}
		x.Exports = append(x.Exports, exp)
	}
}
