package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/semantic"
)

// RustAdapter produces captures for rust sources. Methods live in impl
// blocks outside their type's span, so definitions carry the impl target's
// name and the owner link is made by name instead of containment. `pub use`
// declarations are re-exports.
type RustAdapter struct{}

func NewRustAdapter() *RustAdapter { return &RustAdapter{} }

func (a *RustAdapter) Language() string { return "rust" }

func (a *RustAdapter) Captures(root *sitter.Node, source []byte, path string) []capture.Capture {
	cc := &CaptureContext{Source: source, Path: path}
	NewCaptureEngine(map[string]NodeHandler{
		"function_item":           a.functionDef,
		"function_signature_item": a.functionSignature,
		"impl_item":               a.implBlock,
		"mod_item":                a.modBlock,
		"struct_item":             a.structDef,
		"field_declaration":       a.fieldDef,
		"enum_item":               a.enumDef,
		"trait_item":              a.traitDef,
		"type_item":               a.typeAliasDef,
		"let_declaration":         a.letDef,
		"const_item":              a.constDef,
		"static_item":             a.constDef,
		"parameters":              a.parameters,
		"block":                   a.block,
		"call_expression":         a.call,
		"field_expression":        a.memberAccess,
		"assignment_expression":   a.assignment,
		"return_expression":       a.returnRef,
		"use_declaration":         a.useDecl,
	}).Walk(cc, root)
	return cc.Captures
}

func (a *RustAdapter) functionDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	kind := "function"
	if ancestorOfKind(node, "impl_item", "trait_item") != nil {
		kind = "method"
		if name == "new" {
			kind = "constructor"
		}
	}
	cc.Emit(capture.KindDefinition, kind+rustExportModifier(node), cc.Loc(node), name, node)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	from := node.ChildByFieldName("parameters")
	if from == nil {
		from = body
	}
	cc.Emit(capture.KindScope, "function", cc.SpanLoc(from, body), "", node)
}

// functionSignature covers trait method declarations without bodies.
func (a *RustAdapter) functionSignature(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "method", cc.Loc(node), name, node)
}

func (a *RustAdapter) implBlock(cc *CaptureContext, node *sitter.Node) {
	if body := node.ChildByFieldName("body"); body != nil {
		cc.Emit(capture.KindScope, "class", cc.Loc(body), "", body)
	}
}

func (a *RustAdapter) modBlock(cc *CaptureContext, node *sitter.Node) {
	if body := node.ChildByFieldName("body"); body != nil {
		cc.Emit(capture.KindScope, "block", cc.Loc(body), "", body)
	}
}

func (a *RustAdapter) structDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "class"+rustExportModifier(node), cc.Loc(node), name, node)
}

func (a *RustAdapter) fieldDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "property", cc.Loc(node), name, node)
}

func (a *RustAdapter) enumDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "enum"+rustExportModifier(node), cc.Loc(node), name, node)
}

func (a *RustAdapter) traitDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "interface"+rustExportModifier(node), cc.Loc(node), name, node)
	if body := node.ChildByFieldName("body"); body != nil {
		cc.Emit(capture.KindScope, "class", cc.Loc(body), "", body)
	}
}

func (a *RustAdapter) typeAliasDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "type_alias"+rustExportModifier(node), cc.Loc(node), name, node)
}

func (a *RustAdapter) letDef(cc *CaptureContext, node *sitter.Node) {
	pattern := node.ChildByFieldName("pattern")
	if pattern == nil {
		return
	}
	ident := pattern
	if ident.Kind() == "mut_pattern" && ident.NamedChildCount() > 0 {
		ident = ident.NamedChild(ident.NamedChildCount() - 1)
	}
	if ident.Kind() != "identifier" {
		return
	}
	cc.Emit(capture.KindDefinition, "variable", cc.Loc(ident), cc.Text(ident), node)
}

func (a *RustAdapter) constDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "variable"+rustExportModifier(node), cc.Loc(node), name, node)
}

func (a *RustAdapter) parameters(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		param := node.NamedChild(i)
		if param.Kind() != "parameter" {
			continue
		}
		pattern := param.ChildByFieldName("pattern")
		if pattern == nil {
			continue
		}
		if pattern.Kind() == "mut_pattern" && pattern.NamedChildCount() > 0 {
			pattern = pattern.NamedChild(pattern.NamedChildCount() - 1)
		}
		if pattern.Kind() == "identifier" {
			cc.Emit(capture.KindDefinition, "parameter", cc.Loc(pattern), cc.Text(pattern), param)
		}
	}
}

func (a *RustAdapter) block(cc *CaptureContext, node *sitter.Node) {
	// Function bodies already opened a scope spanning params through body;
	// an extra block scope over the same body is narrower and harmless, and
	// it gives if/loop/match arms their own level.
	cc.Emit(capture.KindScope, "block", cc.Loc(node), "", node)
}

func (a *RustAdapter) call(cc *CaptureContext, node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Kind() {
	case "identifier":
		cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(fn), node)
	case "scoped_identifier":
		if name := fn.ChildByFieldName("name"); name != nil {
			cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(name), node)
		}
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(field), node)
		}
	}
}

func (a *RustAdapter) memberAccess(cc *CaptureContext, node *sitter.Node) {
	parent := node.Parent()
	if parent != nil {
		switch parent.Kind() {
		case "call_expression", "field_expression":
			return
		}
	}
	field := node.ChildByFieldName("field")
	if field == nil {
		return
	}
	cc.Emit(capture.KindReference, "member_access", cc.Loc(node), cc.Text(field), node)
}

func (a *RustAdapter) assignment(cc *CaptureContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	cc.Emit(capture.KindReference, "assignment", cc.Loc(node), cc.Text(left), node)
}

func (a *RustAdapter) returnRef(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "identifier" {
			cc.Emit(capture.KindReference, "return", cc.Loc(child), cc.Text(child), child)
			return
		}
	}
}

// useDecl walks a use tree and emits one import per bound name. `pub use`
// additionally records each name as a re-export.
func (a *RustAdapter) useDecl(cc *CaptureContext, node *sitter.Node) {
	pub := hasChildOfKind(node, "visibility_modifier")
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	a.useTree(cc, arg, pub)
}

func (a *RustAdapter) useTree(cc *CaptureContext, node *sitter.Node, pub bool) {
	switch node.Kind() {
	case "identifier", "scoped_identifier", "crate", "self", "super":
		local := rustUseLocalName(cc.Source, node)
		cc.Emit(capture.KindImport, string(semantic.ImportNamed), cc.Loc(node), local, node)
		if pub {
			cc.Emit(capture.KindExport, string(semantic.ExportNamed), cc.Loc(node), local, node)
		}
	case "use_as_clause":
		alias := node.ChildByFieldName("alias")
		local := nodeText(cc.Source, alias)
		cc.Emit(capture.KindImport, string(semantic.ImportNamed), cc.Loc(node), local, node)
		if pub {
			cc.Emit(capture.KindExport, string(semantic.ExportNamed), cc.Loc(node), local, node)
		}
	case "scoped_use_list":
		if list := node.ChildByFieldName("list"); list != nil {
			for i := uint(0); i < list.NamedChildCount(); i++ {
				a.useTree(cc, list.NamedChild(i), pub)
			}
		}
	case "use_list":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			a.useTree(cc, node.NamedChild(i), pub)
		}
	case "use_wildcard":
		cc.Emit(capture.KindImport, string(semantic.ImportSideEffect), cc.Loc(node), "", node)
		if pub {
			cc.Emit(capture.KindExport, string(semantic.ExportWildcard), cc.Loc(node), "", node)
		}
	}
}

func rustExportModifier(node *sitter.Node) string {
	if hasChildOfKind(node, "visibility_modifier") {
		return ".exported"
	}
	return ""
}

// rustUseLocalName is the name a use item binds: the alias, or the last
// path segment.
func rustUseLocalName(source []byte, node *sitter.Node) string {
	switch node.Kind() {
	case "use_as_clause":
		return nodeText(source, node.ChildByFieldName("alias"))
	case "scoped_identifier":
		return nodeText(source, node.ChildByFieldName("name"))
	default:
		return nodeText(source, node)
	}
}

// rustUsePath reconstructs the full module path of a use item by climbing
// through enclosing scoped lists.
func rustUsePath(source []byte, node *sitter.Node) string {
	leaf := node
	if leaf.Kind() == "use_as_clause" {
		if p := leaf.ChildByFieldName("path"); p != nil {
			leaf = p
		}
	}
	path := nodeText(source, leaf)
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Kind() == "scoped_use_list" {
			if p := cur.ChildByFieldName("path"); p != nil {
				path = nodeText(source, p) + "::" + path
			}
		}
		if cur.Kind() == "use_declaration" {
			break
		}
	}
	return path
}

func (a *RustAdapter) Extractors(source []byte) semantic.Extractors {
	return &rustExtractors{source: source}
}

type rustExtractors struct {
	source []byte
}

func (e *rustExtractors) text(n *sitter.Node) string { return nodeText(e.source, n) }

func (e *rustExtractors) ReceiverLocation(h capture.NodeHandle) (semantic.Receiver, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Receiver{}, false
	}
	fn := node
	if fn.Kind() == "call_expression" {
		fn = fn.ChildByFieldName("function")
	}
	if fn == nil {
		return semantic.Receiver{}, false
	}
	switch fn.Kind() {
	case "field_expression":
		if value := fn.ChildByFieldName("value"); value != nil {
			return semantic.Receiver{Name: e.text(value), Location: nodeLocation(value)}, true
		}
	case "scoped_identifier":
		// Type::method(): the path is the receiver and names the type
		// directly.
		if path := fn.ChildByFieldName("path"); path != nil {
			return semantic.Receiver{Name: e.text(path), Location: nodeLocation(path)}, true
		}
	}
	return semantic.Receiver{}, false
}

func (e *rustExtractors) PropertyChain(h capture.NodeHandle) []string {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return nil
	}
	if node.Kind() == "call_expression" {
		node = node.ChildByFieldName("function")
	}
	if node == nil || node.Kind() != "field_expression" {
		return nil
	}
	var chain []string
	cur := node
	for cur != nil && cur.Kind() == "field_expression" {
		if f := cur.ChildByFieldName("field"); f != nil {
			chain = append([]string{e.text(f)}, chain...)
		}
		cur = cur.ChildByFieldName("value")
	}
	if cur != nil {
		chain = append([]string{e.text(cur)}, chain...)
	}
	return chain
}

func (e *rustExtractors) TypeAnnotation(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	ty := node.ChildByFieldName("type")
	if ty == nil {
		return "", false
	}
	return rustTypeName(e.source, ty)
}

func rustTypeName(source []byte, ty *sitter.Node) (string, bool) {
	for ty != nil {
		switch ty.Kind() {
		case "type_identifier":
			return nodeText(source, ty), true
		case "scoped_type_identifier":
			ty = ty.ChildByFieldName("name")
		case "generic_type":
			ty = ty.ChildByFieldName("type")
		case "reference_type":
			ty = ty.ChildByFieldName("type")
		default:
			return "", false
		}
	}
	return "", false
}

func (e *rustExtractors) ConstructorTarget(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	var value *sitter.Node
	switch node.Kind() {
	case "let_declaration":
		value = node.ChildByFieldName("value")
	case "assignment_expression":
		value = node.ChildByFieldName("right")
	default:
		return "", false
	}
	if value == nil {
		return "", false
	}
	switch value.Kind() {
	case "struct_expression":
		if name := value.ChildByFieldName("name"); name != nil {
			return rustTypeName(e.source, name)
		}
	case "call_expression":
		// Type::new(..) and friends construct their path's type.
		fn := value.ChildByFieldName("function")
		if fn != nil && fn.Kind() == "scoped_identifier" {
			if path := fn.ChildByFieldName("path"); path != nil && path.Kind() == "identifier" {
				return e.text(path), true
			}
		}
	}
	return "", false
}

func (e *rustExtractors) DefinitionMeta(h capture.NodeHandle) semantic.DefMeta {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.DefMeta{}
	}
	var meta semantic.DefMeta
	switch node.Kind() {
	case "function_item", "function_signature_item":
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := uint(0); i < params.NamedChildCount(); i++ {
				p := params.NamedChild(i)
				if p.Kind() != "parameter" {
					continue
				}
				if pat := p.ChildByFieldName("pattern"); pat != nil && pat.Kind() == "identifier" {
					meta.Parameters = append(meta.Parameters, e.text(pat))
				}
			}
		}
		if impl := ancestorOfKind(node, "impl_item"); impl != nil {
			if ty := impl.ChildByFieldName("type"); ty != nil {
				if name, ok := rustTypeName(e.source, ty); ok {
					meta.OwnerName = name
				}
			}
			if tr := impl.ChildByFieldName("trait"); tr != nil {
				if name, ok := rustTypeName(e.source, tr); ok {
					meta.Implements = append(meta.Implements, name)
				}
			}
		}
	case "enum_item":
		if body := node.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.NamedChildCount(); i++ {
				v := body.NamedChild(i)
				if v.Kind() == "enum_variant" {
					meta.Variants = append(meta.Variants, e.text(v.ChildByFieldName("name")))
				}
			}
		}
	case "let_declaration":
		if ty := node.ChildByFieldName("type"); ty != nil {
			if name, ok := rustTypeName(e.source, ty); ok {
				meta.TypeName = name
			}
		}
	}
	return meta
}

func (e *rustExtractors) ImportRecord(h capture.NodeHandle) (semantic.Import, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Import{}, false
	}
	switch node.Kind() {
	case "identifier", "scoped_identifier", "crate", "self", "super", "use_as_clause":
		imp := semantic.Import{
			Kind: semantic.ImportNamed,
			Path: rustUsePath(e.source, node),
		}
		leaf := node
		if leaf.Kind() == "use_as_clause" {
			imp.Alias = e.text(leaf.ChildByFieldName("alias"))
			if p := leaf.ChildByFieldName("path"); p != nil {
				leaf = p
			}
		}
		if leaf.Kind() == "scoped_identifier" {
			imp.Name = e.text(leaf.ChildByFieldName("name"))
		} else {
			imp.Name = e.text(leaf)
		}
		return imp, true
	case "use_wildcard":
		return semantic.Import{
			Kind: semantic.ImportSideEffect,
			Path: rustUsePath(e.source, node),
		}, true
	}
	return semantic.Import{}, false
}

func (e *rustExtractors) ExportRecord(h capture.NodeHandle) (semantic.Export, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Export{}, false
	}
	if ancestorOfKind(node, "use_declaration") == nil {
		return semantic.Export{}, false
	}
	path := rustUsePath(e.source, node)
	switch node.Kind() {
	case "use_wildcard":
		return semantic.Export{Kind: semantic.ExportWildcard, From: path}, true
	case "use_as_clause":
		exp := semantic.Export{Kind: semantic.ExportNamed, From: path}
		exp.Alias = e.text(node.ChildByFieldName("alias"))
		if p := node.ChildByFieldName("path"); p != nil {
			if p.Kind() == "scoped_identifier" {
				exp.Name = e.text(p.ChildByFieldName("name"))
			} else {
				exp.Name = e.text(p)
			}
		}
		return exp, true
	case "scoped_identifier":
		return semantic.Export{
			Kind: semantic.ExportNamed,
			Name: e.text(node.ChildByFieldName("name")),
			From: path,
		}, true
	default:
		return semantic.Export{
			Kind: semantic.ExportNamed,
			Name: e.text(node),
			From: path,
		}, true
	}
}
