package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/semantic"
)

// PythonAdapter produces captures for python sources. Python has no block
// scopes: only functions and class bodies open one. Module-level names not
// prefixed with an underscore are implicitly exported, and from-imports
// double as re-exports of the imported names.
type PythonAdapter struct{}

func NewPythonAdapter() *PythonAdapter { return &PythonAdapter{} }

func (a *PythonAdapter) Language() string { return "python" }

func (a *PythonAdapter) Captures(root *sitter.Node, source []byte, path string) []capture.Capture {
	cc := &CaptureContext{Source: source, Path: path}
	NewCaptureEngine(map[string]NodeHandler{
		"function_definition":   a.functionDef,
		"class_definition":      a.classDef,
		"parameters":            a.parameters,
		"assignment":            a.assignment,
		"call":                  a.call,
		"attribute":             a.memberAccess,
		"return_statement":      a.returnRef,
		"decorator":             a.decorator,
		"import_statement":      a.importStmt,
		"import_from_statement": a.importFrom,
	}).Walk(cc, root)
	return cc.Captures
}

func (a *PythonAdapter) functionDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	kind := "function"
	if container := pyNearestContainer(node); container != nil && container.Kind() == "class_definition" {
		kind = "method"
		if name == "__init__" {
			kind = "constructor"
		}
	}
	cc.Emit(capture.KindDefinition, kind+pyExportModifier(node, name), cc.Loc(node), name, node)

	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")
	if body != nil {
		from := params
		if from == nil {
			from = body
		}
		cc.Emit(capture.KindScope, "function", cc.SpanLoc(from, body), "", node)
	}
}

func (a *PythonAdapter) classDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "class"+pyExportModifier(node, name), cc.Loc(node), name, node)
	if body := node.ChildByFieldName("body"); body != nil {
		cc.Emit(capture.KindScope, "class", cc.Loc(body), "", body)
	}
}

func (a *PythonAdapter) parameters(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		param := node.NamedChild(i)
		ident := pyParameterIdentifier(param)
		if ident != nil {
			cc.Emit(capture.KindDefinition, "parameter", cc.Loc(ident), cc.Text(ident), param)
		}
	}
}

// assignment emits both the binding and the reference: python rebinds on
// every assignment, and the reference side carries the inferred type for
// receiver resolution.
func (a *PythonAdapter) assignment(cc *CaptureContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := cc.Text(left)
	cc.Emit(capture.KindDefinition, "variable"+pyExportModifier(node, name), cc.Loc(left), name, node)
	cc.Emit(capture.KindReference, "assignment", cc.Loc(node), name, node)
}

func (a *PythonAdapter) call(cc *CaptureContext, node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Kind() {
	case "identifier":
		cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(fn), node)
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(attr), node)
		}
	}
}

func (a *PythonAdapter) memberAccess(cc *CaptureContext, node *sitter.Node) {
	parent := node.Parent()
	if parent != nil {
		switch parent.Kind() {
		case "call", "attribute":
			return
		}
	}
	attr := node.ChildByFieldName("attribute")
	if attr == nil {
		return
	}
	cc.Emit(capture.KindReference, "member_access", cc.Loc(node), cc.Text(attr), node)
}

func (a *PythonAdapter) returnRef(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "identifier" {
			cc.Emit(capture.KindReference, "return", cc.Loc(child), cc.Text(child), child)
			return
		}
	}
}

// decorator emits the decoration as a call reference. Because the decorator
// sits before the decorated definition's scope, the call graph attributes it
// to the surrounding scope, not to the decorated function.
func (a *PythonAdapter) decorator(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			cc.Emit(capture.KindReference, "call", cc.Loc(child), cc.Text(child), child)
		case "attribute":
			if attr := child.ChildByFieldName("attribute"); attr != nil {
				cc.Emit(capture.KindReference, "call", cc.Loc(child), cc.Text(attr), child)
			}
		case "call":
			// @decorator(args) is captured by the call handler already.
		}
		return
	}
}

// importStmt covers `import mod` and `import pkg.mod as alias`. The bound
// name acts like a namespace: mod.member resolves through the target file's
// exports.
func (a *PythonAdapter) importStmt(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "dotted_name", "aliased_import":
			cc.Emit(capture.KindImport, string(semantic.ImportNamespace), cc.Loc(child), cc.Text(child), child)
		}
	}
}

// importFrom covers `from mod import a, b as c` and `from mod import *`.
// Each imported name is also recorded as a re-export: python modules
// re-expose whatever they import at module level.
func (a *PythonAdapter) importFrom(cc *CaptureContext, node *sitter.Node) {
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	sawName := false
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.StartByte() == module.StartByte() {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "aliased_import":
			sawName = true
			cc.Emit(capture.KindImport, string(semantic.ImportNamed), cc.Loc(child), cc.Text(child), child)
			if name := pyImportedName(cc, child); !strings.HasPrefix(name, "_") {
				cc.Emit(capture.KindExport, string(semantic.ExportNamed), cc.Loc(child), name, child)
			}
		case "wildcard_import":
			sawName = true
			cc.Emit(capture.KindImport, string(semantic.ImportSideEffect), cc.Loc(node), "", node)
			cc.Emit(capture.KindExport, string(semantic.ExportWildcard), cc.Loc(node), "", node)
		}
	}
	if !sawName {
		cc.Emit(capture.KindImport, string(semantic.ImportSideEffect), cc.Loc(node), "", node)
	}
}

func pyImportedName(cc *CaptureContext, node *sitter.Node) string {
	if node.Kind() == "aliased_import" {
		if alias := node.ChildByFieldName("alias"); alias != nil {
			return cc.Text(alias)
		}
	}
	return cc.Text(node)
}

// pyExportModifier marks module-level, non-underscore names as implicitly
// exported.
func pyExportModifier(node *sitter.Node, name string) string {
	if strings.HasPrefix(name, "_") {
		return ""
	}
	p := node.Parent()
	for p != nil {
		switch p.Kind() {
		case "decorated_definition", "expression_statement":
			p = p.Parent()
			continue
		case "module":
			return ".exported_implicit"
		default:
			return ""
		}
	}
	return ""
}

// pyNearestContainer returns the innermost enclosing function or class
// definition, or nil at module level.
func pyNearestContainer(node *sitter.Node) *sitter.Node {
	p := node.Parent()
	for p != nil {
		switch p.Kind() {
		case "function_definition", "class_definition":
			return p
		}
		p = p.Parent()
	}
	return nil
}

func pyParameterIdentifier(node *sitter.Node) *sitter.Node {
	switch node.Kind() {
	case "identifier":
		return node
	case "default_parameter", "typed_default_parameter":
		if n := node.ChildByFieldName("name"); n != nil && n.Kind() == "identifier" {
			return n
		}
	case "typed_parameter":
		if node.NamedChildCount() > 0 {
			if n := node.NamedChild(0); n.Kind() == "identifier" {
				return n
			}
		}
	case "list_splat_pattern", "dictionary_splat_pattern":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if c := node.NamedChild(i); c.Kind() == "identifier" {
				return c
			}
		}
	}
	return nil
}

func (a *PythonAdapter) Extractors(source []byte) semantic.Extractors {
	return &pyExtractors{source: source}
}

type pyExtractors struct {
	source []byte
}

func (e *pyExtractors) text(n *sitter.Node) string { return nodeText(e.source, n) }

func (e *pyExtractors) ReceiverLocation(h capture.NodeHandle) (semantic.Receiver, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Receiver{}, false
	}
	attr := node
	if attr.Kind() == "call" {
		attr = attr.ChildByFieldName("function")
	}
	if attr == nil || attr.Kind() != "attribute" {
		return semantic.Receiver{}, false
	}
	obj := attr.ChildByFieldName("object")
	if obj == nil {
		return semantic.Receiver{}, false
	}
	return semantic.Receiver{Name: e.text(obj), Location: nodeLocation(obj)}, true
}

func (e *pyExtractors) PropertyChain(h capture.NodeHandle) []string {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return nil
	}
	if node.Kind() == "call" {
		node = node.ChildByFieldName("function")
	}
	if node == nil || node.Kind() != "attribute" {
		return nil
	}
	var chain []string
	cur := node
	for cur != nil && cur.Kind() == "attribute" {
		if attr := cur.ChildByFieldName("attribute"); attr != nil {
			chain = append([]string{e.text(attr)}, chain...)
		}
		cur = cur.ChildByFieldName("object")
	}
	if cur != nil {
		chain = append([]string{e.text(cur)}, chain...)
	}
	return chain
}

func (e *pyExtractors) TypeAnnotation(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	ty := node.ChildByFieldName("type")
	if ty == nil {
		return "", false
	}
	// `x: List[Item]` types as List; the subscript argument is not the
	// binding's own type.
	inner := ty
	if inner.NamedChildCount() > 0 {
		inner = inner.NamedChild(0)
	}
	if inner.Kind() == "subscript" {
		if v := inner.ChildByFieldName("value"); v != nil {
			return e.text(v), true
		}
	}
	if inner.Kind() == "identifier" || inner.Kind() == "attribute" {
		return e.text(inner), true
	}
	return "", false
}

func (e *pyExtractors) ConstructorTarget(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	if node.Kind() != "assignment" {
		return "", false
	}
	right := node.ChildByFieldName("right")
	if right == nil || right.Kind() != "call" {
		return "", false
	}
	fn := right.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" {
		return "", false
	}
	// Any identifier call can be a constructor in python; the resolver
	// keeps the binding only when the name resolves to a class.
	return e.text(fn), true
}

func (e *pyExtractors) DefinitionMeta(h capture.NodeHandle) semantic.DefMeta {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.DefMeta{}
	}
	var meta semantic.DefMeta
	switch node.Kind() {
	case "function_definition":
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := uint(0); i < params.NamedChildCount(); i++ {
				if ident := pyParameterIdentifier(params.NamedChild(i)); ident != nil {
					meta.Parameters = append(meta.Parameters, e.text(ident))
				}
			}
		}
	case "class_definition":
		if supers := node.ChildByFieldName("superclasses"); supers != nil {
			for i := uint(0); i < supers.NamedChildCount(); i++ {
				c := supers.NamedChild(i)
				if c.Kind() == "identifier" || c.Kind() == "attribute" {
					meta.Extends = append(meta.Extends, e.text(c))
				}
			}
		}
	}
	if dec := node.Parent(); dec != nil && dec.Kind() == "decorated_definition" {
		for i := uint(0); i < dec.NamedChildCount(); i++ {
			d := dec.NamedChild(i)
			if d.Kind() == "decorator" && d.NamedChildCount() > 0 {
				meta.Decorators = append(meta.Decorators, e.text(d.NamedChild(0)))
			}
		}
	}
	return meta
}

func (e *pyExtractors) ImportRecord(h capture.NodeHandle) (semantic.Import, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Import{}, false
	}
	switch node.Kind() {
	case "dotted_name", "aliased_import":
		nameNode := node
		alias := ""
		if node.Kind() == "aliased_import" {
			nameNode = node.ChildByFieldName("name")
			if a := node.ChildByFieldName("alias"); a != nil {
				alias = e.text(a)
			}
		}
		stmt := ancestorOfKind(node, "import_from_statement")
		if stmt != nil {
			module := stmt.ChildByFieldName("module_name")
			return semantic.Import{
				Kind:  semantic.ImportNamed,
				Path:  e.text(module),
				Name:  e.text(nameNode),
				Alias: alias,
			}, true
		}
		if alias == "" {
			alias = e.text(nameNode)
		}
		return semantic.Import{
			Kind:  semantic.ImportNamespace,
			Path:  e.text(nameNode),
			Alias: alias,
		}, true
	case "import_from_statement", "import_statement":
		module := node.ChildByFieldName("module_name")
		path := ""
		if module != nil {
			path = e.text(module)
		}
		return semantic.Import{Kind: semantic.ImportSideEffect, Path: path}, true
	}
	return semantic.Import{}, false
}

func (e *pyExtractors) ExportRecord(h capture.NodeHandle) (semantic.Export, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Export{}, false
	}
	stmt := node
	if stmt.Kind() != "import_from_statement" {
		stmt = ancestorOfKind(node, "import_from_statement")
	}
	if stmt == nil {
		return semantic.Export{}, false
	}
	from := e.text(stmt.ChildByFieldName("module_name"))

	switch node.Kind() {
	case "dotted_name":
		return semantic.Export{Kind: semantic.ExportNamed, Name: e.text(node), From: from}, true
	case "aliased_import":
		exp := semantic.Export{Kind: semantic.ExportNamed, From: from}
		exp.Name = e.text(node.ChildByFieldName("name"))
		if a := node.ChildByFieldName("alias"); a != nil {
			exp.Alias = e.text(a)
		}
		return exp, true
	case "import_from_statement":
		return semantic.Export{Kind: semantic.ExportWildcard, From: from}, true
	}
	return semantic.Export{}, false
}
