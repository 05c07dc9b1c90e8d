package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/semantic"
)

// JavaScriptAdapter produces captures for javascript sources. The
// typescript adapter layers additional handlers on top of it.
type JavaScriptAdapter struct {
	language string
}

func NewJavaScriptAdapter(language string) *JavaScriptAdapter {
	return &JavaScriptAdapter{language: language}
}

func (a *JavaScriptAdapter) Language() string { return a.language }

func (a *JavaScriptAdapter) Captures(root *sitter.Node, source []byte, path string) []capture.Capture {
	cc := &CaptureContext{Source: source, Path: path}
	NewCaptureEngine(a.handlers()).Walk(cc, root)
	return cc.Captures
}

func (a *JavaScriptAdapter) handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"function_declaration":           a.functionDef,
		"generator_function_declaration": a.functionDef,
		"function_expression":            a.functionScope,
		"arrow_function":                 a.functionScope,
		"class_declaration":              a.classDef,
		"class_body":                     a.classBody,
		"method_definition":              a.methodDef,
		"field_definition":               a.fieldDef,
		"variable_declarator":            a.variableDef,
		"formal_parameters":              a.parameters,
		"statement_block":                a.block,
		"for_statement":                  a.loopScope,
		"for_in_statement":               a.loopScope,
		"call_expression":                a.call,
		"new_expression":                 a.newExpr,
		"member_expression":              a.memberAccess,
		"assignment_expression":          a.assignment,
		"return_statement":               a.returnRef,
		"import_statement":               a.importStmt,
		"export_statement":               a.exportStmt,
	}
}

// functionDef emits both the named definition and its scope.
func (a *JavaScriptAdapter) functionDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name != "" {
		cc.Emit(capture.KindDefinition, "function"+exportModifier(node), cc.Loc(node), name, node)
	}
	a.functionScope(cc, node)
}

// functionScope spans the parameters through the body, excluding the name
// token, so parameters anchor inside the function's own scope.
func (a *JavaScriptAdapter) functionScope(cc *CaptureContext, node *sitter.Node) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	from := node.ChildByFieldName("parameters")
	if from == nil {
		from = node.ChildByFieldName("parameter")
	}
	if from == nil {
		from = body
	}
	cc.Emit(capture.KindScope, "function", cc.SpanLoc(from, body), "", node)
}

func (a *JavaScriptAdapter) classDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "class"+exportModifier(node), cc.Loc(node), name, node)
}

func (a *JavaScriptAdapter) classBody(cc *CaptureContext, node *sitter.Node) {
	cc.Emit(capture.KindScope, "class", cc.Loc(node), "", node)
}

func (a *JavaScriptAdapter) methodDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	kind := "method"
	if name == "constructor" {
		kind = "constructor"
	}
	cc.Emit(capture.KindDefinition, kind, cc.Loc(node), name, node)
	a.functionScope(cc, node)
}

func (a *JavaScriptAdapter) fieldDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("property"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "property", cc.Loc(node), name, node)
}

func (a *JavaScriptAdapter) variableDef(cc *CaptureContext, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	decl := node.Parent() // lexical_declaration or variable_declaration
	cc.Emit(capture.KindDefinition, "variable"+exportModifier(decl), cc.Loc(node), cc.Text(nameNode), node)
}

func (a *JavaScriptAdapter) parameters(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		ident := parameterIdentifier(child)
		if ident != nil {
			cc.Emit(capture.KindDefinition, "parameter", cc.Loc(ident), cc.Text(ident), child)
		}
	}
}

func (a *JavaScriptAdapter) block(cc *CaptureContext, node *sitter.Node) {
	cc.Emit(capture.KindScope, "block", cc.Loc(node), "", node)
}

// loopScope covers the loop header so `for (let i ...)` bindings stay loop
// local.
func (a *JavaScriptAdapter) loopScope(cc *CaptureContext, node *sitter.Node) {
	cc.Emit(capture.KindScope, "block", cc.Loc(node), "", node)
}

func (a *JavaScriptAdapter) call(cc *CaptureContext, node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	subtype := "call"
	if hasChildOfKind(node, "optional_chain") || fn.Kind() == "member_expression" && hasChildOfKind(fn, "optional_chain") {
		subtype = "call.optional"
	}
	switch fn.Kind() {
	case "identifier":
		cc.Emit(capture.KindReference, subtype, cc.Loc(node), cc.Text(fn), node)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop != nil {
			cc.Emit(capture.KindReference, subtype, cc.Loc(node), cc.Text(prop), node)
		}
	}
}

func (a *JavaScriptAdapter) newExpr(cc *CaptureContext, node *sitter.Node) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	cc.Emit(capture.KindReference, "call", cc.Loc(node), cc.Text(ctor), node)
}

// memberAccess captures member expressions that are not call targets and
// not interior links of a longer chain.
func (a *JavaScriptAdapter) memberAccess(cc *CaptureContext, node *sitter.Node) {
	parent := node.Parent()
	if parent != nil {
		switch parent.Kind() {
		case "call_expression", "member_expression":
			return
		}
	}
	prop := node.ChildByFieldName("property")
	if prop == nil {
		return
	}
	subtype := "member_access"
	if hasChildOfKind(node, "optional_chain") {
		subtype = "member_access.optional"
	}
	cc.Emit(capture.KindReference, subtype, cc.Loc(node), cc.Text(prop), node)
}

func (a *JavaScriptAdapter) assignment(cc *CaptureContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	cc.Emit(capture.KindReference, "assignment", cc.Loc(node), cc.Text(left), node)
}

func (a *JavaScriptAdapter) returnRef(cc *CaptureContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			cc.Emit(capture.KindReference, "return", cc.Loc(child), cc.Text(child), child)
			return
		}
	}
}

func (a *JavaScriptAdapter) importStmt(cc *CaptureContext, node *sitter.Node) {
	emitted := false
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "import_specifier":
			cc.Emit(capture.KindImport, string(semantic.ImportNamed), cc.Loc(n), cc.Text(n), n)
			emitted = true
			return
		case "namespace_import":
			cc.Emit(capture.KindImport, string(semantic.ImportNamespace), cc.Loc(n), cc.Text(n), n)
			emitted = true
			return
		case "identifier":
			if n.Parent() != nil && n.Parent().Kind() == "import_clause" {
				cc.Emit(capture.KindImport, string(semantic.ImportDefault), cc.Loc(n), cc.Text(n), n)
				emitted = true
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	if !emitted {
		cc.Emit(capture.KindImport, string(semantic.ImportSideEffect), cc.Loc(node), "", node)
	}
}

func (a *JavaScriptAdapter) exportStmt(cc *CaptureContext, node *sitter.Node) {
	// `export <declaration>` is covered by the definition handlers via
	// exportModifier; only clause and re-export forms need records here.
	if node.ChildByFieldName("declaration") != nil {
		return
	}
	source := node.ChildByFieldName("source")
	emitted := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "export_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec.Kind() == "export_specifier" {
					cc.Emit(capture.KindExport, string(semantic.ExportNamed), cc.Loc(spec), cc.Text(spec), spec)
					emitted = true
				}
			}
		case "namespace_export":
			cc.Emit(capture.KindExport, string(semantic.ExportNamespace), cc.Loc(child), cc.Text(child), child)
			emitted = true
		}
	}
	if !emitted && source != nil {
		// `export * from "mod"`
		cc.Emit(capture.KindExport, string(semantic.ExportWildcard), cc.Loc(node), "", node)
	}
}

func exportModifier(node *sitter.Node) string {
	stmt := node
	if stmt != nil && stmt.Kind() != "export_statement" {
		if p := stmt.Parent(); p != nil && p.Kind() == "export_statement" {
			stmt = p
		} else {
			return ""
		}
	}
	if stmt == nil {
		return ""
	}
	if hasChildOfKind(stmt, "default") {
		return ".exported_default"
	}
	return ".exported"
}

func parameterIdentifier(node *sitter.Node) *sitter.Node {
	switch node.Kind() {
	case "identifier":
		return node
	case "assignment_pattern":
		left := node.ChildByFieldName("left")
		if left != nil && left.Kind() == "identifier" {
			return left
		}
	case "rest_pattern":
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.Kind() == "identifier" {
				return c
			}
		}
	case "required_parameter", "optional_parameter":
		pattern := node.ChildByFieldName("pattern")
		if pattern != nil && pattern.Kind() == "identifier" {
			return pattern
		}
	}
	return nil
}

func trimQuoted(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

// jsExtractors interprets javascript node handles for the semantic builder.
type jsExtractors struct {
	source []byte
}

func (a *JavaScriptAdapter) Extractors(source []byte) semantic.Extractors {
	return &jsExtractors{source: source}
}

func (e *jsExtractors) text(n *sitter.Node) string { return nodeText(e.source, n) }

func (e *jsExtractors) ReceiverLocation(h capture.NodeHandle) (semantic.Receiver, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Receiver{}, false
	}
	var member *sitter.Node
	switch node.Kind() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil || fn.Kind() != "member_expression" {
			return semantic.Receiver{}, false
		}
		member = fn
	case "member_expression":
		member = node
	default:
		return semantic.Receiver{}, false
	}
	obj := member.ChildByFieldName("object")
	if obj == nil {
		return semantic.Receiver{}, false
	}
	name := e.text(obj)
	if obj.Kind() == "this" {
		name = "this"
	}
	return semantic.Receiver{Name: name, Location: nodeLocation(obj)}, true
}

func (e *jsExtractors) PropertyChain(h capture.NodeHandle) []string {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return nil
	}
	if node.Kind() == "call_expression" {
		node = node.ChildByFieldName("function")
	}
	if node == nil || node.Kind() != "member_expression" {
		return nil
	}
	var chain []string
	cur := node
	for cur != nil && cur.Kind() == "member_expression" {
		if prop := cur.ChildByFieldName("property"); prop != nil {
			chain = append([]string{e.text(prop)}, chain...)
		}
		cur = cur.ChildByFieldName("object")
	}
	if cur != nil {
		chain = append([]string{e.text(cur)}, chain...)
	}
	return chain
}

func (e *jsExtractors) TypeAnnotation(h capture.NodeHandle) (string, bool) {
	// Plain javascript has no annotations; the typescript extractors
	// override this.
	return "", false
}

func (e *jsExtractors) ConstructorTarget(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	var value *sitter.Node
	switch node.Kind() {
	case "variable_declarator":
		value = node.ChildByFieldName("value")
	case "assignment_expression":
		value = node.ChildByFieldName("right")
	default:
		return "", false
	}
	if value == nil {
		return "", false
	}
	if value.Kind() == "await_expression" && value.ChildCount() > 0 {
		value = value.Child(value.ChildCount() - 1)
	}
	if value.Kind() != "new_expression" {
		return "", false
	}
	ctor := value.ChildByFieldName("constructor")
	if ctor == nil || ctor.Kind() != "identifier" {
		return "", false
	}
	return e.text(ctor), true
}

func (e *jsExtractors) DefinitionMeta(h capture.NodeHandle) semantic.DefMeta {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.DefMeta{}
	}
	var meta semantic.DefMeta
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration", "method_definition":
		meta.Parameters = e.parameterNames(node)
	case "class_declaration":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "class_heritage" {
				continue
			}
			for j := uint(0); j < child.ChildCount(); j++ {
				c := child.Child(j)
				if c.Kind() == "identifier" {
					meta.Extends = append(meta.Extends, e.text(c))
				}
			}
		}
	}
	return meta
}

func (e *jsExtractors) parameterNames(node *sitter.Node) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := uint(0); i < params.ChildCount(); i++ {
		if ident := parameterIdentifier(params.Child(i)); ident != nil {
			names = append(names, e.text(ident))
		}
	}
	return names
}

func (e *jsExtractors) ImportRecord(h capture.NodeHandle) (semantic.Import, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Import{}, false
	}
	stmt := node
	if stmt.Kind() != "import_statement" {
		stmt = ancestorOfKind(node, "import_statement")
	}
	if stmt == nil {
		return semantic.Import{}, false
	}
	path := trimQuoted(e.text(stmt.ChildByFieldName("source")))
	if path == "" {
		return semantic.Import{}, false
	}

	switch node.Kind() {
	case "import_specifier":
		imp := semantic.Import{Kind: semantic.ImportNamed, Path: path}
		imp.Name = e.text(node.ChildByFieldName("name"))
		imp.Alias = e.text(node.ChildByFieldName("alias"))
		return imp, true
	case "namespace_import":
		imp := semantic.Import{Kind: semantic.ImportNamespace, Path: path}
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.Kind() == "identifier" {
				imp.Alias = e.text(c)
			}
		}
		return imp, true
	case "identifier":
		return semantic.Import{Kind: semantic.ImportDefault, Path: path, Name: "default", Alias: e.text(node)}, true
	default:
		return semantic.Import{Kind: semantic.ImportSideEffect, Path: path}, true
	}
}

func (e *jsExtractors) ExportRecord(h capture.NodeHandle) (semantic.Export, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.Export{}, false
	}
	stmt := node
	if stmt.Kind() != "export_statement" {
		stmt = ancestorOfKind(node, "export_statement")
	}
	var from string
	if stmt != nil {
		from = trimQuoted(e.text(stmt.ChildByFieldName("source")))
	}

	switch node.Kind() {
	case "export_specifier":
		exp := semantic.Export{Kind: semantic.ExportNamed, From: from}
		exp.Name = e.text(node.ChildByFieldName("name"))
		exp.Alias = e.text(node.ChildByFieldName("alias"))
		return exp, true
	case "namespace_export":
		exp := semantic.Export{Kind: semantic.ExportNamespace, From: from}
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.Kind() == "module_export_name" || c.Kind() == "identifier" {
				exp.Alias = e.text(c)
			}
		}
		return exp, true
	case "export_statement":
		if from != "" {
			return semantic.Export{Kind: semantic.ExportWildcard, From: from}, true
		}
		return semantic.Export{}, false
	default:
		return semantic.Export{}, false
	}
}
