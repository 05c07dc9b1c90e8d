package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/semantic"
)

// TypeScriptAdapter extends the javascript adapter with type declarations
// and annotation bindings. It serves both the "typescript" and "tsx"
// grammars.
type TypeScriptAdapter struct {
	*JavaScriptAdapter
}

func NewTypeScriptAdapter(language string) *TypeScriptAdapter {
	return &TypeScriptAdapter{JavaScriptAdapter: NewJavaScriptAdapter(language)}
}

func (a *TypeScriptAdapter) Captures(root *sitter.Node, source []byte, path string) []capture.Capture {
	cc := &CaptureContext{Source: source, Path: path}
	handlers := a.JavaScriptAdapter.handlers()
	handlers["interface_declaration"] = a.interfaceDef
	handlers["type_alias_declaration"] = a.typeAliasDef
	handlers["enum_declaration"] = a.enumDef
	handlers["abstract_class_declaration"] = a.classDef
	handlers["public_field_definition"] = a.tsFieldDef
	handlers["method_signature"] = a.methodSignature
	handlers["abstract_method_signature"] = a.methodSignature
	handlers["property_signature"] = a.propertySignature
	handlers["type_annotation"] = a.typeAnnotationRef
	NewCaptureEngine(handlers).Walk(cc, root)
	return cc.Captures
}

func (a *TypeScriptAdapter) interfaceDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "interface"+exportModifier(node), cc.Loc(node), name, node)
	if body := node.ChildByFieldName("body"); body != nil {
		cc.Emit(capture.KindScope, "class", cc.Loc(body), "", body)
	}
}

func (a *TypeScriptAdapter) typeAliasDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "type_alias"+exportModifier(node), cc.Loc(node), name, node)
}

func (a *TypeScriptAdapter) enumDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "enum"+exportModifier(node), cc.Loc(node), name, node)
}

func (a *TypeScriptAdapter) tsFieldDef(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "property", cc.Loc(node), name, node)
}

func (a *TypeScriptAdapter) methodSignature(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "method", cc.Loc(node), name, node)
}

func (a *TypeScriptAdapter) propertySignature(cc *CaptureContext, node *sitter.Node) {
	name := cc.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	cc.Emit(capture.KindDefinition, "property", cc.Loc(node), name, node)
}

// typeAnnotationRef records the annotated type name as a reference so the
// resolution pass links annotations to their declarations.
func (a *TypeScriptAdapter) typeAnnotationRef(cc *CaptureContext, node *sitter.Node) {
	name := annotatedTypeName(node)
	if name == nil {
		return
	}
	cc.Emit(capture.KindReference, "type_annotation", cc.Loc(name), cc.Text(name), name)
}

// annotatedTypeName digs the identifier out of a type_annotation node,
// unwrapping generics. Predefined primitives are skipped.
func annotatedTypeName(annotation *sitter.Node) *sitter.Node {
	if annotation == nil {
		return nil
	}
	var ty *sitter.Node
	for i := uint(0); i < annotation.NamedChildCount(); i++ {
		ty = annotation.NamedChild(i)
	}
	for ty != nil {
		switch ty.Kind() {
		case "type_identifier", "identifier":
			return ty
		case "generic_type":
			ty = ty.ChildByFieldName("name")
		case "array_type":
			ty = ty.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}

func (a *TypeScriptAdapter) Extractors(source []byte) semantic.Extractors {
	return &tsExtractors{jsExtractors{source: source}}
}

type tsExtractors struct {
	jsExtractors
}

func (e *tsExtractors) TypeAnnotation(h capture.NodeHandle) (string, bool) {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return "", false
	}
	// Parameter handles point at the parameter node, declarations at the
	// declarator; both carry a `type` field when annotated.
	ty := node.ChildByFieldName("type")
	if ty == nil && node.Kind() == "assignment_expression" {
		// `x: T = v` only annotates at declaration in typescript; plain
		// assignments carry no annotation.
		return "", false
	}
	if name := annotatedTypeName(ty); name != nil {
		return e.text(name), true
	}
	return "", false
}

func (e *tsExtractors) DefinitionMeta(h capture.NodeHandle) semantic.DefMeta {
	node, ok := h.(*sitter.Node)
	if !ok || node == nil {
		return semantic.DefMeta{}
	}
	switch node.Kind() {
	case "class_declaration", "abstract_class_declaration":
		return e.classMeta(node)
	case "interface_declaration":
		var meta semantic.DefMeta
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() != "extends_type_clause" && child.Kind() != "extends_clause" {
				continue
			}
			collectTypeNames(e.source, child, &meta.Extends)
		}
		return meta
	case "enum_declaration":
		var meta semantic.DefMeta
		if body := node.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.NamedChildCount(); i++ {
				member := body.NamedChild(i)
				switch member.Kind() {
				case "property_identifier":
					meta.Variants = append(meta.Variants, nodeText(e.source, member))
				case "enum_assignment":
					if n := member.ChildByFieldName("name"); n != nil {
						meta.Variants = append(meta.Variants, nodeText(e.source, n))
					}
				}
			}
		}
		return meta
	case "method_signature", "abstract_method_signature":
		return semantic.DefMeta{Parameters: e.parameterNames(node)}
	default:
		return e.jsExtractors.DefinitionMeta(h)
	}
}

func (e *tsExtractors) classMeta(node *sitter.Node) semantic.DefMeta {
	var meta semantic.DefMeta
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "class_heritage" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			clause := child.NamedChild(j)
			switch clause.Kind() {
			case "extends_clause":
				collectTypeNames(e.source, clause, &meta.Extends)
			case "implements_clause":
				collectTypeNames(e.source, clause, &meta.Implements)
			}
		}
	}
	return meta
}

func collectTypeNames(source []byte, clause *sitter.Node, out *[]string) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		switch c.Kind() {
		case "identifier", "type_identifier":
			*out = append(*out, nodeText(source, c))
		case "generic_type":
			if n := c.ChildByFieldName("name"); n != nil {
				*out = append(*out, nodeText(source, n))
			}
		}
	}
}
