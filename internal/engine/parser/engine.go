package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"unravel/internal/engine/capture"
)

// NodeHandler emits captures for one node kind.
type NodeHandler func(cc *CaptureContext, node *sitter.Node)

// CaptureContext carries the per-file state shared by all handlers of a
// walk.
type CaptureContext struct {
	Source   []byte
	Path     string
	Captures []capture.Capture
}

// CaptureEngine walks the syntax tree and dispatches node handlers by kind.
type CaptureEngine struct {
	handlers map[string]NodeHandler
}

func NewCaptureEngine(handlers map[string]NodeHandler) *CaptureEngine {
	return &CaptureEngine{handlers: handlers}
}

func (e *CaptureEngine) Walk(cc *CaptureContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok {
		handler(cc, node)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(cc, node.Child(i))
	}
}

func (cc *CaptureContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(cc.Source[node.StartByte():node.EndByte()])
}

func (cc *CaptureContext) Loc(node *sitter.Node) capture.Location {
	return capture.Location{
		File:      cc.Path,
		StartByte: uint32(node.StartByte()),
		EndByte:   uint32(node.EndByte()),
		Start: capture.Point{
			Row:    uint32(node.StartPosition().Row),
			Column: uint32(node.StartPosition().Column),
		},
		End: capture.Point{
			Row:    uint32(node.EndPosition().Row),
			Column: uint32(node.EndPosition().Column),
		},
	}
}

// SpanLoc covers from the start of one node to the end of another. Scope
// captures use it to span a construct's parameters and body while excluding
// its name token.
func (cc *CaptureContext) SpanLoc(from, to *sitter.Node) capture.Location {
	loc := cc.Loc(from)
	end := cc.Loc(to)
	loc.EndByte = end.EndByte
	loc.End = end.End
	return loc
}

func (cc *CaptureContext) Emit(kind capture.Kind, subtype string, loc capture.Location, text string, node *sitter.Node) {
	cc.Captures = append(cc.Captures, capture.Capture{
		Kind:     kind,
		Subtype:  subtype,
		Location: loc,
		Text:     text,
		Node:     node,
	})
}

// ChildText returns the text of the first child with the given kind.
func (cc *CaptureContext) ChildText(node *sitter.Node, kind string) string {
	if node == nil {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return cc.Text(child)
		}
	}
	return ""
}

// hasChildOfKind reports whether node has a direct child of the given kind.
func hasChildOfKind(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

// ancestorOfKind climbs to the nearest ancestor with one of the kinds.
func ancestorOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		for _, k := range kinds {
			if cur.Kind() == k {
				return cur
			}
		}
	}
	return nil
}

func nodeText(src []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}

// nodeLocation builds a file-less location for spans that stay internal to
// the extractor hooks; captures emitted through the context carry the path.
func nodeLocation(node *sitter.Node) capture.Location {
	return capture.Location{
		StartByte: uint32(node.StartByte()),
		EndByte:   uint32(node.EndByte()),
		Start: capture.Point{
			Row:    uint32(node.StartPosition().Row),
			Column: uint32(node.StartPosition().Column),
		},
		End: capture.Point{
			Row:    uint32(node.EndPosition().Row),
			Column: uint32(node.EndPosition().Column),
		},
	}
}
