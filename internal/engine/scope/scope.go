// Package scope builds the per-file scope tree from scope captures and
// answers the two containment queries everything downstream depends on:
// the innermost scope over a span, and the defining scope of a declaration.
package scope

import (
	"sort"

	"unravel/internal/engine/capture"
)

// ID identifies a scope within one file. The root module scope is always 0.
// IDs are ordinals in a deterministic sort of the scope spans, so rebuilding
// a tree from identical captures yields identical IDs.
type ID uint32

const Root ID = 0

// NoParent marks the root scope, which has no parent.
const NoParent ID = ^ID(0)

type Scope struct {
	ID       ID               `json:"id"`
	Parent   ID               `json:"parent"`
	Kind     string           `json:"kind"`
	Location capture.Location `json:"location"`
	Children []ID             `json:"children,omitempty"`
}

// Tree is the immutable scope tree of one file.
type Tree struct {
	File   string  `json:"file"`
	Scopes []Scope `json:"scopes"`
}

// Build constructs the tree from scope captures. Every capture's location is
// the construct's body span (the adapter's responsibility). A synthetic root
// module scope spanning the whole file is always present, so lookups never
// fail: a location matched by no capture belongs to the root.
func Build(file string, fileSpan capture.Location, captures []capture.Capture) *Tree {
	scopes := make([]Scope, 0, len(captures)+1)
	scopes = append(scopes, Scope{
		ID:       Root,
		Parent:   NoParent,
		Kind:     "module",
		Location: fileSpan,
	})

	for _, c := range captures {
		if c.Kind != capture.KindScope {
			continue
		}
		scopes = append(scopes, Scope{
			Kind:     c.Subtype,
			Location: c.Location,
		})
	}

	// Parents sort before children: earlier start first, wider span first on
	// ties. The ordinal after this sort is the scope ID.
	body := scopes[1:]
	sort.SliceStable(body, func(i, j int) bool {
		a, b := body[i].Location, body[j].Location
		if a.StartByte != b.StartByte {
			return a.StartByte < b.StartByte
		}
		return a.Span() > b.Span()
	})
	for i := range body {
		body[i].ID = ID(i + 1)
	}

	t := &Tree{File: file, Scopes: scopes}
	t.link()
	return t
}

// link assigns each scope its parent: the smallest scope that strictly
// contains it. With the sort order above a linear stack walk suffices.
func (t *Tree) link() {
	stack := []ID{Root}
	for i := 1; i < len(t.Scopes); i++ {
		s := &t.Scopes[i]
		for len(stack) > 1 {
			top := &t.Scopes[stack[len(stack)-1]]
			if top.Location.StrictlyContains(s.Location) || top.Location.SameSpan(s.Location) && top.ID < s.ID {
				break
			}
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		s.Parent = parent
		t.Scopes[parent].Children = append(t.Scopes[parent].Children, s.ID)
		stack = append(stack, s.ID)
	}
}

func (t *Tree) Scope(id ID) *Scope {
	if int(id) >= len(t.Scopes) {
		return nil
	}
	return &t.Scopes[id]
}

// Innermost returns the deepest scope whose body fully contains loc, ties
// broken by smallest span. Zero-width locations use end-exclusive point
// containment: a declaration starting exactly where a preceding sibling
// scope ends belongs after that scope, not in it. Never fails: the root
// contains everything in the file, and locations from other files fall back
// to the root as well (a capture gap is recoverable, not fatal).
func (t *Tree) Innermost(loc capture.Location) ID {
	best := Root
	bestDepth := -1
	bestSpan := uint32(0)
	for i := range t.Scopes {
		s := &t.Scopes[i]
		if loc.Span() == 0 {
			if !s.Location.ContainsPoint(loc.File, loc.StartByte) {
				continue
			}
		} else if !s.Location.Contains(loc) {
			continue
		}
		d := t.depth(s.ID)
		if d > bestDepth || (d == bestDepth && s.Location.Span() < bestSpan) {
			best = s.ID
			bestDepth = d
			bestSpan = s.Location.Span()
		}
	}
	return best
}

// Defining returns the scope a declaration at loc is a member of. It
// evaluates containment at the zero-width start point of loc, never over the
// full span: a declaration's own extent can contain nested scopes (a class
// contains its method bodies), and evaluating over the extent would
// misattribute the declaration to one of them.
func (t *Tree) Defining(loc capture.Location) ID {
	return t.Innermost(loc.StartPoint())
}

// IsAncestor reports whether anc is an ancestor of, or equal to, desc.
func (t *Tree) IsAncestor(anc, desc ID) bool {
	for cur := desc; ; {
		if cur == anc {
			return true
		}
		s := t.Scope(cur)
		if s == nil || s.Parent == NoParent {
			return false
		}
		cur = s.Parent
	}
}

// Ancestry returns the scope chain from id up to and including the root.
func (t *Tree) Ancestry(id ID) []ID {
	var chain []ID
	for cur := id; ; {
		s := t.Scope(cur)
		if s == nil {
			break
		}
		chain = append(chain, cur)
		if s.Parent == NoParent {
			break
		}
		cur = s.Parent
	}
	return chain
}

func (t *Tree) depth(id ID) int {
	d := 0
	for cur := id; ; d++ {
		s := t.Scope(cur)
		if s == nil || s.Parent == NoParent {
			return d
		}
		cur = s.Parent
	}
}

// Len returns the number of scopes including the root.
func (t *Tree) Len() int { return len(t.Scopes) }
