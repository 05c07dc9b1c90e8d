// Package capture defines the normalized unit of syntactic information the
// language adapters hand to the core builders. The core never touches a
// syntax tree directly; it only sees captures and, through the metadata
// extractor hooks, opaque node handles.
package capture

import "fmt"

// Kind classifies a capture at the top level.
type Kind string

const (
	KindScope      Kind = "scope"
	KindDefinition Kind = "definition"
	KindReference  Kind = "reference"
	KindImport     Kind = "import"
	KindExport     Kind = "export"
)

// NodeHandle is an opaque handle to the syntax node a capture came from.
// Only the language adapter that produced it can interpret it.
type NodeHandle any

// Capture is one located, tagged span extracted from a parsed file.
// Scope captures are restricted by the adapter to the construct's body span,
// excluding its name token.
type Capture struct {
	Kind     Kind
	Subtype  string
	Location Location
	Text     string
	Node     NodeHandle
}

// Point is a zero-based row/column position.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

func (p Point) Before(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Column < o.Column
}

// Location is a byte-addressed span within one file.
type Location struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Start     Point  `json:"start"`
	End       Point  `json:"end"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Start.Row+1, l.Start.Column+1)
}

// Span is the byte width of the location.
func (l Location) Span() uint32 {
	if l.EndByte < l.StartByte {
		return 0
	}
	return l.EndByte - l.StartByte
}

// Contains reports whether o lies entirely within l. A location contains
// itself.
func (l Location) Contains(o Location) bool {
	if l.File != o.File {
		return false
	}
	return l.StartByte <= o.StartByte && o.EndByte <= l.EndByte
}

// StrictlyContains reports whether o lies within l and l is wider than o.
func (l Location) StrictlyContains(o Location) bool {
	return l.Contains(o) && l.Span() > o.Span()
}

// ContainsPoint reports whether the byte offset lies within l. The end is
// exclusive: spans end-exclusively, so a token starting exactly at l's end
// byte sits after l, not inside it. A zero-width l contains only its own
// offset.
func (l Location) ContainsPoint(file string, byteOffset uint32) bool {
	if l.File != file {
		return false
	}
	if l.StartByte == l.EndByte {
		return byteOffset == l.StartByte
	}
	return l.StartByte <= byteOffset && byteOffset < l.EndByte
}

// StartPoint collapses the location to a zero-width span at its start.
//
// This is the one shared helper behind "defining scope" lookups: any code
// asking which scope contains a declaration must ask about this collapsed
// point, never the full extent, because the full extent of a class or
// function contains the scopes of its own body.
func (l Location) StartPoint() Location {
	return Location{
		File:      l.File,
		StartByte: l.StartByte,
		EndByte:   l.StartByte,
		Start:     l.Start,
		End:       l.Start,
	}
}

// SameSpan reports whether two locations cover the identical byte range of
// the same file.
func (l Location) SameSpan(o Location) bool {
	return l.File == o.File && l.StartByte == o.StartByte && l.EndByte == o.EndByte
}
