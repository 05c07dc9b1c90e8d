package capture

import "testing"

func span(file string, start, end uint32) Location {
	return Location{File: file, StartByte: start, EndByte: end}
}

func TestContains(t *testing.T) {
	outer := span("a.js", 0, 100)
	inner := span("a.js", 10, 20)

	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if !outer.Contains(outer) {
		t.Error("a location contains itself")
	}
	if outer.Contains(span("b.js", 10, 20)) {
		t.Error("containment must not cross files")
	}
}

func TestStrictlyContains(t *testing.T) {
	outer := span("a.js", 0, 100)

	if outer.StrictlyContains(outer) {
		t.Error("strict containment excludes the identical span")
	}
	if !outer.StrictlyContains(span("a.js", 0, 99)) {
		t.Error("narrower span with shared start should be strictly contained")
	}
}

func TestContainsPoint(t *testing.T) {
	l := span("a.js", 10, 20)

	if !l.ContainsPoint("a.js", 10) {
		t.Error("start byte is inside")
	}
	if !l.ContainsPoint("a.js", 19) {
		t.Error("last byte before the end is inside")
	}
	if l.ContainsPoint("a.js", 20) {
		t.Error("end byte is outside: spans end exclusively")
	}
	if l.ContainsPoint("b.js", 15) {
		t.Error("point containment must not cross files")
	}

	empty := span("a.js", 14, 14)
	if !empty.ContainsPoint("a.js", 14) {
		t.Error("zero-width span contains its own offset")
	}
	if empty.ContainsPoint("a.js", 15) {
		t.Error("zero-width span contains nothing else")
	}
}

func TestStartPoint(t *testing.T) {
	loc := Location{
		File:      "a.js",
		StartByte: 10,
		EndByte:   50,
		Start:     Point{Row: 1, Column: 0},
		End:       Point{Row: 5, Column: 1},
	}
	pt := loc.StartPoint()

	if pt.StartByte != 10 || pt.EndByte != 10 {
		t.Errorf("start point should be zero-width at 10, got [%d,%d]", pt.StartByte, pt.EndByte)
	}
	if pt.Span() != 0 {
		t.Errorf("span = %d, want 0", pt.Span())
	}
	if pt.End != pt.Start {
		t.Error("end position should collapse onto start")
	}

	// The collapsed point stays inside any span containing the start, even
	// when that span does not contain the full extent.
	narrow := span("a.js", 5, 15)
	if !narrow.Contains(pt) {
		t.Error("narrow span should contain the collapsed start point")
	}
	if narrow.Contains(loc) {
		t.Error("narrow span should not contain the full extent")
	}
}

func TestSpan(t *testing.T) {
	if got := span("a.js", 10, 25).Span(); got != 15 {
		t.Errorf("span = %d, want 15", got)
	}
	if got := (Location{StartByte: 5, EndByte: 3}).Span(); got != 0 {
		t.Errorf("inverted span = %d, want 0", got)
	}
}
