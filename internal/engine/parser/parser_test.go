package parser

import (
	"errors"
	"testing"

	coreerrors "unravel/internal/core/errors"
)

func TestIndexFileUnsupportedLanguage(t *testing.T) {
	p, err := NewParser(NewGrammarLoader())
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}

	_, err = p.IndexFile("notes.md", []byte("# heading\n"))
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("error = %v, want ErrUnsupportedLanguage in the chain", err)
	}
	if !coreerrors.IsCode(err, coreerrors.CodeNotSupported) {
		t.Errorf("error = %v, want NOT_SUPPORTED code", err)
	}
}

func TestLoaderUnknownGrammar(t *testing.T) {
	_, err := NewGrammarLoader().Language("cobol")
	if !coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND code", err)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"src/app.js", "javascript"},
		{"src/app.mjs", "javascript"},
		{"src/app.ts", "typescript"},
		{"src/view.tsx", "tsx"},
		{"lib/util.py", "python"},
		{"src/main.rs", "rust"},
		{"README.md", ""},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.path); got != tc.want {
			t.Errorf("DetectLanguage(%s) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
