package modpath

import "testing"

func jsFiles() FileSet {
	return NewFileSet([]string{
		"src/main.js",
		"src/utils.js",
		"src/lib/index.js",
		"src/widget.tsx",
		"src/types.ts",
	})
}

func TestJavaScriptResolve(t *testing.T) {
	r, ok := For("javascript", jsFiles(), nil)
	if !ok {
		t.Fatal("no javascript resolver")
	}

	tests := []struct {
		name string
		from string
		raw  string
		want string
	}{
		{"extension probing", "src/main.js", "./utils", "src/utils.js"},
		{"explicit extension", "src/main.js", "./utils.js", "src/utils.js"},
		{"index fallback", "src/main.js", "./lib", "src/lib/index.js"},
		{"parent relative", "src/lib/index.js", "../utils", "src/utils.js"},
		{"tsx probing", "src/main.js", "./widget", "src/widget.tsx"},
		{"bare specifier passes through", "src/main.js", "lodash", ""},
		{"missing file", "src/main.js", "./nope", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.from, tt.raw)
			if tt.want == "" {
				if ok {
					t.Fatalf("Resolve(%q) = %q, want unresolved", tt.raw, got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Fatalf("Resolve(%q) = %q/%v, want %q", tt.raw, got, ok, tt.want)
			}
		})
	}
}

func TestTypeScriptPrefersTS(t *testing.T) {
	files := NewFileSet([]string{"src/shared.ts", "src/shared.js", "src/app.ts"})
	r, _ := For("typescript", files, nil)
	got, ok := r.Resolve("src/app.ts", "./shared")
	if !ok || got != "src/shared.ts" {
		t.Fatalf("Resolve(./shared) = %q/%v, want src/shared.ts", got, ok)
	}
}

func TestPythonResolve(t *testing.T) {
	files := NewFileSet([]string{
		"proj/pkg/__init__.py",
		"proj/pkg/core.py",
		"proj/pkg/sub/__init__.py",
		"proj/pkg/sub/deep.py",
		"proj/top.py",
	})
	r, ok := For("python", files, []string{"proj"})
	if !ok {
		t.Fatal("no python resolver")
	}

	tests := []struct {
		name string
		from string
		raw  string
		want string
	}{
		{"dotted module", "proj/top.py", "pkg.core", "proj/pkg/core.py"},
		{"dotted package init", "proj/top.py", "pkg", "proj/pkg/__init__.py"},
		{"deep dotted", "proj/top.py", "pkg.sub.deep", "proj/pkg/sub/deep.py"},
		{"relative sibling", "proj/pkg/core.py", ".sub.deep", "proj/pkg/sub/deep.py"},
		{"relative package", "proj/pkg/sub/deep.py", ".", "proj/pkg/sub/__init__.py"},
		{"relative parent", "proj/pkg/sub/deep.py", "..core", "proj/pkg/core.py"},
		{"flat neighbor", "proj/pkg/core.py", "sub.deep", "proj/pkg/sub/deep.py"},
		{"stdlib passes through", "proj/top.py", "os.path", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.from, tt.raw)
			if tt.want == "" {
				if ok {
					t.Fatalf("Resolve(%q) = %q, want unresolved", tt.raw, got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Fatalf("Resolve(%q) = %q/%v, want %q", tt.raw, got, ok, tt.want)
			}
		})
	}
}

func TestRustResolve(t *testing.T) {
	files := NewFileSet([]string{
		"app/src/main.rs",
		"app/src/util.rs",
		"app/src/util/helpers.rs",
		"app/src/net/mod.rs",
		"app/src/net/client.rs",
	})
	r, ok := For("rust", files, []string{"app"})
	if !ok {
		t.Fatal("no rust resolver")
	}

	tests := []struct {
		name string
		from string
		raw  string
		want string
	}{
		{"crate path", "app/src/net/client.rs", "crate::util", "app/src/util.rs"},
		{"crate nested", "app/src/net/client.rs", "crate::util::helpers", "app/src/util/helpers.rs"},
		{"item suffix stays on module", "app/src/net/client.rs", "crate::util::helpers::parse", "app/src/util/helpers.rs"},
		{"mod declaration", "app/src/main.rs", "net", "app/src/net/mod.rs"},
		{"self path", "app/src/net/mod.rs", "self::client", "app/src/net/client.rs"},
		{"super path", "app/src/net/client.rs", "super::client", "app/src/net/client.rs"},
		{"double super", "app/src/net/client.rs", "super::super::util", "app/src/util.rs"},
		{"submodule of file module", "app/src/main.rs", "util::helpers", "app/src/util/helpers.rs"},
		{"external crate passes through", "app/src/main.rs", "serde::Deserialize", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.from, tt.raw)
			if tt.want == "" {
				if ok {
					t.Fatalf("Resolve(%q) = %q, want unresolved", tt.raw, got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Fatalf("Resolve(%q) = %q/%v, want %q", tt.raw, got, ok, tt.want)
			}
		})
	}
}

func TestUnknownLanguage(t *testing.T) {
	if _, ok := For("cobol", NewFileSet(nil), nil); ok {
		t.Fatal("expected no resolver for unknown language")
	}
}
