package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeSources(t, `---
sources:
  - name: Fonte A
    url: https://fonte-a.example.com
    color: "#FF6900"
    selector:
      container: article, .post
      title: ["h2 a", "h3 a, .entry-title a"]
      link: h2 a
`)

	file, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(file.Sources) != 1 {
		t.Fatalf("Load() returned %d sources, want 1", len(file.Sources))
	}

	got := file.Sources[0].Selector
	if diff := cmp.Diff(SelectorChain{"article", ".post"}, got.Container); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(SelectorChain{"h2 a", "h3 a", ".entry-title a"}, got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderRejectsUnknownFields(t *testing.T) {
	path := writeSources(t, `sources:
  - name: Fonte A
    url: https://fonte-a.example.com
    selectr:
      title: h2 a
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Load() should reject an unknown key")
	}
	if !strings.Contains(err.Error(), "selectr") {
		t.Errorf("error should name the unknown key, got %v", err)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/sources.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderEmptyFile(t *testing.T) {
	path := writeSources(t, "")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() with an empty file should return error")
	}
}

func TestShippedSourcesFileIsValid(t *testing.T) {
	file, err := NewLoader(filepath.Join("..", "..", "configs", "sources.yaml")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	list, cats, err := NewMapper().Map(file)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if len(list) == 0 {
		t.Fatal("shipped catalogue is empty")
	}
	var slugs []string
	for _, c := range cats {
		slugs = append(slugs, c.Slug)
	}
	if diff := cmp.Diff([]string{"politica", "saude", "agronegocio", "turismo"}, slugs); diff != "" {
		t.Errorf("shipped categories mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitSelectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "h2 a", []string{"h2 a"}},
		{"list", "h2 a, h3 a , .entry-title a", []string{"h2 a", "h3 a", ".entry-title a"}},
		{"attribute with comma", `[data-x="a,b"] a, h4 a`, []string{`[data-x="a,b"] a`, "h4 a"}},
		{"pseudo with comma", "li:is(.a, .b), p", []string{"li:is(.a, .b)", "p"}},
		{"single quotes", "[data-module='NewsArticle'] h3 a, .title a", []string{"[data-module='NewsArticle'] h3 a", ".title a"}},
		{"empty parts dropped", " , h2 a,, ", []string{"h2 a"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitSelectors(tt.in)); diff != "" {
				t.Errorf("SplitSelectors(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
