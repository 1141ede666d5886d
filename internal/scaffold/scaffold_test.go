package scaffold

import (
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTypeName(t *testing.T) {
	cases := map[string]string{
		"WeatherLookup":  "WeatherLookup",
		"weather_lookup": "WeatherLookup",
		"weather lookup": "WeatherLookup",
		"http-fetcher":   "HttpFetcher",
		"current_time":   "CurrentTime",
	}
	for input, want := range cases {
		got, err := TypeName(input)
		if err != nil {
			t.Fatalf("TypeName(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Errorf("TypeName(%q) = %q, want %q", input, got, want)
		}
	}
	for _, bad := range []string{"", "  ", "123abc", "weather!"} {
		if _, err := TypeName(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestGenerateWritesParsableSkeleton(t *testing.T) {
	dir := t.TempDir()
	result, err := Generate(Options{Dir: dir, Package: "chattools", Name: "WeatherLookup"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	wantPath := filepath.Join(dir, "weather_lookup.go")
	if result.Path != wantPath || result.Type != "WeatherLookup" || result.ToolName != "weather_lookup" {
		t.Fatalf("unexpected result %+v", result)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	source := string(data)
	for _, want := range []string{
		"package chattools",
		`"gptkit/pkg/tools"`,
		"type WeatherLookup struct",
		"falls back to weather_lookup",
		"func (t *WeatherLookup) Parameters() map[string]any",
		"func (t *WeatherLookup) Invoke(ctx context.Context, args map[string]any) (any, error)",
		`"success": true`,
	} {
		if !strings.Contains(source, want) {
			t.Fatalf("generated source missing %q:\n%s", want, source)
		}
	}
	if _, err := parser.ParseFile(token.NewFileSet(), wantPath, data, parser.AllErrors); err != nil {
		t.Fatalf("generated source does not parse: %v", err)
	}
	if _, err := os.Stat(wantPath + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock file to be removed, got %v", err)
	}
}

func TestGenerateRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, Package: "chattools", Name: "weather_lookup"}
	if _, err := Generate(opts); err != nil {
		t.Fatalf("first Generate returned error: %v", err)
	}
	target := filepath.Join(dir, "weather_lookup.go")
	if err := os.WriteFile(target, []byte("// edited\n"), 0o644); err != nil {
		t.Fatalf("edit file: %v", err)
	}

	if _, err := Generate(opts); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "// edited\n" {
		t.Fatal("existing file was modified")
	}

	opts.Overwrite = true
	if _, err := Generate(opts); err != nil {
		t.Fatalf("overwrite Generate returned error: %v", err)
	}
	data, _ = os.ReadFile(target)
	if !strings.Contains(string(data), "type WeatherLookup struct") {
		t.Fatal("expected file to be regenerated")
	}
}

func TestGenerateSubdirectoryUsesPackageFromPath(t *testing.T) {
	dir := t.TempDir()
	result, err := Generate(Options{Dir: dir, Package: "chattools", Name: "web/HttpFetcher", ToolsImport: "example.com/app/tools"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.Path != filepath.Join(dir, "web", "http_fetcher.go") || result.Package != "web" {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	if !strings.Contains(string(data), "package web") || !strings.Contains(string(data), `"example.com/app/tools"`) {
		t.Fatalf("unexpected source:\n%s", data)
	}
}

func TestGenerateRejectsEscapingSubdirectory(t *testing.T) {
	if _, err := Generate(Options{Dir: t.TempDir(), Package: "chattools", Name: "../outside/Tool"}); err == nil {
		t.Fatal("expected error for escaping subdirectory")
	}
}

func TestGenerateRejectsInvalidPackage(t *testing.T) {
	if _, err := Generate(Options{Dir: t.TempDir(), Package: "not valid", Name: "Tool"}); err == nil {
		t.Fatal("expected error for invalid package")
	}
}
