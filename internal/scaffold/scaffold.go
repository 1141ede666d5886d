package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gptkit/pkg/tools"
)

// DefaultToolsImport is the import path of the tools package referenced by
// generated files.
const DefaultToolsImport = "gptkit/pkg/tools"

// ErrExists is returned when the target file exists and Overwrite is false.
var ErrExists = errors.New("tool file already exists")

// Options controls Generate.
type Options struct {
	// Dir is the base directory for generated tools.
	Dir string
	// Package is the package clause used when Name has no subdirectory.
	Package string
	// Name is the tool type name. It may be PascalCase, snake_case, or
	// space separated, and may carry a sub/dir/ prefix.
	Name        string
	Overwrite   bool
	ToolsImport string
}

// Result describes a generated file.
type Result struct {
	Path     string
	Package  string
	Type     string
	ToolName string
}

// Generate writes a tool skeleton to <Dir>/<subdirs>/<snake_name>.go.
func Generate(opts Options) (Result, error) {
	subdir, base := splitName(opts.Name)
	typeName, err := TypeName(base)
	if err != nil {
		return Result{}, err
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return Result{}, errors.New("scaffold directory is empty")
	}
	pkg := strings.TrimSpace(opts.Package)
	if subdir != "" {
		if subdir == ".." || strings.HasPrefix(subdir, "../") {
			return Result{}, fmt.Errorf("tool subdirectory %q escapes %s", subdir, dir)
		}
		dir = filepath.Join(dir, filepath.FromSlash(subdir))
		pkg = packageName(path.Base(subdir))
	}
	if !token.IsIdentifier(pkg) {
		return Result{}, fmt.Errorf("invalid package name %q", pkg)
	}
	toolsImport := strings.TrimSpace(opts.ToolsImport)
	if toolsImport == "" {
		toolsImport = DefaultToolsImport
	}

	result := Result{
		Package:  pkg,
		Type:     typeName,
		ToolName: tools.SnakeName(typeName),
	}
	result.Path = filepath.Join(dir, result.ToolName+".go")

	var buf bytes.Buffer
	if err := toolTemplate.Execute(&buf, struct {
		Package     string
		ToolsImport string
		Type        string
		ToolName    string
	}{pkg, toolsImport, typeName, result.ToolName}); err != nil {
		return Result{}, fmt.Errorf("render tool template: %w", err)
	}
	source, err := format.Source(buf.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("format generated source: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create tool directory: %w", err)
	}
	lock := flock.New(result.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire scaffold lock: %w", err)
	}
	if !locked {
		return Result{}, fmt.Errorf("another make-tool run is writing %s", result.Path)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	if err := writeFile(result.Path, source, opts.Overwrite); err != nil {
		return Result{}, err
	}
	return result, nil
}

func writeFile(target string, data []byte, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, target)
		}
		return fmt.Errorf("create tool file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("write tool file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close tool file: %w", err)
	}
	return nil
}

// TypeName converts a tool name to an exported Go identifier. Words split
// on underscores, dashes, and spaces are title-cased; existing inner
// capitals are kept, so WeatherLookup and weather_lookup agree.
func TypeName(name string) (string, error) {
	words := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, word := range words {
		b.WriteString(caser.String(word))
	}
	typeName := b.String()
	if !token.IsIdentifier(typeName) || !token.IsExported(typeName) {
		return "", fmt.Errorf("invalid tool name %q", name)
	}
	return typeName, nil
}

func splitName(name string) (string, string) {
	name = strings.Trim(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"), "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return path.Clean(name[:idx]), name[idx+1:]
	}
	return "", name
}

func packageName(dir string) string {
	return strings.ToLower(strings.NewReplacer("-", "", " ", "", ".", "").Replace(dir))
}
