package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed schema.cue
var schemaSource []byte

// Load reads a catalog from path. Directories and .cue files are read as
// CUE, .toml files as TOML.
func Load(path string) ([]Spec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err)}
	}

	if info.IsDir() {
		return LoadCUE(path)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(path)
	case ".toml":
		return LoadTOML(path)
	default:
		return nil, &LoadError{
			Code:    ErrCodeUnknownFormat,
			Message: fmt.Sprintf("unsupported catalog format %q (want .cue, .toml or a CUE directory)", filepath.Ext(path)),
			File:    path,
		}
	}
}

// LoadCUE evaluates a CUE file, or every CUE file of a directory, against
// the catalog schema and returns its services list.
func LoadCUE(path string) ([]Spec, error) {
	dir, args := path, []string{"."}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	} else if err == nil {
		files, err := findCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), File: path}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded", File: path}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err), File: path}
	}

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}

	raw := ctx.BuildInstance(inst)
	value := raw.Unify(schema)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(err, path)
	}
	positions := elementPositions(raw.LookupPath(cue.ParsePath("services")))

	list := value.LookupPath(cue.ParsePath("services"))
	if !list.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no services list found", File: path}
	}
	iter, err := list.List()
	if err != nil {
		return nil, cueLoadError(err, path)
	}

	var specs []Spec
	for i := 0; iter.Next(); i++ {
		var s Spec
		if err := iter.Value().Decode(&s); err != nil {
			return nil, cueLoadError(err, path)
		}
		s.File = path
		if i < len(positions) && positions[i].IsValid() {
			s.File, s.Line = positions[i].Filename(), positions[i].Line()
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// elementPositions returns the source position of each list element as
// written, before schema unification.
func elementPositions(list cue.Value) []token.Pos {
	iter, err := list.List()
	if err != nil {
		return nil
	}
	var out []token.Pos
	for iter.Next() {
		out = append(out, iter.Value().Pos())
	}
	return out
}

// cueLoadError converts the first CUE error to a LoadError with its
// position.
func cueLoadError(err error, path string) *LoadError {
	le := &LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), File: path}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	le.Message = errs[0].Error()
	if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
		le.File = positions[0].Filename()
		le.Line = positions[0].Line()
	}
	return le
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

type tomlCatalog struct {
	Services []Spec `toml:"service"`
}

// LoadTOML reads [[service]] tables from a TOML file. Unknown keys are
// rejected.
func LoadTOML(path string) ([]Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading catalog: %v", err), File: path}
	}

	var doc tomlCatalog
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, tomlLoadError(err, path)
	}

	lines := serviceLines(b)
	for i := range doc.Services {
		doc.Services[i].File = path
		if i < len(lines) {
			doc.Services[i].Line = lines[i]
		}
		if doc.Services[i].Name == "" {
			return nil, doc.Services[i].errorf(ErrCodeLoadFailed, "service %d has no name", i)
		}
	}
	return doc.Services, nil
}

func tomlLoadError(err error, path string) *LoadError {
	le := &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), File: path}

	var strict *toml.StrictMissingError
	if errors.As(err, &strict) && len(strict.Errors) > 0 {
		row, _ := strict.Errors[0].Position()
		le.Line = row
		le.Message = fmt.Sprintf("unknown field %q", strings.Join(strict.Errors[0].Key(), "."))
		return le
	}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		row, _ := de.Position()
		le.Line = row
	}
	return le
}

// serviceLines returns the 1-based line of every [[service]] header.
func serviceLines(b []byte) []int {
	var lines []int
	for i, line := range bytes.Split(b, []byte("\n")) {
		if bytes.Equal(bytes.TrimSpace(line), []byte("[[service]]")) {
			lines = append(lines, i+1)
		}
	}
	return lines
}
