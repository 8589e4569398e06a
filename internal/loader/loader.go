package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/queryir"
)

// Format is the syntax of a query document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// LoadMode controls how errors are handled when loading a directory.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// NamedQuery is a query together with the file it came from.
type NamedQuery struct {
	Name  string // file name without extension
	Path  string
	Query queryir.Query
}

// LoadResult contains the queries loaded from a directory.
type LoadResult struct {
	Queries   []NamedQuery
	FileCount int
}

// LoadFile reads and converts one query document.
func LoadFile(path string) (queryir.Query, error) {
	format, ok := FormatOf(path)
	if !ok {
		return queryir.Query{}, &LoadError{
			Code:    ErrCodeUnknownFormat,
			Message: fmt.Sprintf("unsupported query file %s (want .yaml, .yml, .cue or .json)", path),
		}
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
	}
	if err != nil {
		return queryir.Query{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return parse(data, format, path)
}

// Parse converts a query document held in memory.
func Parse(data []byte, format Format) (queryir.Query, error) {
	return parse(data, format, "")
}

func parse(data []byte, format Format, filename string) (queryir.Query, error) {
	switch format {
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return queryir.Query{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
		}
		return FromDocument(raw)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return queryir.Query{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing JSON: %v", err)}
		}
		return FromDocument(raw)
	case FormatCUE:
		return parseCUE(data, filename)
	}
	return queryir.Query{}, &LoadError{Code: ErrCodeUnknownFormat, Message: fmt.Sprintf("unknown format %q", format)}
}

// parseCUE evaluates a CUE document. Shape errors are mapped back to the
// position of the offending field.
func parseCUE(data []byte, filename string) (queryir.Query, error) {
	ctx := cuecontext.New()
	var opts []cue.BuildOption
	if filename != "" {
		opts = append(opts, cue.Filename(filename))
	}
	value := ctx.CompileBytes(data, opts...)
	if err := value.Err(); err != nil {
		return queryir.Query{}, cueError(ErrCodeLoadFailed, "loading CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return queryir.Query{}, cueError(ErrCodeBuildFailed, "building CUE value", err)
	}

	var raw any
	if err := value.Decode(&raw); err != nil {
		return queryir.Query{}, cueError(ErrCodeBuildFailed, "decoding CUE value", err)
	}

	q, err := FromDocument(raw)
	var le *LoadError
	if errors.As(err, &le) && le.Field != "" && !le.Pos.IsValid() {
		if p := cue.ParsePath(le.Field); p.Err() == nil {
			if v := value.LookupPath(p); v.Exists() {
				le.Pos = v.Pos()
			}
		}
	}
	return q, err
}

func cueError(code, what string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", what, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// FindQueryFiles walks dir and returns every query document, sorted.
func FindQueryFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if _, ok := FormatOf(path); ok {
				files = append(files, path)
			}
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// LoadDir loads every query document under dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindQueryFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no query files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, path := range files {
		q, err := LoadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		result.Queries = append(result.Queries, NamedQuery{Name: name, Path: path, Query: q})
	}
	return result, errs
}
