package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hdlreplay/internal/compiler"
	"github.com/roach88/hdlreplay/internal/ir"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the modules loaded from a directory.
type LoadResult struct {
	Library   ir.Library
	CUEValue  cue.Value
	FileCount int
}

// Names returns the library's module names in sorted order.
func (r *LoadResult) Names() []string {
	names := make([]string, 0, len(r.Library))
	for name := range r.Library {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadError is a failure to load or compile a specs directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads the CUE package in dir and compiles every module under
// its "module" field. In LoadModeFailFast it stops at the first module that
// does not compile; in LoadModeCollectAll it reports all of them.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	files, lerr := specFiles(dir)
	if lerr != nil {
		return nil, []error{lerr}
	}
	value, lerr := buildPackage(dir)
	if lerr != nil {
		return nil, []error{lerr}
	}

	result := &LoadResult{Library: ir.Library{}, CUEValue: value, FileCount: len(files)}
	var errs []error

	if mods := value.LookupPath(cue.ParsePath("module")); mods.Exists() {
		iter, err := mods.Fields()
		if err != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating modules: %v", err)}}
		}
		for iter.Next() {
			spec, err := compiler.CompileModule(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, "module."+iter.Label()))
				if mode == LoadModeFailFast {
					break
				}
				continue
			}
			result.Library[spec.Name] = spec
		}
	}

	if len(result.Library) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no modules found in specs"})
	}
	return result, errs
}

// specFiles checks that dir is a directory holding at least one .cue file.
func specFiles(dir string) ([]string, *LoadError) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "specs directory not found: " + dir}
	case err != nil:
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("stat specs directory: %v", err)}
	case !info.IsDir():
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "specs path is not a directory: " + dir}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scan %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in " + dir}
	}
	return files, nil
}

// buildPackage loads and evaluates the single CUE package rooted at dir.
func buildPackage(dir string) (cue.Value, *LoadError) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if err := insts[0].Err; err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("load CUE package: %v", err)}
	}
	value := cuecontext.New().BuildInstance(insts[0])
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("build CUE value: %v", err)}
	}
	return value, nil
}

// FindCUEFiles returns every .cue file under dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// loadLibrary loads dir fail-fast and returns the first error as a LoadError.
func loadLibrary(dir string) (*LoadResult, *LoadError) {
	result, errs := LoadSpecs(dir, LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			return nil, loadErr
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: errs[0].Error()}
	}
	return result, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeInvalidModule,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error codes shared by every command. Validation codes (E2xx) come from package compiler and elaboration codes
// from package engine.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Elaboration store error

	ErrCodeInvalidModule = "E101" // Module description does not compile
)
