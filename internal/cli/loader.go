package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/flexi/internal/compiler"
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Bundle    *compiler.Bundle
	FileCount int
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared by the CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Compiled content failed to build
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCompile     = "E010" // A stat, rule or graph did not compile
)

// LoadSpecs loads every CUE file under dir and compiles the result. A nil
// result means nothing could be compiled; otherwise errs lists the
// definitions that failed and the result holds the rest.
func LoadSpecs(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadFiles(files...)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}

	bundle, compileErrs := compiler.CompileBundle(value)
	errs := make([]error, 0, len(compileErrs))
	for _, e := range compileErrs {
		errs = append(errs, convertCompileError(e, ErrCodeCompile))
	}
	if len(bundle.Abilities) == 0 && len(bundle.Macros) == 0 && len(bundle.Stats) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no stats, macros or abilities found in specs"})
	}
	return &LoadResult{Bundle: bundle, FileCount: len(files)}, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
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
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, code string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: code, Message: err.Error()}
}
