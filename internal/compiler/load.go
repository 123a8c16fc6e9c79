package compiler

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadFiles loads CUE files as a single instance and returns its value.
// The files must belong to the same package (or have no package clause).
func LoadFiles(files ...string) (cue.Value, error) {
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE files given")
	}
	args := make([]string, len(files))
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return cue.Value{}, fmt.Errorf("resolve %s: %w", f, err)
		}
		args[i] = abs
	}
	instances := load.Instances(args, &load.Config{})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, cueError("", err)
	}
	return value, nil
}

// LoadBundle loads files and compiles them into a Bundle.
func LoadBundle(files ...string) (*Bundle, []error) {
	v, err := LoadFiles(files...)
	if err != nil {
		return nil, []error{err}
	}
	return CompileBundle(v)
}
