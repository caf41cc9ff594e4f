package compiler

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/hdlreplay/internal/ir"
)

// LoadFiles loads the given CUE files as one instance and compiles every
// module they declare. The files must share a package clause (or all omit
// it); relative paths are resolved against the working directory.
func LoadFiles(files ...string) (ir.Library, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("load: no files")
	}
	args := make([]string, len(files))
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		args[i] = abs
	}

	instances := load.Instances(args, &load.Config{})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load: no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileLibrary(v)
}
