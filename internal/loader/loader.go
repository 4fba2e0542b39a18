package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ruler/internal/ir"
)

// Error code constants shared by every command that loads problems.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // CUE build failed
	ErrCodeInvalidProblem = "E010" // Problem struct is malformed
	ErrCodeNoProblem      = "E011" // Named problem does not exist
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the problems found in a directory.
type LoadResult struct {
	Problems  []ir.Problem
	Positions map[string]token.Pos // declaration position per problem name
	CUEValue  cue.Value
	FileCount int
}

// Find returns the problem with the given name.
func (r *LoadResult) Find(name string) (ir.Problem, error) {
	for _, p := range r.Problems {
		if p.Name == name {
			return p, nil
		}
	}
	return ir.Problem{}, &LoadError{
		Code:    ErrCodeNoProblem,
		Message: fmt.Sprintf("problem %q not found", name),
	}
}

// LoadError is an error raised while reading problem files.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LoadProblems loads every problem declared in the .cue files of dir.
// In LoadModeFailFast the first malformed problem stops loading; in
// LoadModeCollectAll every malformed problem is reported and the rest are
// still returned. A nil result means the directory itself could not be read.
func LoadProblems(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("problems directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing problems directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Positions: make(map[string]token.Pos),
		CUEValue:  value,
		FileCount: len(cueFiles),
	}
	return result, collectProblems(result, value, mode)
}

// LoadString compiles CUE source held in memory. It is used for problems
// embedded in scenario files and in tests.
func LoadString(src string, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	result := &LoadResult{
		Positions: make(map[string]token.Pos),
		CUEValue:  value,
	}
	return result, collectProblems(result, value, mode)
}

func collectProblems(result *LoadResult, value cue.Value, mode LoadMode) []error {
	var errs []error

	problemsVal := value.LookupPath(cue.ParsePath("problem"))
	if problemsVal.Exists() {
		iter, err := problemsVal.Fields()
		if err != nil {
			return []error{formatCUEError(err)}
		}
		for iter.Next() {
			problem, err := CompileProblem(iter.Value())
			if err != nil {
				errs = append(errs, err)
				if mode == LoadModeFailFast {
					return errs
				}
				continue
			}
			result.Problems = append(result.Problems, *problem)
			result.Positions[problem.Name] = iter.Value().Pos()
		}
	}

	if len(result.Problems) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no problems found"})
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
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
	return files, err
}
