package program

import (
	"fmt"
	"strings"

	"xeogl/gpu"
	"xeogl/shader"
)

// FailureKind classifies a program build failure.
type FailureKind int

const (
	ShaderCompileError FailureKind = iota
	ProgramLinkError
	ProgramValidateError
)

func (k FailureKind) String() string {
	switch k {
	case ShaderCompileError:
		return "shader compile"
	case ProgramLinkError:
		return "program link"
	case ProgramValidateError:
		return "program validate"
	}
	return "unknown"
}

// CompileError is the structured trace recorded on a variant that failed to
// build. Source is the offending source with line numbers; for link and
// validate failures it holds both stages.
type CompileError struct {
	Variant shader.Variant
	Kind    FailureKind
	Stage   gpu.ShaderStage
	InfoLog string
	Source  string
}

func (e *CompileError) Error() string {
	if e.Kind == ShaderCompileError {
		return fmt.Sprintf("%s %s failed (%s): %s", e.Stage, e.Kind, e.Variant, strings.TrimSpace(e.InfoLog))
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Kind, e.Variant, strings.TrimSpace(e.InfoLog))
}

// annotate prefixes every line of src with its 1-based line number, matching
// the numbering GL info logs refer to.
func annotate(src string) string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%*d: %s\n", width, i+1, l)
	}
	return b.String()
}
