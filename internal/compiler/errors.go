package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a spec problem tied to a dotted field path such as
// "ability.normal_attack.nodes[2].type" and, when known, a source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if !e.Pos.IsValid() {
		return msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
}

// fieldError reports a problem at v.
func fieldError(v cue.Value, field, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
}

// cueError converts a CUE evaluation error into a CompileError for field.
// CUE lists follow-on errors after the root cause; only the first is kept.
func cueError(field string, err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: field, Message: err.Error()}
	}
	first := errs[0]
	ce := &CompileError{Field: field, Message: first.Error()}
	if pos := errors.Positions(first); len(pos) > 0 {
		ce.Pos = pos[0]
	}
	return ce
}
