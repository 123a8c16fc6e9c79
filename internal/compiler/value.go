package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/flexi/internal/ir"
)

// toIR converts a concrete CUE value to an IRValue. Floats are rejected: every
// number in a graph description is an integer.
func toIR(v cue.Value, field string) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, cueError(field, err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIR(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		return toObject(v, field)
	case cue.FloatKind, cue.NumberKind:
		return nil, fieldError(v, field, "float values are forbidden, use int")
	default:
		return nil, fieldError(v, field, "value must be concrete, got kind %v", v.IncompleteKind())
	}
}

func toObject(v cue.Value, field string) (ir.IRObject, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(field, err)
	}
	obj := ir.IRObject{}
	for iter.Next() {
		label := iter.Label()
		val, err := toIR(iter.Value(), field+"."+label)
		if err != nil {
			return nil, err
		}
		obj[label] = val
	}
	return obj, nil
}

// intField reads an optional int field; ok is false when it is absent.
func intField(v cue.Value, name, field string) (n int64, ok bool, err error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return 0, false, nil
	}
	n, err = f.Int64()
	if err != nil {
		return 0, false, fieldError(f, field+"."+name, "must be an int")
	}
	return n, true, nil
}

// stringField reads an optional string field; ok is false when it is absent.
func stringField(v cue.Value, name, field string) (s string, ok bool, err error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", false, nil
	}
	s, err = f.String()
	if err != nil {
		return "", false, fieldError(f, field+"."+name, "must be a string")
	}
	return s, true, nil
}
