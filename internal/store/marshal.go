package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
)

// marshalObject converts an IRObject to canonical JSON TEXT for storage.
// A nil object is stored as "{}".
func marshalObject(obj ir.IRObject) (string, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// unmarshalObject parses JSON TEXT to an IRObject. ir.IRObject.UnmarshalJSON
// keeps large integers exact.
func unmarshalObject(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}
