package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestIRObjectTypedGetters(t *testing.T) {
	obj := Obj(
		O("attacker", IRInt(7)),
		O("event", IRString("damaged")),
		O("critical", IRBool(true)),
	)

	n, ok := obj.GetInt("attacker")
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	s, ok := obj.GetString("event")
	require.True(t, ok)
	assert.Equal(t, "damaged", s)

	b, ok := obj.GetBool("critical")
	require.True(t, ok)
	assert.True(t, b)

	_, ok = obj.GetInt("event")
	assert.False(t, ok, "string value must not read as int")

	_, ok = obj.GetInt("missing")
	assert.False(t, ok)
}

func TestIRObjectClone_IsDeep(t *testing.T) {
	orig := IRObject{
		"nested": IRObject{"hp": IRInt(10)},
		"list":   IRArray{IRInt(1)},
	}

	clone := orig.Clone()
	clone["nested"].(IRObject)["hp"] = IRInt(0)
	clone["list"].(IRArray)[0] = IRInt(2)

	assert.Equal(t, IRInt(10), orig["nested"].(IRObject)["hp"])
	assert.Equal(t, IRInt(1), orig["list"].(IRArray)[0])
}

func TestIRObjectClone_Nil(t *testing.T) {
	var obj IRObject
	clone := obj.Clone()
	require.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRInt(0)))
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	obj := IRObject{
		"target": IRInt(2),
		"tags":   IRArray{IRString("fire"), IRBool(false)},
		"meta":   IRObject{"note": IRNull{}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"meta":{"note":null},"tags":["fire",false],"target":2}`, string(data))

	var decoded IRObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, obj, decoded)
}

func TestIRObjectUnmarshal_RejectsFloat(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`{"damage": 1.5}`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestUnmarshalIRValue_RejectsNull(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`null`))
	require.Error(t, err)
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"count": 3,
		"names": []any{"a", "b"},
		"ok":    true,
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"count": IRInt(3),
		"names": IRArray{IRString("a"), IRString("b")},
		"ok":    IRBool(true),
	}, v)

	_, err = FromGo(2.5)
	require.Error(t, err)

	_, err = FromGo(map[string]any{"x": nil})
	require.Error(t, err)
}

func TestToGo(t *testing.T) {
	got := ToGo(IRObject{"hp": IRInt(3), "tags": IRArray{IRString("x")}})
	assert.Equal(t, map[string]any{"hp": int64(3), "tags": []any{"x"}}, got)
}
