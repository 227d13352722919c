package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(1.5)
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

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 even though UTF-8 orders them the other way.
	obj := IRObject{
		"\U0001F600": IRInt(1),
		"\uff61":     IRInt(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestFromGoYAMLShapes(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, err := FromGo(map[string]any{
		"title":  "Home",
		"order":  3,
		"rating": 4.5,
		"draft":  false,
		"tags":   []any{"a", "b"},
		"date":   stamp,
		"empty":  nil,
		"nested": map[any]any{1: "one"},
	})
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRString("Home"), obj["title"])
	assert.Equal(t, IRInt(3), obj["order"])
	assert.Equal(t, IRFloat(4.5), obj["rating"])
	assert.Equal(t, IRBool(false), obj["draft"])
	assert.Equal(t, IRArray{IRString("a"), IRString("b")}, obj["tags"])
	assert.Equal(t, IRString("2024-03-01T12:00:00Z"), obj["date"])
	assert.Equal(t, IRNull{}, obj["empty"])
	assert.Equal(t, IRObject{"1": IRString("one")}, obj["nested"])
}

func TestFromGoRejectsUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestObjectFromGoNil(t *testing.T) {
	obj, err := ObjectFromGo(nil)
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestToGoRoundTrip(t *testing.T) {
	in := map[string]any{
		"title": "x",
		"n":     int64(2),
		"f":     1.25,
		"list":  []any{true, nil},
	}
	v, err := FromGo(in)
	require.NoError(t, err)
	assert.Equal(t, in, ToGo(v))
}

func TestMarshalIRObjectKeyOrder(t *testing.T) {
	obj := IRObject{"b": IRInt(1), "a": IRFloat(2), "c": IRNull{}}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2.0,"b":1,"c":null}`, string(data))
}

func TestUnmarshalIRValueNumbers(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"i":7,"f":7.5,"e":1e3}`))
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRInt(7), obj["i"])
	assert.Equal(t, IRFloat(7.5), obj["f"])
	assert.Equal(t, IRFloat(1000), obj["e"])
}

func TestIRObjectUnmarshalJSONRejectsNonObject(t *testing.T) {
	var obj IRObject
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &obj))
	require.NoError(t, json.Unmarshal([]byte(`{"k":"v"}`), &obj))
	assert.Equal(t, IRObject{"k": IRString("v")}, obj)
}
