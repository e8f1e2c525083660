package tfstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": 3}
	b := map[string]any{"c": 3, "a": 2, "b": 1}

	assert.Equal(t, string(CanonicalJSON(a)), string(CanonicalJSON(b)))
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(CanonicalJSON(a)))
}

func TestCanonicalJSONNestedStructures(t *testing.T) {
	v := map[string]any{
		"list": []any{map[string]any{"z": 1, "a": 2}, "x"},
	}
	assert.Equal(t, `{"list":[{"a":2,"z":1},"x"]}`, string(CanonicalJSON(v)))
}

func TestCanonicalJSONNil(t *testing.T) {
	assert.Equal(t, "null", string(CanonicalJSON(nil)))
}
