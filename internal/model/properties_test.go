package model_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/raysh454/eddy/internal/model"
)

func TestPropertyMap_SetKeepsFirstInsertionOrder(t *testing.T) {
	t.Parallel()
	m := model.NewPropertyMap("color", "red", "margin", "0")
	m.Set("color", "blue")
	m.Set("padding", "4px")

	want := []string{"color", "margin", "padding"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys: got %v, want %v", got, want)
	}
	if v, _ := m.Get("color"); v != "blue" {
		t.Errorf("color: got %q, want blue", v)
	}
}

func TestPropertyMap_MergeIsUnionWithOverride(t *testing.T) {
	t.Parallel()
	base := model.NewPropertyMap("color", "red", "font-size", "12px")
	base.Merge(model.NewPropertyMap("color", "blue", "margin", "0"))

	want := model.NewPropertyMap("color", "blue", "font-size", "12px", "margin", "0")
	if !base.Equal(want) {
		t.Fatalf("merged map: got %v, want %v", base.Keys(), want.Keys())
	}
}

func TestPropertyMap_CloneIsIndependent(t *testing.T) {
	t.Parallel()
	orig := model.NewPropertyMap("color", "red")
	cp := orig.Clone()
	cp.Set("color", "green")
	cp.Set("margin", "0")

	if v, _ := orig.Get("color"); v != "red" {
		t.Errorf("original mutated through clone: %q", v)
	}
	if orig.Len() != 1 {
		t.Errorf("original length changed: %d", orig.Len())
	}
}

func TestPropertyMap_JSONPreservesOrder(t *testing.T) {
	t.Parallel()
	m := model.NewPropertyMap("z-index", "3", "color", "red", "align-items", "center")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"z-index":"3","color":"red","align-items":"center"}` {
		t.Fatalf("unexpected JSON: %s", data)
	}

	var back model.PropertyMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(m) {
		t.Errorf("round trip changed map: %v", back.Keys())
	}
}

func TestPropertyMap_UnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()
	var m model.PropertyMap
	if err := json.Unmarshal([]byte(`["color"]`), &m); err == nil {
		t.Fatal("expected error for array input")
	}
	if err := json.Unmarshal([]byte(`{"color": 3}`), &m); err == nil {
		t.Fatal("expected error for non-string value")
	}
}
