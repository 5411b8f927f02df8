package fieldmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func haloID(id int64) *int64 {
	return &id
}

func TestMapValueScalar(t *testing.T) {
	e := Entry{
		ZendeskID:     100,
		ValueMappings: map[string]int64{"red": 11, "blue": 12},
	}
	v, err := e.MapValue("blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 12 {
		t.Fatalf("expected 12, got %v", v)
	}
}

func TestMapValueList(t *testing.T) {
	e := Entry{
		ZendeskID:     100,
		ValueMappings: map[string]int64{"red": 11, "blue": 12},
	}
	v, err := e.MapValue([]any{"red", "blue"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := v.([]any)
	if len(list) != 2 || list[0].(int64) != 11 || list[1].(int64) != 12 {
		t.Fatalf("unexpected mapped list: %v", list)
	}
}

func TestMapValueUnknown(t *testing.T) {
	e := Entry{
		ZendeskID:     100,
		ValueMappings: map[string]int64{"red": 11},
	}
	_, err := e.MapValue("green")
	var uv *UnsupportedValueError
	if !errors.As(err, &uv) {
		t.Fatalf("expected UnsupportedValueError, got %v", err)
	}
	if uv.FieldID != 100 {
		t.Fatalf("expected field id 100, got %d", uv.FieldID)
	}
}

func TestMapValuePassthroughWithoutMappings(t *testing.T) {
	e := Entry{ZendeskID: 100}
	v, err := e.MapValue("anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "anything" {
		t.Fatalf("expected passthrough, got %v", v)
	}
}

func TestReverseMapValue(t *testing.T) {
	e := Entry{
		ZendeskID:     100,
		ValueMappings: map[string]int64{"red": 11, "blue": 12},
	}
	if got := e.ReverseMapValue(int64(11)); got != "red" {
		t.Fatalf("expected red, got %v", got)
	}
	if got := e.ReverseMapValue(float64(12)); got != "blue" {
		t.Fatalf("expected blue, got %v", got)
	}
	if got := e.ReverseMapValue(int64(99)); got != int64(99) {
		t.Fatalf("expected unknown id passthrough, got %v", got)
	}
}

func TestLoad(t *testing.T) {
	content := `[
		{"zendesk_id": 1, "zendesk_title": "Subject", "is_zendesk_custom_field": false, "halo_id": 10, "halo_title": "Summary", "special_treatment": false},
		{"zendesk_id": 2, "zendesk_title": "Colour", "is_zendesk_custom_field": true, "halo_id": 20, "halo_title": "Colour", "special_treatment": false, "value_mappings": {"red": 11}},
		{"zendesk_id": 3, "zendesk_title": "Legacy", "is_zendesk_custom_field": true, "halo_id": null, "halo_title": "", "special_treatment": true}
	]`
	path := filepath.Join(t.TempDir(), "fieldmap.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", table.Len())
	}

	e, ok := table.ByZendeskID(2)
	if !ok {
		t.Fatalf("expected entry for zendesk id 2")
	}
	if e.HaloID == nil || *e.HaloID != 20 {
		t.Fatalf("unexpected halo id: %v", e.HaloID)
	}
	if _, ok := table.ByHaloID(20); !ok {
		t.Fatalf("expected reverse lookup for halo id 20")
	}

	legacy, ok := table.ByZendeskID(3)
	if !ok {
		t.Fatalf("expected entry for zendesk id 3")
	}
	if legacy.HaloID != nil || !legacy.SpecialTreatment {
		t.Fatalf("expected special-treatment entry without halo id, got %+v", legacy)
	}

	if _, ok := table.ByZendeskID(999999); ok {
		t.Fatalf("expected no entry for unknown id")
	}
}
