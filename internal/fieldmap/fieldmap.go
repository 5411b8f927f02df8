package fieldmap

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnsupportedFieldError reports a Zendesk field with no Halo mapping entry.
// Operators extend the mapping table rather than the code.
type UnsupportedFieldError struct {
	Field string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("no mapping for field %q", e.Field)
}

// UnsupportedValueError reports a mapped field whose value has no entry in
// the field's value mappings. Distinct from UnsupportedFieldError so the two
// gaps can be told apart in the mapping table.
type UnsupportedValueError struct {
	FieldID int64
	Value   any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("no value mapping for %v on field %d", e.Value, e.FieldID)
}

// Entry joins one Zendesk field to its Halo counterpart. HaloID is nil when
// there is no Halo equivalent and the field needs special handling.
type Entry struct {
	ZendeskID            int64            `json:"zendesk_id"`
	ZendeskTitle         string           `json:"zendesk_title"`
	IsZendeskCustomField bool             `json:"is_zendesk_custom_field"`
	HaloID               *int64           `json:"halo_id"`
	HaloTitle            string           `json:"halo_title"`
	SpecialTreatment     bool             `json:"special_treatment"`
	ValueMappings        map[string]int64 `json:"value_mappings,omitempty"`
}

// MapValue translates a Zendesk field value to its Halo value id. List
// values are mapped element-wise. A field without value mappings passes the
// value through unchanged.
func (e Entry) MapValue(v any) (any, error) {
	if len(e.ValueMappings) == 0 {
		return v, nil
	}
	if list, ok := v.([]any); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			mapped, err := e.mapScalar(item)
			if err != nil {
				return nil, err
			}
			out = append(out, mapped)
		}
		return out, nil
	}
	return e.mapScalar(v)
}

func (e Entry) mapScalar(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &UnsupportedValueError{FieldID: e.ZendeskID, Value: v}
	}
	id, ok := e.ValueMappings[s]
	if !ok {
		return nil, &UnsupportedValueError{FieldID: e.ZendeskID, Value: v}
	}
	return id, nil
}

// ReverseMapValue translates a Halo value id back to the Zendesk option
// value. Unknown ids pass through unchanged; the reverse direction is only
// used when rendering Halo responses and must not reject backend data.
func (e Entry) ReverseMapValue(v any) any {
	if len(e.ValueMappings) == 0 {
		return v
	}
	if list, ok := v.([]any); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			out = append(out, e.reverseScalar(item))
		}
		return out
	}
	return e.reverseScalar(v)
}

func (e Entry) reverseScalar(v any) any {
	var id int64
	switch n := v.(type) {
	case int64:
		id = n
	case float64:
		id = int64(n)
	default:
		return v
	}
	for option, mapped := range e.ValueMappings {
		if mapped == id {
			return option
		}
	}
	return v
}

// Table is the immutable field mapping lookup, built once at startup from a
// generated snapshot of both backends' field configuration.
type Table struct {
	byZendeskID map[int64]Entry
	byHaloID    map[int64]Entry
}

func New(entries []Entry) *Table {
	t := &Table{
		byZendeskID: make(map[int64]Entry, len(entries)),
		byHaloID:    make(map[int64]Entry, len(entries)),
	}
	for _, e := range entries {
		t.byZendeskID[e.ZendeskID] = e
		if e.HaloID != nil {
			t.byHaloID[*e.HaloID] = e
		}
	}
	return t
}

func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field map: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse field map: %w", err)
	}
	return New(entries), nil
}

func (t *Table) ByZendeskID(id int64) (Entry, bool) {
	e, ok := t.byZendeskID[id]
	return e, ok
}

func (t *Table) ByHaloID(id int64) (Entry, bool) {
	e, ok := t.byHaloID[id]
	return e, ok
}

func (t *Table) Len() int {
	return len(t.byZendeskID)
}
