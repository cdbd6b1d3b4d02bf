// Package rowcodec is the bridge between ordinary Go structs and the
// opaque row bytes internal/exec moves around. It encodes a struct to
// JSON (the same "marshal the whole struct, project one field on demand"
// shape the teacher's solana-tx-meta-parsers json.go uses for its wire
// types) and derives a schema.EntityModel from the struct's fields via
// reflection, so a caller registering an entity only writes a Go type
// plus a primary-key/index declaration, never a hand-rolled codec.
package rowcodec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"icydb/internal/errs"
	"icydb/internal/schema"
	"icydb/internal/value"
)

// FieldWidths gives the fixed encoded width of every value.Kind that
// EntityBinding.StorageWidth can legally describe. Variable-width kinds
// (Text, Blob, Principal, UintBig, IntBig) are absent: they have no
// single width, so they cannot back a primary key under this engine's
// fixed-width data-key framing (spec §3.2).
var FieldWidths = map[value.Kind]int{
	value.KindBool:      1,
	value.KindUint:      8,
	value.KindInt:       8,
	value.KindUint128:   16,
	value.KindInt128:    16,
	value.KindFloat32:   4,
	value.KindFloat64:   8,
	value.KindSubaccount: 32,
	value.KindUlid:      16,
	value.KindDate:      4,
	value.KindTimestamp: 8,
	value.KindDuration:  8,
}

// JSONCodec implements exec.RowCodec for one Go struct type T: rows are
// the struct's JSON encoding, fields are projected by re-decoding into a
// map and converting the named field's raw JSON to a value.Value per its
// declared schema.FieldModel.Kind.
type JSONCodec struct {
	fields map[string]value.Kind
}

// NewJSONCodec builds a JSONCodec from the field kinds schema.EntityModel
// already derived for a type (see DeriveFields); the codec itself only
// needs the kind per field name, not the full model.
func NewJSONCodec(fields []schema.FieldModel) *JSONCodec {
	kinds := make(map[string]value.Kind, len(fields))
	for _, f := range fields {
		kinds[f.Name] = f.Type
	}
	return &JSONCodec{fields: kinds}
}

// Field decodes row (a JSON object) and converts its named field to a
// value.Value. A field absent from the JSON object, or explicitly JSON
// null, reports present=false.
func (c *JSONCodec) Field(row []byte, field string) (value.Value, bool, error) {
	kind, declared := c.fields[field]
	if !declared {
		return value.Value{}, false, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(row, &raw); err != nil {
		return value.Value{}, false, errs.Wrap(errs.Corruption, errs.Store, "rowcodec: malformed row JSON", err)
	}
	msg, present := raw[field]
	if !present || string(msg) == "null" {
		return value.Value{}, false, nil
	}
	v, err := decodeJSONValue(msg, kind)
	if err != nil {
		return value.Value{}, false, err
	}
	return v, true, nil
}

// Encode marshals entity (a pointer to, or value of, a registered struct
// type) to its row bytes.
func Encode(entity any) ([]byte, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, errs.Store, "rowcodec: failed to encode entity", err)
	}
	return raw, nil
}

// Decode unmarshals row bytes into out, a pointer to the registered
// struct type.
func Decode(row []byte, out any) error {
	if err := json.Unmarshal(row, out); err != nil {
		return errs.Wrap(errs.Corruption, errs.Store, "rowcodec: failed to decode row", err)
	}
	return nil
}

// DeriveFields reflects over t's exported fields and builds the
// schema.FieldModel list that describes them. A field's JSON name (its
// `json:"..."` tag, falling back to the Go field name) becomes the schema
// field name every predicate/order/index reference uses.
func DeriveFields(t reflect.Type) ([]schema.FieldModel, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errs.Newf(errs.Validation, errs.Executor, "rowcodec: %s is not a struct type", t)
	}
	var fields []schema.FieldModel
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		name, omit := jsonFieldName(sf)
		if omit {
			continue
		}
		kind, nullable, err := goKindToValueKind(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: field %s: %w", sf.Name, err)
		}
		fields = append(fields, schema.FieldModel{Name: name, Type: kind, Nullable: nullable})
	}
	return fields, nil
}

func jsonFieldName(sf reflect.StructField) (name string, omit bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if tag == "" {
		return sf.Name, false
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			if i == 0 {
				return sf.Name, false
			}
			return tag[:i], false
		}
	}
	return tag, false
}

func goKindToValueKind(t reflect.Type) (value.Kind, bool, error) {
	nullable := false
	for t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return value.KindBool, nullable, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.KindInt, nullable, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.KindUint, nullable, nil
	case reflect.Float32:
		return value.KindFloat32, nullable, nil
	case reflect.Float64:
		return value.KindFloat64, nullable, nil
	case reflect.String:
		return value.KindText, nullable, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return value.KindBlob, nullable, nil
		}
		return value.KindList, nullable, nil
	default:
		return 0, false, fmt.Errorf("unsupported Go kind %s", t.Kind())
	}
}

func decodeJSONValue(raw json.RawMessage, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case value.KindUint:
		var u uint64
		if err := json.Unmarshal(raw, &u); err != nil {
			return value.Value{}, err
		}
		return value.Uint(u), nil
	case value.KindInt:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return value.Value{}, err
		}
		return value.Int(i), nil
	case value.KindFloat32:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return value.Value{}, err
		}
		return value.Float32V(float32(f)), nil
	case value.KindFloat64:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return value.Value{}, err
		}
		return value.Float64V(f), nil
	case value.KindText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return value.Value{}, err
		}
		return value.Text(s), nil
	case value.KindBlob:
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return value.Value{}, err
		}
		return value.Blob(b), nil
	default:
		return value.Value{}, errs.Newf(errs.Unsupported, errs.Executor, "rowcodec: unsupported field kind %s", kind)
	}
}

// ToValue converts an already-typed Go scalar (as supplied to a
// QueryBuilder.Where call) into a value.Value matching kind, failing if
// the Go type does not match.
func ToValue(goVal any, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.KindBool:
		if b, ok := goVal.(bool); ok {
			return value.Bool(b), nil
		}
	case value.KindUint:
		if u, ok := toUint64(goVal); ok {
			return value.Uint(u), nil
		}
	case value.KindInt:
		if i, ok := toInt64(goVal); ok {
			return value.Int(i), nil
		}
	case value.KindFloat32:
		if f, ok := toFloat64(goVal); ok {
			return value.Float32V(float32(f)), nil
		}
	case value.KindFloat64:
		if f, ok := toFloat64(goVal); ok {
			return value.Float64V(f), nil
		}
	case value.KindText:
		if s, ok := goVal.(string); ok {
			return value.Text(s), nil
		}
	case value.KindBlob:
		if b, ok := goVal.([]byte); ok {
			return value.Blob(b), nil
		}
	}
	return value.Value{}, errs.Newf(errs.Validation, errs.Executor, "rowcodec: Go value %v does not match field kind %s", goVal, kind)
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
