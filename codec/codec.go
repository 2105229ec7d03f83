// Package codec converts live values to and from a JSON-compatible tagged tree.
//
// Primitives, sequences and string-keyed maps map onto their JSON equivalents.
// Any other value must implement Reducer; it is written as a two-field record
//
//	{"type_id": "<id>", "value": {<encoded fields>}}
//
// and rebuilt on decode by the constructor registered for <id>. Fixed-size
// arrays (the tuple analogue) are written as plain sequences and therefore
// come back as []any: element values and order survive, the array-ness does
// not.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrLookup is returned when a type id is not registered or has no
	// rebuild function.
	ErrLookup = errors.New("codec: type id not registered")
	// ErrUnsupported is returned for values the codec cannot represent.
	ErrUnsupported = errors.New("codec: unsupported value")
	// ErrSealed is returned by Register once the registry has decoded.
	ErrSealed = errors.New("codec: registry sealed")
	// ErrField is returned by the field helpers for a missing or mistyped field.
	ErrField = errors.New("codec: bad field")
)

const (
	KeyTypeID = "type_id"
	KeyValue  = "value"

	// typeRefID tags a reference to a type rather than an instance.
	typeRefID = "type"
	// mapID tags a plain mapping whose keys would otherwise read as a record.
	mapID = "map[string]any"
)

// Reducer is implemented by custom types that can be written as a field map.
type Reducer interface {
	Reduce() map[string]any
}

// Identifier lets a type choose its own type id. Generic containers use it so
// every instantiation shares one id.
type Identifier interface {
	TypeID() string
}

// RebuildFunc reconstructs a value from its decoded field map.
type RebuildFunc func(fields map[string]any) (any, error)

// Default is the process-wide registry. Packages register their types into it
// from init, before anything decodes.
var Default = NewRegistry()

func Encode(v any) (any, error)          { return Default.Encode(v) }
func Decode(tree any) (any, error)       { return Default.Decode(tree) }
func Marshal(v any) ([]byte, error)      { return Default.Marshal(v) }
func Unmarshal(data []byte) (any, error) { return Default.Unmarshal(data) }

// Marshal encodes v and renders the tree as JSON.
func (r *Registry) Marshal(v any) ([]byte, error) {
	tree, err := r.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Unmarshal parses JSON keeping numbers exact and decodes the tree.
func (r *Registry) Unmarshal(data []byte) (any, error) {
	tree, err := ParseTree(data)
	if err != nil {
		return nil, err
	}
	return r.Decode(tree)
}

// ParseTree parses JSON into a tree suitable for Decode.
func ParseTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("codec: parse: %w", err)
	}
	return tree, nil
}

func qualifiedName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
