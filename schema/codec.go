// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/blinklabs-io/goindexer/cbor"
)

var (
	ErrUnknownType  = errors.New("unknown schema type")
	ErrTypeMismatch = errors.New("value does not match schema type")
)

// Codec encodes and decodes payloads according to a schema document
type Codec struct {
	doc *Document
}

// NewCodec returns a codec for the document
func NewCodec(doc *Document) *Codec {
	return &Codec{doc: doc}
}

// Document returns the schema document the codec was built from
func (c *Codec) Document() *Document {
	return c.doc
}

// Hash returns the hash of the schema document
func (c *Codec) Hash() []byte {
	return c.doc.Hash()
}

// Encode encodes the value as the named type. Records may be given as a Record, a
// map[string]any or a struct whose field names (or `schema` tags) match the record fields
func (c *Codec) Encode(typeName string, value any) ([]byte, error) {
	if !c.doc.Has(typeName) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	normalized, err := c.normalize(typeName, value, typeName)
	if err != nil {
		return nil, err
	}
	return cbor.Encode(normalized)
}

// Decode decodes a payload as the named type. Records decode to Record, lists to []any,
// unsigned integers to uint64 and signed integers to int64
func (c *Codec) Decode(typeName string, data []byte) (any, error) {
	if !c.doc.Has(typeName) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	raw, err := cbor.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typeName, err)
	}
	return c.convert(typeName, raw, typeName)
}

// Normalize returns the value as Decode would return it after an Encode round trip
func (c *Codec) Normalize(typeName string, value any) (any, error) {
	data, err := c.Encode(typeName, value)
	if err != nil {
		return nil, err
	}
	return c.Decode(typeName, data)
}

func mismatch(path string, expr string, value any) error {
	return fmt.Errorf(
		"%w: %s: expected %s, got %T",
		ErrTypeMismatch,
		path,
		expr,
		value,
	)
}

func (c *Codec) normalize(expr string, value any, path string) (any, error) {
	if elemExpr, ok := strings.CutPrefix(expr, listPrefix); ok {
		return c.normalizeList(elemExpr, value, path)
	}
	if primitiveKinds[expr] {
		return normalizePrimitive(expr, value, path)
	}
	def, ok := c.doc.Types[expr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, expr)
	}
	if def.Alias != "" {
		return c.normalize(def.Alias, value, path)
	}
	fields, err := recordFields(def, value, path, expr)
	if err != nil {
		return nil, err
	}
	ret := make([]any, len(def.Fields))
	for idx, field := range def.Fields {
		fieldPath := path + "." + field.Name
		fieldValue, present := fields[field.Name]
		if !present || fieldValue == nil {
			if field.Optional || field.Type == KindAny {
				ret[idx] = nil
				continue
			}
			return nil, fmt.Errorf(
				"%w: %s: missing required field",
				ErrTypeMismatch,
				fieldPath,
			)
		}
		tmp, err := c.normalize(field.Type, fieldValue, fieldPath)
		if err != nil {
			return nil, err
		}
		ret[idx] = tmp
	}
	return ret, nil
}

func (c *Codec) normalizeList(elemExpr string, value any, path string) (any, error) {
	if value == nil {
		return []any{}, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(path, listPrefix+elemExpr, value)
	}
	ret := make([]any, rv.Len())
	for i := range rv.Len() {
		tmp, err := c.normalize(
			elemExpr,
			rv.Index(i).Interface(),
			fmt.Sprintf("%s[%d]", path, i),
		)
		if err != nil {
			return nil, err
		}
		ret[i] = tmp
	}
	return ret, nil
}

// recordFields returns the record value as a map keyed by schema field name
func recordFields(def TypeDef, value any, path string, expr string) (map[string]any, error) {
	var ret map[string]any
	switch v := value.(type) {
	case nil:
		ret = map[string]any{}
	case Record:
		ret = v
	case map[string]any:
		ret = v
	default:
		rv := reflect.ValueOf(value)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return map[string]any{}, nil
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return nil, mismatch(path, expr, value)
		}
		ret = make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := range rt.NumField() {
			structField := rt.Field(i)
			if !structField.IsExported() {
				continue
			}
			name := structField.Name
			if tag, ok := structField.Tag.Lookup("schema"); ok {
				if tag == "-" {
					continue
				}
				name = tag
			}
			for _, field := range def.Fields {
				if strings.EqualFold(field.Name, name) {
					name = field.Name
					break
				}
			}
			ret[name] = rv.Field(i).Interface()
		}
	}
	for name := range ret {
		found := false
		for _, field := range def.Fields {
			if field.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf(
				"%w: %s: unknown field %s",
				ErrTypeMismatch,
				path,
				name,
			)
		}
	}
	return ret, nil
}

func normalizePrimitive(kind string, value any, path string) (any, error) {
	if kind == KindAny {
		return value, nil
	}
	if value == nil {
		return nil, mismatch(path, kind, value)
	}
	rv := reflect.ValueOf(value)
	switch kind {
	case KindUint:
		switch {
		case rv.CanUint():
			return rv.Uint(), nil
		case rv.CanInt() && rv.Int() >= 0:
			return uint64(rv.Int()), nil
		}
	case KindInt:
		switch {
		case rv.CanInt():
			return rv.Int(), nil
		case rv.CanUint() && rv.Uint() <= math.MaxInt64:
			return int64(rv.Uint()), nil // #nosec G115
		}
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindBytes:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.IsNil() {
				// A nil slice would encode as null
				return []byte{}, nil
			}
			return rv.Bytes(), nil
		}
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			ret := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(ret), rv)
			return ret, nil
		}
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindFloat:
		switch {
		case rv.CanFloat():
			return rv.Float(), nil
		case rv.CanInt():
			return float64(rv.Int()), nil
		case rv.CanUint():
			return float64(rv.Uint()), nil
		}
	}
	return nil, mismatch(path, kind, value)
}

func (c *Codec) convert(expr string, value any, path string) (any, error) {
	if elemExpr, ok := strings.CutPrefix(expr, listPrefix); ok {
		items, ok := value.([]any)
		if !ok {
			return nil, mismatch(path, expr, value)
		}
		ret := make([]any, len(items))
		for i, item := range items {
			tmp, err := c.convert(elemExpr, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			ret[i] = tmp
		}
		return ret, nil
	}
	if primitiveKinds[expr] {
		return convertPrimitive(expr, value, path)
	}
	def, ok := c.doc.Types[expr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, expr)
	}
	if def.Alias != "" {
		return c.convert(def.Alias, value, path)
	}
	items, ok := value.([]any)
	if !ok {
		return nil, mismatch(path, expr, value)
	}
	if len(items) > len(def.Fields) {
		return nil, fmt.Errorf(
			"%w: %s: %d items for %d fields",
			ErrTypeMismatch,
			path,
			len(items),
			len(def.Fields),
		)
	}
	ret := make(Record, len(def.Fields))
	for idx, field := range def.Fields {
		fieldPath := path + "." + field.Name
		var item any
		if idx < len(items) {
			item = items[idx]
		}
		if item == nil {
			if field.Optional || field.Type == KindAny {
				continue
			}
			return nil, fmt.Errorf(
				"%w: %s: missing required field",
				ErrTypeMismatch,
				fieldPath,
			)
		}
		tmp, err := c.convert(field.Type, item, fieldPath)
		if err != nil {
			return nil, err
		}
		ret[field.Name] = tmp
	}
	return ret, nil
}

func convertPrimitive(kind string, value any, path string) (any, error) {
	switch kind {
	case KindAny:
		return value, nil
	case KindUint:
		if v, ok := value.(uint64); ok {
			return v, nil
		}
	case KindInt:
		switch v := value.(type) {
		case int64:
			return v, nil
		case uint64:
			if v <= math.MaxInt64 {
				return int64(v), nil // #nosec G115
			}
		}
	case KindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case KindBytes:
		if v, ok := value.([]byte); ok {
			return v, nil
		}
	case KindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case KindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case uint64:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	}
	return nil, mismatch(path, kind, value)
}
