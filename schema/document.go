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
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Primitive kinds
const (
	KindUint   = "uint"
	KindInt    = "int"
	KindString = "string"
	KindBytes  = "bytes"
	KindBool   = "bool"
	KindFloat  = "float"
	KindAny    = "any"
)

const listPrefix = "[]"

var primitiveKinds = map[string]bool{
	KindUint:   true,
	KindInt:    true,
	KindString: true,
	KindBytes:  true,
	KindBool:   true,
	KindFloat:  true,
	KindAny:    true,
}

var ErrInvalidDocument = errors.New("invalid schema document")

// Document is a schema document as served by a node. JSON documents are accepted as well,
// since they are valid YAML
type Document struct {
	Version string             `yaml:"version"`
	Types   map[string]TypeDef `yaml:"types"`
	raw     []byte
}

// TypeDef defines a named type as either a record with ordered fields or an alias of
// another type expression
type TypeDef struct {
	Fields []Field `yaml:"fields,omitempty"`
	Alias  string  `yaml:"alias,omitempty"`
}

// Field is a record field. Records are encoded as CBOR arrays in field order
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
}

// ParseDocument parses and validates a schema document
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	doc.raw = append([]byte(nil), data...)
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Hash returns the blake2b-256 hash of the document as received
func (d *Document) Hash() []byte {
	sum := blake2b.Sum256(d.raw)
	return sum[:]
}

// Has returns true if the document defines the named type
func (d *Document) Has(typeName string) bool {
	_, ok := d.Types[typeName]
	return ok
}

func (d *Document) validate() error {
	if len(d.Types) == 0 {
		return fmt.Errorf("%w: no types defined", ErrInvalidDocument)
	}
	for name, def := range d.Types {
		if primitiveKinds[name] || strings.HasPrefix(name, listPrefix) {
			return fmt.Errorf(
				"%w: type name %q is reserved",
				ErrInvalidDocument,
				name,
			)
		}
		if def.Alias != "" && len(def.Fields) > 0 {
			return fmt.Errorf(
				"%w: type %s has both fields and an alias",
				ErrInvalidDocument,
				name,
			)
		}
		if def.Alias != "" {
			if err := d.checkTypeExpr(def.Alias); err != nil {
				return fmt.Errorf("%w: type %s: %w", ErrInvalidDocument, name, err)
			}
			if err := d.checkAliasCycle(name); err != nil {
				return err
			}
			continue
		}
		seen := make(map[string]bool, len(def.Fields))
		for _, field := range def.Fields {
			if field.Name == "" {
				return fmt.Errorf(
					"%w: type %s has a field without a name",
					ErrInvalidDocument,
					name,
				)
			}
			if seen[field.Name] {
				return fmt.Errorf(
					"%w: type %s has duplicate field %s",
					ErrInvalidDocument,
					name,
					field.Name,
				)
			}
			seen[field.Name] = true
			if err := d.checkTypeExpr(field.Type); err != nil {
				return fmt.Errorf(
					"%w: type %s field %s: %w",
					ErrInvalidDocument,
					name,
					field.Name,
					err,
				)
			}
		}
	}
	return nil
}

func (d *Document) checkTypeExpr(expr string) error {
	for strings.HasPrefix(expr, listPrefix) {
		expr = strings.TrimPrefix(expr, listPrefix)
	}
	if expr == "" {
		return errors.New("empty type expression")
	}
	if primitiveKinds[expr] {
		return nil
	}
	if _, ok := d.Types[expr]; !ok {
		return fmt.Errorf("unknown type %s", expr)
	}
	return nil
}

func (d *Document) checkAliasCycle(start string) error {
	seen := map[string]bool{}
	name := start
	for {
		if seen[name] {
			return fmt.Errorf(
				"%w: alias cycle through type %s",
				ErrInvalidDocument,
				start,
			)
		}
		seen[name] = true
		def, ok := d.Types[name]
		if !ok || def.Alias == "" {
			return nil
		}
		name = def.Alias
	}
}
