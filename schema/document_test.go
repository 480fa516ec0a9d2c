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

package schema_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/goindexer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentJSON(t *testing.T) {
	doc, err := schema.ParseDocument([]byte(`{
		"version": "2",
		"types": {
			"Point": {"fields": [{"name": "x", "type": "int"}, {"name": "y", "type": "int"}]},
			"Path": {"alias": "[]Point"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "2", doc.Version)
	assert.True(t, doc.Has("Point"))
	assert.True(t, doc.Has("Path"))
	assert.False(t, doc.Has("Line"))
	assert.Len(t, doc.Hash(), 32)
}

func TestParseDocumentErrors(t *testing.T) {
	testDefs := []struct {
		name string
		doc  string
	}{
		{"empty", `version: "1"`},
		{"not yaml", `types: [`},
		{"unknown field type", "types:\n  A:\n    fields:\n      - {name: x, type: Missing}\n"},
		{"unknown list type", "types:\n  A:\n    fields:\n      - {name: x, type: \"[]Missing\"}\n"},
		{"duplicate field", "types:\n  A:\n    fields:\n      - {name: x, type: uint}\n      - {name: x, type: uint}\n"},
		{"unnamed field", "types:\n  A:\n    fields:\n      - {type: uint}\n"},
		{"reserved name", "types:\n  uint:\n    alias: int\n"},
		{"alias cycle", "types:\n  A:\n    alias: B\n  B:\n    alias: A\n"},
		{"fields and alias", "types:\n  A:\n    alias: uint\n    fields:\n      - {name: x, type: uint}\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := schema.ParseDocument([]byte(testDef.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, schema.ErrInvalidDocument), err.Error())
		})
	}
}

func TestDocumentHashStable(t *testing.T) {
	a, err := schema.ParseDocument(schema.BuiltinDocument())
	require.NoError(t, err)
	b, err := schema.ParseDocument(schema.BuiltinDocument())
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), b.Hash())
	c, err := schema.ParseDocument(append(schema.BuiltinDocument(), '\n'))
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), c.Hash())
}
