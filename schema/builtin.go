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
	_ "embed"
	"fmt"
	"sync"
)

//go:embed builtin.yaml
var builtinDocument []byte

var (
	builtinCodec     *Codec
	builtinCodecOnce sync.Once
)

// Builtin returns a codec for the schema document bundled with the module. It describes
// every payload type in the wire catalog
func Builtin() *Codec {
	builtinCodecOnce.Do(func() {
		doc, err := ParseDocument(builtinDocument)
		if err != nil {
			panic(fmt.Sprintf("bundled schema document is invalid: %s", err))
		}
		builtinCodec = NewCodec(doc)
	})
	return builtinCodec
}

// BuiltinDocument returns the raw bundled schema document
func BuiltinDocument() []byte {
	return append([]byte(nil), builtinDocument...)
}
