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

// Package cbor wraps github.com/fxamacker/cbor/v2 with the encoder and decoder modes
// used for frame payloads.
//
// Encoding is deterministic (core deterministic map key ordering), so the same value
// always produces the same payload bytes. Decoding uses a cached mode that rejects
// duplicate map keys and limits nesting depth.
//
// Generic decoding (DecodeValue) produces:
//   - uint64 for unsigned integers and int64 for negative integers
//   - []byte for byte strings and string for text strings
//   - []any for lists and map[any]any for maps
//   - float64 for floating point values
//   - nil for CBOR null
package cbor
