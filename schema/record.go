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

// Record is a decoded record value keyed by field name. Absent optional fields are not
// present in the map
type Record map[string]any

// Uint returns the named field as an unsigned integer
func (r Record) Uint(name string) (uint64, bool) {
	v, ok := r[name].(uint64)
	return v, ok
}

// Int returns the named field as a signed integer
func (r Record) Int(name string) (int64, bool) {
	v, ok := r[name].(int64)
	return v, ok
}

// String returns the named field as a string
func (r Record) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

// Bytes returns the named field as a byte slice
func (r Record) Bytes(name string) ([]byte, bool) {
	v, ok := r[name].([]byte)
	return v, ok
}

// Bool returns the named field as a boolean
func (r Record) Bool(name string) (bool, bool) {
	v, ok := r[name].(bool)
	return v, ok
}

// Float returns the named field as a float
func (r Record) Float(name string) (float64, bool) {
	v, ok := r[name].(float64)
	return v, ok
}

// Record returns the named field as a nested record
func (r Record) Record(name string) (Record, bool) {
	v, ok := r[name].(Record)
	return v, ok
}

// List returns the named field as a list
func (r Record) List(name string) ([]any, bool) {
	v, ok := r[name].([]any)
	return v, ok
}
