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

// Package protocol contains the wire catalog shared by the client components: opcodes and
// the methods built from them, the error catalog, and the connection state machine
package protocol

// ProtocolVersion is the wire protocol version announced in the handshake
const ProtocolVersion uint64 = 1

// HeaderSize is the size of the fixed frame header: one opcode byte followed by a
// big-endian 32-bit request ID
const HeaderSize = 5

// ConnectionRequestId is the request ID of frames that are not tied to a request, such as
// notifications and connection-level errors
const ConnectionRequestId uint32 = 0
