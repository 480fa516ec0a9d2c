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
	"testing"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/stretchr/testify/assert"
)

func TestBuiltinCoversCatalog(t *testing.T) {
	doc := schema.Builtin().Document()
	for _, method := range protocol.Methods {
		assert.True(t, doc.Has(method.RequestType), "%s request type %s", method, method.RequestType)
		assert.True(t, doc.Has(method.ResponseType), "%s response type %s", method, method.ResponseType)
	}
	for _, topic := range protocol.Topics {
		assert.True(t, doc.Has(topic.NotificationType), topic.NotificationType)
	}
	assert.True(t, doc.Has(protocol.TypeErrorResponse))
}
