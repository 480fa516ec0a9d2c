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

package protocol_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateKnownCode(t *testing.T) {
	err := protocol.Translate(3003, "something the server said")
	assert.Equal(t, protocol.CategoryValidation, err.Category)
	assert.Equal(t, "Invalid address format", err.Message)
	assert.True(t, errors.Is(err, protocol.ErrInvalidAddress))
	assert.False(t, errors.Is(err, protocol.ErrInvalidHash))
}

func TestTranslateUnknownCode(t *testing.T) {
	testDefs := []struct {
		code     protocol.ErrorCode
		category protocol.Category
	}{
		{code: 999, category: protocol.CategoryProtocol},
		{code: 1500, category: protocol.CategoryAuth},
		{code: 2999, category: protocol.CategoryResource},
		{code: 3999, category: protocol.CategoryValidation},
		{code: 9999, category: protocol.CategoryInternal},
	}
	for _, testDef := range testDefs {
		err := protocol.Translate(testDef.code, "")
		assert.Equal(t, "Unknown error", err.Message, "code %d", testDef.code)
		assert.Equal(t, testDef.category, err.Category, "code %d", testDef.code)
	}
	err := protocol.Translate(2500, "quota gone")
	assert.Equal(t, "quota gone", err.Message)
}

func TestTranslateClientCode(t *testing.T) {
	clientErrs := []*protocol.Error{
		protocol.ErrRequestTimeout,
		protocol.ErrConnectionClosed,
		protocol.ErrTooManyPendingRequests,
		protocol.ErrReconnecting,
		protocol.ErrClientClosed,
		protocol.ErrRequestIdExhausted,
	}
	for _, clientErr := range clientErrs {
		assert.True(t, clientErr.Code.Client(), clientErr.Code.String())
		err := protocol.Translate(clientErr.Code, "")
		assert.Equal(t, protocol.CategoryInternal, err.Category, clientErr.Code.String())
		assert.Equal(t, "Unknown error", err.Message)
		assert.False(t, errors.Is(err, clientErr), clientErr.Code.String())
	}
	// Former client codes in the protocol range are ordinary unknown server codes
	for _, code := range []protocol.ErrorCode{6, 7, 8, 10, 12} {
		err := protocol.Translate(code, "slow down")
		assert.Equal(t, protocol.CategoryProtocol, err.Category)
		assert.Equal(t, "slow down", err.Message)
		assert.False(t, errors.Is(err, protocol.ErrRequestTimeout))
		assert.False(t, errors.Is(err, protocol.ErrTooManyPendingRequests))
	}
	assert.False(t, protocol.ErrorCode(10999).Client())
	assert.False(t, protocol.CodeInternalError.Client())
}

func TestErrorCategories(t *testing.T) {
	testDefs := []struct {
		err      *protocol.Error
		category protocol.Category
	}{
		{protocol.ErrMalformedMessage, protocol.CategoryProtocol},
		{protocol.ErrUnexpectedResponse, protocol.CategoryProtocol},
		{protocol.ErrClientClosed, protocol.CategoryClient},
		{protocol.ErrRequestTimeout, protocol.CategoryClient},
		{protocol.ErrInvalidCredentials, protocol.CategoryAuth},
		{protocol.ErrRateLimited, protocol.CategoryResource},
		{protocol.ErrRangeTooLarge, protocol.CategoryValidation},
		{protocol.ErrServiceUnavailable, protocol.CategoryInternal},
		{protocol.ErrRequestIdExhausted, protocol.CategoryClient},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.category, testDef.err.Category, testDef.err.Code.String())
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("broken pipe")
	err := protocol.ErrConnectionClosed.WithRequestId(7).Wrap(cause)
	wrapped := fmt.Errorf("call failed: %w", err)
	assert.True(t, errors.Is(wrapped, protocol.ErrConnectionClosed))
	assert.True(t, errors.Is(wrapped, cause))
	var protoErr *protocol.Error
	require.ErrorAs(t, wrapped, &protoErr)
	assert.Equal(t, uint32(7), protoErr.RequestId)
	assert.Contains(t, protoErr.Error(), "request 7")
	assert.Contains(t, protoErr.Error(), "broken pipe")
	// Sentinels are not modified by building instances
	assert.Equal(t, uint32(0), protocol.ErrConnectionClosed.RequestId)
	assert.Nil(t, protocol.ErrConnectionClosed.Err)
	category, ok := protocol.CategoryOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, protocol.CategoryClient, category)
	_, ok = protocol.CategoryOf(cause)
	assert.False(t, ok)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "InvalidAddress", protocol.CodeInvalidAddress.String())
	assert.Equal(t, "Unknown(77)", protocol.ErrorCode(77).String())
}
