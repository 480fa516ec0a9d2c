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

package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode is a numeric error code as carried in ERROR frames
type ErrorCode uint32

// Category groups error codes by range and decides how an error propagates
type Category uint8

const (
	CategoryProtocol   Category = 1
	CategoryAuth       Category = 2
	CategoryResource   Category = 3
	CategoryValidation Category = 4
	CategoryInternal   Category = 5
	CategoryClient     Category = 6
)

func (c Category) String() string {
	switch c {
	case CategoryProtocol:
		return "protocol"
	case CategoryAuth:
		return "auth"
	case CategoryResource:
		return "resource"
	case CategoryValidation:
		return "validation"
	case CategoryInternal:
		return "internal"
	case CategoryClient:
		return "client"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Protocol errors (1-999)
const (
	CodeMalformedMessage           ErrorCode = 1
	CodeUnknownOpcode              ErrorCode = 2
	CodeUnsupportedProtocolVersion ErrorCode = 3
	CodeHandshakeRequired          ErrorCode = 4
	CodeHandshakeOrderViolation    ErrorCode = 5
	CodeMessageTooLarge            ErrorCode = 9
	CodeUnexpectedResponse         ErrorCode = 11
)

// Auth errors (1000-1999)
const (
	CodeAuthRequired       ErrorCode = 1000
	CodeInvalidCredentials ErrorCode = 1001
	CodeSessionExpired     ErrorCode = 1002
	CodePermissionDenied   ErrorCode = 1003
)

// Resource errors (2000-2999)
const (
	CodeNotFound             ErrorCode = 2000
	CodeBlockNotFound        ErrorCode = 2001
	CodeTransactionNotFound  ErrorCode = 2002
	CodeEpochNotFound        ErrorCode = 2003
	CodeContractNotFound     ErrorCode = 2004
	CodeSubscriptionNotFound ErrorCode = 2005
	CodeRateLimited          ErrorCode = 2006
)

// Validation errors (3000-3999)
const (
	CodeInvalidParams      ErrorCode = 3000
	CodeInvalidBlockNumber ErrorCode = 3001
	CodeInvalidHash        ErrorCode = 3002
	CodeInvalidAddress     ErrorCode = 3003
	CodeInvalidTransaction ErrorCode = 3004
	CodeInvalidFilter      ErrorCode = 3005
	CodeRangeTooLarge      ErrorCode = 3006
)

// Internal errors (4000+)
const (
	CodeInternalError      ErrorCode = 4000
	CodeDatabaseError      ErrorCode = 4001
	CodeServiceUnavailable ErrorCode = 4002
)

// Client errors (10000+) are raised locally. They are never read from an ERROR frame
const (
	CodeRequestTimeout         ErrorCode = 10000
	CodeConnectionClosed       ErrorCode = 10001
	CodeTooManyPendingRequests ErrorCode = 10002
	CodeReconnecting           ErrorCode = 10003
	CodeClientClosed           ErrorCode = 10004
	CodeRequestIdExhausted     ErrorCode = 10005
)

const clientCodeBase ErrorCode = 10000

const unknownErrorMessage = "Unknown error"

type errorCatalogEntry struct {
	name    string
	message string
}

var errorCatalog = map[ErrorCode]errorCatalogEntry{
	CodeMalformedMessage:           {"MalformedMessage", "Malformed message"},
	CodeUnknownOpcode:              {"UnknownOpcode", "Unknown opcode"},
	CodeUnsupportedProtocolVersion: {"UnsupportedProtocolVersion", "Unsupported protocol version"},
	CodeHandshakeRequired:          {"HandshakeRequired", "Handshake required"},
	CodeHandshakeOrderViolation:    {"HandshakeOrderViolation", "Unexpected message before handshake completed"},
	CodeMessageTooLarge:            {"MessageTooLarge", "Message too large"},
	CodeUnexpectedResponse:         {"UnexpectedResponse", "Response opcode does not match request"},
	CodeAuthRequired:               {"AuthRequired", "Authentication required"},
	CodeInvalidCredentials:         {"InvalidCredentials", "Invalid credentials"},
	CodeSessionExpired:             {"SessionExpired", "Session expired"},
	CodePermissionDenied:           {"PermissionDenied", "Permission denied"},
	CodeNotFound:                   {"NotFound", "Resource not found"},
	CodeBlockNotFound:              {"BlockNotFound", "Block not found"},
	CodeTransactionNotFound:        {"TransactionNotFound", "Transaction not found"},
	CodeEpochNotFound:              {"EpochNotFound", "Epoch not found"},
	CodeContractNotFound:           {"ContractNotFound", "Contract not found"},
	CodeSubscriptionNotFound:       {"SubscriptionNotFound", "Subscription not found"},
	CodeRateLimited:                {"RateLimited", "Rate limit exceeded"},
	CodeInvalidParams:              {"InvalidParams", "Invalid parameters"},
	CodeInvalidBlockNumber:         {"InvalidBlockNumber", "Invalid block number"},
	CodeInvalidHash:                {"InvalidHash", "Invalid hash format"},
	CodeInvalidAddress:             {"InvalidAddress", "Invalid address format"},
	CodeInvalidTransaction:         {"InvalidTransaction", "Invalid transaction"},
	CodeInvalidFilter:              {"InvalidFilter", "Invalid subscription filter"},
	CodeRangeTooLarge:              {"RangeTooLarge", "Requested range too large"},
	CodeInternalError:              {"InternalError", "Internal server error"},
	CodeDatabaseError:              {"DatabaseError", "Database error"},
	CodeServiceUnavailable:         {"ServiceUnavailable", "Service unavailable"},
	CodeRequestTimeout:             {"RequestTimeout", "Request timed out"},
	CodeConnectionClosed:           {"ConnectionClosed", "Connection closed"},
	CodeTooManyPendingRequests:     {"TooManyPendingRequests", "Too many pending requests"},
	CodeReconnecting:               {"Reconnecting", "Connection lost, reconnecting"},
	CodeClientClosed:               {"ClientClosed", "Client closed"},
	CodeRequestIdExhausted:         {"RequestIdExhausted", "Request ID space exhausted"},
}

func (c ErrorCode) String() string {
	if entry, ok := errorCatalog[c]; ok {
		return entry.name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(c))
}

// Category returns the category of the code. Catalog client codes are CategoryClient, any
// other code takes the category of the server range it falls into
func (c ErrorCode) Category() Category {
	if c.Client() {
		return CategoryClient
	}
	return c.serverCategory()
}

func (c ErrorCode) serverCategory() Category {
	switch {
	case c < 1000:
		return CategoryProtocol
	case c < 2000:
		return CategoryAuth
	case c < 3000:
		return CategoryResource
	case c < 4000:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// Message returns the catalog message for the code, or "Unknown error"
func (c ErrorCode) Message() string {
	if entry, ok := errorCatalog[c]; ok {
		return entry.message
	}
	return unknownErrorMessage
}

// Known returns true if the code is part of the catalog
func (c ErrorCode) Known() bool {
	_, ok := errorCatalog[c]
	return ok
}

// Client returns true for catalog codes of conditions raised by the client itself
func (c ErrorCode) Client() bool {
	return c >= clientCodeBase && c.Known()
}

// Error is a catalog error. Two errors match with errors.Is when their codes and categories
// are equal
type Error struct {
	Code      ErrorCode
	Category  Category
	Message   string
	RequestId uint32
	Err       error
}

// NewError returns a catalog error for the specified code with the catalog message
func NewError(code ErrorCode) *Error {
	return &Error{
		Code:     code,
		Category: code.Category(),
		Message:  code.Message(),
	}
}

// Translate builds the error for a code received from the server. The catalog message is
// used unless the code is unknown to the catalog and the server supplied its own text.
// Client codes are not server codes and translate like unknown ones
func Translate(code ErrorCode, serverMessage string) *Error {
	if code.Known() && !code.Client() {
		return NewError(code)
	}
	err := &Error{
		Code:     code,
		Category: code.serverCategory(),
		Message:  unknownErrorMessage,
	}
	if serverMessage != "" {
		err.Message = serverMessage
	}
	return err
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error %d: %s", e.Category, e.Code, e.Message)
	if e.RequestId != 0 {
		msg = fmt.Sprintf("%s (request %d)", msg, e.RequestId)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Category == e.Category
}

// WithRequestId returns a copy of the error bound to the specified request
func (e *Error) WithRequestId(requestId uint32) *Error {
	ret := *e
	ret.RequestId = requestId
	return &ret
}

// Wrap returns a copy of the error carrying the specified cause
func (e *Error) Wrap(err error) *Error {
	ret := *e
	ret.Err = err
	return &ret
}

// Sentinel errors for use with errors.Is. Do not modify these, use WithRequestId and Wrap
// to build a specific instance
var (
	ErrMalformedMessage           = NewError(CodeMalformedMessage)
	ErrUnknownOpcode              = NewError(CodeUnknownOpcode)
	ErrUnsupportedProtocolVersion = NewError(CodeUnsupportedProtocolVersion)
	ErrHandshakeRequired          = NewError(CodeHandshakeRequired)
	ErrHandshakeOrderViolation    = NewError(CodeHandshakeOrderViolation)
	ErrRequestTimeout             = NewError(CodeRequestTimeout)
	ErrConnectionClosed           = NewError(CodeConnectionClosed)
	ErrTooManyPendingRequests     = NewError(CodeTooManyPendingRequests)
	ErrMessageTooLarge            = NewError(CodeMessageTooLarge)
	ErrReconnecting               = NewError(CodeReconnecting)
	ErrUnexpectedResponse         = NewError(CodeUnexpectedResponse)
	ErrClientClosed               = NewError(CodeClientClosed)
	ErrAuthRequired               = NewError(CodeAuthRequired)
	ErrInvalidCredentials         = NewError(CodeInvalidCredentials)
	ErrSessionExpired             = NewError(CodeSessionExpired)
	ErrPermissionDenied           = NewError(CodePermissionDenied)
	ErrNotFound                   = NewError(CodeNotFound)
	ErrBlockNotFound              = NewError(CodeBlockNotFound)
	ErrTransactionNotFound        = NewError(CodeTransactionNotFound)
	ErrEpochNotFound              = NewError(CodeEpochNotFound)
	ErrContractNotFound           = NewError(CodeContractNotFound)
	ErrSubscriptionNotFound       = NewError(CodeSubscriptionNotFound)
	ErrRateLimited                = NewError(CodeRateLimited)
	ErrInvalidParams              = NewError(CodeInvalidParams)
	ErrInvalidBlockNumber         = NewError(CodeInvalidBlockNumber)
	ErrInvalidHash                = NewError(CodeInvalidHash)
	ErrInvalidAddress             = NewError(CodeInvalidAddress)
	ErrInvalidTransaction         = NewError(CodeInvalidTransaction)
	ErrInvalidFilter              = NewError(CodeInvalidFilter)
	ErrRangeTooLarge              = NewError(CodeRangeTooLarge)
	ErrInternalError              = NewError(CodeInternalError)
	ErrDatabaseError              = NewError(CodeDatabaseError)
	ErrServiceUnavailable         = NewError(CodeServiceUnavailable)
	ErrRequestIdExhausted         = NewError(CodeRequestIdExhausted)
)

// CategoryOf returns the category of a catalog error anywhere in the chain
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Category, true
}
