// Package errors defines the typed error values the core surfaces across
// package boundaries: a code, a message, and arbitrary structured data.
package errors

import "encoding/json"

type Error struct {
	Code    uint                   `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func (e *Error) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func (e *Error) SetData(k string, v interface{}) *Error {
	e.Data[k] = v
	return e
}

func (e *Error) Clone() *Error {
	n := &Error{Code: e.Code, Message: e.Message, Data: map[string]interface{}{}}
	for k, v := range e.Data {
		n.Data[k] = v
	}
	return n
}

func New(code uint, message string) *Error {
	return &Error{Code: code, Message: message, Data: map[string]interface{}{}}
}

// Error kinds the core surfaces. Codes are only distinguishing, not
// wire-stable.
const (
	codeInvalidChannel uint = iota + 1
	codeInvalidPayload
	codeRequestTimeout
	codeInvalidCast
	codeParseFail
	codeSignFail
	codeVerifyFail
)

var (
	ErrInvalidChannel = New(codeInvalidChannel, "channel name contains reserved ':'")
	ErrInvalidPayload = New(codeInvalidPayload, "payload is not a byte string")
	ErrRequestTimeout = New(codeRequestTimeout, "request was not externalized within budget")
	ErrInvalidCast    = New(codeInvalidCast, "cast failed signature or hash verification")
	ErrParseFail      = New(codeParseFail, "inbound frame is not valid JSON or wrong schema")
	ErrSignFail       = New(codeSignFail, "signing operation failed")
	ErrVerifyFail     = New(codeVerifyFail, "signature verification failed")
)
