// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"bytes"
	"fmt"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the only version this node speaks.
const JSONRPCVersion = "2.0"

// Recognized method names.
const (
	MethodMessageSend            = "message/send"
	MethodMessageStream          = "message/stream"
	MethodTasksGet               = "tasks/get"
	MethodTasksCancel            = "tasks/cancel"
	MethodTasksResubscribe       = "tasks/resubscribe"
	MethodPushConfigSet          = "tasks/pushNotificationConfig/set"
	MethodPushConfigGet          = "tasks/pushNotificationConfig/get"
	MethodPushConfigList         = "tasks/pushNotificationConfig/list"
	MethodPushConfigDelete       = "tasks/pushNotificationConfig/delete"
)

// JSONRPCRequest is the envelope for every inbound call.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  jsontext.Value  `json:"params,omitempty"`
}

// JSONRPCError is the error object of a JSON-RPC response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCResponse is the envelope for every response; exactly one of
// Result/Error is set.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// NewErrorResponse builds a JSON-RPC error response for the given id, using
// err's Code() when it implements Error, falling back to InternalError.
func NewErrorResponse(id any, err error) *JSONRPCResponse {
	code := CodeInternalError
	if e, ok := err.(Error); ok {
		code = e.Code()
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: err.Error()},
	}
}

// NewResultResponse builds a successful JSON-RPC response.
func NewResultResponse(id any, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// DecodeRequest parses a raw HTTP body into a JSONRPCRequest using the
// go-json-experiment/json decoder.
func DecodeRequest(body []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	dec := jsontext.NewDecoder(bytes.NewReader(body))
	if err := jsonv2.UnmarshalDecode(dec, &req, jsonv2.DefaultOptionsV2()); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &req, nil
}

// ValidateEnvelope checks JSON-RPC 2.0 shape and that method is recognized,
// implementing C1's validate_rpc_envelope.
func ValidateEnvelope(req *JSONRPCRequest) error {
	if req.JSONRPC != JSONRPCVersion {
		return &protocolError{code: CodeInvalidRequest, msg: fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC)}
	}
	switch req.Method {
	case MethodMessageSend, MethodMessageStream, MethodTasksGet, MethodTasksCancel,
		MethodTasksResubscribe, MethodPushConfigSet, MethodPushConfigGet,
		MethodPushConfigList, MethodPushConfigDelete:
		return nil
	default:
		return &protocolError{code: CodeMethodNotFound, msg: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

// EncodeResponse serializes a JSONRPCResponse for the wire.
func EncodeResponse(resp *JSONRPCResponse) ([]byte, error) {
	return jsonv2.Marshal(resp)
}
