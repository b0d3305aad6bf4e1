package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"intentengine/native/intent"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeUnauthorized   = -32001
	codeTemporal       = -32002
	codeFinancial      = -32003
	codeNotFound       = -32004
	codeConflict       = -32005
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData is attached to engine failures.
type ErrorData struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// engineErrorCode maps an engine failure onto a JSON-RPC code and HTTP status.
func engineErrorCode(err error) (int, int) {
	switch intent.Classify(err) {
	case intent.ClassValidation:
		return codeInvalidParams, http.StatusBadRequest
	case intent.ClassAuthorization:
		return codeUnauthorized, http.StatusForbidden
	case intent.ClassTemporal:
		return codeTemporal, http.StatusConflict
	case intent.ClassFinancial:
		return codeFinancial, http.StatusUnprocessableEntity
	case intent.ClassNotFound:
		return codeNotFound, http.StatusNotFound
	case intent.ClassConflict:
		return codeConflict, http.StatusConflict
	default:
		return codeInternalError, http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	code, status := engineErrorCode(err)
	class := intent.Classify(err)
	message := rootMessage(err)
	if class == intent.ClassArithmetic || class == intent.ClassInternal {
		message = "internal error"
	}
	writeError(w, status, id, code, message, ErrorData{Kind: class.String(), Error: err.Error()})
}

// rootMessage returns the innermost wrapped error text.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
