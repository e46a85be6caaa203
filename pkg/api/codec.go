// Package api is the ledger's wire contract: message types, procedure names
// and Connect handler/client constructors for each service.
//
// Messages are plain Go structs carried by a JSON codec, so the services can
// be called with any Connect client or with curl:
//
//	curl -H 'Content-Type: application/json' -H 'Authorization: Bearer ...' \
//	    -d '{"group_id":"..."}' http://localhost:8080/ledger.v1.GroupService/GetGroupBalances
package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"connectrpc.com/connect"
)

const codecName = "json"

// JSONCodec marshals messages with encoding/json. It replaces Connect's
// default JSON codec, which only handles protobuf messages.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return codecName }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}

// ErrorCodeHeader carries the ledger's stable error code (for example
// SPLIT_SUM_MISMATCH) on every failed call.
const ErrorCodeHeader = "Ledger-Error-Code"

// ErrorCode returns the ledger error code attached to err, or "" when err did
// not come from a ledger service.
func ErrorCode(err error) string {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return ""
	}
	return connectErr.Meta().Get(ErrorCodeHeader)
}
