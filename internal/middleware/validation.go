package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// ValidationInterceptor rejects request messages that fail their struct tag
// rules before they reach a handler.
func ValidationInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if err := api.Validate(req.Any()); err != nil {
				return nil, ConnectError(err)
			}
			return next(ctx, req)
		}
	}
}
