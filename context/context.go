// Package context carries the resolved tenant authorizer through call chains
// so guarded operations can check permissions without threading the access
// context store explicitly.
package context

import (
	"context"

	"github.com/openshelf/openshelf"
)

type contextKey string

const authorizerCtxKey = contextKey("openshelf/authorizer/v1")

// SetAuthorizer sets an authorizer on context.
func SetAuthorizer(ctx context.Context, a openshelf.Authorizer) context.Context {
	return context.WithValue(ctx, authorizerCtxKey, a)
}

// GetAuthorizer retrieves an authorizer from context.
func GetAuthorizer(ctx context.Context) (openshelf.Authorizer, error) {
	a, ok := ctx.Value(authorizerCtxKey).(openshelf.Authorizer)
	if !ok {
		return nil, &openshelf.Error{
			Code: openshelf.EInternal,
			Msg:  "authorizer not found on context",
		}
	}
	return a, nil
}
