package server

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/mentalmath/internal/auth"
)

type userKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func userFromContext(ctx context.Context) (*auth.User, error) {
	user, ok := ctx.Value(userKey{}).(*auth.User)
	if !ok || user == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sign in required"))
	}
	return user, nil
}

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.User, error)
}

// NewAuthInterceptor verifies the bearer token of every procedure except
// the sign-up and sign-in calls.
func NewAuthInterceptor(verifier TokenVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			switch req.Spec().Procedure {
			case SignUpProcedure, SignInProcedure:
				return next(ctx, req)
			}

			token, ok := strings.CutPrefix(req.Header().Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing bearer token"))
			}
			user, err := verifier.Verify(token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithUser(ctx, user), req)
		}
	}
}
