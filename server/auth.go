// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/auth"
)

type userContextKey struct{}

// UserFromContext returns the authenticated user attached by
// BearerAuthMiddleware, or auth.UnauthenticatedUser{} if none.
func UserFromContext(ctx context.Context) auth.User {
	if u, ok := ctx.Value(userContextKey{}).(auth.User); ok {
		return u
	}
	return auth.UnauthenticatedUser{}
}

type jwtUser struct {
	subject string
}

func (u jwtUser) IsAuthenticated() bool { return true }
func (u jwtUser) UserName() string      { return u.subject }

// BearerAuthMiddleware verifies inbound Bearer JWTs against keySet using
// github.com/lestrrat-go/jwx/v3, rejecting unauthenticated requests to
// non-public endpoints with HTTP 401 and a JSON-RPC AuthenticationRequired
// error.
func BearerAuthMiddleware(keySet jwk.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(keySet))
			if err != nil {
				unauthorized(w)
				return
			}

			subject, _ := parsed.Subject()
				ctx := context.WithValue(r.Context(), userContextKey{}, jwtUser{subject: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, a2a.NewErrorResponse(nil, a2a.NewAuthenticationRequired("bearer token missing or invalid")))
}
