// Package auth exposes the per-request login state to the rest of the application.
package auth

import (
	"context"

	"nestbook/internal/domain"
)

type contextKey struct{}

// State is the read-only login signal of one request.
type State struct {
	IsLoggedIn bool
	User       *domain.UserSnapshot
}

// StateOf derives the signal from a session.
func StateOf(sess *domain.Session) State {
	if !sess.Authenticated() {
		return State{}
	}
	user := *sess.User
	return State{IsLoggedIn: true, User: &user}
}

func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, contextKey{}, st)
}

// FromContext returns the login state, or the anonymous state if none was attached.
func FromContext(ctx context.Context) State {
	st, _ := ctx.Value(contextKey{}).(State)
	return st
}

func IsLoggedIn(ctx context.Context) bool {
	return FromContext(ctx).IsLoggedIn
}

func IsHost(ctx context.Context) bool {
	st := FromContext(ctx)
	return st.IsLoggedIn && st.User.IsHost()
}
