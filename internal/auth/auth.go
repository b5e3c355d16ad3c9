// Package auth talks to the hosted identity service and verifies the
// access tokens it issues.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// User is an authenticated identity.
type User struct {
	ID          string `json:"id" yaml:"id"`
	Email       string `json:"email" yaml:"email"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// Session is a signed-in user with the tokens that prove it.
type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         User      `json:"user" yaml:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

//go:generate mockgen -source=auth.go -destination=../mocks/auth/mock_auth.go -package=mock_auth Provider

// Provider is the identity boundary. Subscribers registered with
// OnAuthStateChange are called with the current user right away and again
// on every sign-in or sign-out, with nil when signed out.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInWithIDToken(ctx context.Context, provider, idToken string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentUser() *User
	OnAuthStateChange(fn func(*User)) (unsubscribe func())
}

// ErrorKind classifies auth failures.
type ErrorKind int

const (
	KindProvider ErrorKind = iota
	KindInvalidCredentials
	KindNetwork
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindNetwork:
		return "network"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "provider"
}

// Error is returned by every Provider method.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("auth %s error (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("auth %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == kind
}
