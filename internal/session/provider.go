package session

import (
	"context"
	"errors"
	"time"
)

// PromptMode selects how a token request interacts with the user.
type PromptMode int

const (
	// PromptNone requests a token silently, without any user interaction.
	// Fails if no usable refresh credential exists.
	PromptNone PromptMode = iota
	// PromptDefault runs the interactive flow without forcing the consent
	// screen; the authorization server decides whether to show it.
	PromptDefault
	// PromptConsent forces the consent screen. Used for first-time sign-in.
	PromptConsent
)

// ErrNoRefreshCredential is returned by providers when a silent request is
// made but no refresh credential is available.
var ErrNoRefreshCredential = errors.New("session: no refresh credential")

// Credential is the tagged success result of a token request.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Profile identifies the signed-in user.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenProvider is the interactive credential provider collaborator. The
// underlying service's callback delivery is adapted into plain awaitable
// calls at this boundary: each method blocks until the result is known and
// returns either a value or an error.
type TokenProvider interface {
	// RequestToken obtains an access token. refreshToken is consulted only
	// for PromptNone; interactive modes ignore it.
	RequestToken(ctx context.Context, prompt PromptMode, refreshToken string) (*Credential, error)

	// Revoke invalidates the token remotely.
	Revoke(ctx context.Context, token string) error

	// Introspect asks the authorization server whether the token is
	// currently valid. A nil return means valid.
	Introspect(ctx context.Context, token string) error

	// FetchProfile returns the user identity associated with the token.
	FetchProfile(ctx context.Context, token string) (*Profile, error)
}
