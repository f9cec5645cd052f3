// Package auth tracks authentication readiness and installs the bearer
// credential used by the request layer.
package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// State is the gate's view of authentication.
type State int

const (
	// Initializing means the auth collaborator has not reported ready yet.
	// Nothing downstream may act in this state.
	Initializing State = iota

	// Unauthenticated means ready with no signed-in user.
	Unauthenticated

	// Authenticated means a credential has been retrieved and installed.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Provider is the external auth collaborator.
// Token retrieves the current bearer credential.
type Provider interface {
	Ready() bool
	Authenticated() bool
	oauth2.TokenSource
}

// CredentialSink receives the credential on login and nil on logout.
type CredentialSink interface {
	SetCredential(tok *oauth2.Token)
}

// TransitionFunc is called after every state change.
type TransitionFunc func(ctx context.Context, s State) error
