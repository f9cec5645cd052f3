package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

// ErrNoCredential is returned by a provider that reports authenticated but
// has no credential to hand out.
var ErrNoCredential = errors.New("no credential available")

const retrievalKey = "credential"

// Gate turns the provider's ready/authenticated flags into forward-only
// transitions between Initializing, Unauthenticated and Authenticated.
type Gate struct {
	source Provider
	sink   CredentialSink
	log    logr.Logger

	flight singleflight.Group

	// deliverMu serializes subscriber notification so transitions arrive
	// in the order they were made.
	deliverMu sync.Mutex

	mu    sync.Mutex
	state State
	gen   uint64 // bumped whenever authentication is lost
	subs  []TransitionFunc
}

// NewGate creates a gate in the Initializing state.
func NewGate(source Provider, sink CredentialSink, log logr.Logger) *Gate {
	return &Gate{
		source: source,
		sink:   sink,
		log:    log.WithName("auth"),
	}
}

// OnTransition registers fn to be called after each state change.
func (g *Gate) OnTransition(fn TransitionFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, fn)
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Observe feeds the provider's flags into the gate.
//
// Until ready is true nothing happens. Ready without authentication resets
// to Unauthenticated and clears the credential at once. Ready and
// authenticated retrieves a credential unless one is already installed; a
// retrieval already in flight is joined rather than restarted.
//
// Retrieval failures are logged and leave state and credential untouched.
// Subscribers are called one transition at a time, in order; a transition
// overtaken by a later one before delivery is never delivered. Errors
// returned by transition subscribers are joined and returned.
func (g *Gate) Observe(ctx context.Context, ready, authenticated bool) error {
	if !ready {
		return nil
	}
	if !authenticated {
		return g.signOut(ctx)
	}

	g.mu.Lock()
	if g.state == Authenticated {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	v, _, _ := g.flight.Do(retrievalKey, func() (any, error) {
		return g.retrieve(ctx), nil
	})
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}

// retrieve fetches and installs a credential, then notifies subscribers.
// The returned error comes from subscribers only.
func (g *Gate) retrieve(ctx context.Context) error {
	g.mu.Lock()
	gen := g.gen
	g.mu.Unlock()

	tok, err := g.source.Token()
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = ErrNoCredential
	}
	if err != nil {
		g.log.Error(err, "failed to get credential")
		return nil
	}

	g.mu.Lock()
	if g.gen != gen {
		g.mu.Unlock()
		g.log.V(1).Info("discarding credential retrieved after sign-out")
		return nil
	}
	g.sink.SetCredential(tok)
	g.state = Authenticated
	g.mu.Unlock()

	g.log.V(1).Info("credential installed")
	return g.deliver(ctx, Authenticated, gen)
}

func (g *Gate) signOut(ctx context.Context) error {
	g.mu.Lock()
	g.gen++
	g.sink.SetCredential(nil)
	changed := g.state != Unauthenticated
	g.state = Unauthenticated
	gen := g.gen
	g.mu.Unlock()

	if !changed {
		return nil
	}
	g.log.V(1).Info("signed out")
	return g.deliver(ctx, Unauthenticated, gen)
}

// deliver notifies subscribers of the transition to s made at generation
// gen. It waits for earlier deliveries to finish and drops the transition
// if the gate has moved on since.
func (g *Gate) deliver(ctx context.Context, s State, gen uint64) error {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()

	g.mu.Lock()
	current := g.state == s && g.gen == gen
	subs := append([]TransitionFunc(nil), g.subs...)
	g.mu.Unlock()

	if !current {
		g.log.V(1).Info("dropping superseded transition", "state", s)
		return nil
	}
	return notify(ctx, subs, s)
}

func notify(ctx context.Context, subs []TransitionFunc, s State) error {
	var errs []error
	for _, fn := range subs {
		if err := fn(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s transition: %w", s, errors.Join(errs...))
}
