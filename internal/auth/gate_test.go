package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"uptime/internal/auth"
)

type fakeProvider struct {
	ready   bool
	authed  bool
	token   *oauth2.Token
	err     error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *fakeProvider) Ready() bool         { return p.ready }
func (p *fakeProvider) Authenticated() bool { return p.authed }

func (p *fakeProvider) Token() (*oauth2.Token, error) {
	p.calls.Add(1)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	return p.token, p.err
}

type fakeSink struct {
	mu   sync.Mutex
	sets []*oauth2.Token
}

func (s *fakeSink) SetCredential(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append(s.sets, tok)
}

func (s *fakeSink) last() (*oauth2.Token, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sets) == 0 {
		return nil, 0
	}
	return s.sets[len(s.sets)-1], len(s.sets)
}

type transitions struct {
	mu     sync.Mutex
	states []auth.State
}

func (tr *transitions) record(ctx context.Context, s auth.State) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.states = append(tr.states, s)
	return nil
}

func (tr *transitions) list() []auth.State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]auth.State(nil), tr.states...)
}

func newGate(p *fakeProvider) (*auth.Gate, *fakeSink, *transitions) {
	sink := &fakeSink{}
	tr := &transitions{}
	g := auth.NewGate(p, sink, logr.Discard())
	g.OnTransition(tr.record)
	return g, sink, tr
}

func TestGate_NotReadyDoesNothing(t *testing.T) {
	p := &fakeProvider{token: &oauth2.Token{AccessToken: "t"}}
	g, sink, tr := newGate(p)

	if err := g.Observe(context.Background(), false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.State() != auth.Initializing {
		t.Errorf("expected %s, got %s", auth.Initializing, g.State())
	}
	if n := p.calls.Load(); n != 0 {
		t.Errorf("expected no credential retrieval before ready, got %d", n)
	}
	if _, n := sink.last(); n != 0 {
		t.Errorf("expected sink untouched, got %d calls", n)
	}
	if len(tr.list()) != 0 {
		t.Errorf("expected no transitions, got %v", tr.list())
	}
}

func TestGate_Unauthenticated(t *testing.T) {
	g, sink, tr := newGate(&fakeProvider{})

	for i := 0; i < 2; i++ {
		if err := g.Observe(context.Background(), true, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if g.State() != auth.Unauthenticated {
		t.Errorf("expected %s, got %s", auth.Unauthenticated, g.State())
	}
	if tok, n := sink.last(); n == 0 || tok != nil {
		t.Errorf("expected credential cleared, got %v after %d calls", tok, n)
	}
	if got := tr.list(); len(got) != 1 || got[0] != auth.Unauthenticated {
		t.Errorf("expected a single unauthenticated transition, got %v", got)
	}
}

func TestGate_AuthenticatedInstallsCredentialOnce(t *testing.T) {
	p := &fakeProvider{token: &oauth2.Token{AccessToken: "abc"}}
	g, sink, tr := newGate(p)

	for i := 0; i < 3; i++ {
		if err := g.Observe(context.Background(), true, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if g.State() != auth.Authenticated {
		t.Errorf("expected %s, got %s", auth.Authenticated, g.State())
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected 1 retrieval, got %d", n)
	}
	if tok, _ := sink.last(); tok == nil || tok.AccessToken != "abc" {
		t.Errorf("expected credential abc installed, got %v", tok)
	}
	if got := tr.list(); len(got) != 1 || got[0] != auth.Authenticated {
		t.Errorf("expected a single authenticated transition, got %v", got)
	}
}

func TestGate_ConcurrentRetrievalRunsOnce(t *testing.T) {
	p := &fakeProvider{
		token:   &oauth2.Token{AccessToken: "abc"},
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	g, _, tr := newGate(p)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = g.Observe(context.Background(), true, true)
	}()
	<-p.started

	go func() {
		defer wg.Done()
		_ = g.Observe(context.Background(), true, true)
	}()
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 retrieval, got %d", n)
	}
	if got := tr.list(); len(got) != 1 {
		t.Errorf("expected 1 transition, got %v", got)
	}
}

func TestGate_RetrievalFailureKeepsState(t *testing.T) {
	p := &fakeProvider{err: errors.New("provider offline")}
	g, sink, tr := newGate(p)

	if err := g.Observe(context.Background(), true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, before := sink.last()

	if err := g.Observe(context.Background(), true, true); err != nil {
		t.Fatalf("retrieval failure should not be returned, got %v", err)
	}

	if g.State() != auth.Unauthenticated {
		t.Errorf("expected state to stay %s, got %s", auth.Unauthenticated, g.State())
	}
	if _, after := sink.last(); after != before {
		t.Errorf("expected credential untouched, sink called %d more times", after-before)
	}
	if got := tr.list(); len(got) != 1 {
		t.Errorf("expected only the sign-out transition, got %v", got)
	}

	// A later signal retries.
	p.err = nil
	p.token = &oauth2.Token{AccessToken: "late"}
	if err := g.Observe(context.Background(), true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.State() != auth.Authenticated {
		t.Errorf("expected %s after retry, got %s", auth.Authenticated, g.State())
	}
}

func TestGate_EmptyTokenIsFailure(t *testing.T) {
	p := &fakeProvider{token: &oauth2.Token{}}
	g, sink, _ := newGate(p)

	_ = g.Observe(context.Background(), true, true)

	if g.State() != auth.Initializing {
		t.Errorf("expected %s, got %s", auth.Initializing, g.State())
	}
	if _, n := sink.last(); n != 0 {
		t.Errorf("expected no credential installed, got %d calls", n)
	}
}

func TestGate_SignOutDuringRetrievalDiscardsCredential(t *testing.T) {
	p := &fakeProvider{
		token:   &oauth2.Token{AccessToken: "stale"},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	g, sink, _ := newGate(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Observe(context.Background(), true, true)
	}()
	<-p.started

	if err := g.Observe(context.Background(), true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(p.release)
	<-done

	if g.State() != auth.Unauthenticated {
		t.Errorf("expected %s, got %s", auth.Unauthenticated, g.State())
	}
	if tok, _ := sink.last(); tok != nil {
		t.Errorf("expected no credential, got %v", tok)
	}
}

func TestGate_SignOutAfterAuthenticated(t *testing.T) {
	p := &fakeProvider{token: &oauth2.Token{AccessToken: "abc"}}
	g, sink, tr := newGate(p)

	_ = g.Observe(context.Background(), true, true)
	_ = g.Observe(context.Background(), true, false)

	if tok, _ := sink.last(); tok != nil {
		t.Errorf("expected credential cleared, got %v", tok)
	}
	want := []auth.State{auth.Authenticated, auth.Unauthenticated}
	got := tr.list()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGate_SubscriberErrorsReturned(t *testing.T) {
	g := auth.NewGate(&fakeProvider{}, &fakeSink{}, logr.Discard())
	boom := errors.New("fetch failed")
	g.OnTransition(func(ctx context.Context, s auth.State) error { return boom })

	err := g.Observe(context.Background(), true, false)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped subscriber error, got %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// blockingSubscriber records transitions and holds the first delivery of
// block until release is closed.
type blockingSubscriber struct {
	transitions
	block   auth.State
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSubscriber) handle(ctx context.Context, s auth.State) error {
	if s == b.block {
		held := false
		b.once.Do(func() { held = true })
		if held {
			close(b.entered)
			<-b.release
		}
	}
	return b.record(ctx, s)
}

func TestGate_SignOutWaitsForAuthenticatedDelivery(t *testing.T) {
	p := &fakeProvider{token: &oauth2.Token{AccessToken: "abc"}}
	g := auth.NewGate(p, &fakeSink{}, logr.Discard())
	sub := &blockingSubscriber{block: auth.Authenticated, entered: make(chan struct{}), release: make(chan struct{})}
	g.OnTransition(sub.handle)

	signIn := make(chan struct{})
	go func() {
		defer close(signIn)
		_ = g.Observe(context.Background(), true, true)
	}()
	<-sub.entered

	signOut := make(chan struct{})
	go func() {
		defer close(signOut)
		_ = g.Observe(context.Background(), true, false)
	}()
	waitFor(t, "sign-out state change", func() bool { return g.State() == auth.Unauthenticated })

	select {
	case <-signOut:
		t.Fatal("expected sign-out delivery to wait for the sign-in delivery")
	case <-time.After(20 * time.Millisecond):
	}

	close(sub.release)
	<-signIn
	<-signOut

	want := []auth.State{auth.Authenticated, auth.Unauthenticated}
	got := sub.list()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGate_SupersededTransitionNotDelivered(t *testing.T) {
	p := &fakeProvider{ready: true, token: &oauth2.Token{AccessToken: "abc"}}
	g := auth.NewGate(p, &fakeSink{}, logr.Discard())
	sub := &blockingSubscriber{block: auth.Unauthenticated, entered: make(chan struct{}), release: make(chan struct{})}
	g.OnTransition(sub.handle)

	// The first sign-out holds the delivery slot.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = g.Observe(context.Background(), true, false)
	}()
	<-sub.entered

	// A sign-in and a second sign-out queue up behind it.
	go func() {
		defer wg.Done()
		_ = g.Observe(context.Background(), true, true)
	}()
	waitFor(t, "sign-in state change", func() bool { return g.State() == auth.Authenticated })
	go func() {
		defer wg.Done()
		_ = g.Observe(context.Background(), true, false)
	}()
	waitFor(t, "second sign-out state change", func() bool { return g.State() == auth.Unauthenticated })

	close(sub.release)
	wg.Wait()

	for _, s := range sub.list() {
		if s == auth.Authenticated {
			t.Errorf("expected superseded sign-in dropped, got %v", sub.list())
		}
	}
	if g.State() != auth.Unauthenticated {
		t.Errorf("expected %s, got %s", auth.Unauthenticated, g.State())
	}
}
