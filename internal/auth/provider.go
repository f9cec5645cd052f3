package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/natefinch/atomic"
	"golang.org/x/oauth2"
)

// ErrEmptyCredential is returned when a blank credential is supplied.
var ErrEmptyCredential = errors.New("credential is empty")

// FileProvider is a Provider backed by a token.json file.
// It is ready once Load has run, and authenticated while it holds a
// token that has not expired.
type FileProvider struct {
	path string

	mu     sync.Mutex
	loaded bool
	token  *oauth2.Token
}

// NewFileProvider creates a provider for the token file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Load reads the token file. A missing file is not an error; the provider
// is ready and unauthenticated. A corrupt file leaves the provider ready
// and unauthenticated and returns the parse error.
func (p *FileProvider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loaded = true
	p.token = nil

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(p.path), err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("invalid %s: %w", filepath.Base(p.path), err)
	}
	p.token = &tok
	return nil
}

// Ready implements Provider.
func (p *FileProvider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Authenticated implements Provider.
func (p *FileProvider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token.Valid()
}

// Token implements oauth2.TokenSource.
func (p *FileProvider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.token.Valid() {
		return nil, ErrNoCredential
	}
	tok := *p.token
	return &tok, nil
}

// Save stores tok and writes it to disk atomically with mode 0600.
func (p *FileProvider) Save(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return err
	}
	if err := atomic.WriteFile(p.path, bytes.NewReader(data)); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = true
	saved := *tok
	p.token = &saved
	return nil
}

// Remove deletes the token file. Removing a missing file succeeds.
func (p *FileProvider) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// HasToken reports whether a token file exists on disk.
func (p *FileProvider) HasToken() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// ParseCredential turns a raw bearer credential into a token. An optional
// "Bearer " prefix is stripped. When the credential is a JWT its exp claim
// becomes the token expiry; the signature is not checked here, the backend
// does that.
func ParseCredential(raw string) (*oauth2.Token, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, ErrEmptyCredential
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok, nil
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	return tok, nil
}
