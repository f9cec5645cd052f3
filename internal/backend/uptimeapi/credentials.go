package uptimeapi

import (
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// Credentials holds the bearer credential attached to outgoing requests.
// It is owned by the session and shared with the auth gate, which installs
// and clears it.
type Credentials struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// SetCredential installs tok, or clears the credential when tok is nil.
func (c *Credentials) SetCredential(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// Credential returns the installed credential, or nil.
func (c *Credentials) Credential() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// apply sets the Authorization header when a credential is installed.
// Without one the request goes out unauthenticated and the backend decides.
func (c *Credentials) apply(req *http.Request) {
	if c == nil {
		return
	}
	if tok := c.Credential(); tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}
}
