package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/pkg/errcodes"
)

// Token renewal margin. A token this close to expiry is treated as expired
// so in-flight requests do not race the deadline.
const tokenExpiryMargin = time.Minute

// Authenticate skips the refresh when another caller minted a token within
// this window. Outside of it a call always refreshes, so a 401 on a revoked
// token is not retried with the same token.
const tokenFreshWindow = 10 * time.Second

// Authenticator implements the client-credentials flow of the TDX OAuth
// server, caching the token until shortly before expiry. It satisfies the
// authenticator contract of httpx.AuthBearerRoundTripper: an empty
// BearerToken triggers Authenticate.
type Authenticator struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	clock        clockwork.Clock

	mu      sync.Mutex
	token   string
	minted  time.Time
	expires time.Time
}

func NewAuthenticator(tokenURL, clientID, clientSecret string, httpClient *http.Client) *Authenticator {
	return &Authenticator{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		clock:        clockwork.NewRealClock(),
	}
}

func (a *Authenticator) WithClock(clock clockwork.Clock) *Authenticator {
	a.clock = clock
	return a
}

func (a *Authenticator) Authenticate(ctx context.Context) error {
	if a.clientID == "" || a.clientSecret == "" {
		return domain.NewError(errcodes.TransitUnavailable, "tdx credentials are not configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have refreshed while this one waited for the lock.
	if a.token != "" && a.clock.Now().Sub(a.minted) < tokenFreshWindow {
		return nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewError(errcodes.TransitUnavailable,
			fmt.Sprintf("token endpoint status %d: %s", resp.StatusCode, body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "failed to decode token response")
	}

	if token.AccessToken == "" {
		return domain.NewError(errcodes.TransitUnavailable, "token endpoint returned an empty token")
	}

	a.token = token.AccessToken
	a.minted = a.clock.Now()
	a.expires = a.minted.Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpiryMargin)

	return nil
}

// BearerToken returns the cached token, or an empty string when missing or
// expired.
func (a *Authenticator) BearerToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.clock.Now().After(a.expires) {
		return ""
	}

	return a.token
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
