package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/spotify-stats/internal/config"
)

// TokenService exchanges authorization codes and refresh tokens for access
// tokens against the Spotify accounts service.
type TokenService struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewTokenService creates a TokenService for the given credentials.
// accountsBaseURL must end with a slash. A nil httpClient uses http.DefaultTransport.
func NewTokenService(creds config.OAuth, accountsBaseURL string, httpClient *http.Client) *TokenService {
	base := http.DefaultTransport
	if httpClient != nil && httpClient.Transport != nil {
		base = httpClient.Transport
	}

	client := &http.Client{
		Transport: &basicAuthTransport{
			header: BuildBasicAuth(creds.ClientID, creds.ClientSecret),
			base:   base,
		},
	}
	if httpClient != nil {
		client.Timeout = httpClient.Timeout
	}

	return &TokenService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint(accountsBaseURL),
		},
		httpClient: client,
		now:        time.Now,
	}
}

// AuthURL returns the consent URL carrying response_type=code, client id,
// scopes, redirect URI and state.
func (s *TokenService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair (grant_type=authorization_code).
func (s *TokenService) Exchange(ctx context.Context, code string) (AccessToken, error) {
	tok, err := s.config.Exchange(s.context(ctx), code)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	return s.fromOAuth2(tok), nil
}

// Refresh trades a refresh token for a new access token (grant_type=refresh_token).
// The previous refresh token is kept when the server does not issue a new one.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	src := s.config.TokenSource(s.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	at := s.fromOAuth2(tok)
	if at.RefreshToken == "" {
		at.RefreshToken = refreshToken
	}
	return at, nil
}

func (s *TokenService) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *TokenService) fromOAuth2(tok *oauth2.Token) AccessToken {
	expires := tok.Expiry.UnixMilli()
	if tok.Expiry.IsZero() {
		expires = ExpiryTimestamp(s.now(), DefaultTokenLifetime)
	}
	return AccessToken{
		Token:        tok.AccessToken,
		Expires:      expires,
		RefreshToken: tok.RefreshToken,
	}
}

func endpoint(accountsBaseURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   accountsBaseURL + "authorize",
		TokenURL:  accountsBaseURL + "api/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

// basicAuthTransport sends the raw client credentials; oauth2 form-escapes
// them before base64 encoding, which Spotify does not undo.
type basicAuthTransport struct {
	header string
	base   http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", t.header)
	return t.base.RoundTrip(r)
}
