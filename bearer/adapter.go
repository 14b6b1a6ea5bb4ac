package bearer

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// TokenSource supplies bearer tokens to the HTTP client adapters.
// *Provider and StaticToken implement it.
type TokenSource interface {
	AcquireToken(ctx context.Context) (Token, error)
}

var (
	_ TokenSource = (*Provider)(nil)
	_ TokenSource = StaticToken("")
)

// StaticToken is a preset token, for callers that already hold one.
type StaticToken string

func (t StaticToken) AcquireToken(context.Context) (Token, error) {
	if t == "" {
		return Token{}, errors.New("static token is empty")
	}
	return Token{AccessToken: string(t)}, nil
}

// setAuthorization writes the bearer header shared by every adapter.
func setAuthorization(h http.Header, tok Token) {
	h.Set("Authorization", "Bearer "+tok.AccessToken)
}

// Transport is an http.RoundTripper that acquires a token for every
// request and sends it as a bearer credential. It caches nothing itself.
type Transport struct {
	Source TokenSource
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// NewTransport returns a Transport over base.
func NewTransport(src TokenSource, base http.RoundTripper) *Transport {
	return &Transport{Source: src, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.AcquireToken(req.Context())
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	// RoundTrippers must not modify the caller's request.
	req2 := req.Clone(req.Context())
	setAuthorization(req2.Header, tok)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}

// RestyAuth returns a resty request middleware that sets the bearer header
// in place on every outgoing request. Register it with
// resty.Client.OnBeforeRequest.
func RestyAuth(src TokenSource) resty.RequestMiddleware {
	return func(_ *resty.Client, r *resty.Request) error {
		tok, err := src.AcquireToken(r.Context())
		if err != nil {
			return err
		}
		r.SetHeader("Authorization", "Bearer "+tok.AccessToken)
		return nil
	}
}

// OAuth2TokenSource adapts src to oauth2.TokenSource. Use it with
// oauth2.Transport directly; oauth2.NewClient would add its own reuse
// layer on top.
func OAuth2TokenSource(ctx context.Context, src TokenSource) oauth2.TokenSource {
	return &oauth2Source{ctx: ctx, src: src}
}

type oauth2Source struct {
	ctx context.Context
	src TokenSource
}

func (s *oauth2Source) Token() (*oauth2.Token, error) {
	tok, err := s.src.AcquireToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}
