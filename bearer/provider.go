package bearer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/google/uuid"
)

// Client is the part of the MSAL public client a Provider uses.
// public.Client satisfies it.
type Client interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	AcquireTokenSilent(
		ctx context.Context,
		scopes []string,
		opts ...public.AcquireSilentOption,
	) (public.AuthResult, error)
	AcquireTokenInteractive(
		ctx context.Context,
		scopes []string,
		opts ...public.AcquireInteractiveOption,
	) (public.AuthResult, error)
	AcquireTokenByDeviceCode(
		ctx context.Context,
		scopes []string,
		opts ...public.AcquireByDeviceCodeOption,
	) (public.DeviceCode, error)
}

var _ Client = public.Client{}

// clientFactory builds the identity client for a validated Config.
type clientFactory func(cfg Config, accessor cache.ExportReplace) (Client, error)

func newPublicClient(cfg Config, accessor cache.ExportReplace) (Client, error) {
	c, err := public.New(
		cfg.ClientID,
		public.WithAuthority(cfg.Authority),
		public.WithCache(accessor),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create public client: %w", err)
	}
	return c, nil
}

// Token is the result of one acquisition. It is not retained by the Provider.
type Token struct {
	AccessToken string
	ExpiresOn   time.Time
	// Username is the preferred username of the signed-in account, if known.
	Username string
}

// Valid reports whether the token is non-empty and not yet expired.
// A zero ExpiresOn means the expiry is unknown and is treated as valid.
func (t Token) Valid() bool {
	if t.AccessToken == "" {
		return false
	}
	return t.ExpiresOn.IsZero() || time.Now().Before(t.ExpiresOn)
}

func tokenFromResult(ar public.AuthResult) Token {
	return Token{
		AccessToken: ar.AccessToken,
		ExpiresOn:   ar.ExpiresOn,
		Username:    ar.Account.PreferredUsername,
	}
}

type options struct {
	store     Store
	reporter  Reporter
	prompter  Prompter
	newClient clientFactory
}

// Option configures a Provider.
type Option func(*options)

// WithStore sets where the credential cache is persisted.
// The default is a FileStore at DefaultCacheFile.
func WithStore(s Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithReporter sets the receiver of progress events.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithPrompter sets the interactive login mode. The default is BrowserPrompter.
func WithPrompter(p Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

func withClientFactory(f clientFactory) Option {
	return func(o *options) {
		o.newClient = f
	}
}

// Provider acquires bearer tokens for one tenant, client and scope set,
// reusing the persisted cache when possible. A Provider owns its identity
// client; nothing is shared between Providers. It is not safe for
// concurrent use.
type Provider struct {
	cfg      Config
	client   Client
	accessor *cacheAccessor
	prompter Prompter
	reporter Reporter
}

// New validates cfg and builds a Provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &AuthError{Op: "configure", Err: err}
	}

	o := options{
		reporter:  NopReporter{},
		prompter:  BrowserPrompter{},
		newClient: newPublicClient,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		fs, err := NewFileStore(DefaultCacheFile)
		if err != nil {
			return nil, &AuthError{Op: "configure", Err: err}
		}
		o.store = fs
	}

	accessor := newCacheAccessor(o.store, o.reporter)
	client, err := o.newClient(cfg, accessor)
	if err != nil {
		return nil, &AuthError{
			Op:  "configure",
			Err: fmt.Errorf("%w: %w", ErrInvalidConfig, err),
		}
	}

	return &Provider{
		cfg:      cfg,
		client:   client,
		accessor: accessor,
		prompter: o.prompter,
		reporter: o.reporter,
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (p *Provider) Config() Config {
	c := p.cfg
	c.Scopes = append([]string(nil), p.cfg.Scopes...)
	return c
}

// AcquireToken returns a bearer token, trying the cached account silently
// first (refreshing it if expired) and falling back to interactive login.
// Only a failed interactive login is returned as an error, as *AuthError.
// The cache is written back by the identity library whenever it changes;
// a failed write is reported but does not fail the call.
func (p *Provider) AcquireToken(ctx context.Context) (Token, error) {
	p.accessor.begin()

	if result, ok := p.acquireSilent(ctx); ok {
		p.reporter.SilentOK()
		return tokenFromResult(result), nil
	}

	result, err := p.acquireInteractive(ctx)
	if err != nil {
		return Token{}, &AuthError{
			Op:  "acquire token",
			Err: fmt.Errorf("%w: %w", ErrInteractiveAcquisition, err),
		}
	}
	p.reporter.InteractiveOK(result.Account.PreferredUsername)
	return tokenFromResult(result), nil
}

// LastPersistError returns the cache save failure of the most recent
// AcquireToken call, or nil. A non-nil value means the next call will
// prompt again.
func (p *Provider) LastPersistError() error {
	return p.accessor.lastPersistError()
}

func (p *Provider) acquireSilent(ctx context.Context) (public.AuthResult, bool) {
	accounts, err := p.client.Accounts(ctx)
	if err != nil {
		p.reporter.SilentFailed(
			fmt.Errorf("%w: failed to list cached accounts: %w", ErrSilentAcquisition, err),
		)
		return public.AuthResult{}, false
	}

	account, ok := selectAccount(accounts, p.cfg.LoginHint)
	if !ok {
		p.reporter.NoAccount()
		return public.AuthResult{}, false
	}
	p.reporter.AccountFound(account.PreferredUsername)

	result, err := p.client.AcquireTokenSilent(
		ctx,
		p.cfg.Scopes,
		public.WithSilentAccount(account),
	)
	if err == nil && result.AccessToken == "" {
		err = errors.New("access token is empty")
	}
	if err != nil {
		p.reporter.SilentFailed(fmt.Errorf("%w: %w", ErrSilentAcquisition, err))
		return public.AuthResult{}, false
	}
	return result, true
}

func (p *Provider) acquireInteractive(ctx context.Context) (public.AuthResult, error) {
	p.reporter.InteractiveRequired(p.prompter.Mode())

	promptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	result, err := p.prompter.Prompt(promptCtx, p.client, PromptRequest{
		Scopes:      p.cfg.Scopes,
		LoginHint:   p.cfg.LoginHint,
		DomainHint:  domainHint(p.cfg.TenantID),
		RedirectURI: p.cfg.RedirectURI,
		Reporter:    p.reporter,
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(promptCtx.Err(), context.DeadlineExceeded) {
			return public.AuthResult{}, fmt.Errorf(
				"login not completed within %s: %w",
				p.cfg.Timeout,
				err,
			)
		}
		return public.AuthResult{}, err
	}
	if result.AccessToken == "" {
		return public.AuthResult{}, errors.New("access token is empty")
	}
	return result, nil
}

// selectAccount picks the account for silent acquisition. With a login
// hint, the first account whose preferred username matches it
// case-insensitively; without one, the first account in cache order.
func selectAccount(accounts []public.Account, loginHint string) (public.Account, bool) {
	if loginHint == "" {
		if len(accounts) == 0 {
			return public.Account{}, false
		}
		return accounts[0], true
	}
	for _, a := range accounts {
		if strings.EqualFold(a.PreferredUsername, loginHint) {
			return a, true
		}
	}
	return public.Account{}, false
}

// domainHint returns the tenant as a domain hint when it is a domain name.
// GUIDs and the common/organizations/consumers aliases are not domains.
func domainHint(tenantID string) string {
	if tenantAliases[strings.ToLower(tenantID)] {
		return ""
	}
	if _, err := uuid.Parse(tenantID); err == nil {
		return ""
	}
	return tenantID
}

// GetToken acquires a token once for tenantID, clientID and scopes.
func GetToken(
	ctx context.Context,
	tenantID, clientID string,
	scopes []string,
	opts ...Option,
) (string, error) {
	p, err := New(Config{TenantID: tenantID, ClientID: clientID, Scopes: scopes}, opts...)
	if err != nil {
		return "", err
	}
	tok, err := p.AcquireToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
