package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	tea "charm.land/bubbletea/v2"
	"github.com/go-authgate/msal-bearer/bearer"
	"github.com/go-authgate/msal-bearer/tui"
)

// API client kinds selectable with -api-client.
const (
	apiClientHTTP   = "http"
	apiClientOAuth2 = "oauth2"
	apiClientResty  = "resty"
)

const (
	apiRequestTimeout = 30 * time.Second
	tokenPreviewLen   = 50
)

var (
	tenantID    string
	clientID    string
	scopes      []string
	tokenFile   string
	authority   string
	loginHint   string
	authMode    string
	authTimeout time.Duration
	redirectURI string
	useKeyring  bool
	apiURL      string
	apiClient   string

	flagTenantID    *string
	flagClientID    *string
	flagScopes      *string
	flagTokenFile   *string
	flagAuthority   *string
	flagLoginHint   *string
	flagMode        *string
	flagTimeout     *string
	flagRedirectURI *string
	flagKeyring     *string
	flagAPIURL      *string
	flagAPIClient   *string

	configInitialized bool
)

func init() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Define flags (but don't parse yet to avoid conflicts with test flags)
	flagTenantID = flag.String("tenant-id", "", "Tenant ID or domain (required, or set TENANT_ID env)")
	flagClientID = flag.String("client-id", "", "Application (client) ID (required, or set CLIENT_ID env)")
	flagScopes = flag.String(
		"scopes",
		"",
		"Comma or space separated scopes (default: <client-id>/.default or SCOPES env)",
	)
	flagTokenFile = flag.String(
		"token-file",
		"",
		"Token cache file (default: "+bearer.DefaultCacheFile+" or TOKEN_FILE env)",
	)
	flagAuthority = flag.String("authority", "", "Authority URL (default: login.microsoftonline.com/<tenant>)")
	flagLoginHint = flag.String("login-hint", "", "Username to select and pre-fill (or LOGIN_HINT env)")
	flagMode = flag.String("mode", "", "Interactive login mode: browser or device (or AUTH_MODE env)")
	flagTimeout = flag.String("timeout", "", "Interactive login timeout, e.g. 2m (or AUTH_TIMEOUT env)")
	flagRedirectURI = flag.String("redirect-uri", "", "Loopback redirect URI (or REDIRECT_URI env)")
	flagKeyring = flag.String("keyring", "", "Store the cache in the OS keychain: true or false (or USE_KEYRING env)")
	flagAPIURL = flag.String("api-url", "", "API to call with the token (or API_URL env)")
	flagAPIClient = flag.String("api-client", "", "API client: http, oauth2 or resty (or API_CLIENT env)")
}

// initConfig parses flags and initializes configuration
// Separated from init() to avoid conflicts with test flag parsing
func initConfig() {
	if configInitialized {
		return
	}
	configInitialized = true

	flag.Parse()

	// Priority: flag > env > default
	tenantID = getConfig(*flagTenantID, "TENANT_ID", "")
	clientID = getConfig(*flagClientID, "CLIENT_ID", "")
	scopes = parseScopes(getConfig(*flagScopes, "SCOPES", ""))
	tokenFile = getConfig(*flagTokenFile, "TOKEN_FILE", bearer.DefaultCacheFile)
	authority = getConfig(*flagAuthority, "AUTHORITY", "")
	loginHint = getConfig(*flagLoginHint, "LOGIN_HINT", "")
	authMode = getConfig(*flagMode, "AUTH_MODE", bearer.ModeBrowser)
	redirectURI = getConfig(*flagRedirectURI, "REDIRECT_URI", "")
	apiURL = getConfig(*flagAPIURL, "API_URL", "")
	apiClient = getConfig(*flagAPIClient, "API_CLIENT", apiClientHTTP)

	var err error
	authTimeout, err = parseTimeout(getConfig(*flagTimeout, "AUTH_TIMEOUT", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid AUTH_TIMEOUT: %v\n", err)
		os.Exit(1)
	}
	useKeyring, err = parseBool(getConfig(*flagKeyring, "USE_KEYRING", "false"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid USE_KEYRING: %v\n", err)
		os.Exit(1)
	}

	if tenantID == "" || clientID == "" {
		fmt.Println("Error: TENANT_ID and CLIENT_ID must be set. Please provide them via:")
		fmt.Println("  1. Command line flags: -tenant-id=<tenant> -client-id=<client-id>")
		fmt.Println("  2. Environment variables: TENANT_ID=<tenant> CLIENT_ID=<client-id>")
		fmt.Println("  3. .env file: TENANT_ID=<tenant> CLIENT_ID=<client-id>")
		fmt.Println("\nBoth are shown on the app registration overview page.")
		os.Exit(1)
	}

	if apiURL != "" {
		if err := validateAPIURL(apiURL); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid API_URL: %v\n", err)
			os.Exit(1)
		}
		if strings.HasPrefix(strings.ToLower(apiURL), "http://") {
			fmt.Fprintln(
				os.Stderr,
				"⚠️  WARNING: Using HTTP instead of HTTPS. The token will be transmitted in plaintext!",
			)
			fmt.Fprintln(os.Stderr)
		}
	}
}

// getConfig returns value with priority: flag > env > default
func getConfig(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return getEnv(envKey, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseScopes splits a comma or whitespace separated scope list.
func parseScopes(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// parseTimeout accepts a Go duration or a number of seconds. Empty means default.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got: %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got: %s", d)
	}
	return d, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "", "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", raw)
	}
}

// validateAPIURL validates that the API URL is properly formatted
func validateAPIURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}

// isTTY reports whether stderr is a character device (interactive terminal).
// We check stderr because the TUI renders to stderr, allowing stdout to be piped.
func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func main() {
	initConfig()

	if isTTY() {
		// Run TUI program on stderr so stdout pipes are not corrupted
		m := tui.NewModel()
		// WithInput(nil): disable stdin/keyboard input so BubbleTea skips terminal
		// capability queries (?2026/?2027). Ctrl+C is handled by signal.NotifyContext.
		p := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithInput(nil))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
		}()

		d := tui.NewProgramDisplayer(p)
		d.Banner()
		runErr := run(d, os.Stdout)
		p.Quit() // let BubbleTea drain terminal query responses before exiting
		wg.Wait()
		if runErr != nil {
			os.Exit(1)
		}
	} else {
		d := tui.NewPlainDisplayer(os.Stderr)
		d.Banner()
		if err := run(d, os.Stdout); err != nil {
			os.Exit(1)
		}
	}
}

// newStore returns the cache location selected by configuration.
// The keychain entry falls back to the token file when no keychain is available.
func newStore() (bearer.Store, error) {
	fs, err := bearer.NewFileStore(tokenFile)
	if err != nil {
		return nil, err
	}
	if !useKeyring {
		return fs, nil
	}
	return bearer.NewKeyringStore(bearer.DefaultKeyringService, clientID, fs), nil
}

func newProvider(d tui.Displayer) (*bearer.Provider, error) {
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	prompter, err := bearer.PrompterFor(authMode)
	if err != nil {
		return nil, err
	}
	return bearer.New(bearer.Config{
		TenantID:    tenantID,
		ClientID:    clientID,
		Scopes:      scopes,
		Authority:   authority,
		LoginHint:   loginHint,
		RedirectURI: redirectURI,
		Timeout:     authTimeout,
	},
		bearer.WithStore(store),
		bearer.WithPrompter(prompter),
		bearer.WithReporter(d),
	)
}

func run(d tui.Displayer, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(d)
	if err != nil {
		d.Fatal(err)
		return err
	}

	tok, err := provider.AcquireToken(ctx)
	if err != nil {
		d.Fatal(err)
		return err
	}

	var expiresIn time.Duration
	if !tok.ExpiresOn.IsZero() {
		expiresIn = time.Until(tok.ExpiresOn).Round(time.Second)
	}
	username := tok.Username
	if username == "" {
		if name := bearer.LoginName(); name != "" {
			username = name + " (local user)"
		}
	}
	d.Done(username, tokenPreview(tok.AccessToken), expiresIn)

	if apiURL == "" {
		return nil
	}

	client, err := newAPIClient(ctx, apiClient, provider)
	if err != nil {
		d.Fatal(err)
		return err
	}

	d.CallingAPI(apiURL)
	status, body, err := client.Get(ctx, apiURL)
	if err != nil {
		d.APICallFailed(err)
		return err
	}
	d.APICallOK(status)

	if _, err := out.Write(body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func tokenPreview(accessToken string) string {
	if len(accessToken) > tokenPreviewLen {
		return accessToken[:tokenPreviewLen]
	}
	return accessToken
}

// apiCaller performs an authenticated GET and returns the status and body.
// Non-2xx responses are errors.
type apiCaller interface {
	Get(ctx context.Context, rawURL string) (int, []byte, error)
}

// newAPIClient builds the API client kind, each wired to src through a
// different bearer adapter.
func newAPIClient(ctx context.Context, kind string, src bearer.TokenSource) (apiCaller, error) {
	base := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	switch kind {
	case "", apiClientHTTP:
		rc, err := retry.NewBackgroundClient(
			retry.WithHTTPClient(&http.Client{Transport: bearer.NewTransport(src, base)}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create retry client: %w", err)
		}
		return &retryCaller{client: rc}, nil

	case apiClientOAuth2:
		return &httpCaller{client: &http.Client{
			Transport: &oauth2.Transport{
				Source: bearer.OAuth2TokenSource(ctx, src),
				Base:   base,
			},
		}}, nil

	case apiClientResty:
		rc := resty.New().
			SetTransport(base).
			OnBeforeRequest(bearer.RestyAuth(src))
		return &restyCaller{client: rc}, nil

	default:
		return nil, fmt.Errorf("unknown API client %q (want http, oauth2 or resty)", kind)
	}
}

type retryCaller struct {
	client *retry.Client
}

func (c *retryCaller) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Execute request with retry logic
	resp, err := c.client.DoWithContext(reqCtx, req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

type httpCaller struct {
	client *http.Client
}

func (c *httpCaller) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func readResponse(resp *http.Response) (int, []byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, fmt.Errorf(
			"API call failed with status %d: %s",
			resp.StatusCode,
			string(body),
		)
	}
	return resp.StatusCode, body, nil
}

type restyCaller struct {
	client *resty.Client
}

func (c *restyCaller) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	resp, err := c.client.R().SetContext(reqCtx).Get(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.IsError() {
		return resp.StatusCode(), resp.Body(), fmt.Errorf(
			"API call failed with status %d: %s",
			resp.StatusCode(),
			resp.String(),
		)
	}
	return resp.StatusCode(), resp.Body(), nil
}
