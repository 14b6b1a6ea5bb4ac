package bearer

import (
	"context"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/pkg/browser"
)

// Interactive modes understood by PrompterFor.
const (
	ModeBrowser    = "browser"
	ModeDeviceCode = "device"
)

// PromptRequest carries what an interactive login needs from the Provider.
type PromptRequest struct {
	Scopes      []string
	LoginHint   string
	DomainHint  string
	RedirectURI string
	Reporter    Reporter
}

// Prompter performs one interactive acquisition, blocking until the user
// finishes, abandons the flow, or ctx is done.
type Prompter interface {
	Mode() string
	Prompt(ctx context.Context, client Client, req PromptRequest) (public.AuthResult, error)
}

// PrompterFor returns the prompter for an interactive mode name.
func PrompterFor(mode string) (Prompter, error) {
	switch mode {
	case "", ModeBrowser:
		return BrowserPrompter{}, nil
	case ModeDeviceCode:
		return DeviceCodePrompter{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown interactive mode %q", ErrInvalidConfig, mode)
	}
}

// BrowserPrompter runs the authorization code flow with PKCE in the system
// browser, receiving the redirect on a loopback listener.
type BrowserPrompter struct {
	// OpenURL opens the login page. Defaults to the system browser.
	OpenURL func(url string) error
}

func (BrowserPrompter) Mode() string { return ModeBrowser }

func (p BrowserPrompter) Prompt(
	ctx context.Context,
	client Client,
	req PromptRequest,
) (public.AuthResult, error) {
	open := p.OpenURL
	if open == nil {
		open = browser.OpenURL
	}

	opts := []public.AcquireInteractiveOption{
		public.WithRedirectURI(req.RedirectURI),
		public.WithOpenURL(func(url string) error {
			req.Reporter.BrowserOpened(url)
			return open(url)
		}),
	}
	if req.LoginHint != "" {
		opts = append(opts, public.WithLoginHint(req.LoginHint))
	}
	if req.DomainHint != "" {
		opts = append(opts, public.WithDomainHint(req.DomainHint))
	}

	return client.AcquireTokenInteractive(ctx, req.Scopes, opts...)
}

// DeviceCodePrompter runs the device authorization grant, for hosts
// without a browser.
type DeviceCodePrompter struct{}

func (DeviceCodePrompter) Mode() string { return ModeDeviceCode }

func (DeviceCodePrompter) Prompt(
	ctx context.Context,
	client Client,
	req PromptRequest,
) (public.AuthResult, error) {
	dc, err := client.AcquireTokenByDeviceCode(ctx, req.Scopes)
	if err != nil {
		return public.AuthResult{}, fmt.Errorf("device code request failed: %w", err)
	}

	req.Reporter.DeviceCodeReady(
		dc.Result.UserCode,
		dc.Result.VerificationURL,
		dc.Result.Message,
		dc.Result.ExpiresOn,
	)

	return dc.AuthenticationResult(ctx)
}
