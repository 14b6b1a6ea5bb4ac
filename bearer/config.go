package bearer

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAuthorityHost is the Microsoft Entra ID login endpoint.
	DefaultAuthorityHost = "https://login.microsoftonline.com"
	// DefaultRedirectURI is the loopback redirect registered for desktop apps.
	DefaultRedirectURI = "http://localhost"
	// DefaultTimeout bounds a single interactive login.
	DefaultTimeout = 5 * time.Minute
)

// Well-known tenant aliases accepted in place of a tenant ID.
var tenantAliases = map[string]bool{
	"common":        true,
	"organizations": true,
	"consumers":     true,
}

var domainPattern = regexp.MustCompile(
	`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}$`,
)

// Config holds the request parameters of a Provider.
// It is copied at construction and never mutated afterwards.
type Config struct {
	TenantID string
	ClientID string
	// Scopes defaults to "<ClientID>/.default" when empty.
	Scopes []string
	// Authority defaults to DefaultAuthorityHost + "/" + TenantID.
	Authority string
	// LoginHint selects the cached account and pre-fills the login prompt.
	LoginHint   string
	RedirectURI string
	// Timeout bounds the interactive step only.
	Timeout time.Duration
}

// withDefaults returns a copy of c with empty optional fields filled in.
func (c Config) withDefaults() Config {
	c.TenantID = strings.TrimSpace(c.TenantID)
	c.ClientID = strings.TrimSpace(c.ClientID)
	if len(c.Scopes) == 0 && c.ClientID != "" {
		c.Scopes = []string{DefaultScope(c.ClientID)}
	} else {
		c.Scopes = append([]string(nil), c.Scopes...)
	}
	if c.Authority == "" && c.TenantID != "" {
		c.Authority = TenantAuthority(c.TenantID)
	}
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate reports malformed identifiers. Validate does not contact the
// identity provider; an unknown but well-formed tenant fails at login time.
func (c Config) Validate() error {
	if err := validateTenantID(c.TenantID); err != nil {
		return err
	}
	if err := validateClientID(c.ClientID); err != nil {
		return err
	}
	if err := validateAuthority(c.Authority); err != nil {
		return err
	}
	for i, s := range c.Scopes {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: scope %d is blank", ErrInvalidConfig, i)
		}
	}
	return nil
}

func validateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant ID is empty", ErrInvalidConfig)
	}
	if tenantAliases[strings.ToLower(tenantID)] {
		return nil
	}
	if _, err := uuid.Parse(tenantID); err == nil {
		return nil
	}
	if domainPattern.MatchString(tenantID) {
		return nil
	}
	return fmt.Errorf(
		"%w: tenant %q is neither a UUID, a domain nor one of common/organizations/consumers",
		ErrInvalidConfig,
		tenantID,
	)
}

func validateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: client ID is empty", ErrInvalidConfig)
	}
	if _, err := uuid.Parse(clientID); err != nil {
		return fmt.Errorf("%w: client ID %q is not a UUID: %v", ErrInvalidConfig, clientID, err)
	}
	return nil
}

// validateAuthority accepts absolute https URLs only; the identity library
// rejects anything else.
func validateAuthority(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: authority is empty", ErrInvalidConfig)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid authority URL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: authority scheme must be https, got: %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: authority must include a host", ErrInvalidConfig)
	}
	return nil
}

// TenantAuthority returns the default authority URL for a tenant.
func TenantAuthority(tenantID string) string {
	return DefaultAuthorityHost + "/" + tenantID
}

// DefaultScope returns the scope requesting all statically configured
// permissions of the application.
func DefaultScope(clientID string) string {
	return clientID + "/.default"
}

// LoginName returns the login name of the current OS user, or "" if unknown.
func LoginName() string {
	for _, key := range []string{"LOGNAME", "USER", "LNAME", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
