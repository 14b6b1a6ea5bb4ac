// Package bearer acquires OAuth2 bearer tokens for public-client
// applications registered in Microsoft Entra ID.
//
// A Provider first tries the account stored in its persisted credential
// cache, letting the identity library refresh an expired access token with
// the cached refresh token, and only falls back to an interactive login
// (system browser or device code) when that fails. The cache is read before
// and written after every change, so later runs reuse the login.
//
// Transport, RestyAuth and OAuth2TokenSource attach the token to outgoing
// requests of net/http, resty and golang.org/x/oauth2 clients respectively.
//
//	p, err := bearer.New(bearer.Config{
//		TenantID: tenantID,
//		ClientID: clientID,
//		Scopes:   []string{"api://" + clientID + "/Calculate.All"},
//	})
//	if err != nil {
//		return err
//	}
//	client := &http.Client{Transport: bearer.NewTransport(p, nil)}
package bearer
