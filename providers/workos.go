package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// defaultWorkOSAPIBase is the WorkOS SSO API root.
const defaultWorkOSAPIBase = "https://api.workos.com"

// workosProvider authenticates via WorkOS SSO. Unlike the OIDC-shaped
// providers, the token request body is JSON and the identity rides inside the
// token response's "profile" object, so there is no separate userinfo call.
type workosProvider struct {
	clientID     string
	clientSecret string
	callbackURL  string
	organization string
	connection   string
	apiBase      string
	client       *http.Client
	roleMapping  map[string]string
}

func newWorkOS(cfg Config, callbackURL string) *workosProvider {
	return &workosProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		callbackURL:  callbackURL,
		organization: cfg.OrganizationID,
		connection:   cfg.ConnectionID,
		apiBase:      defaultWorkOSAPIBase,
		client:       newHTTPClient(),
		roleMapping:  cfg.RoleMapping,
	}
}

func (p *workosProvider) Name() string                   { return string(KindWorkOS) }
func (p *workosProvider) DisplayName() string            { return "WorkOS" }
func (p *workosProvider) RoleMapping() map[string]string { return p.roleMapping }
func (p *workosProvider) RequiresPKCE() bool             { return false }

func (p *workosProvider) AuthorizationURL(state, _ string) string {
	params := url.Values{
		"client_id":     {p.clientID},
		"redirect_uri":  {p.callbackURL},
		"response_type": {"code"},
		"state":         {state},
	}
	if p.organization != "" {
		params.Set("organization", p.organization)
	}
	if p.connection != "" {
		params.Set("connection", p.connection)
	}
	return p.apiBase + "/sso/authorize?" + params.Encode()
}

func (p *workosProvider) Exchange(ctx context.Context, code, _ string) (*Identity, error) {
	payload := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     p.clientID,
		"client_secret": p.clientSecret,
	}

	var tokenRes struct {
		AccessToken string `json:"access_token"`
		Profile     *struct {
			Email     string   `json:"email"`
			FirstName string   `json:"first_name"`
			LastName  string   `json:"last_name"`
			Groups    []string `json:"groups"`
		} `json:"profile"`
	}
	if err := postJSON(ctx, p.client, p.apiBase+"/sso/token", payload, &tokenRes); err != nil {
		return nil, exchangeErr(p.Name(), StageToken, "token request failed", err)
	}
	if tokenRes.Profile == nil {
		return nil, exchangeErr(p.Name(), StageToken, "token response lacks a profile", nil)
	}

	profile := tokenRes.Profile
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		name = profile.Email
	}
	groups := profile.Groups
	if groups == nil {
		groups = []string{}
	}
	return &Identity{Email: profile.Email, Name: name, Groups: groups}, nil
}
