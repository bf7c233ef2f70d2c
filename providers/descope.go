package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// defaultDescopeBase is the Descope hosted OAuth2 root. Descope uses the
// project ID as the OAuth client ID.
const defaultDescopeBase = "https://api.descope.com/oauth2/v1"

// descopeProvider authenticates against Descope's hosted OAuth2 endpoints.
// Groups come from the userinfo "groups" claim, falling back to "roles".
type descopeProvider struct {
	oauth2      *oauth2.Config
	client      *http.Client
	userinfoURL string
	roleMapping map[string]string
}

func newDescope(cfg Config, callbackURL string) *descopeProvider {
	return &descopeProvider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultDescopeBase + "/authorize",
				TokenURL:  defaultDescopeBase + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:      newHTTPClient(),
		userinfoURL: defaultDescopeBase + "/userinfo",
		roleMapping: cfg.RoleMapping,
	}
}

func (p *descopeProvider) Name() string                   { return string(KindDescope) }
func (p *descopeProvider) DisplayName() string            { return "Descope" }
func (p *descopeProvider) RoleMapping() map[string]string { return p.roleMapping }
func (p *descopeProvider) RequiresPKCE() bool             { return false }

func (p *descopeProvider) AuthorizationURL(state, _ string) string {
	return p.oauth2.AuthCodeURL(state)
}

func (p *descopeProvider) Exchange(ctx context.Context, code, _ string) (*Identity, error) {
	tok, err := exchangeCode(ctx, p.oauth2, p.client, p.Name(), code, "")
	if err != nil {
		return nil, err
	}

	var info struct {
		Email   string   `json:"email"`
		Name    string   `json:"name"`
		Groups  []string `json:"groups"`
		Roles   []string `json:"roles"`
		Picture string   `json:"picture"`
	}
	if err := getJSON(ctx, p.client, p.userinfoURL, bearerHeader(tok.AccessToken), &info); err != nil {
		return nil, exchangeErr(p.Name(), StageUserinfo, "userinfo fetch failed", err)
	}
	if info.Email == "" {
		return nil, exchangeErr(p.Name(), StageUserinfo, "userinfo response lacks an email", nil)
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}
	groups := info.Groups
	if len(groups) == 0 {
		groups = info.Roles
	}
	if groups == nil {
		groups = []string{}
	}
	return &Identity{Email: info.Email, Name: name, Groups: groups, AvatarURL: info.Picture}, nil
}
