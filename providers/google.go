package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
)

// defaultGoogleUserinfoURL is the v2 userinfo endpoint.
const defaultGoogleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// googleProvider authenticates via Google OAuth2. Google reports no group
// claim; for Workspace users the hosted-domain claim "hd" is surfaced as a
// single-element group list so domain-based role mappings work.
type googleProvider struct {
	oauth2      *oauth2.Config
	client      *http.Client
	userinfoURL string
	roleMapping map[string]string
}

func newGoogle(cfg Config, callbackURL string) *googleProvider {
	return &googleProvider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     oauthgoogle.Endpoint,
		},
		client:      newHTTPClient(),
		userinfoURL: defaultGoogleUserinfoURL,
		roleMapping: cfg.RoleMapping,
	}
}

func (p *googleProvider) Name() string                   { return string(KindGoogle) }
func (p *googleProvider) DisplayName() string            { return "Google" }
func (p *googleProvider) RoleMapping() map[string]string { return p.roleMapping }
func (p *googleProvider) RequiresPKCE() bool             { return false }

func (p *googleProvider) AuthorizationURL(state, _ string) string {
	return p.oauth2.AuthCodeURL(state, oauth2.SetAuthURLParam("access_type", "online"))
}

func (p *googleProvider) Exchange(ctx context.Context, code, _ string) (*Identity, error) {
	tok, err := exchangeCode(ctx, p.oauth2, p.client, p.Name(), code, "")
	if err != nil {
		return nil, err
	}

	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		HD      string `json:"hd"`
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
	groups := []string{}
	if info.HD != "" {
		groups = []string{info.HD}
	}
	return &Identity{Email: info.Email, Name: name, Groups: groups, AvatarURL: info.Picture}, nil
}
