package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// Twitter OAuth2 endpoints.
const (
	defaultTwitterAuthURL  = "https://twitter.com/i/oauth2/authorize"
	defaultTwitterTokenURL = "https://api.twitter.com/2/oauth2/token"
	defaultTwitterUserURL  = "https://api.twitter.com/2/users/me?user.fields=name,username,profile_image_url"
)

// twitterProvider authenticates via Twitter OAuth2. Twitter mandates PKCE and
// authenticates the token request with HTTP Basic credentials rather than a
// client_secret form field. There is no email scope: the identity email is
// synthesized as "@username". Twitter carries no group information, so it is
// only usable in marketplace flows.
type twitterProvider struct {
	oauth2  *oauth2.Config
	client  *http.Client
	userURL string
}

func newTwitter(cfg Config, callbackURL string) *twitterProvider {
	return &twitterProvider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"users.read", "tweet.read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultTwitterAuthURL,
				TokenURL:  defaultTwitterTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client:  newHTTPClient(),
		userURL: defaultTwitterUserURL,
	}
}

func (p *twitterProvider) Name() string                   { return string(KindTwitter) }
func (p *twitterProvider) DisplayName() string            { return "Twitter" }
func (p *twitterProvider) RoleMapping() map[string]string { return nil }
func (p *twitterProvider) RequiresPKCE() bool             { return true }

func (p *twitterProvider) AuthorizationURL(state, codeChallenge string) string {
	return p.oauth2.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *twitterProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error) {
	tok, err := exchangeCode(ctx, p.oauth2, p.client, p.Name(), code, codeVerifier)
	if err != nil {
		return nil, err
	}

	var userRes struct {
		Data *struct {
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := getJSON(ctx, p.client, p.userURL, bearerHeader(tok.AccessToken), &userRes); err != nil {
		return nil, exchangeErr(p.Name(), StageUserinfo, "user fetch failed", err)
	}
	if userRes.Data == nil || userRes.Data.Username == "" {
		return nil, exchangeErr(p.Name(), StageUserinfo, "user response lacks a username", nil)
	}

	user := userRes.Data
	name := user.Name
	if name == "" {
		name = user.Username
	}
	return &Identity{
		Email:     "@" + user.Username,
		Name:      name,
		Groups:    []string{},
		AvatarURL: user.ProfileImageURL,
	}, nil
}
