package clawgateway

import (
	"html/template"
	"io"
)

// LoginProvider is one sign-in button on the login page.
type LoginProvider struct {
	Name        string
	DisplayName string
}

// LoginProfile is one entry in the marketplace profile picker.
type LoginProfile struct {
	ID          string
	Description string
	Default     bool
}

// LoginPageData feeds the login page renderer.
type LoginPageData struct {
	Providers []LoginProvider
	Profiles  []LoginProfile
	Error     string
	DevMode   bool
}

// AdminPageData feeds the admin dashboard renderer.
type AdminPageData struct {
	Email string
	Mode  Mode
}

// PageRenderer renders the gateway's own HTML pages. The gateway ships a
// plain built-in renderer; embedders can swap in their own.
type PageRenderer interface {
	LoginPage(w io.Writer, data LoginPageData) error
	AdminPage(w io.Writer, data AdminPageData) error
}

type htmlRenderer struct {
	login *template.Template
	admin *template.Template
}

// NewHTMLRenderer returns the built-in template renderer.
func NewHTMLRenderer() PageRenderer {
	return &htmlRenderer{
		login: template.Must(template.New("login").Parse(loginTemplate)),
		admin: template.Must(template.New("admin").Parse(adminTemplate)),
	}
}

func (r *htmlRenderer) LoginPage(w io.Writer, data LoginPageData) error {
	return r.login.Execute(w, data)
}

func (r *htmlRenderer) AdminPage(w io.Writer, data AdminPageData) error {
	return r.admin.Execute(w, data)
}

const loginTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>ClawGateway — Sign in</title>
<style>
body{font-family:system-ui,sans-serif;background:#0f1115;color:#e6e6e6;display:flex;justify-content:center;padding-top:10vh}
.card{background:#1a1d24;border-radius:12px;padding:2rem;width:22rem}
a.btn{display:block;text-align:center;background:#2b6cb0;color:#fff;text-decoration:none;padding:.6rem;border-radius:8px;margin:.5rem 0}
.err{background:#742a2a;padding:.5rem;border-radius:6px;margin-bottom:1rem}
select{width:100%;padding:.5rem;margin-bottom:1rem;border-radius:6px}
</style></head>
<body><div class="card">
<h1>ClawGateway</h1>
{{if .Error}}<div class="err">{{.Error}}</div>{{end}}
{{if .Profiles}}
<label for="profile">Profile</label>
<select id="profile" onchange="document.querySelectorAll('a.btn').forEach(a=>{const u=new URL(a.href);u.searchParams.set('profile',this.value);a.href=u})">
{{range .Profiles}}<option value="{{.ID}}"{{if .Default}} selected{{end}}>{{.ID}}{{if .Description}} — {{.Description}}{{end}}</option>{{end}}
</select>
{{end}}
{{range .Providers}}<a class="btn" href="/auth/{{.Name}}">Sign in with {{.DisplayName}}</a>{{end}}
{{if .DevMode}}<a class="btn" href="/dev/login">Dev login</a>{{end}}
</div></body></html>
`

const adminTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>ClawGateway — Admin</title>
<style>
body{font-family:system-ui,sans-serif;background:#0f1115;color:#e6e6e6;padding:2rem}
pre{background:#1a1d24;padding:1rem;border-radius:8px;overflow:auto}
</style></head>
<body>
<h1>Admin dashboard</h1>
<p>Signed in as {{.Email}} · mode: {{.Mode}}</p>
<pre id="cfg">loading…</pre>
<script>
fetch('/admin/api/config').then(r=>r.json()).then(c=>{document.getElementById('cfg').textContent=JSON.stringify(c,null,2)})
</script>
</body></html>
`
