package app

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/gate"
	"jobfolio/web/internal/route"
	"jobfolio/web/internal/session"
)

//go:embed templates/*.html
var pageFS embed.FS

var pageTemplates = template.Must(template.ParseFS(pageFS, "templates/*.html"))

// pageTitles names every page the shell can render.
var pageTitles = map[string]string{
	"/":                "Jobfolio",
	"/about":           "About",
	"/contact":         "Contact",
	"/terms":           "Terms",
	"/privacy":         "Privacy",
	"/dashboard":       "Dashboard",
	"/profile":         "Profile",
	"/resume":          "Resume",
	"/introduce":       "Self-introduction",
	"/spec-management": "Specs",
	"/job-calendar":    "Job calendar",
	"/community":       "Community",
	"/statistics":      "Statistics",
	"/settings":        "Settings",
	route.LoginPath:    "Log in",
	route.SignupPath:   "Sign up",
}

type navItem struct {
	Path   string
	Title  string
	Active bool
}

type pageData struct {
	Title    string
	Path     string
	Session  session.Session
	Sidebar  []navItem
	Redirect string
	Error    string
	Reason   string
}

// Pages renders the layout shell for every navigable route.
type Pages struct {
	service  *Service
	resolver *gate.Resolver
}

func NewPages(service *Service, resolver *gate.Resolver) *Pages {
	return &Pages{service: service, resolver: resolver}
}

// Handler guards every page with the mount gate.
func (p *Pages) Handler() http.Handler {
	mount := gate.NewMount(p.resolver, http.HandlerFunc(p.loading))
	return mount.Guard(http.HandlerFunc(p.serve))
}

func (p *Pages) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if r.Method == http.MethodPost && path == route.LoginPath {
		p.loginForm(w, r)
		return
	}
	if r.Method == http.MethodPost && path == "/logout" {
		p.logoutForm(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	title, ok := titleFor(path)
	if !ok {
		p.render(w, r, http.StatusNotFound, "notfound.html", pageData{Title: "Not found", Path: path})
		return
	}

	data := pageData{Title: title, Path: path}
	switch path {
	case route.LoginPath:
		data.Redirect = r.URL.Query().Get("redirect")
		data.Reason = r.URL.Query().Get("reason")
		p.render(w, r, http.StatusOK, "login.html", data)
	case route.SignupPath:
		p.render(w, r, http.StatusOK, "signup.html", data)
	default:
		p.render(w, r, http.StatusOK, "page.html", data)
	}
}

func (p *Pages) loginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	redirect := r.PostForm.Get("redirect")
	_, err := p.service.Login(r.Context(), p.resolver.ClientStore(w, r), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		status, _, message, _ := mapError(err)
		p.render(w, r, status, "login.html", pageData{
			Title:    pageTitles[route.LoginPath],
			Path:     route.LoginPath,
			Redirect: redirect,
			Error:    message,
		})
		return
	}
	http.Redirect(w, r, safeRedirect(redirect), http.StatusSeeOther)
}

func (p *Pages) logoutForm(w http.ResponseWriter, r *http.Request) {
	creds := p.resolver.ClientStore(w, r)
	sess, _ := session.FromContext(r.Context())
	if err := p.service.Logout(r.Context(), creds, sess); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("clear credentials failed")
	}
	http.Redirect(w, r, route.LoginPath, http.StatusSeeOther)
}

// loading is the neutral shell shown while no verdict is available. It
// reloads itself so the guard gets another chance.
func (p *Pages) loading(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusServiceUnavailable, "loading.html", pageData{Title: "Loading", Path: r.URL.Path})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if sess, ok := session.FromContext(r.Context()); ok {
		data.Session = sess
		if sess.Authenticated() {
			data.Sidebar = sidebar(data.Path)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("render page failed")
	}
}

// titleFor accepts exact pages and sub-pages of protected sections.
func titleFor(path string) (string, bool) {
	if title, ok := pageTitles[path]; ok {
		return title, true
	}
	for _, prefix := range route.ProtectedPrefixes() {
		if strings.HasPrefix(path, prefix+"/") {
			return pageTitles[prefix], true
		}
	}
	return "", false
}

func sidebar(current string) []navItem {
	var items []navItem
	for _, prefix := range route.ProtectedPrefixes() {
		items = append(items, navItem{
			Path:   prefix,
			Title:  pageTitles[prefix],
			Active: current == prefix || strings.HasPrefix(current, prefix+"/"),
		})
	}
	return items
}
