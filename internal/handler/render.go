package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/rjweb/internal/auth"
)

var publicPages = []string{"home.html", "about.html", "services.html", "blog.html", "contact.html", "login.html"}

var adminPages = []string{
	"admin_dashboard.html",
	"admin_edit_home.html",
	"admin_edit_about.html",
	"admin_edit_services.html",
	"admin_manage_blog.html",
	"admin_users.html",
	"admin_profile.html",
}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Local().Format("Jan 02, 2006 15:04")
	},
}

// LoadTemplates parses one template set per page so each page can define
// its own "content" block. Public pages share layout.html, admin pages
// share admin_layout.html.
func LoadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	load := func(layout string, pages []string) error {
		for _, page := range pages {
			t, err := template.New(layout).Funcs(templateFuncs).ParseFS(fsys, layout, page)
			if err != nil {
				return fmt.Errorf("parse %s: %w", page, err)
			}
			templates[page] = t
		}
		return nil
	}
	if err := load("layout.html", publicPages); err != nil {
		return nil, err
	}
	if err := load("admin_layout.html", adminPages); err != nil {
		return nil, err
	}
	return templates, nil
}

// Renderer executes page templates and manages flash messages.
type Renderer struct {
	templates     map[string]*template.Template
	siteName      string
	secureCookies bool
	logger        *slog.Logger
}

func NewRenderer(tmpl map[string]*template.Template, siteName string, secureCookies bool, logger *slog.Logger) *Renderer {
	return &Renderer{
		templates:     tmpl,
		siteName:      siteName,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	tmpl, ok := rd.templates[name]
	if !ok {
		rd.logger.Error("template not found", "name", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	layout := "layout.html"
	if strings.HasPrefix(name, "admin_") {
		layout = "admin_layout.html"
	}

	if data == nil {
		data = map[string]any{}
	}
	data["SiteName"] = rd.siteName
	data["Year"] = time.Now().Year()
	data["Username"] = auth.Username(r.Context())
	data["Flashes"] = rd.popFlashes(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layout, data); err != nil {
		rd.logger.Error("template render", "name", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// redirect flashes message and sends the client to url with 303 See Other.
func (rd *Renderer) redirect(w http.ResponseWriter, r *http.Request, url, category, message string) {
	if message != "" {
		rd.flash(w, r, category, message)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (rd *Renderer) serverError(w http.ResponseWriter, msg string, err error) {
	rd.logger.Error(msg, "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func (rd *Renderer) secure(r *http.Request) bool {
	return rd.secureCookies || r.TLS != nil
}
