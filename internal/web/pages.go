package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	appLog "presenceanalyzer/internal/log"
)

const (
	defaultPage     = "presence_weekday"
	missingTemplate = "Requested template does not exist."
)

// pageTitles lists the dashboard pages in navigation order.
var pageTitles = []struct {
	Name  string
	Title string
}{
	{"presence_weekday", "Presence by weekday"},
	{"mean_time_weekday", "Presence mean time"},
	{"presence_start_end", "Presence start-end"},
	{"monthly_hours", "Monthly hours"},
}

type navItem struct {
	Name   string
	Title  string
	Active bool
}

type pageData struct {
	Page  string
	Title string
	Nav   []navItem
}

// loadPages parses every page template together with the shared layout.
func loadPages() map[string]*template.Template {
	pages := make(map[string]*template.Template)
	files, err := fs.Glob(assets, "templates/*.html")
	if err != nil {
		appLog.Error("failed to list page templates", err)
		return pages
	}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "layout" {
			continue
		}
		tmpl, err := template.ParseFS(assets, "templates/layout.html", f)
		if err != nil {
			appLog.Error("failed to parse page template", err, "template", name)
			continue
		}
		pages[name] = tmpl
	}
	return pages
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/render/"+defaultPage, http.StatusFound)
}

// handleRender renders one of the embedded dashboard pages by name.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("template")
	tmpl, ok := s.pages[name]
	if !ok {
		appLog.Debug("template not found", "template", name)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(missingTemplate))
		return
	}

	data := pageData{Page: name}
	for _, p := range pageTitles {
		if _, ok := s.pages[p.Name]; !ok {
			continue
		}
		active := p.Name == name
		if active {
			data.Title = p.Title
		}
		data.Nav = append(data.Nav, navItem{Name: p.Name, Title: p.Title, Active: active})
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		appLog.Error("failed to render page", err, "template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// staticFileServer serves the embedded dashboard scripts and styles under
// /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static files not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
