// Package web holds the server-rendered views of the portal.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
)

//go:embed views/*.html
var views embed.FS

const layoutFile = "views/layout.html"

// Renderer renders embedded page templates inside the shared layout. It
// implements fiber.Views so handlers can call c.Render.
type Renderer struct {
	appName string
	pages   map[string]*template.Template
}

var _ fiber.Views = (*Renderer)(nil)

// NewRenderer parses every page template up front.
func NewRenderer(appName string) (*Renderer, error) {
	r := &Renderer{appName: appName, pages: make(map[string]*template.Template)}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load parses the embedded templates.
func (r *Renderer) Load() error {
	files, err := fs.Glob(views, "views/*.html")
	if err != nil {
		return err
	}
	funcs := template.FuncMap{"join": strings.Join}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(views, layoutFile, file)
		if err != nil {
			return fmt.Errorf("parse view %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	r.pages = pages
	return nil
}

// Render writes the named page. binding is a fiber.Map; AppName is filled
// in when missing.
func (r *Renderer) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	data := fiber.Map{}
	switch b := binding.(type) {
	case fiber.Map:
		for k, v := range b {
			data[k] = v
		}
	case map[string]interface{}:
		for k, v := range b {
			data[k] = v
		}
	case nil:
	default:
		return fmt.Errorf("view %q: unsupported binding %T", name, binding)
	}
	if _, ok := data["AppName"]; !ok {
		data["AppName"] = r.appName
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
