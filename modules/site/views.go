package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/anamartins/folio/svc/auth"
	"github.com/anamartins/folio/svc/blog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"home", "portfolio", "blog_list", "blog_article", "contact", "not_found"}

// Views holds the compiled page templates. Each page shares the layout
// but owns its content block, so pages are parsed independently.
type Views struct {
	pages map[string]*template.Template
}

// NewViews compiles the embedded templates.
func NewViews() (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template, len(pageNames))}

	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		v.pages[name] = t
	}

	return v, nil
}

// Render writes the named page with the given data.
func (v *Views) Render(w io.Writer, page string, data pageData) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

type contactForm struct {
	Name  string
	Email string
	Body  string
}

// pageData is the shared view model. Page handlers fill the fields their
// template reads; the layout consumes the common ones.
type pageData struct {
	Title         string
	Authenticated bool
	User          *auth.UserRecord
	Notice        *auth.Notice

	Articles []blog.Article
	Article  *blog.Article
	Body     template.HTML

	Form      contactForm
	FormError string
	Sent      bool
}
