package site

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anamartins/folio/svc/auth"
	"github.com/anamartins/folio/svc/blog"
	"github.com/anamartins/folio/svc/contact"
)

// Module renders the public pages and wires the per-domain routers under
// one site router.
type Module struct {
	views   *Views
	auth    *auth.Service
	blog    *blog.Service
	contact contact.Sender
	log     *slog.Logger
}

// Option configures the Module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates the site module.
func New(authSvc *auth.Service, blogSvc *blog.Service, sender contact.Sender, opts ...Option) (*Module, error) {
	views, err := NewViews()
	if err != nil {
		return nil, err
	}

	m := &Module{
		views:   views,
		auth:    authSvc,
		blog:    blogSvc,
		contact: sender,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Router mounts the site pages, the static assets, and the domain
// routers. Page navigations get a session attached (anonymous on first
// visit) and pass through the auth lifecycle guard so abandoned sign-in
// attempts are reconciled.
func (m *Module) Router() http.Handler {
	r := chi.NewRouter()

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Mount("/auth", m.auth.Router())
	r.Mount("/api/blog", m.blog.Router())

	r.Group(func(pages chi.Router) {
		pages.Use(m.auth.SessionMiddleware, m.auth.GuardMiddleware)
		pages.Get("/", m.handleHome)
		pages.Get("/portfolio", m.handlePortfolio)
		pages.Get("/blog", m.handleBlogList)
		pages.Get("/blog/{slug}", m.handleBlogArticle)
		pages.Get("/contact", m.handleContactForm)
		pages.Post("/contact", m.handleContactSubmit)
		pages.NotFound(m.handleNotFound)
	})

	return r
}

// base fills the layout fields every page shares.
func (m *Module) base(r *http.Request, title string) pageData {
	data := pageData{Title: title}

	state := m.auth.State(r.Context(), r)
	data.Authenticated = state.IsAuthenticated
	data.User = state.User

	if notice, ok := auth.NoticeFromContext(r.Context()); ok {
		data.Notice = notice
	}
	return data
}

func (m *Module) render(w http.ResponseWriter, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.views.Render(w, page, data); err != nil {
		m.log.Error("page render failed", slog.String("page", page), slog.Any("error", err))
	}
}

func (m *Module) handleHome(w http.ResponseWriter, r *http.Request) {
	data := m.base(r, "Home")

	articles := m.blog.List()
	if len(articles) > 3 {
		articles = articles[:3]
	}
	data.Articles = articles

	m.render(w, "home", data)
}

func (m *Module) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	m.render(w, "portfolio", m.base(r, "Portfolio"))
}

func (m *Module) handleBlogList(w http.ResponseWriter, r *http.Request) {
	data := m.base(r, "Blog")
	data.Articles = m.blog.List()
	m.render(w, "blog_list", data)
}

func (m *Module) handleBlogArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	article, body, err := m.blog.Get(slug)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			m.handleNotFound(w, r)
			return
		}
		m.log.Error("article render failed", slog.String("slug", slug), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := m.base(r, article.Title)
	data.Article = &article
	data.Body = body
	m.render(w, "blog_article", data)
}

func (m *Module) handleContactForm(w http.ResponseWriter, r *http.Request) {
	m.render(w, "contact", m.base(r, "Contact"))
}

func (m *Module) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	msg := contact.Message{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
		Body:  r.PostFormValue("body"),
	}

	data := m.base(r, "Contact")
	data.Form = contactForm{Name: msg.Name, Email: msg.Email, Body: msg.Body}

	if err := msg.Validate(); err != nil {
		data.FormError = "Please fill in your name, a valid email, and a message."
		w.WriteHeader(http.StatusUnprocessableEntity)
		m.render(w, "contact", data)
		return
	}

	if err := m.contact.Send(r.Context(), msg); err != nil {
		m.log.Error("contact delivery failed", slog.Any("error", err))
		data.FormError = "Sending failed. Please try again in a moment."
		w.WriteHeader(http.StatusBadGateway)
		m.render(w, "contact", data)
		return
	}

	data.Sent = true
	data.Form = contactForm{}
	m.render(w, "contact", data)
}

func (m *Module) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	m.render(w, "not_found", m.base(r, "Not found"))
}
