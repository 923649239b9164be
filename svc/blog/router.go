package blog

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type articleSummary struct {
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Tags    []string  `json:"tags,omitempty"`
	Summary string    `json:"summary,omitempty"`
}

type articleView struct {
	articleSummary
	HTML template.HTML `json:"html"`
}

// Router exposes the article API:
//
//	GET  /                 article list, newest first
//	GET  /{slug}           article with rendered body
//	POST /{slug}/completed reader finished the article (best-effort)
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleList)
	r.Get("/{slug}", s.handleGet)
	r.Post("/{slug}/completed", s.handleCompleted)

	return r
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	articles := s.List()
	out := make([]articleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, summaryOf(a))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Warn("list encode failed", "error", err)
	}
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	article, html, err := s.Get(slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "article not found", http.StatusNotFound)
			return
		}
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(articleView{articleSummary: summaryOf(article), HTML: html}); err != nil {
		s.log.Warn("article encode failed", "error", err)
	}
}

func (s *Service) handleCompleted(w http.ResponseWriter, r *http.Request) {
	if err := s.Completed(r.Context(), chi.URLParam(r, "slug")); err != nil {
		http.Error(w, "article not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func summaryOf(a Article) articleSummary {
	return articleSummary{
		Slug:    a.Slug,
		Title:   a.Title,
		Date:    a.Date,
		Tags:    a.Tags,
		Summary: a.Summary,
	}
}
