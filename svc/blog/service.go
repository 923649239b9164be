package blog

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/anamartins/folio/pkg/cache"
)

// Tracker receives reader analytics events.
type Tracker interface {
	Track(ctx context.Context, event string, props map[string]any)
}

const eventArticleCompleted = "Article Completed"

type noopTracker struct{}

func (noopTracker) Track(context.Context, string, map[string]any) {}

// Service serves parsed articles. Markdown is rendered on first read and
// kept in an LRU cache keyed by slug.
type Service struct {
	mu       sync.RWMutex
	articles map[string]Article
	order    []string

	rendered *cache.LRU[string, template.HTML]
	md       goldmark.Markdown
	tracker  Tracker
	log      *slog.Logger
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithTracker sets the analytics tracker.
func WithTracker(t Tracker) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService loads every .md file from the filesystem root. Files that
// fail to parse are skipped and logged; they never take the site down.
func NewService(cfg Config, content fs.FS, opts ...ServiceOption) (*Service, error) {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 64
	}

	s := &Service{
		articles: make(map[string]Article),
		rendered: cache.NewLRU[string, template.HTML](cacheSize),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		tracker: noopTracker{},
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(content); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load(content fs.FS) error {
	entries, err := fs.Glob(content, "*.md")
	if err != nil {
		return err
	}

	for _, name := range entries {
		data, err := fs.ReadFile(content, name)
		if err != nil {
			s.log.Warn("skipping unreadable article", slog.String("file", name), slog.Any("error", err))
			continue
		}

		article, err := parseArticle(data)
		if err != nil {
			s.log.Warn("skipping malformed article", slog.String("file", name), slog.Any("error", err))
			continue
		}
		if _, exists := s.articles[article.Slug]; exists {
			s.log.Warn("skipping duplicate slug", slog.String("file", name), slog.String("slug", article.Slug))
			continue
		}

		s.articles[article.Slug] = article
		s.order = append(s.order, article.Slug)
	}

	// Newest first.
	sort.Slice(s.order, func(i, j int) bool {
		return s.articles[s.order[i]].Date.After(s.articles[s.order[j]].Date)
	})

	s.log.Info("articles loaded", slog.Int("count", len(s.order)))
	return nil
}

// List returns article metadata, newest first.
func (s *Service) List() []Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Article, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.articles[slug])
	}
	return out
}

// Get returns the article and its rendered HTML.
func (s *Service) Get(slug string) (Article, template.HTML, error) {
	s.mu.RLock()
	article, ok := s.articles[slug]
	s.mu.RUnlock()
	if !ok {
		return Article{}, "", ErrNotFound
	}

	if html, ok := s.rendered.Get(slug); ok {
		return article, html, nil
	}

	var buf bytes.Buffer
	if err := s.md.Convert(article.body, &buf); err != nil {
		return Article{}, "", err
	}

	html := template.HTML(buf.String())
	s.rendered.Put(slug, html)
	return article, html, nil
}

// Completed records that a reader finished an article. Best-effort.
func (s *Service) Completed(ctx context.Context, slug string) error {
	s.mu.RLock()
	_, ok := s.articles[slug]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	s.tracker.Track(ctx, eventArticleCompleted, map[string]any{"slug": slug})
	return nil
}
