package blog

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Article is the parsed metadata plus raw markdown body of one post.
// The rendered HTML is produced lazily and cached by the service.
type Article struct {
	Slug    string
	Title   string
	Date    time.Time
	Tags    []string
	Summary string

	body []byte
}

type frontMatter struct {
	Title   string    `yaml:"title"`
	Slug    string    `yaml:"slug"`
	Date    time.Time `yaml:"date"`
	Tags    []string  `yaml:"tags"`
	Summary string    `yaml:"summary"`
}

var frontMatterDelim = []byte("---")

// parseArticle splits a markdown document into YAML front matter and
// body, validating the required fields.
func parseArticle(data []byte) (Article, error) {
	rest, ok := bytes.CutPrefix(data, frontMatterDelim)
	if !ok {
		return Article{}, ErrNoFrontMatter
	}

	idx := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if idx < 0 {
		return Article{}, ErrNoFrontMatter
	}
	meta, body := rest[:idx], rest[idx+1+len(frontMatterDelim):]

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return Article{}, errors.Join(ErrInvalidFrontMatter, err)
	}
	if fm.Title == "" || fm.Slug == "" {
		return Article{}, fmt.Errorf("%w: title and slug are required", ErrInvalidFrontMatter)
	}

	return Article{
		Slug:    fm.Slug,
		Title:   fm.Title,
		Date:    fm.Date,
		Tags:    fm.Tags,
		Summary: fm.Summary,
		body:    bytes.TrimLeft(body, "\n"),
	}, nil
}
