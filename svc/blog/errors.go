package blog

import "errors"

var (
	// ErrNotFound indicates no article exists for the slug
	ErrNotFound = errors.New("blog.article_not_found")

	// ErrNoFrontMatter indicates a markdown file without a front matter block
	ErrNoFrontMatter = errors.New("blog.missing_front_matter")

	// ErrInvalidFrontMatter indicates front matter that fails validation
	ErrInvalidFrontMatter = errors.New("blog.invalid_front_matter")
)
