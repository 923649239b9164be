package blog

// Config holds the blog content settings.
type Config struct {
	// ContentDir is the directory scanned for markdown articles.
	ContentDir string `env:"BLOG_CONTENT_DIR" envDefault:"content"`

	// CacheSize bounds how many rendered articles are kept in memory.
	CacheSize int `env:"BLOG_CACHE_SIZE" envDefault:"64"`
}
