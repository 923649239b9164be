package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/anamartins/folio/modules/site"
	"github.com/anamartins/folio/pkg/config"
	"github.com/anamartins/folio/pkg/cookie"
	"github.com/anamartins/folio/pkg/httpserver"
	"github.com/anamartins/folio/pkg/logger"
	"github.com/anamartins/folio/pkg/pg"
	"github.com/anamartins/folio/pkg/redis"
	"github.com/anamartins/folio/pkg/session"
	"github.com/anamartins/folio/svc/analytics"
	"github.com/anamartins/folio/svc/auth"
	"github.com/anamartins/folio/svc/blog"
	"github.com/anamartins/folio/svc/contact"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieSecrets signs and encrypts all cookies; first entry is the
	// active key, the rest accept reads during rotation.
	CookieSecrets []string `env:"COOKIE_SECRETS,required" envSeparator:","`

	Auth      auth.Config
	Blog      blog.Config
	Analytics analytics.Config
	Contact   contact.Config
	Session   session.Config
	Redis     redis.Config
	PG        pg.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("folio exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, "folio"),
	)

	jar, err := cookie.New(cfg.CookieSecrets)
	if err != nil {
		return err
	}

	sessionOpts := []session.Option{
		session.WithConfig(cfg.Session),
		session.WithTransport(session.NewCookieTransport(jar, cfg.Session.CookieName, cfg.Session.SecureCookies)),
	}
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sessionOpts = append(sessionOpts, session.WithStore(session.NewRedisStore(client)))
		log.Info("sessions backed by redis")
	}
	sessions := session.New(sessionOpts...)

	tracker := analytics.NewClient(cfg.Analytics, analytics.WithLogger(log))
	defer func() { _ = tracker.Close() }()

	authOpts := []auth.ServiceOption{
		auth.WithTracker(tracker),
		auth.WithLogger(log),
	}
	if cfg.PG.Enabled() {
		pool, err := pg.Connect(ctx, cfg.PG)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
			return err
		}
		authOpts = append(authOpts, auth.WithUserRepository(auth.NewPGUserRepository(pool)))
		log.Info("user profiles backed by postgres")
	}

	authSvc := auth.NewService(cfg.Auth, auth.NewLinkedInAdapter(cfg.Auth), sessions, auth.NewTxStore(jar, cfg.Session.SecureCookies), authOpts...)
	defer func() { _ = authSvc.Close() }()

	blogSvc, err := blog.NewService(cfg.Blog, os.DirFS(cfg.Blog.ContentDir),
		blog.WithTracker(tracker),
		blog.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var sender contact.Sender
	if cfg.Contact.Enabled() {
		sender, err = contact.NewPostmarkSender(cfg.Contact)
		if err != nil {
			return err
		}
	} else {
		sender = contact.NewLogSender(log)
		log.Info("contact form delivery disabled, logging submissions")
	}

	siteModule, err := site.New(authSvc, blogSvc, sender, site.WithLogger(log))
	if err != nil {
		return err
	}

	srv := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithLogger(log),
	)
	return srv.Run(ctx, siteModule.Router())
}
