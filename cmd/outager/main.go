// Command outager runs the status page API.
//
// Usage:
//
//	outager [flags] [serve|migrate|orphans|token]
//
// serve (the default) runs the HTTP API, migrate applies database
// migrations, orphans lists organizations without members, and token
// signs a development access token with the configured secret.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outager/outager/internal/app"
	"github.com/outager/outager/internal/config"
	"github.com/outager/outager/internal/identity/jwt"
	"github.com/outager/outager/internal/organizations"
	organizationspostgres "github.com/outager/outager/internal/organizations/postgres"
	"github.com/outager/outager/internal/pkg/postgres"
	"github.com/outager/outager/internal/version"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	subject    string
	email      string
	name       string
	ttl        time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("outager", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to YAML config file (optional)")
	flagSet.StringVar(&opts.subject, "sub", "", "token mode: subject (user id)")
	flagSet.StringVar(&opts.email, "email", "", "token mode: email claim")
	flagSet.StringVar(&opts.name, "name", "", "token mode: name claim")
	flagSet.DurationVar(&opts.ttl, "ttl", time.Hour, "token mode: lifetime")
	showVersion := flagSet.BoolP("version", "v", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Println(version.Get())
		return nil
	}

	mode := "serve"
	if args := flagSet.Args(); len(args) > 0 {
		mode = args[0]
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	switch mode {
	case "serve":
		return serve(cfg)
	case "migrate":
		return postgres.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL)
	case "orphans":
		return listOrphans(cfg)
	case "token":
		return signToken(cfg, opts)
	default:
		return fmt.Errorf("unknown mode %q (want serve, migrate, orphans or token)", mode)
	}
}

func serve(cfg *config.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return application.Shutdown(shutdownCtx)
}

func listOrphans(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	service := organizations.NewService(organizationspostgres.NewRepository(db), nil, organizations.Config{
		SlugAttempts: cfg.Organizations.SlugAttempts,
	})

	orphans, err := service.ListOrphanOrganizations(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(orphans)
}

func signToken(cfg *config.Config, opts options) error {
	if opts.subject == "" || opts.email == "" {
		return errors.New("token mode requires --sub and --email")
	}

	claims := jwt.NewClaims(opts.subject, opts.email, opts.name, opts.ttl)
	claims.Issuer = cfg.JWT.Issuer
	if cfg.JWT.Audience != "" {
		claims.Audience = []string{cfg.JWT.Audience}
	}

	token, err := jwt.Sign(cfg.JWT.SecretKey, claims)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
