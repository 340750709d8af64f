// Package bootstrap provides dependency initialization for the CLI and the
// webhook receiver.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/magichour-go/internal/config"
	"github.com/maauso/magichour-go/internal/generate"
	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/magichour"
	"github.com/maauso/magichour-go/internal/poller"
	"github.com/maauso/magichour-go/internal/storage"
	"github.com/maauso/magichour-go/internal/webhook"
)

// ClientDependencies holds everything the CLI needs to talk to the API.
type ClientDependencies struct {
	Client    *magichour.Client
	Resources *generate.Resources
	Resolver  *storage.Resolver
	// Mirror is nil unless S3 is configured.
	Mirror *storage.S3Mirror

	pollInterval time.Duration
	logger       *slog.Logger
}

// NewClientDependencies creates the API client and the orchestrators built on it.
func NewClientDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ClientDependencies, error) {
	client, err := magichour.NewClient(cfg.APIKey,
		magichour.WithBaseURL(cfg.BaseURL),
		magichour.WithTimeout(cfg.HTTPTimeout()),
		magichour.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create Magic Hour client: %w", err)
	}

	resolver := storage.NewResolver(client.Files, storage.WithLogger(logger))

	resources, err := generate.NewResources(client,
		generate.WithResolver(resolver),
		generate.WithPollInterval(cfg.PollInterval()),
		generate.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create orchestrators: %w", err)
	}

	mirror, err := initMirror(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &ClientDependencies{
		Client:       client,
		Resources:    resources,
		Resolver:     resolver,
		Mirror:       mirror,
		pollInterval: cfg.PollInterval(),
		logger:       logger,
	}, nil
}

// Poller returns a poller for the projects endpoint of kind.
func (d *ClientDependencies) Poller(kind job.Kind) (*poller.Poller, error) {
	projects, err := d.Client.Projects(kind)
	if err != nil {
		return nil, err
	}
	return poller.New(
		func(ctx context.Context, id string) (job.Job, error) { return projects.Get(ctx, id) },
		poller.WithInterval(d.pollInterval),
		poller.WithLogger(d.logger),
	)
}

// ServerDependencies holds the webhook receiver's collaborators.
type ServerDependencies struct {
	Verifier   *webhook.Verifier
	Repository job.Repository
	// Archive is nil unless S3 is configured.
	Archive *storage.S3Mirror

	closers []func() error
}

// NewServerDependencies creates the verifier, the event repository and the
// optional S3 archive.
func NewServerDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ServerDependencies, error) {
	verifier, err := webhook.NewVerifier(cfg.WebhookSecret, webhook.WithTolerance(cfg.WebhookTolerance()))
	if err != nil {
		return nil, fmt.Errorf("create webhook verifier: %w", err)
	}

	deps := &ServerDependencies{Verifier: verifier}

	if cfg.RedisURL != "" {
		repo, err := job.NewRedisRepositoryFromURL(cfg.RedisURL, cfg.EventTTL())
		if err != nil {
			return nil, fmt.Errorf("create event repository: %w", err)
		}
		deps.Repository = repo
		deps.closers = append(deps.closers, repo.Close)
		logger.Info("redis event repository configured",
			slog.Duration("ttl", cfg.EventTTL()),
		)
	} else {
		deps.Repository = job.NewMemoryRepository()
		logger.Info("in-memory event repository configured")
	}

	deps.Archive, err = initMirror(ctx, cfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	return deps, nil
}

// Close releases the connections opened by NewServerDependencies.
func (d *ServerDependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// initMirror creates the S3 mirror when a bucket and region are configured.
func initMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.S3Mirror, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}
	mirror, err := storage.NewS3Mirror(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 mirror: %w", err)
	}
	logger.Info("S3 mirror configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return mirror, nil
}
