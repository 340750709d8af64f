package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/magichour-go/internal/download"
	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/magichour"
	"github.com/maauso/magichour-go/internal/poller"
	"github.com/maauso/magichour-go/internal/storage"
)

// Resources holds one orchestrator per generation endpoint.
type Resources struct {
	AIImageGenerator *Orchestrator[magichour.AIImageGeneratorCreateParams, magichour.AIImageGeneratorGenerateParams]
	PhotoColorizer   *Orchestrator[magichour.PhotoColorizerCreateParams, magichour.PhotoColorizerGenerateParams]
	ImageToVideo     *Orchestrator[magichour.ImageToVideoCreateParams, magichour.ImageToVideoGenerateParams]
	LipSync          *Orchestrator[magichour.LipSyncCreateParams, magichour.LipSyncGenerateParams]
	FaceSwap         *Orchestrator[magichour.FaceSwapCreateParams, magichour.FaceSwapGenerateParams]
	AIVoiceCloner    *Orchestrator[magichour.AIVoiceClonerCreateParams, magichour.AIVoiceClonerGenerateParams]
}

type resourcesConfig struct {
	resolver     storage.AssetResolver
	downloader   Downloader
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option is a function that configures NewResources.
type Option func(*resourcesConfig)

// WithResolver overrides the asset resolver.
func WithResolver(r storage.AssetResolver) Option {
	return func(c *resourcesConfig) {
		c.resolver = r
	}
}

// WithDownloader overrides the output downloader.
func WithDownloader(d Downloader) Option {
	return func(c *resourcesConfig) {
		c.downloader = d
	}
}

// WithPollInterval sets the sleep between status fetches.
func WithPollInterval(d time.Duration) Option {
	return func(c *resourcesConfig) {
		c.pollInterval = d
	}
}

// WithLogger sets the logger shared by the default collaborators.
func WithLogger(l *slog.Logger) Option {
	return func(c *resourcesConfig) {
		c.logger = l
	}
}

// NewResources wires an orchestrator for every resource of client. By
// default assets are uploaded through client.Files and outputs are written
// to the local disk.
func NewResources(client *magichour.Client, opts ...Option) (*Resources, error) {
	cfg := resourcesConfig{
		pollInterval: poller.DefaultInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.resolver == nil {
		cfg.resolver = storage.NewResolver(client.Files, storage.WithLogger(cfg.logger))
	}
	if cfg.downloader == nil {
		cfg.downloader = download.New(download.WithLogger(cfg.logger))
	}

	pollers := make(map[job.Kind]Poller, 3)
	for _, kind := range []job.Kind{job.KindImage, job.KindVideo, job.KindAudio} {
		projects, err := client.Projects(kind)
		if err != nil {
			return nil, err
		}
		p, err := poller.New(
			func(ctx context.Context, id string) (job.Job, error) { return projects.Get(ctx, id) },
			poller.WithInterval(cfg.pollInterval),
			poller.WithLogger(cfg.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		pollers[kind] = p
	}

	return &Resources{
		AIImageGenerator: NewOrchestrator[magichour.AIImageGeneratorCreateParams, magichour.AIImageGeneratorGenerateParams](
			client.AIImageGenerator, cfg.resolver, pollers[client.AIImageGenerator.Kind()], cfg.downloader, cfg.logger),
		PhotoColorizer: NewOrchestrator[magichour.PhotoColorizerCreateParams, magichour.PhotoColorizerGenerateParams](
			client.PhotoColorizer, cfg.resolver, pollers[client.PhotoColorizer.Kind()], cfg.downloader, cfg.logger),
		ImageToVideo: NewOrchestrator[magichour.ImageToVideoCreateParams, magichour.ImageToVideoGenerateParams](
			client.ImageToVideo, cfg.resolver, pollers[client.ImageToVideo.Kind()], cfg.downloader, cfg.logger),
		LipSync: NewOrchestrator[magichour.LipSyncCreateParams, magichour.LipSyncGenerateParams](
			client.LipSync, cfg.resolver, pollers[client.LipSync.Kind()], cfg.downloader, cfg.logger),
		FaceSwap: NewOrchestrator[magichour.FaceSwapCreateParams, magichour.FaceSwapGenerateParams](
			client.FaceSwap, cfg.resolver, pollers[client.FaceSwap.Kind()], cfg.downloader, cfg.logger),
		AIVoiceCloner: NewOrchestrator[magichour.AIVoiceClonerCreateParams, magichour.AIVoiceClonerGenerateParams](
			client.AIVoiceCloner, cfg.resolver, pollers[client.AIVoiceCloner.Kind()], cfg.downloader, cfg.logger),
	}, nil
}
