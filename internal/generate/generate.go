// Package generate turns a create call into a blocking "generate" call:
// resolve assets, create the job, wait for it and download its outputs.
//
// Each resource gets its own Orchestrator wired to its create function.
// No step is retried; the first failure aborts the call. A job that ends
// in error or canceled is returned as data, not as a Go error.
package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/magichour-go/internal/download"
	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/magichour"
	"github.com/maauso/magichour-go/internal/storage"
)

// Options are the orchestration-only params of a generate call.
type Options struct {
	// WaitForCompletion polls until the job is terminal. When false the
	// first snapshot after creation is returned.
	WaitForCompletion bool
	// DownloadOutputs saves the outputs of a completed job.
	DownloadOutputs bool
	// DownloadDirectory is where outputs are written; empty means the
	// working directory. It must already exist.
	DownloadDirectory string
}

// DefaultOptions waits for completion and downloads into the working directory.
func DefaultOptions() Options {
	return Options{WaitForCompletion: true, DownloadOutputs: true}
}

// Binder resolves the assets of generate params into create params C.
type Binder[C any] interface {
	Bind(ctx context.Context, r storage.AssetResolver) (C, error)
}

// Submitter creates a job from params C.
type Submitter[C any] interface {
	Create(ctx context.Context, params C, opts ...magichour.RequestOption) (*job.Created, error)
}

// Poller fetches a job, optionally until it is terminal.
type Poller interface {
	Poll(ctx context.Context, id string, wait bool) (job.Job, error)
}

// Downloader saves the outputs of a completed job.
type Downloader interface {
	Download(ctx context.Context, j job.Job, dir string) ([]download.Artifact, error)
}

// Orchestrator runs generate calls for one resource. G is the generate
// params type and C the create params type it binds to.
type Orchestrator[C any, G Binder[C]] struct {
	submitter  Submitter[C]
	resolver   storage.AssetResolver
	poller     Poller
	downloader Downloader
	logger     *slog.Logger
}

// NewOrchestrator wires an Orchestrator. A nil logger uses slog.Default().
func NewOrchestrator[C any, G Binder[C]](
	submitter Submitter[C],
	resolver storage.AssetResolver,
	poller Poller,
	downloader Downloader,
	logger *slog.Logger,
) *Orchestrator[C, G] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator[C, G]{
		submitter:  submitter,
		resolver:   resolver,
		poller:     poller,
		downloader: downloader,
		logger:     logger,
	}
}

// Generate resolves the assets of params, creates the job, polls it and
// downloads its outputs according to opts. params is passed by value and
// never modified. reqOpts are forwarded to the create call.
func (o *Orchestrator[C, G]) Generate(ctx context.Context, params G, opts Options, reqOpts ...magichour.RequestOption) (*job.Result, error) {
	createParams, err := params.Bind(ctx, o.resolver)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	created, err := o.submitter.Create(ctx, createParams, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	j, err := o.poller.Poll(ctx, created.ID, opts.WaitForCompletion)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	result := &job.Result{Job: j}

	switch j.Status {
	case job.StatusError:
		attrs := []any{slog.String("id", j.ID)}
		if j.Error != nil {
			attrs = append(attrs, slog.String("error", j.Error.String()))
		}
		o.logger.Error("job failed", attrs...)
		return result, nil
	case job.StatusCanceled:
		o.logger.Warn("job canceled", slog.String("id", j.ID))
		return result, nil
	case job.StatusComplete:
		if !opts.DownloadOutputs {
			return result, nil
		}
		artifacts, err := o.downloader.Download(ctx, j, opts.DownloadDirectory)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		result.DownloadedPaths = download.Paths(artifacts)
	}

	return result, nil
}
