package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/maauso/magichour-go/internal/bootstrap"
	"github.com/maauso/magichour-go/internal/generate"
	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/magichour"
	"github.com/maauso/magichour-go/internal/storage"
)

// generateRequest is the validated form of the generate command line.
type generateRequest struct {
	Resource string `validate:"required,oneof=ai-image-generator photo-colorizer image-to-video lip-sync face-swap ai-voice-cloner"`
	// Dir must exist when outputs are downloaded into it.
	Dir      string `validate:"omitempty,dir"`
	Wait     bool
	Download bool
	Mirror   bool `validate:"excluded_unless=Download true"`

	Name        string
	Prompt      string
	Image       string
	Video       string
	Audio       string
	YoutubeURL  string
	Start       float64 `validate:"gte=0"`
	End         float64 `validate:"gte=0"`
	Width       int     `validate:"gte=0"`
	Height      int     `validate:"gte=0"`
	Resolution  string
	Count       int `validate:"gte=0"`
	Orientation string
	AspectRatio string
	Model       string
	HighQuality bool
}

// register binds every generate flag to r.
func (r *generateRequest) register(fs *flag.FlagSet) {
	fs.StringVar(&r.Dir, "dir", "", "directory for downloaded outputs (must exist; default: working directory)")
	fs.BoolVar(&r.Wait, "wait", true, "wait for the job to finish")
	fs.BoolVar(&r.Download, "download", true, "download outputs of a completed job")
	fs.BoolVar(&r.Mirror, "mirror", false, "copy downloaded outputs to the configured S3 bucket")

	fs.StringVar(&r.Name, "name", "", "project name")
	fs.StringVar(&r.Prompt, "prompt", "", "text prompt")
	fs.StringVar(&r.Image, "image", "", "image asset: local path, URL or api-assets/ path")
	fs.StringVar(&r.Video, "video", "", "video asset: local path, URL or api-assets/ path")
	fs.StringVar(&r.Audio, "audio", "", "audio asset: local path, URL or api-assets/ path")
	fs.StringVar(&r.YoutubeURL, "youtube", "", "YouTube URL used as the video source")
	fs.Float64Var(&r.Start, "start", 0, "start of the source clip, in seconds")
	fs.Float64Var(&r.End, "end", 0, "end of the source clip or output length, in seconds")
	fs.IntVar(&r.Width, "width", 0, "output width")
	fs.IntVar(&r.Height, "height", 0, "output height")
	fs.StringVar(&r.Resolution, "resolution", "", "output resolution, e.g. 720p")
	fs.IntVar(&r.Count, "count", 1, "number of images to generate")
	fs.StringVar(&r.Orientation, "orientation", "", "landscape, portrait or square")
	fs.StringVar(&r.AspectRatio, "aspect-ratio", "", "image aspect ratio")
	fs.StringVar(&r.Model, "model", "", "image model")
	fs.BoolVar(&r.HighQuality, "high-quality", false, "render image-to-video in high quality")
}

func (r *generateRequest) options() generate.Options {
	return generate.Options{
		WaitForCompletion: r.Wait,
		DownloadOutputs:   r.Download,
		DownloadDirectory: r.Dir,
	}
}

// runner runs one resource's generate call from a request.
type runner func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error)

var runners = map[string]runner{
	"ai-image-generator": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.AIImageGenerator.Generate(ctx, r.aiImageGenerator(), r.options())
	},
	"photo-colorizer": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.PhotoColorizer.Generate(ctx, r.photoColorizer(), r.options())
	},
	"image-to-video": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.ImageToVideo.Generate(ctx, r.imageToVideo(), r.options())
	},
	"lip-sync": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.LipSync.Generate(ctx, r.lipSync(), r.options())
	},
	"face-swap": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.FaceSwap.Generate(ctx, r.faceSwap(), r.options())
	},
	"ai-voice-cloner": func(ctx context.Context, res *generate.Resources, r *generateRequest) (*job.Result, error) {
		return res.AIVoiceCloner.Generate(ctx, r.aiVoiceCloner(), r.options())
	},
}

func resourceNames() []string {
	names := make([]string, 0, len(runners))
	for name := range runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *generateRequest) aiImageGenerator() magichour.AIImageGeneratorGenerateParams {
	return magichour.AIImageGeneratorGenerateParams{
		Name:        r.Name,
		ImageCount:  r.Count,
		Orientation: r.Orientation,
		AspectRatio: r.AspectRatio,
		Model:       r.Model,
		Resolution:  r.Resolution,
		Style:       magichour.AIImageGeneratorStyle{Prompt: r.Prompt},
	}
}

func (r *generateRequest) photoColorizer() magichour.PhotoColorizerGenerateParams {
	return magichour.PhotoColorizerGenerateParams{
		Name:   r.Name,
		Assets: magichour.PhotoColorizerGenerateAssets{ImageFilePath: storage.FromPath(r.Image)},
	}
}

func (r *generateRequest) imageToVideo() magichour.ImageToVideoGenerateParams {
	p := magichour.ImageToVideoGenerateParams{
		Name:       r.Name,
		EndSeconds: r.End,
		Width:      r.Width,
		Height:     r.Height,
		Resolution: r.Resolution,
		Assets:     magichour.ImageToVideoGenerateAssets{ImageFilePath: storage.FromPath(r.Image)},
	}
	if r.Prompt != "" || r.HighQuality {
		style := &magichour.ImageToVideoStyle{Prompt: r.Prompt}
		if r.HighQuality {
			hq := true
			style.HighQuality = &hq
		}
		p.Style = style
	}
	return p
}

func (r *generateRequest) lipSync() magichour.LipSyncGenerateParams {
	return magichour.LipSyncGenerateParams{
		Name:         r.Name,
		StartSeconds: r.Start,
		EndSeconds:   r.End,
		Width:        r.Width,
		Height:       r.Height,
		Assets: magichour.LipSyncGenerateAssets{
			AudioFilePath: storage.FromPath(r.Audio),
			VideoFilePath: storage.FromPath(r.Video),
			YoutubeURL:    r.YoutubeURL,
		},
	}
}

func (r *generateRequest) faceSwap() magichour.FaceSwapGenerateParams {
	return magichour.FaceSwapGenerateParams{
		Name:         r.Name,
		StartSeconds: r.Start,
		EndSeconds:   r.End,
		Width:        r.Width,
		Height:       r.Height,
		Assets: magichour.FaceSwapGenerateAssets{
			ImageFilePath: storage.FromPath(r.Image),
			VideoFilePath: storage.FromPath(r.Video),
			YoutubeURL:    r.YoutubeURL,
		},
	}
}

func (r *generateRequest) aiVoiceCloner() magichour.AIVoiceClonerGenerateParams {
	return magichour.AIVoiceClonerGenerateParams{
		Name:   r.Name,
		Style:  magichour.AIVoiceClonerStyle{Prompt: r.Prompt},
		Assets: magichour.AIVoiceClonerGenerateAssets{AudioFilePath: storage.FromPath(r.Audio)},
	}
}

// mirrorOutputs copies every downloaded file of result to S3 under
// outputs/<project id>/ and returns the object URLs in the same order.
func mirrorOutputs(ctx context.Context, mirror storage.Mirror, result *job.Result, logger *slog.Logger) ([]string, error) {
	urls := make([]string, 0, len(result.DownloadedPaths))
	for _, path := range result.DownloadedPaths {
		key := fmt.Sprintf("outputs/%s/%s", result.ID, filepath.Base(path))
		url, err := mirror.UploadFile(ctx, key, path)
		if err != nil {
			return urls, fmt.Errorf("mirror %s: %w", path, err)
		}
		logger.Info("output mirrored",
			slog.String("project_id", result.ID),
			slog.String("url", url),
		)
		urls = append(urls, url)
	}
	return urls, nil
}

// generateOutput is what the generate command prints.
type generateOutput struct {
	*job.Result
	MirroredURLs []string `json:"mirrored_urls,omitempty"`
}

var errJobNotComplete = errors.New("job did not complete")

func runGenerate(ctx context.Context, deps *bootstrap.ClientDependencies, r *generateRequest, logger *slog.Logger) (*generateOutput, error) {
	run, ok := runners[r.Resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", r.Resource)
	}

	result, err := run(ctx, deps.Resources, r)
	if err != nil {
		return nil, err
	}
	out := &generateOutput{Result: result}

	if r.Mirror && len(result.DownloadedPaths) > 0 {
		if deps.Mirror == nil {
			return out, storage.ErrS3NotConfigured
		}
		out.MirroredURLs, err = mirrorOutputs(ctx, deps.Mirror, result, logger)
		if err != nil {
			return out, err
		}
	}

	if r.Wait && result.Status != job.StatusComplete {
		return out, fmt.Errorf("%w: status %s", errJobNotComplete, result.Status)
	}
	return out, nil
}
