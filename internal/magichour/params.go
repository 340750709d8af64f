package magichour

import (
	"context"
	"fmt"

	"github.com/maauso/magichour-go/internal/storage"
)

// Create params carry storage references; generate params carry raw assets
// and are turned into create params by Bind. Apart from Assets, the two
// shapes of a resource must declare the same fields with the same types and
// JSON names (see MissingGenerateFields).

// AIImageGeneratorStyle is the prompt of an image generation.
type AIImageGeneratorStyle struct {
	Prompt string `json:"prompt" validate:"required"`
	Tool   string `json:"tool,omitempty"`
}

// AIImageGeneratorCreateParams are the params of POST /v1/ai-image-generator.
type AIImageGeneratorCreateParams struct {
	Name        string                `json:"name,omitempty"`
	ImageCount  int                   `json:"image_count" validate:"min=1"`
	Orientation string                `json:"orientation,omitempty" validate:"omitempty,oneof=landscape portrait square"`
	AspectRatio string                `json:"aspect_ratio,omitempty"`
	Resolution  string                `json:"resolution,omitempty"`
	Model       string                `json:"model,omitempty"`
	Style       AIImageGeneratorStyle `json:"style"`
}

// AIImageGeneratorGenerateParams takes no assets, so both shapes are the same.
type AIImageGeneratorGenerateParams = AIImageGeneratorCreateParams

// Bind returns p unchanged.
func (p AIImageGeneratorCreateParams) Bind(context.Context, storage.AssetResolver) (AIImageGeneratorCreateParams, error) {
	return p, nil
}

// PhotoColorizerAssets holds the image to colorize.
type PhotoColorizerAssets struct {
	ImageFilePath string `json:"image_file_path" validate:"required"`
}

// PhotoColorizerCreateParams are the params of POST /v1/photo-colorizer.
type PhotoColorizerCreateParams struct {
	Name   string               `json:"name,omitempty"`
	Assets PhotoColorizerAssets `json:"assets"`
}

// PhotoColorizerGenerateAssets holds the raw image to colorize.
type PhotoColorizerGenerateAssets struct {
	ImageFilePath storage.Asset
}

// PhotoColorizerGenerateParams are the generate-side params of the photo colorizer.
type PhotoColorizerGenerateParams struct {
	Name   string `json:"name,omitempty"`
	Assets PhotoColorizerGenerateAssets
}

// Bind resolves the assets of p into create params.
func (p PhotoColorizerGenerateParams) Bind(ctx context.Context, r storage.AssetResolver) (PhotoColorizerCreateParams, error) {
	out := PhotoColorizerCreateParams{Name: p.Name}
	if err := resolveInto(ctx, r, "image_file_path", p.Assets.ImageFilePath, &out.Assets.ImageFilePath); err != nil {
		return PhotoColorizerCreateParams{}, err
	}
	return out, nil
}

// ImageToVideoStyle tunes an image-to-video render.
type ImageToVideoStyle struct {
	Prompt      string `json:"prompt,omitempty"`
	HighQuality *bool  `json:"high_quality,omitempty"`
}

// ImageToVideoAssets holds the source image.
type ImageToVideoAssets struct {
	ImageFilePath string `json:"image_file_path" validate:"required"`
}

// ImageToVideoCreateParams are the params of POST /v1/image-to-video.
type ImageToVideoCreateParams struct {
	Name       string             `json:"name,omitempty"`
	EndSeconds float64            `json:"end_seconds" validate:"gt=0"`
	Width      int                `json:"width,omitempty"`
	Height     int                `json:"height,omitempty"`
	Resolution string             `json:"resolution,omitempty" validate:"omitempty,oneof=480p 720p 1080p"`
	Style      *ImageToVideoStyle `json:"style,omitempty"`
	Assets     ImageToVideoAssets `json:"assets"`
}

// ImageToVideoGenerateAssets holds the raw source image.
type ImageToVideoGenerateAssets struct {
	ImageFilePath storage.Asset
}

// ImageToVideoGenerateParams are the generate-side params of image-to-video.
type ImageToVideoGenerateParams struct {
	Name       string             `json:"name,omitempty"`
	EndSeconds float64            `json:"end_seconds" validate:"gt=0"`
	Width      int                `json:"width,omitempty"`
	Height     int                `json:"height,omitempty"`
	Resolution string             `json:"resolution,omitempty" validate:"omitempty,oneof=480p 720p 1080p"`
	Style      *ImageToVideoStyle `json:"style,omitempty"`
	Assets     ImageToVideoGenerateAssets
}

// Bind resolves the assets of p into create params.
func (p ImageToVideoGenerateParams) Bind(ctx context.Context, r storage.AssetResolver) (ImageToVideoCreateParams, error) {
	out := ImageToVideoCreateParams{
		Name:       p.Name,
		EndSeconds: p.EndSeconds,
		Width:      p.Width,
		Height:     p.Height,
		Resolution: p.Resolution,
	}
	if p.Style != nil {
		style := *p.Style
		out.Style = &style
	}
	if err := resolveInto(ctx, r, "image_file_path", p.Assets.ImageFilePath, &out.Assets.ImageFilePath); err != nil {
		return ImageToVideoCreateParams{}, err
	}
	return out, nil
}

// Video sources accepted by lip sync and face swap.
const (
	VideoSourceFile    = "file"
	VideoSourceYoutube = "youtube"
)

// LipSyncAssets holds the audio track and the video to sync.
type LipSyncAssets struct {
	AudioFilePath string `json:"audio_file_path" validate:"required"`
	VideoSource   string `json:"video_source" validate:"oneof=file youtube"`
	VideoFilePath string `json:"video_file_path,omitempty" validate:"required_if=VideoSource file"`
	YoutubeURL    string `json:"youtube_url,omitempty" validate:"required_if=VideoSource youtube"`
}

// LipSyncCreateParams are the params of POST /v1/lip-sync.
type LipSyncCreateParams struct {
	Name         string        `json:"name,omitempty"`
	StartSeconds float64       `json:"start_seconds" validate:"gte=0"`
	EndSeconds   float64       `json:"end_seconds" validate:"gtfield=StartSeconds"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	MaxFpsLimit  *float64      `json:"max_fps_limit,omitempty"`
	Assets       LipSyncAssets `json:"assets"`
}

// LipSyncGenerateAssets holds the raw audio and video.
type LipSyncGenerateAssets struct {
	AudioFilePath storage.Asset
	VideoSource   string
	VideoFilePath storage.Asset
	YoutubeURL    string
}

// LipSyncGenerateParams are the generate-side params of lip sync.
type LipSyncGenerateParams struct {
	Name         string   `json:"name,omitempty"`
	StartSeconds float64  `json:"start_seconds" validate:"gte=0"`
	EndSeconds   float64  `json:"end_seconds" validate:"gtfield=StartSeconds"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	MaxFpsLimit  *float64 `json:"max_fps_limit,omitempty"`
	Assets       LipSyncGenerateAssets
}

// Bind resolves the assets of p into create params.
func (p LipSyncGenerateParams) Bind(ctx context.Context, r storage.AssetResolver) (LipSyncCreateParams, error) {
	out := LipSyncCreateParams{
		Name:         p.Name,
		StartSeconds: p.StartSeconds,
		EndSeconds:   p.EndSeconds,
		Width:        p.Width,
		Height:       p.Height,
		MaxFpsLimit:  copyFloat(p.MaxFpsLimit),
		Assets: LipSyncAssets{
			VideoSource: videoSource(p.Assets.VideoSource, p.Assets.YoutubeURL),
			YoutubeURL:  p.Assets.YoutubeURL,
		},
	}
	if err := resolveInto(ctx, r, "audio_file_path", p.Assets.AudioFilePath, &out.Assets.AudioFilePath); err != nil {
		return LipSyncCreateParams{}, err
	}
	if err := resolveInto(ctx, r, "video_file_path", p.Assets.VideoFilePath, &out.Assets.VideoFilePath); err != nil {
		return LipSyncCreateParams{}, err
	}
	return out, nil
}

// FaceSwapAssets holds the face image and the target video.
type FaceSwapAssets struct {
	ImageFilePath string `json:"image_file_path" validate:"required"`
	VideoSource   string `json:"video_source" validate:"oneof=file youtube"`
	VideoFilePath string `json:"video_file_path,omitempty" validate:"required_if=VideoSource file"`
	YoutubeURL    string `json:"youtube_url,omitempty" validate:"required_if=VideoSource youtube"`
}

// FaceSwapCreateParams are the params of POST /v1/face-swap.
type FaceSwapCreateParams struct {
	Name         string         `json:"name,omitempty"`
	StartSeconds float64        `json:"start_seconds" validate:"gte=0"`
	EndSeconds   float64        `json:"end_seconds" validate:"gtfield=StartSeconds"`
	Width        int            `json:"width,omitempty"`
	Height       int            `json:"height,omitempty"`
	Assets       FaceSwapAssets `json:"assets"`
}

// FaceSwapGenerateAssets holds the raw face image and target video.
type FaceSwapGenerateAssets struct {
	ImageFilePath storage.Asset
	VideoSource   string
	VideoFilePath storage.Asset
	YoutubeURL    string
}

// FaceSwapGenerateParams are the generate-side params of face swap.
type FaceSwapGenerateParams struct {
	Name         string  `json:"name,omitempty"`
	StartSeconds float64 `json:"start_seconds" validate:"gte=0"`
	EndSeconds   float64 `json:"end_seconds" validate:"gtfield=StartSeconds"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Assets       FaceSwapGenerateAssets
}

// Bind resolves the assets of p into create params.
func (p FaceSwapGenerateParams) Bind(ctx context.Context, r storage.AssetResolver) (FaceSwapCreateParams, error) {
	out := FaceSwapCreateParams{
		Name:         p.Name,
		StartSeconds: p.StartSeconds,
		EndSeconds:   p.EndSeconds,
		Width:        p.Width,
		Height:       p.Height,
		Assets: FaceSwapAssets{
			VideoSource: videoSource(p.Assets.VideoSource, p.Assets.YoutubeURL),
			YoutubeURL:  p.Assets.YoutubeURL,
		},
	}
	if err := resolveInto(ctx, r, "image_file_path", p.Assets.ImageFilePath, &out.Assets.ImageFilePath); err != nil {
		return FaceSwapCreateParams{}, err
	}
	if err := resolveInto(ctx, r, "video_file_path", p.Assets.VideoFilePath, &out.Assets.VideoFilePath); err != nil {
		return FaceSwapCreateParams{}, err
	}
	return out, nil
}

// AIVoiceClonerStyle is the text spoken by the cloned voice.
type AIVoiceClonerStyle struct {
	Prompt string `json:"prompt" validate:"required"`
}

// AIVoiceClonerAssets holds the voice sample.
type AIVoiceClonerAssets struct {
	AudioFilePath string `json:"audio_file_path" validate:"required"`
}

// AIVoiceClonerCreateParams are the params of POST /v1/ai-voice-cloner.
type AIVoiceClonerCreateParams struct {
	Name   string              `json:"name,omitempty"`
	Style  AIVoiceClonerStyle  `json:"style"`
	Assets AIVoiceClonerAssets `json:"assets"`
}

// AIVoiceClonerGenerateAssets holds the raw voice sample.
type AIVoiceClonerGenerateAssets struct {
	AudioFilePath storage.Asset
}

// AIVoiceClonerGenerateParams are the generate-side params of the voice cloner.
type AIVoiceClonerGenerateParams struct {
	Name   string             `json:"name,omitempty"`
	Style  AIVoiceClonerStyle `json:"style"`
	Assets AIVoiceClonerGenerateAssets
}

// Bind resolves the assets of p into create params.
func (p AIVoiceClonerGenerateParams) Bind(ctx context.Context, r storage.AssetResolver) (AIVoiceClonerCreateParams, error) {
	out := AIVoiceClonerCreateParams{Name: p.Name, Style: p.Style}
	if err := resolveInto(ctx, r, "audio_file_path", p.Assets.AudioFilePath, &out.Assets.AudioFilePath); err != nil {
		return AIVoiceClonerCreateParams{}, err
	}
	return out, nil
}

// resolveInto stores the reference of a into dst. A zero asset leaves dst
// empty so that create-side validation reports it.
func resolveInto(ctx context.Context, r storage.AssetResolver, field string, a storage.Asset, dst *string) error {
	if a.IsZero() {
		return nil
	}
	ref, err := r.Resolve(ctx, a)
	if err != nil {
		return fmt.Errorf("magichour: resolve %s: %w", field, err)
	}
	*dst = ref
	return nil
}

// videoSource defaults to "youtube" when only a YouTube URL is given and to
// "file" otherwise.
func videoSource(source, youtubeURL string) string {
	if source != "" {
		return source
	}
	if youtubeURL != "" {
		return VideoSourceYoutube
	}
	return VideoSourceFile
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
