package magichour

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/magichour-go/internal/storage"
)

func TestMissingGenerateFields_AllResources(t *testing.T) {
	pairs := []struct {
		name     string
		create   any
		generate any
	}{
		{"ai-image-generator", AIImageGeneratorCreateParams{}, AIImageGeneratorGenerateParams{}},
		{"photo-colorizer", PhotoColorizerCreateParams{}, PhotoColorizerGenerateParams{}},
		{"image-to-video", ImageToVideoCreateParams{}, ImageToVideoGenerateParams{}},
		{"lip-sync", LipSyncCreateParams{}, LipSyncGenerateParams{}},
		{"face-swap", FaceSwapCreateParams{}, FaceSwapGenerateParams{}},
		{"ai-voice-cloner", AIVoiceClonerCreateParams{}, AIVoiceClonerGenerateParams{}},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			assert.Empty(t, MissingGenerateFields(p.create, p.generate))
		})
	}
}

func TestMissingGenerateFields_DetectsDrift(t *testing.T) {
	type create struct {
		Name       string  `json:"name"`
		EndSeconds float64 `json:"end_seconds"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Assets     struct{ Path string }
		internal   bool
	}
	type generate struct {
		Name       string `json:"name"`
		EndSeconds int    `json:"end_seconds"`
		Width      int    `json:"w"`
		Assets     struct{ Path storage.Asset }
	}

	got := MissingGenerateFields(&create{}, generate{})
	assert.Equal(t, []string{
		`EndSeconds (type int, want float64)`,
		"Height",
		`Width (json "w", want "width")`,
	}, got)
}

func TestMissingGenerateFields_PanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { MissingGenerateFields("x", struct{}{}) })
}

// mapResolver resolves assets by name and records the calls.
type mapResolver struct {
	refs  map[string]string
	calls []string
	err   error
}

func (m *mapResolver) Resolve(_ context.Context, a storage.Asset) (string, error) {
	m.calls = append(m.calls, a.Name())
	if m.err != nil {
		return "", m.err
	}
	if ref, ok := m.refs[a.Name()]; ok {
		return ref, nil
	}
	return a.Name(), nil
}

func TestBind_ForwardsParams(t *testing.T) {
	fps := 30.0
	hq := true

	t.Run("lip sync", func(t *testing.T) {
		r := &mapResolver{refs: map[string]string{
			"voice.mp3": "api-assets/1/voice.mp3",
			"clip.mp4":  "api-assets/1/clip.mp4",
		}}
		in := LipSyncGenerateParams{
			Name:         "My lip sync",
			StartSeconds: 1,
			EndSeconds:   9.5,
			Width:        512,
			Height:       768,
			MaxFpsLimit:  &fps,
			Assets: LipSyncGenerateAssets{
				AudioFilePath: storage.FromPath("voice.mp3"),
				VideoFilePath: storage.FromPath("clip.mp4"),
			},
		}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, LipSyncCreateParams{
			Name:         "My lip sync",
			StartSeconds: 1,
			EndSeconds:   9.5,
			Width:        512,
			Height:       768,
			MaxFpsLimit:  &fps,
			Assets: LipSyncAssets{
				AudioFilePath: "api-assets/1/voice.mp3",
				VideoSource:   VideoSourceFile,
				VideoFilePath: "api-assets/1/clip.mp4",
			},
		}, out)
		assert.NotSame(t, in.MaxFpsLimit, out.MaxFpsLimit)
		assert.Equal(t, "voice.mp3", in.Assets.AudioFilePath.Name(), "caller params are untouched")
	})

	t.Run("face swap from youtube", func(t *testing.T) {
		r := &mapResolver{}
		in := FaceSwapGenerateParams{
			EndSeconds: 15,
			Assets: FaceSwapGenerateAssets{
				ImageFilePath: storage.FromPath("https://example.com/face.png"),
				YoutubeURL:    "https://www.youtube.com/watch?v=abc",
			},
		}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, VideoSourceYoutube, out.Assets.VideoSource)
		assert.Equal(t, "https://example.com/face.png", out.Assets.ImageFilePath)
		assert.Empty(t, out.Assets.VideoFilePath)
		assert.Equal(t, []string{"https://example.com/face.png"}, r.calls, "zero assets are not resolved")
	})

	t.Run("image to video", func(t *testing.T) {
		r := &mapResolver{refs: map[string]string{"photo.jpg": "api-assets/2/photo.jpg"}}
		in := ImageToVideoGenerateParams{
			Name:       "Animate",
			EndSeconds: 5,
			Resolution: "720p",
			Style:      &ImageToVideoStyle{Prompt: "slow zoom", HighQuality: &hq},
			Assets:     ImageToVideoGenerateAssets{ImageFilePath: storage.FromPath("photo.jpg")},
		}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, "Animate", out.Name)
		assert.Equal(t, 5.0, out.EndSeconds)
		assert.Equal(t, "720p", out.Resolution)
		assert.Equal(t, in.Style, out.Style)
		assert.NotSame(t, in.Style, out.Style)
		assert.Equal(t, "api-assets/2/photo.jpg", out.Assets.ImageFilePath)
	})

	t.Run("photo colorizer", func(t *testing.T) {
		r := &mapResolver{refs: map[string]string{"old.png": "api-assets/3/old.png"}}
		in := PhotoColorizerGenerateParams{Name: "Old photo", Assets: PhotoColorizerGenerateAssets{ImageFilePath: storage.FromPath("old.png")}}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, PhotoColorizerCreateParams{Name: "Old photo", Assets: PhotoColorizerAssets{ImageFilePath: "api-assets/3/old.png"}}, out)
	})

	t.Run("voice cloner", func(t *testing.T) {
		r := &mapResolver{refs: map[string]string{"sample.wav": "api-assets/4/sample.wav"}}
		in := AIVoiceClonerGenerateParams{
			Style:  AIVoiceClonerStyle{Prompt: "Hello there"},
			Assets: AIVoiceClonerGenerateAssets{AudioFilePath: storage.FromPath("sample.wav")},
		}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, "Hello there", out.Style.Prompt)
		assert.Equal(t, "api-assets/4/sample.wav", out.Assets.AudioFilePath)
	})

	t.Run("image generator has no assets", func(t *testing.T) {
		r := &mapResolver{}
		in := AIImageGeneratorGenerateParams{ImageCount: 2, Style: AIImageGeneratorStyle{Prompt: "a lighthouse"}}

		out, err := in.Bind(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.Empty(t, r.calls)
	})
}

func TestBind_ResolveErrorPropagates(t *testing.T) {
	r := &mapResolver{err: storage.ErrNotFound}
	in := LipSyncGenerateParams{
		EndSeconds: 3,
		Assets:     LipSyncGenerateAssets{AudioFilePath: storage.FromPath("missing.mp3")},
	}

	_, err := in.Bind(context.Background(), r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Contains(t, err.Error(), "audio_file_path")
}
