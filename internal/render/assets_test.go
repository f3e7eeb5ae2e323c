package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/RangeViz/internal/config"
)

func TestLoadSprites_Builtin(t *testing.T) {
	sprites, err := LoadSprites(config.DefaultObjects())
	require.NoError(t, err)
	require.Len(t, sprites, 3)
	for _, label := range []string{"10cm Box", "Person", "Hammerhead Shark"} {
		img, ok := sprites[label]
		require.True(t, ok, "missing sprite for %s", label)
		assert.Equal(t, 64, img.Bounds().Dx())
	}
}

func TestLoadSprites_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclist.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.Black)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	sprites, err := LoadSprites([]config.ObjectConfig{{Label: "Cyclist", IconPath: path}})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), sprites["Cyclist"].Bounds())
}

func TestLoadSprites_Failures(t *testing.T) {
	cases := []struct {
		name string
		obj  config.ObjectConfig
	}{
		{"unknown_builtin", config.ObjectConfig{Label: "a", Icon: "unicorn"}},
		{"missing_file", config.ObjectConfig{Label: "b", IconPath: filepath.Join(t.TempDir(), "nope.png")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSprites([]config.ObjectConfig{tc.obj})
			assert.Error(t, err)
		})
	}
}

func TestLoadSprites_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err := LoadSprites([]config.ObjectConfig{{Label: "bad", IconPath: path}})
	assert.Error(t, err)
}
