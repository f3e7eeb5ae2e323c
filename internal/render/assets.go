package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/debug"
)

// builtinIcons holds the box, person and shark icons.
//
//go:embed assets/*.png
var builtinIcons embed.FS

// LoadSprites decodes the icon of every configured object, keyed by label.
// It is called once at startup; any failure is fatal for the caller.
func LoadSprites(objects []config.ObjectConfig) (map[string]image.Image, error) {
	sprites := make(map[string]image.Image, len(objects))
	for _, o := range objects {
		img, err := loadIcon(o)
		if err != nil {
			return nil, fmt.Errorf("load icon for %s: %w", o.Label, err)
		}
		debug.Verbose("Loaded icon for %s: %dx%d", o.Label, img.Bounds().Dx(), img.Bounds().Dy())
		sprites[o.Label] = img
	}
	return sprites, nil
}

func loadIcon(o config.ObjectConfig) (image.Image, error) {
	if o.IconPath != "" {
		return imaging.Open(o.IconPath)
	}
	data, err := builtinIcons.ReadFile("assets/" + o.Icon + ".png")
	if err != nil {
		return nil, fmt.Errorf("unknown built-in icon %q", o.Icon)
	}
	return imaging.Decode(bytes.NewReader(data))
}
