package texture

import (
	"fmt"

	"github.com/cwbudde/impasto/internal/paint"
)

// Options loads the optional height and opacity textures and returns the
// session option attaching them. Empty paths are skipped; with neither set
// no option is returned.
func Options(heightPath, opacityPath string) ([]paint.Option, error) {
	var heightMap, opacityMap paint.Sampler
	if heightPath != "" {
		t, err := Load(heightPath)
		if err != nil {
			return nil, fmt.Errorf("height texture: %w", err)
		}
		heightMap = t
	}
	if opacityPath != "" {
		t, err := Load(opacityPath)
		if err != nil {
			return nil, fmt.Errorf("opacity texture: %w", err)
		}
		opacityMap = t
	}
	if heightMap == nil && opacityMap == nil {
		return nil, nil
	}
	return []paint.Option{paint.WithTextures(heightMap, opacityMap)}, nil
}
