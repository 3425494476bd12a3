package server

import (
	"encoding/json"
	"image"
	"image/color"
	"log/slog"
	"math"
	"net/http"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/raster"
)

// maxDistance is the largest RGB distance between two pixels.
var maxDistance = math.Sqrt(3) * 255

// diffImage creates a false-color difference image: black where the canvas
// matches the source, red where it differs most.
func diffImage(source, canvas *raster.RGB) *image.NRGBA {
	diff := raster.Difference(source, canvas)
	img := image.NewNRGBA(image.Rect(0, 0, diff.Width, diff.Height))
	for y := 0; y < diff.Height; y++ {
		for x := 0; x < diff.Width; x++ {
			v := math.Min(255, math.Round(diff.At(x, y)/maxDistance*255))
			img.SetNRGBA(x, y, color.NRGBA{uint8(v), 0, 0, 255})
		}
	}
	return img
}

// writePNG sends img as an uncached PNG.
func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := imageio.Encode(w, ".png", img); err != nil {
		slog.Error("Failed to encode PNG", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
