package paint

import (
	"math/rand"
	"testing"

	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/vec"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// verticalEdge returns a w x h raster that is black left of x = w/2 and white
// from there on.
func verticalEdge(w, h int) *raster.RGB {
	r := raster.NewRGB(w, h)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			r.Set(x, y, f64.Vec3{255, 255, 255})
		}
	}
	return r
}

func TestFindStrokesUniformSource(t *testing.T) {
	src := raster.NewRGB(20, 20)
	src.Fill(f64.Vec3{40, 90, 200})
	p := DefaultParams()

	for _, radius := range []int{8, 4, 2, 1} {
		ref := raster.GaussianBlur(src, kernel.BlurKernelLength(p.BlurFactor*float64(radius)), p.BlurFactor*float64(radius))
		diff := raster.Difference(ref, src)
		strokes := FindStrokes(ref, src, diff, raster.Luminance(ref), radius, kernel.NewSobel(), p)
		if len(strokes) != 0 {
			t.Errorf("radius %d: got %d strokes on a uniform source", radius, len(strokes))
		}
	}
}

func TestFindStrokesSeedsAtEdge(t *testing.T) {
	src := verticalEdge(16, 8)
	ref := raster.GaussianBlur(src, kernel.BlurKernelLength(1), 1)
	diff := raster.Difference(ref, src)

	for y := 0; y < 8; y++ {
		if d := diff.At(0, y); d > 1 {
			t.Errorf("diff far from the edge = %f, want ~0", d)
		}
		if d := diff.At(7, y); d < 30 {
			t.Errorf("diff at the edge = %f, want a spike", d)
		}
	}

	p := DefaultParams()
	p.Threshold = 20
	strokes := FindStrokes(ref, src, diff, raster.Luminance(ref), 2, kernel.NewSobel(), p)
	if len(strokes) == 0 {
		t.Fatal("expected strokes along the edge")
	}
	for _, s := range strokes {
		if x := s.Points[0].X; x < 6 || x > 9 {
			t.Errorf("seed x = %f, want on or next to the edge", x)
		}
	}
}

func TestFindStrokesFirstMaxWins(t *testing.T) {
	ref := raster.NewRGB(3, 3)
	diff := raster.NewGray(3, 3)
	diff.Set(2, 0, 50)
	diff.Set(0, 2, 50)

	p := DefaultParams()
	p.Threshold = 1
	strokes := FindStrokes(ref, ref, diff, raster.NewGray(3, 3), 4, kernel.NewSobel(), p)

	if len(strokes) != 1 {
		t.Fatalf("got %d strokes, want 1", len(strokes))
	}
	if seed := strokes[0].Points[0]; seed != (vec.Vec2{X: 2, Y: 0}) {
		t.Errorf("seed = %v, want first maximum [2 0]", seed)
	}
}

func TestBuildStrokeFlatGradient(t *testing.T) {
	ref := raster.NewRGB(10, 10)
	ref.Fill(f64.Vec3{10, 20, 30})

	s := BuildStroke(vec.Vec2{X: 5, Y: 5}, 2, ref, ref, raster.Luminance(ref), kernel.NewSobel(), DefaultParams())
	if len(s.Points) != 1 {
		t.Errorf("got %d points, want single seed", len(s.Points))
	}
	if s.Color != (f64.Vec3{10, 20, 30}) {
		t.Errorf("Color = %v, want reference colour", s.Color)
	}
}

func TestBuildStrokeFollowsEdge(t *testing.T) {
	ref := verticalEdge(16, 16)
	p := DefaultParams()

	s := BuildStroke(vec.Vec2{X: 7, Y: 4}, 2, ref, ref, raster.Luminance(ref), kernel.NewSobel(), p)

	// Grows straight down the edge in steps of radius*LengthFactor until
	// the next point would leave the image.
	if len(s.Points) != 6 {
		t.Fatalf("got %d points, want 6: %v", len(s.Points), s.Points)
	}
	for i, pt := range s.Points {
		if pt.X != 7 || pt.Y != float64(4+2*i) {
			t.Errorf("point %d = %v, want [7 %d]", i, pt, 4+2*i)
		}
	}
}

func TestBuildStrokeStopsWhenCanvasMatches(t *testing.T) {
	ref := verticalEdge(16, 40)
	// Column 7 is black in the reference; paint it gray on the canvas except
	// from row 14 down, where the canvas already matches.
	canvas := ref.Clone()
	for y := 0; y < 14; y++ {
		canvas.Set(7, y, f64.Vec3{100, 100, 100})
	}

	p := DefaultParams()
	p.MinStrokeLength = 2
	ref.Set(7, 0, f64.Vec3{30, 30, 30}) // stroke colour differs from the column

	s := BuildStroke(vec.Vec2{X: 7, Y: 0}, 2, ref, canvas, raster.Luminance(ref), kernel.NewSobel(), p)
	last := s.Points[len(s.Points)-1]
	if last.Y >= 14 {
		t.Errorf("stroke grew into the matching region, last point %v", last)
	}
	if len(s.Points) <= p.MinStrokeLength {
		t.Errorf("stroke stopped before the minimum length: %d points", len(s.Points))
	}
}

func TestOrder(t *testing.T) {
	strokes := make([]*Stroke, 10)
	for i := range strokes {
		strokes[i] = &Stroke{Radius: i}
	}

	p := DefaultParams()
	if got := Order(strokes, rand.New(rand.NewSource(1)), p); &got[0] != &strokes[0] {
		t.Error("discovery order should be kept when RandomOrder is off")
	}

	p.RandomOrder = true
	a := Order(strokes, rand.New(rand.NewSource(7)), p)
	b := Order(strokes, rand.New(rand.NewSource(7)), p)

	seen := make(map[int]bool)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same seed produced different orders")
		}
		seen[a[i].Radius] = true
	}
	if len(seen) != len(strokes) {
		t.Errorf("shuffle lost strokes: %d unique of %d", len(seen), len(strokes))
	}
	if strokes[0].Radius != 0 || strokes[9].Radius != 9 {
		t.Error("Order modified its input")
	}
}
