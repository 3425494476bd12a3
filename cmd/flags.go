package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/shade"
)

// bindParams registers one flag per painting parameter, defaulting to the
// values already in p.
func bindParams(fs *pflag.FlagSet, p *paint.Params) {
	fs.IntVar(&p.Layers, "layers", p.Layers, "Number of brush sizes, largest first")
	fs.IntVar(&p.MinRadius, "min-radius", p.MinRadius, "Radius of the finest brush")
	fs.IntVar(&p.MinStrokeLength, "min-stroke", p.MinStrokeLength, "Minimum control points per stroke")
	fs.IntVar(&p.MaxStrokeLength, "max-stroke", p.MaxStrokeLength, "Maximum control points per stroke")
	fs.Float64Var(&p.BlurFactor, "blur-factor", p.BlurFactor, "Reference blur sigma relative to the brush radius")
	fs.Float64Var(&p.FilterFactor, "filter-factor", p.FilterFactor, "Weight of the new direction when a stroke turns")
	fs.Float64Var(&p.GridFactor, "grid-factor", p.GridFactor, "Seed grid spacing relative to the brush radius")
	fs.Float64Var(&p.LengthFactor, "length-factor", p.LengthFactor, "Control point spacing relative to the brush radius")
	fs.Float64Var(&p.Threshold, "threshold", p.Threshold, "Mean colour error tolerated before a cell is painted")
	fs.Float64Var(&p.FallOff, "fall-off", p.FallOff, "Anti-aliased brush rim relative to the radius")
	fs.BoolVar(&p.RandomOrder, "random-order", p.RandomOrder, "Shuffle strokes within a layer")
	fs.Int64Var(&p.Seed, "seed", p.Seed, "Random seed for stroke order")
	fs.Float64Var(&p.StrokeHeight, "stroke-height", p.StrokeHeight, "Relief of a single stroke")
	fs.Float64Var(&p.HeightIncrement, "height-increment", p.HeightIncrement, "Height added per stroke painted")
	fs.Float64Var(&p.Curve.ThetaTolerance, "theta-tolerance", p.Curve.ThetaTolerance, "Turning angle below which the curve is smooth")
	fs.Float64Var(&p.Curve.Neighbourhood, "neighbourhood", p.Curve.Neighbourhood, "Distance below which curve points count as close")
	fs.IntVar(&p.Curve.MaxDepth, "max-depth", p.Curve.MaxDepth, "Maximum subdivision rounds")
	fs.BoolVar(&p.Curve.Decimate, "decimate", p.Curve.Decimate, "Drop redundant points from the limit curve")
}

// applyParamsFile loads a JSON parameter file into p. Flags set on the
// command line win over the file.
func applyParamsFile(fs *pflag.FlagSet, path string, p *paint.Params) error {
	if path == "" {
		return nil
	}

	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = f.Value.String() })

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read params: %w", err)
	}
	loaded := paint.DefaultParams()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse params %s: %w", path, err)
	}
	*p = loaded

	for name, value := range changed {
		if f := fs.Lookup(name); f != nil && f.Value.Type() != "lights" {
			if err := f.Value.Set(value); err != nil {
				return fmt.Errorf("failed to reapply --%s: %w", name, err)
			}
		}
	}
	return nil
}

// lightsValue collects repeated --light flags.
type lightsValue struct {
	lights *[]shade.Light
}

func (v lightsValue) String() string {
	parts := make([]string, len(*v.lights))
	for i, l := range *v.lights {
		parts[i] = l.String()
	}
	return strings.Join(parts, ";")
}

func (v lightsValue) Set(s string) error {
	l, err := shade.ParseLight(s)
	if err != nil {
		return err
	}
	*v.lights = append(*v.lights, l)
	return nil
}

func (v lightsValue) Type() string { return "lights" }

// shadeFlags are the shading options shared by paint and relight.
type shadeFlags struct {
	shader string
	lights []shade.Light
	relief float64
}

func (f *shadeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.shader, "shader", shade.Names()[0], "Shading model: "+strings.Join(shade.Names(), ", "))
	fs.Var(lightsValue{&f.lights}, "light", "Light as x,y,z[,r,g,b]; repeatable (default: one light over the top-left corner)")
	fs.Float64Var(&f.relief, "relief", 1, "Scale of the height gradient when forming normals")
}

func (f *shadeFlags) options() (shade.Options, error) {
	shader, err := shade.Parse(f.shader)
	if err != nil {
		return shade.Options{}, err
	}
	return shade.Options{Shader: shader, Lights: f.lights, Relief: f.relief}, nil
}
