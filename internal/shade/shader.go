package shade

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/math/f64"
)

// ErrUnknownShader is returned by Parse for names outside Names().
var ErrUnknownShader = errors.New("unknown shader")

// Shader evaluates the colour of a surface point. colour and the result are
// in display range [0,255]; normal is unit length.
type Shader interface {
	Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3
}

var shaders = []struct {
	name string
	new  func() Shader
}{
	{"blinn-phong", func() Shader { return BlinnPhong{Ambient: 0.2, Specular: 0.5, Exponent: 25} }},
	{"lambertian", func() Shader { return Lambertian{} }},
	{"oren-nayar", func() Shader { return OrenNayar{Ambient: 0.2, Roughness: 1, Albedo: 0.8} }},
	{"toon", func() Shader { return Toon{} }},
	{"normal", func() Shader { return NormalMap{} }},
}

// Names lists the accepted shader names.
func Names() []string {
	names := make([]string, len(shaders))
	for i, s := range shaders {
		names[i] = s.name
	}
	return names
}

// Parse returns the shader with the given name and its default settings.
func Parse(name string) (Shader, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, s := range shaders {
		if s.name == key {
			return s.new(), nil
		}
	}
	return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownShader, name, strings.Join(Names(), ", "))
}

// BlinnPhong adds ambient, diffuse and specular terms averaged over lights.
type BlinnPhong struct {
	Ambient  float64
	Specular float64
	Exponent float64
}

func (s BlinnPhong) Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3 {
	kd := scale3(colour, 1.0/255)
	out := f64.Vec3{s.Ambient, s.Ambient, s.Ambient}

	if len(lights) > 0 {
		v := normalize3(sub3(view, pos))
		var sum f64.Vec3
		for _, light := range lights {
			l := normalize3(sub3(light.Position, pos))
			h := normalize3(add3(v, l))

			diffuse := math.Max(0, dot3(normal, l))
			highlight := math.Pow(math.Max(0, dot3(normal, h)), s.Exponent)

			sum = add3(sum, scale3(mul3(kd, light.Intensity), diffuse))
			sum = add3(sum, scale3(light.Intensity, s.Specular*highlight))
		}
		out = add3(out, scale3(sum, 1/float64(len(lights))))
	}
	return scale3(clamp01(out), 255)
}

// Lambertian is the plain diffuse term averaged over lights.
type Lambertian struct{}

func (Lambertian) Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3 {
	if len(lights) == 0 {
		return f64.Vec3{}
	}
	kd := scale3(colour, 1.0/255)
	var sum f64.Vec3
	for _, light := range lights {
		l := normalize3(sub3(light.Position, pos))
		sum = add3(sum, scale3(mul3(kd, light.Intensity), math.Max(0, dot3(normal, l))))
	}
	return scale3(clamp01(scale3(sum, 1/float64(len(lights)))), 255)
}

// OrenNayar is the rough-diffuse model with the A/B coefficient form.
// The max(0, cos phi) term uses a smooth lower bound.
type OrenNayar struct {
	Ambient   float64
	Roughness float64 // sigma, radians
	Albedo    float64
}

func (s OrenNayar) Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3 {
	out := f64.Vec3{s.Ambient, s.Ambient, s.Ambient}
	if len(lights) == 0 {
		return scale3(out, 255)
	}

	s2 := s.Roughness * s.Roughness
	a := 1 - 0.5*s2/(s2+0.33)
	b := 0.45 * s2 / (s2 + 0.09)

	kd := scale3(colour, 1.0/255)
	v := normalize3(sub3(view, pos))
	cosR := dot3(normal, v)
	thetaR := math.Acos(math.Max(-1, math.Min(1, cosR)))
	vp := normalize3(sub3(v, scale3(normal, cosR)))

	var sum f64.Vec3
	for _, light := range lights {
		l := normalize3(sub3(light.Position, pos))
		cosI := dot3(normal, l)
		if cosI <= 0 {
			continue
		}
		thetaI := math.Acos(math.Min(1, cosI))
		lp := normalize3(sub3(l, scale3(normal, cosI)))

		alpha := math.Max(thetaI, thetaR)
		beta := math.Min(math.Min(thetaI, thetaR), math.Pi/2-1e-3)
		cosPhi := dot3(lp, vp)

		term := a + b*softMax0(cosPhi)*math.Sin(alpha)*math.Tan(beta)
		sum = add3(sum, scale3(mul3(kd, light.Intensity), s.Albedo*cosI*term))
	}
	out = add3(out, scale3(sum, 1/float64(len(lights))))
	return scale3(clamp01(out), 255)
}

// softMax0 is a smooth stand-in for max(0, x).
func softMax0(x float64) float64 {
	const eps = 1e-4
	return (x + math.Sqrt(x*x+eps)) / 2
}

// Toon quantises the average diffuse term into three bands.
type Toon struct{}

func (Toon) Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3 {
	var intensity float64
	for _, light := range lights {
		l := normalize3(sub3(light.Position, pos))
		intensity += math.Max(0, dot3(normal, l))
	}
	if len(lights) > 0 {
		intensity /= float64(len(lights))
	}

	band := 0.3
	switch {
	case intensity > 0.75:
		band = 1.0
	case intensity > 0.35:
		band = 0.6
	}
	return scale3(colour, band)
}

// NormalMap shows the normal itself, mapping [-1,1] onto [0,255].
type NormalMap struct{}

func (NormalMap) Shade(colour, pos f64.Vec3, lights []Light, view, normal f64.Vec3) f64.Vec3 {
	return scale3(add3(normal, f64.Vec3{1, 1, 1}), 255.0/2)
}
