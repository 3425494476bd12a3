package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/shade"
)

func TestApplyParamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"layers": 5, "threshold": 42, "curve": {"maxDepth": 3}}`), 0644); err != nil {
		t.Fatalf("Failed to write params: %v", err)
	}

	p := paint.DefaultParams()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindParams(fs, &p)
	var sf shadeFlags
	sf.register(fs)
	if err := fs.Parse([]string{"--threshold=7", "--light=1,2,3"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := applyParamsFile(fs, path, &p); err != nil {
		t.Fatalf("applyParamsFile failed: %v", err)
	}

	if p.Layers != 5 || p.Curve.MaxDepth != 3 {
		t.Errorf("file values not applied: %+v", p)
	}
	if p.Threshold != 7 {
		t.Errorf("Threshold = %f, command line should win", p.Threshold)
	}
	if p.MinRadius != paint.DefaultParams().MinRadius {
		t.Errorf("MinRadius = %d, missing fields should keep defaults", p.MinRadius)
	}
	if len(sf.lights) != 1 {
		t.Errorf("lights = %v, reapplying must not duplicate them", sf.lights)
	}

	if err := applyParamsFile(fs, filepath.Join(t.TempDir(), "missing.json"), &p); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestShadeFlags(t *testing.T) {
	var sf shadeFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	sf.register(fs)

	opts, err := sf.options()
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	if _, ok := opts.Shader.(shade.BlinnPhong); !ok || opts.Lights != nil {
		t.Errorf("defaults = %+v, want blinn-phong with the default light", opts)
	}

	if err := fs.Parse([]string{"--shader=toon", "--light=0,0,5", "--light=1,1,5,1,0,0"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	opts, err = sf.options()
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	if _, ok := opts.Shader.(shade.Toon); !ok || len(opts.Lights) != 2 {
		t.Errorf("options = %+v", opts)
	}

	if err := fs.Parse([]string{"--light=1,2"}); err == nil {
		t.Error("expected error for malformed light")
	}
	sf.shader = "phong"
	if _, err := sf.options(); err == nil {
		t.Error("expected error for unknown shader")
	}
}
