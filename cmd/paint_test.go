package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/impasto/internal/store"
)

func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			c := color.NRGBA{240, 240, 240, 255}
			if x >= 8 && x < 16 && y >= 8 && y < 16 {
				c = color.NRGBA{20, 40, 200, 255}
			}
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--log-level=error"))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%s failed: %v", args[0], err)
	}
	return out.String()
}

func TestPaintSaveAndRelight(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in.png")
	writeTestImage(t, in)
	data := filepath.Join(tmpDir, "data")

	painted := filepath.Join(tmpDir, "painted.qoi")
	height := filepath.Join(tmpDir, "height.png")
	shaded := filepath.Join(tmpDir, "shaded.png")
	out := execute(t, "paint",
		"--in", in,
		"--out", painted,
		"--height-out", height,
		"--shaded-out", shaded,
		"--layers", "2",
		"--threshold", "20",
		"--save",
		"--data-dir", data,
	)

	for _, path := range []string{painted, height, shaded} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output %s: %v", path, err)
		}
	}

	_, jobID, ok := strings.Cut(out, "Saved job ")
	if !ok {
		t.Fatalf("no job id in output %q", out)
	}
	jobID = strings.TrimSpace(jobID)

	st, err := store.NewFSStore(data)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	record, err := st.LoadRecord(jobID)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if record.Width != 24 || len(record.Layers) != 2 || record.Config.Params.Threshold != 20 {
		t.Errorf("record = %+v", record)
	}
	if trace, err := st.LoadTrace(jobID); err != nil || len(trace) != 2 {
		t.Errorf("trace = %d entries, err %v", len(trace), err)
	}

	relit := filepath.Join(tmpDir, "relit.png")
	execute(t, "relight", jobID,
		"--out", relit,
		"--shader", "toon",
		"--light", "12,12,30",
		"--update",
		"--data-dir", data,
	)
	if _, err := os.Stat(relit); err != nil {
		t.Errorf("missing relit image: %v", err)
	}
	record, err = st.LoadRecord(jobID)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if record.Config.Shader != "toon" || len(record.Config.Lights) != 1 {
		t.Errorf("relight --update did not store settings: %+v", record.Config)
	}
}

func TestRelightUnknownJob(t *testing.T) {
	st, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	opts, _ := (&shadeFlags{shader: "lambertian"}).options()
	if _, err := relight(st, "missing", opts); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestVersion(t *testing.T) {
	if out := execute(t, "version"); !strings.Contains(out, "impasto version "+version) {
		t.Errorf("version output %q", out)
	}
}
