package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/routing"
	"github.com/danmuck/fabricctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Fabric.Fanout != 4 || cfg.Fabric.Depth != 3 || cfg.Fabric.Network != 192 || cfg.Fabric.FlatThreshold != 1000 {
		t.Fatalf("unexpected fabric defaults: %+v", cfg.Fabric)
	}
	if cfg.Mode() != routing.ModeTopology {
		t.Fatalf("unexpected default mode: %s", cfg.Mode())
	}
}

func TestParseOverlaysOnlyDefinedKeys(t *testing.T) {
	cfg, err := Parse(`
[fabric]
fanout = 2

[controller]
mode = "learning"
echo_interval = "2s"

[admin]
cors_origins = [" http://ops.local ", ""]
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Default()
	want.Fabric.Fanout = 2
	want.Controller.Mode = "learning"
	want.Controller.EchoInterval = 2 * time.Second
	want.Admin.CorsOrigins = []string{"http://ops.local"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Mode() != routing.ModeLearning {
		t.Fatalf("unexpected mode: %s", cfg.Mode())
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"fanout":       "[fabric]\nfanout = 1\n",
		"depth":        "[fabric]\ndepth = 4\n",
		"network":      "[fabric]\nnetwork = 255\n",
		"mode":         "[controller]\nmode = \"router\"\n",
		"duration":     "[controller]\ndead_after = \"soon\"\n",
		"dead_after":   "[controller]\ndead_after = \"1s\"\necho_interval = \"5s\"\n",
		"queue":        "[controller]\noutbound_queue = 0\n",
		"log":          "[log]\nlevel = \"loud\"\n",
		"unknown key":  "[fabric]\nbranching = 4\n",
		"admin listen": "[admin]\nlisten_addr = \"\"\n",
	}
	for name, data := range cases {
		if _, err := Parse(data); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDepthErrorIsConfigurationError(t *testing.T) {
	_, err := Parse("[fabric]\ndepth = 5\n")
	if !errors.Is(err, fabric.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	tmpl, err := Template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(tmpl, "[fabric]") || !strings.Contains(tmpl, "flat_threshold") {
		t.Fatalf("template missing sections:\n%s", tmpl)
	}
	cfg, err := Parse(tmpl)
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("template does not reproduce defaults (-want +got):\n%s", diff)
	}
}

func TestWriteTemplateAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabricctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode: %v", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenFlow().ListenAddr != ":6653" || cfg.Routing().Network != 192 {
		t.Fatalf("unexpected loaded config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
