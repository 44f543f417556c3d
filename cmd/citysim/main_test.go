package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
	"citysim/engine/internal/sim"
)

const scenarioYAML = `
city:
  name: Yamlton
  size: 10
  seed: 7
scenario:
  - {x: 0, y: 0, type: power-plant}
  - {x: 0, y: 1, type: road}
  - {x: 1, y: 0, type: power-line}
  - {x: 2, y: 0, type: residential}
  - {x: 2, y: 1, type: road}
  - {x: 3, y: 0, type: commercial}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citysim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPrintsSummary(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	out, err := execute(t, "run", "--config", path, "--steps", "5", "--reports")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Yamlton after 5 ticks", "power-plant: 1", "road: 2", "Capacity (kW): 100"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunJSONReplaysWithSeed(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	first, err := execute(t, "run", "-c", path, "-n", "30", "--json", "--seed", "99")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := execute(t, "run", "-c", path, "-n", "30", "--json", "--seed", "99")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != second {
		t.Error("same seed produced different snapshots")
	}

	var snap sim.Snapshot
	if err := json.Unmarshal([]byte(first), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Name != "Yamlton" || snap.SimTime != 30 || len(snap.Buildings) != 6 {
		t.Errorf("snapshot name=%q simTime=%d buildings=%d", snap.Name, snap.SimTime, len(snap.Buildings))
	}
}

func TestRenderWritesPNG(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	png := filepath.Join(t.TempDir(), "map.png")
	out, err := execute(t, "render", "-c", path, "-n", "2", "-o", png, "--cell", "8")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "10x10 tiles") {
		t.Errorf("render output = %q", out)
	}
	if info, err := os.Stat(png); err != nil || info.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	path := writeConfig(t, "city:\n  size: 0\nsimulation:\n  residents:\n    move_in_chance: 2\n")
	_, err := execute(t, "run", "-c", path, "-n", "1")
	if err == nil {
		t.Fatal("expected invalid config error")
	}
	for _, want := range []string{"city.size", "move_in_chance"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestNewCityRejectsUnknownScenarioType(t *testing.T) {
	cfg := config.Default()
	cfg.Scenario = []config.Placement{{X: 1, Y: 1, Type: "castle"}}
	if _, err := newCity(cfg, logging.Noop()); err == nil {
		t.Fatal("unknown scenario type accepted")
	}
}
