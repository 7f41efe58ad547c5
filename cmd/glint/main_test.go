package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTurntableSettles(t *testing.T) {
	table := newTurntable(30)
	table.Nudge(math.Pi / 2)
	for range 300 {
		table.Update()
	}
	if math.Abs(table.Yaw-math.Pi/2) > 1e-3 {
		t.Errorf("yaw = %v, want it settled at pi/2", table.Yaw)
	}

	table.Reset()
	table.Update()
	if table.Yaw != 0 {
		t.Errorf("yaw after reset = %v, want 0", table.Yaw)
	}
}

func writeTestScene(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	obj := "v -1 -1 0\nv 1 -1 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := map[string]any{
		"width":   16,
		"height":  16,
		"objects": []map[string]any{{"mesh": "tri.obj"}},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("glint %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestRenderCommand(t *testing.T) {
	scenePath := writeTestScene(t)
	out := filepath.Join(t.TempDir(), "frame.png")

	got := execute(t, "render", scenePath, "-o", out)
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(got, "1 triangles, 3 vertices") {
		t.Errorf("summary %q does not report the geometry", got)
	}
}

func TestTurntableCommand(t *testing.T) {
	scenePath := writeTestScene(t)
	dir := t.TempDir()

	execute(t, "turntable", scenePath, "--frames", "3", "--out", dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("wrote %d frames, want 3", len(entries))
	}
	if entries[0].Name() != "frame_0000.png" {
		t.Errorf("first frame = %q, want frame_0000.png", entries[0].Name())
	}
}

func TestTurntableOrbitCommand(t *testing.T) {
	scenePath := writeTestScene(t)
	dir := t.TempDir()

	execute(t, "turntable", scenePath, "--frames", "4", "--out", dir, "--orbit")
	first, err := os.ReadFile(filepath.Join(dir, "frame_0000.png"))
	if err != nil {
		t.Fatal(err)
	}
	quarter, err := os.ReadFile(filepath.Join(dir, "frame_0001.png"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, quarter) {
		t.Error("orbiting camera produced identical frames")
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_0003.png")); err != nil {
		t.Errorf("last frame missing: %v", err)
	}
}
