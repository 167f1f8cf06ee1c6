package app

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decker502/armature/pkg/config"
	"github.com/decker502/armature/pkg/loader"
)

const heroJSON = `{
  "armature_data": [{"name": "hero", "bone_data": [{"name": "body"}]}],
  "animation_data": [{"name": "hero", "mov_data": [{"name": "idle", "dr": 1,
    "mov_bone_data": [{"name": "body", "frame_data": [{"dr": 1}]}]}]}],
  "texture_data": [{"name": "body.png", "width": 2, "height": 2}],
  "config_file_path": ["hero0.plist"]
}`

const heroPlist = `<plist version="1.0"><dict>
<key>frames</key><dict>
  <key>body.png</key><dict>
    <key>frame</key><string>{{0,0},{2,2}}</string>
    <key>offset</key><string>{0,0}</string>
    <key>rotated</key><false/>
    <key>sourceSize</key><string>{2,2}</string>
  </dict>
</dict>
<key>metadata</key><dict>
  <key>format</key><integer>2</integer>
  <key>textureFileName</key><string>hero0.png</string>
  <key>size</key><string>{2,2}</string>
</dict>
</dict></plist>`

// writeAssets 在临时目录写入测试文档与精灵表
func writeAssets(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "hero")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"Hero.ExportJson": heroJSON,
		"hero0.plist":     heroPlist,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := os.Create(filepath.Join(dir, "hero0.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	cfg := config.Default()
	cfg.AssetRoot = writeAssets(t)
	cfg.Verbose = true
	cfg.Documents = []config.DocumentConfig{{Path: "hero/Hero.ExportJson"}}

	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestLoadDocuments(t *testing.T) {
	a := newTestApp(t)
	if a.Cache.Enabled() {
		t.Error("Expected cache to be disabled by default")
	}

	if err := a.LoadDocuments(); err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	if a.Registry.Armature("hero") == nil {
		t.Error("Expected armature 'hero' to be registered")
	}
	if !a.Sprites.IsLoaded("hero/hero0.plist") {
		t.Error("Expected config sprite sheet to be loaded")
	}
	if _, ok := a.Sprites.Frame("body.png"); !ok {
		t.Error("Expected sprite frame 'body.png'")
	}
}

func TestPreloadDocuments(t *testing.T) {
	a := newTestApp(t)

	var progress []float64
	if err := a.PreloadDocuments(func(p float64) { progress = append(progress, p) }); err != nil {
		t.Fatalf("PreloadDocuments failed: %v", err)
	}
	if !a.Scheduler.IsScheduled(loader.SchedulerKey) {
		t.Fatal("Expected reader poll to be scheduled")
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(progress) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for preload")
		}
		a.Update(1.0 / 60)
		time.Sleep(2 * time.Millisecond)
	}

	if progress[0] != 1 {
		t.Errorf("progress = %v, want [1]", progress)
	}
	if a.Registry.Armature("hero") == nil {
		t.Error("Expected armature 'hero' to be registered")
	}
	if !a.Sprites.IsLoaded("hero/hero0.plist") {
		t.Error("Expected config sprite sheet to be loaded on drain")
	}
}

func TestPreloadDocuments_Error(t *testing.T) {
	var failed string
	a := newTestApp(t, WithErrorHandler(func(path string, err error) { failed = path }))
	a.Config.Documents = []config.DocumentConfig{{Path: "hero/missing.xml"}}

	if err := a.PreloadDocuments(nil); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.Reader.InFlight() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for failed preload")
		}
		a.Update(1.0 / 60)
		time.Sleep(2 * time.Millisecond)
	}
	if failed != "hero/missing.xml" {
		t.Errorf("failed = %q, want \"hero/missing.xml\"", failed)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.PositionReadScale = -1
	if _, err := New(cfg); err == nil {
		t.Fatal("Expected error for invalid config")
	}
}
