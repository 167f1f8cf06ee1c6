package spriteframe

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

const sheetPlist = `<plist version="1.0"><dict>
<key>frames</key><dict>
  <key>flat.png</key><dict>
    <key>frame</key><string>{{2,0},{2,2}}</string>
    <key>offset</key><string>{0,0}</string>
    <key>rotated</key><false/>
    <key>sourceSize</key><string>{2,2}</string>
  </dict>
  <key>turned.png</key><dict>
    <key>frame</key><string>{{0,0},{2,1}}</string>
    <key>offset</key><string>{0,0}</string>
    <key>rotated</key><true/>
    <key>sourceSize</key><string>{2,1}</string>
  </dict>
</dict>
<key>metadata</key><dict>
  <key>format</key><integer>2</integer>
  <key>textureFileName</key><string>atlas.png</string>
  <key>size</key><string>{4,4}</string>
</dict>
</dict></plist>`

// writeSheet 在临时目录写入测试用精灵表与图集
func writeSheet(t *testing.T) (string, ReadFunc) {
	t.Helper()
	dir := t.TempDir()

	atlas := image.NewRGBA(image.Rect(0, 0, 4, 4))
	atlas.Set(0, 0, red)  // turned.png 原图 (0,0)
	atlas.Set(0, 1, blue) // turned.png 原图 (1,0)
	atlas.Set(2, 0, blue) // flat.png (0,0)
	atlas.Set(3, 1, red)  // flat.png (1,1)

	f, err := os.Create(filepath.Join(dir, "atlas.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, atlas); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := os.WriteFile(filepath.Join(dir, "hero.plist"), []byte(sheetPlist), 0o644); err != nil {
		t.Fatal(err)
	}

	read := func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	}
	return dir, read
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// TestAddSpriteFramesFromFile 测试加载精灵表
func TestAddSpriteFramesFromFile(t *testing.T) {
	_, read := writeSheet(t)
	c := New(read)

	if err := c.AddSpriteFramesFromFile("hero.plist", ""); err != nil {
		t.Fatalf("AddSpriteFramesFromFile failed: %v", err)
	}
	if !c.IsLoaded("hero.plist") {
		t.Error("Expected hero.plist to be loaded")
	}
	if got, want := c.FrameNames(), []string{"flat.png", "turned.png"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FrameNames = %v, want %v", got, want)
	}

	f, ok := c.Frame("turned.png")
	if !ok {
		t.Fatal("Expected frame turned.png")
	}
	if f.Texture != "atlas.png" || !f.Rotated || f.Sheet != "hero.plist" {
		t.Errorf("frame = %+v", f)
	}
	if _, ok := c.Texture("atlas.png"); !ok {
		t.Error("Expected atlas.png texture")
	}
}

// TestImage 测试帧图像裁剪与旋转还原
func TestImage(t *testing.T) {
	_, read := writeSheet(t)
	c := New(read)
	if err := c.AddSpriteFramesFromFile("hero.plist", "atlas.png"); err != nil {
		t.Fatal(err)
	}

	flat, err := c.Image("flat.png")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if flat.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v, want 2x2", flat.Bounds())
	}
	if !sameColor(flat.At(0, 0), blue) || !sameColor(flat.At(1, 1), red) {
		t.Errorf("flat pixels = %v %v", flat.At(0, 0), flat.At(1, 1))
	}

	turned, err := c.Image("turned.png")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if turned.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Errorf("bounds = %v, want 2x1", turned.Bounds())
	}
	if !sameColor(turned.At(0, 0), red) || !sameColor(turned.At(1, 0), blue) {
		t.Errorf("turned pixels = %v %v, want red blue", turned.At(0, 0), turned.At(1, 0))
	}

	if _, err := c.Image("missing.png"); err == nil {
		t.Error("Expected error for missing frame")
	}
}

// TestAddSpriteFramesFromFile_Once 测试同一精灵表只读取一次
func TestAddSpriteFramesFromFile_Once(t *testing.T) {
	_, read := writeSheet(t)
	reads := 0
	c := New(func(name string) ([]byte, error) {
		reads++
		return read(name)
	})

	for i := 0; i < 3; i++ {
		if err := c.AddSpriteFramesFromFile("hero.plist", ""); err != nil {
			t.Fatal(err)
		}
	}
	if reads != 2 {
		t.Errorf("reads = %d, want 2 (plist + image)", reads)
	}
}

// TestAddSpriteFramesFromFile_Errors 测试错误路径
func TestAddSpriteFramesFromFile_Errors(t *testing.T) {
	dir, read := writeSheet(t)
	c := New(read)

	if err := c.AddSpriteFramesFromFile("missing.plist", ""); err == nil {
		t.Error("Expected error for missing plist")
	}
	if err := c.AddSpriteFramesFromFile("hero.plist", "missing.png"); err == nil {
		t.Error("Expected error for missing image")
	}
	if c.IsLoaded("hero.plist") {
		t.Error("Failed load must not mark the sheet loaded")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.AddSpriteFramesFromFile("hero.plist", "bad.png"); err == nil {
		t.Error("Expected error for undecodable image")
	}

	failing := New(func(string) ([]byte, error) { return nil, errors.New("boom") })
	if err := failing.AddSpriteFramesFromFile("hero.plist", ""); err == nil {
		t.Error("Expected read error")
	}
}

// TestRemoveSpriteFramesFromFile 测试移除精灵表
func TestRemoveSpriteFramesFromFile(t *testing.T) {
	_, read := writeSheet(t)
	c := New(read)
	if err := c.AddSpriteFramesFromFile("hero.plist", ""); err != nil {
		t.Fatal(err)
	}

	c.RemoveSpriteFramesFromFile("hero.plist")

	if len(c.FrameNames()) != 0 {
		t.Errorf("FrameNames = %v, want none", c.FrameNames())
	}
	if _, ok := c.Texture("atlas.png"); ok {
		t.Error("Expected unused texture to be released")
	}
	if c.IsLoaded("hero.plist") {
		t.Error("Expected sheet to be unloaded")
	}
}
