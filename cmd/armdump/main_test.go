package main

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/webp"
	"gopkg.in/yaml.v3"

	"github.com/decker502/armature/internal/armature"
	"github.com/decker502/armature/pkg/registry"
)

// fakeFrames 内存精灵帧来源
type fakeFrames map[string]image.Image

func (f fakeFrames) FrameNames() []string {
	names := make([]string, 0, len(f))
	for _, n := range []string{"a.png", "b.png", "c.png", "broken.png"} {
		if _, ok := f[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

func (f fakeFrames) Image(name string) (image.Image, error) {
	img := f[name]
	if img == nil {
		return nil, errors.New("texture not loaded")
	}
	return img, nil
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestComposePreview(t *testing.T) {
	src := fakeFrames{
		"a.png":      solid(10, 10, color.RGBA{255, 0, 0, 255}),
		"b.png":      solid(20, 10, color.RGBA{0, 255, 0, 255}),
		"c.png":      solid(4, 8, color.RGBA{0, 0, 255, 255}),
		"broken.png": nil,
	}

	img := ComposePreview(src, 16, 2)
	if img == nil {
		t.Fatal("Expected preview image")
	}
	if got := img.Bounds().Size(); got != image.Pt(32, 32) {
		t.Errorf("size = %v, want (32,32)", got)
	}

	// a.png 放大到 16x16，中心为红色
	if r, g, _, _ := img.At(8, 8).RGBA(); r>>8 < 200 || g>>8 > 50 {
		t.Errorf("cell 0 center = %v, want red", img.At(8, 8))
	}
	// b.png 缩放到 16x8 并垂直居中，顶部留空
	if _, _, _, a := img.At(24, 1).RGBA(); a != 0 {
		t.Errorf("cell 1 top = %v, want transparent", img.At(24, 1))
	}
	if _, g, _, _ := img.At(24, 8).RGBA(); g>>8 < 200 {
		t.Errorf("cell 1 center = %v, want green", img.At(24, 8))
	}
}

func TestComposePreview_Empty(t *testing.T) {
	if img := ComposePreview(fakeFrames{}, 16, 4); img != nil {
		t.Errorf("Expected nil preview, got %v", img.Bounds())
	}
}

func TestWritePreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.webp")
	if err := WritePreview(path, solid(8, 4, color.RGBA{10, 20, 30, 255})); err != nil {
		t.Fatalf("WritePreview failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Expected valid WebP, got %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 4 {
		t.Errorf("size = %dx%d, want 8x4", cfg.Width, cfg.Height)
	}
}

func TestSummarize(t *testing.T) {
	reg := registry.New()

	arm := armature.NewArmatureData("hero")
	body := armature.NewBoneData("body")
	body.AddDisplay(&armature.SpriteDisplayData{DisplayName: "body.png", Skin: armature.NewBaseData()})
	arm.AddBone(body)
	head := armature.NewBoneData("head")
	head.ParentName = "body"
	arm.AddBone(head)

	anim := armature.NewAnimationData("hero")
	mov := armature.NewMovementData("walk")
	mov.Duration = 20
	mov.Loop = true
	track := armature.NewMovementBoneData("body")
	track.AddFrame(armature.NewFrameData())
	track.AddFrame(armature.NewFrameData())
	mov.AddMovementBone(track)
	anim.AddMovement(mov)

	tex := armature.NewTextureData()
	tex.Name = "body.png"
	tex.Width, tex.Height = 40, 20

	reg.AddBundle(&armature.Bundle{
		Path:       "hero/hero.xml",
		Armatures:  []*armature.ArmatureData{arm},
		Animations: []*armature.AnimationData{anim},
		Textures:   []*armature.TextureData{tex},
	})

	s := Summarize(reg, nil)
	if len(s.Armatures) != 1 || len(s.Armatures[0].Bones) != 2 {
		t.Fatalf("Armatures = %+v", s.Armatures)
	}
	if got := s.Armatures[0].Bones[0].Displays; len(got) != 1 || got[0] != "sprite:body.png" {
		t.Errorf("Displays = %v, want [sprite:body.png]", got)
	}
	if s.Armatures[0].Bones[1].Parent != "body" {
		t.Errorf("Parent = %q, want \"body\"", s.Armatures[0].Bones[1].Parent)
	}
	want := MovementSummary{Name: "walk", Duration: 20, Loop: true, Bones: 1, Frames: 2}
	if got := s.Animations[0].Movements[0]; got != want {
		t.Errorf("movement = %+v, want %+v", got, want)
	}
	if s.Textures[0].PivotX != 0.5 {
		t.Errorf("PivotX = %v, want 0.5", s.Textures[0].PivotX)
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "hero/hero.xml") || strings.Contains(string(out), "sprite_frames") {
		t.Errorf("unexpected YAML:\n%s", out)
	}
}
