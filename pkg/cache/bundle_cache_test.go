package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/decker502/armature/internal/armature"
)

// openTestCache 创建测试专用缓存，数据目录位于临时目录
func openTestCache(t *testing.T) *BundleCache {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", home)

	c, err := Open(fmt.Sprintf("armature_cache_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Skipf("Cannot create gdata manager for testing: %v", err)
	}
	return c
}

func sampleBundle() *armature.Bundle {
	arm := armature.NewArmatureData("hero")
	bone := armature.NewBoneData("body")
	bone.AddDisplay(&armature.SpriteDisplayData{DisplayName: "body.png", Skin: armature.NewBaseData()})
	bone.AddDisplay(&armature.ParticleDisplayData{Plist: "fx/fire.plist"})
	arm.AddBone(bone)

	anim := armature.NewAnimationData("hero")
	mov := armature.NewMovementData("run")
	track := armature.NewMovementBoneData("body")
	track.AddFrame(armature.NewFrameData())
	mov.AddMovementBone(track)
	anim.AddMovement(mov)

	return &armature.Bundle{
		Path:        "hero.json",
		Armatures:   []*armature.ArmatureData{arm},
		Animations:  []*armature.AnimationData{anim},
		ConfigFiles: []string{"hero0"},
	}
}

// TestStoreLoad 测试保存后读取
func TestStoreLoad(t *testing.T) {
	c := openTestCache(t)
	fp := NewFingerprint([]byte("content"), 1, true)

	if _, ok := c.Load("hero.json", fp); ok {
		t.Fatal("Expected miss on empty cache")
	}
	if err := c.Store("hero.json", fp, sampleBundle()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	b, ok := c.Load("hero.json", fp)
	if !ok {
		t.Fatal("Expected hit after Store")
	}
	bone := b.Armature("hero").Bone("body")
	if bone == nil {
		t.Fatal("Expected bone lookup to work after reindex")
	}
	if len(bone.Displays) != 2 || bone.Displays[1].DisplayType() != armature.DisplayParticle {
		t.Errorf("displays = %+v", bone.Displays)
	}
	if b.Animations[0].Movement("run").MovementBone("body") == nil {
		t.Error("Expected movement bone lookup to work after reindex")
	}
	if len(b.ConfigFiles) != 1 || b.ConfigFiles[0] != "hero0" {
		t.Errorf("ConfigFiles = %v", b.ConfigFiles)
	}
}

// TestLoad_FingerprintMismatch 测试内容变化后缓存失效
func TestLoad_FingerprintMismatch(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store("hero.json", NewFingerprint([]byte("v1"), 1, true), sampleBundle()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fp   Fingerprint
	}{
		{"content", NewFingerprint([]byte("v2"), 1, true)},
		{"read scale", NewFingerprint([]byte("v1"), 2, true)},
		{"auto load", NewFingerprint([]byte("v1"), 1, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.Load("hero.json", tt.fp); ok {
				t.Error("Expected miss for changed fingerprint")
			}
		})
	}
}

// TestStore_ExternalArmatures 测试依赖外部骨架的解码结果不被缓存
func TestStore_ExternalArmatures(t *testing.T) {
	c := openTestCache(t)
	fp := NewFingerprint([]byte("anim only"), 1, true)

	b := sampleBundle()
	b.Armatures = nil
	b.ExternalArmatures = []string{"hero"}
	if err := c.Store("hero_anim.xml", fp, b); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, ok := c.Load("hero_anim.xml", fp); ok {
		t.Error("Expected miss for bundle depending on external armatures")
	}
}

// TestNilManager 测试降级模式
func TestNilManager(t *testing.T) {
	c := New(nil)
	if c.Enabled() {
		t.Error("Expected disabled cache")
	}
	fp := NewFingerprint(nil, 1, false)
	if err := c.Store("a.xml", fp, sampleBundle()); err != nil {
		t.Errorf("Store on disabled cache: %v", err)
	}
	if _, ok := c.Load("a.xml", fp); ok {
		t.Error("Expected miss on disabled cache")
	}

	var nilCache *BundleCache
	if nilCache.Enabled() {
		t.Error("Expected nil cache to be disabled")
	}
}
