package registry

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/decker502/armature/internal/armature"
)

func newBundle(path string, names ...string) *armature.Bundle {
	b := &armature.Bundle{Path: path}
	for _, n := range names {
		b.Armatures = append(b.Armatures, armature.NewArmatureData(n))
		b.Animations = append(b.Animations, armature.NewAnimationData(n))
		tex := armature.NewTextureData()
		tex.Name = n + ".png"
		b.Textures = append(b.Textures, tex)
	}
	return b
}

// TestAddBundle 测试批量注册与查找
func TestAddBundle(t *testing.T) {
	r := New()
	r.AddBundle(newBundle("hero.xml", "hero", "sword"))

	if r.Armature("hero") == nil || r.Animation("sword") == nil || r.Texture("hero.png") == nil {
		t.Fatal("Expected registered entries to be found")
	}
	if r.Armature("missing") != nil {
		t.Error("Expected nil for unknown armature")
	}

	if got, want := r.ArmatureNames(), []string{"hero", "sword"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ArmatureNames = %v, want %v", got, want)
	}
	if got, want := r.TextureNames(), []string{"hero.png", "sword.png"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TextureNames = %v, want %v", got, want)
	}
	if got, want := r.Documents(), []string{"hero.xml"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Documents = %v, want %v", got, want)
	}
}

// TestRegistry_ImplementsLookup 测试注册表可作为解码器的骨架查找源
func TestRegistry_ImplementsLookup(t *testing.T) {
	var _ armature.ArmatureLookup = New()
}

// TestRemoveDocument 测试按文档移除
func TestRemoveDocument(t *testing.T) {
	r := New()
	r.AddBundle(newBundle("a.xml", "shared", "onlyA"))
	r.AddBundle(newBundle("b.xml", "shared"))

	// shared 已被 b.xml 覆盖，移除 a.xml 时保留
	removed := r.RemoveDocument("a.xml")
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if r.Armature("onlyA") != nil {
		t.Error("Expected onlyA to be removed")
	}
	if r.Armature("shared") == nil {
		t.Error("Expected shared (owned by b.xml) to survive")
	}
	if r.RemoveDocument("a.xml") != 0 {
		t.Error("Expected second removal to be a no-op")
	}

	r.RemoveDocument("b.xml")
	if len(r.ArmatureNames())+len(r.AnimationNames())+len(r.TextureNames()) != 0 {
		t.Error("Expected registry to be empty")
	}
}

// TestAddWithoutDocument 测试无文档来源的注册
func TestAddWithoutDocument(t *testing.T) {
	r := New()
	r.AddArmature(armature.NewArmatureData("loose"), "")

	if r.Armature("loose") == nil {
		t.Fatal("Expected loose armature")
	}
	if len(r.Documents()) != 0 {
		t.Errorf("Documents = %v, want none", r.Documents())
	}
}

// TestConcurrentAdd 测试并发注册
func TestConcurrentAdd(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				name := fmt.Sprintf("a%d_%d", i, j)
				r.AddBundle(newBundle(fmt.Sprintf("doc%d.json", i), name))
				_ = r.Armature(name)
			}
		}(i)
	}
	wg.Wait()

	if got := len(r.ArmatureNames()); got != 400 {
		t.Errorf("ArmatureNames = %d, want 400", got)
	}
	if got := len(r.Documents()); got != 8 {
		t.Errorf("Documents = %d, want 8", got)
	}
}
