package main

import (
	"github.com/decker502/armature/internal/armature"
	"github.com/decker502/armature/pkg/registry"
)

// Summary 注册表内容摘要（YAML 输出）
type Summary struct {
	Documents    []string           `yaml:"documents"`
	Armatures    []ArmatureSummary  `yaml:"armatures"`
	Animations   []AnimationSummary `yaml:"animations"`
	Textures     []TextureSummary   `yaml:"textures"`
	SpriteFrames []string           `yaml:"sprite_frames,omitempty"`
}

// ArmatureSummary 骨架摘要
type ArmatureSummary struct {
	Name    string        `yaml:"name"`
	Version float64       `yaml:"version"`
	Bones   []BoneSummary `yaml:"bones"`
}

// BoneSummary 骨骼摘要
type BoneSummary struct {
	Name     string   `yaml:"name"`
	Parent   string   `yaml:"parent,omitempty"`
	Displays []string `yaml:"displays,omitempty"` // "类型:名称"
}

// AnimationSummary 动画摘要
type AnimationSummary struct {
	Name      string            `yaml:"name"`
	Movements []MovementSummary `yaml:"movements"`
}

// MovementSummary 动作摘要
type MovementSummary struct {
	Name     string `yaml:"name"`
	Duration int    `yaml:"duration"`
	Loop     bool   `yaml:"loop"`
	Bones    int    `yaml:"bones"`
	Frames   int    `yaml:"frames"`
}

// TextureSummary 纹理摘要
type TextureSummary struct {
	Name     string  `yaml:"name"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	PivotX   float64 `yaml:"pivot_x"`
	PivotY   float64 `yaml:"pivot_y"`
	Contours int     `yaml:"contours,omitempty"`
}

// Summarize 汇总注册表内容，按名称排序
func Summarize(reg *registry.Registry, frames []string) Summary {
	s := Summary{
		Documents:    reg.Documents(),
		SpriteFrames: frames,
	}

	for _, name := range reg.ArmatureNames() {
		s.Armatures = append(s.Armatures, summarizeArmature(reg.Armature(name)))
	}
	for _, name := range reg.AnimationNames() {
		s.Animations = append(s.Animations, summarizeAnimation(reg.Animation(name)))
	}
	for _, name := range reg.TextureNames() {
		tex := reg.Texture(name)
		s.Textures = append(s.Textures, TextureSummary{
			Name:     tex.Name,
			Width:    tex.Width,
			Height:   tex.Height,
			PivotX:   tex.PivotX,
			PivotY:   tex.PivotY,
			Contours: len(tex.Contours),
		})
	}
	return s
}

func summarizeArmature(arm *armature.ArmatureData) ArmatureSummary {
	out := ArmatureSummary{Name: arm.Name, Version: arm.DataVersion}
	for _, bone := range arm.Bones {
		b := BoneSummary{Name: bone.Name, Parent: bone.ParentName}
		for _, d := range bone.Displays {
			b.Displays = append(b.Displays, d.DisplayType().String()+":"+d.Name())
		}
		out.Bones = append(out.Bones, b)
	}
	return out
}

func summarizeAnimation(anim *armature.AnimationData) AnimationSummary {
	out := AnimationSummary{Name: anim.Name}
	for _, mov := range anim.Movements {
		m := MovementSummary{
			Name:     mov.Name,
			Duration: mov.Duration,
			Loop:     mov.Loop,
			Bones:    len(mov.Bones),
		}
		for _, bone := range mov.Bones {
			m.Frames += len(bone.Frames)
		}
		out.Movements = append(out.Movements, m)
	}
	return out
}
