// Package armature provides the data model and document decoders for skeletal
// animation exports. Two source forms are supported: the legacy Flash/DragonBones
// XML document and the CocoStudio JSON document. Both decode into the same tree:
//
//	Bundle
//	├── ArmatureData -> BoneData -> DisplayData
//	├── AnimationData -> MovementData -> MovementBoneData -> FrameData
//	└── TextureData -> ContourData
//
// Entities are built by a decoder, mutated only while decoding, and then handed
// to a registry that owns them. Cross references (bone parent, movement bone to
// armature bone) are kept by name and resolved at decode time.
package armature

import "math"

// DisplayType discriminates the DisplayData variants.
type DisplayType int

const (
	// DisplaySprite is an image display referencing a sprite frame.
	DisplaySprite DisplayType = iota
	// DisplayArmature is a nested armature.
	DisplayArmature
	// DisplayParticle is a particle effect described by a plist.
	DisplayParticle
)

func (t DisplayType) String() string {
	switch t {
	case DisplaySprite:
		return "sprite"
	case DisplayArmature:
		return "armature"
	case DisplayParticle:
		return "particle"
	}
	return "unknown"
}

// TweenType identifies the easing curve used between two keyframes.
type TweenType int

// TweenEasingMin marks a frame that does not tween at all.
const TweenEasingMin TweenType = -1

const (
	Linear TweenType = iota
	SineEaseIn
	SineEaseOut
	SineEaseInOut
	QuadEaseIn
	QuadEaseOut
	QuadEaseInOut
	CubicEaseIn
	CubicEaseOut
	CubicEaseInOut
	QuartEaseIn
	QuartEaseOut
	QuartEaseInOut
	QuintEaseIn
	QuintEaseOut
	QuintEaseInOut
	ExpoEaseIn
	ExpoEaseOut
	ExpoEaseInOut
	CircEaseIn
	CircEaseOut
	CircEaseInOut
	ElasticEaseIn
	ElasticEaseOut
	ElasticEaseInOut
	BackEaseIn
	BackEaseOut
	BackEaseInOut
	BounceEaseIn
	BounceEaseOut
	BounceEaseInOut
)

// TweenEasingMax is the upper sentinel of the easing enumeration.
const TweenEasingMax TweenType = 10000

// BlendType is the compositing mode of a frame.
type BlendType int

const (
	BlendNormal BlendType = iota
	BlendLayer
	BlendDarken
	BlendMultiply
	BlendLighten
	BlendScreen
	BlendOverlay
	BlendHardLight
	BlendAdd
	BlendSubtract
	BlendDifference
	BlendInvert
	BlendAlpha
	BlendErase
)

// BaseData holds the transform and color fields shared by bones, frames and
// sprite skins. Skew values are radians in runtime convention.
type BaseData struct {
	X, Y   float64
	ZOrder int

	SkewX, SkewY   float64
	ScaleX, ScaleY float64

	// Color channels, each 0-255. Only meaningful when IsUseColorInfo is set.
	A, R, G, B     int
	IsUseColorInfo bool
}

// NewBaseData returns an identity transform with an opaque white color.
func NewBaseData() BaseData {
	return BaseData{
		ScaleX: 1,
		ScaleY: 1,
		A:      255,
		R:      255,
		G:      255,
		B:      255,
	}
}

// DisplayData is one visual representation attachable to a bone.
// Variants: *SpriteDisplayData, *ArmatureDisplayData, *ParticleDisplayData.
type DisplayData interface {
	DisplayType() DisplayType
	// Name returns the display name, or the plist path for particles.
	Name() string
}

// SpriteDisplayData shows a sprite frame, optionally offset by a skin transform.
type SpriteDisplayData struct {
	DisplayName string
	Skin        BaseData
}

func (d *SpriteDisplayData) DisplayType() DisplayType { return DisplaySprite }
func (d *SpriteDisplayData) Name() string             { return d.DisplayName }

// ArmatureDisplayData shows a nested armature by name.
type ArmatureDisplayData struct {
	DisplayName string
}

func (d *ArmatureDisplayData) DisplayType() DisplayType { return DisplayArmature }
func (d *ArmatureDisplayData) Name() string             { return d.DisplayName }

// ParticleDisplayData shows a particle system loaded from Plist.
type ParticleDisplayData struct {
	Plist string
}

func (d *ParticleDisplayData) DisplayType() DisplayType { return DisplayParticle }
func (d *ParticleDisplayData) Name() string             { return d.Plist }

// BoneData is a named node in an armature hierarchy.
// An empty ParentName means the bone is a root.
type BoneData struct {
	BaseData
	Name       string
	ParentName string
	Displays   []DisplayData
}

// NewBoneData creates a bone with an identity transform.
func NewBoneData(name string) *BoneData {
	return &BoneData{BaseData: NewBaseData(), Name: name}
}

// AddDisplay appends a display in document order.
func (b *BoneData) AddDisplay(d DisplayData) {
	b.Displays = append(b.Displays, d)
}

// ArmatureData is a named skeleton. Bones keep document order; lookup by name
// goes through an index built as bones are added.
type ArmatureData struct {
	Name        string
	DataVersion float64
	Bones       []*BoneData

	boneIndex map[string]int
}

// NewArmatureData creates an empty armature.
func NewArmatureData(name string) *ArmatureData {
	return &ArmatureData{Name: name, boneIndex: make(map[string]int)}
}

// AddBone appends a bone. A later bone with an already used name replaces the
// index entry but keeps its own slot in Bones.
func (a *ArmatureData) AddBone(b *BoneData) {
	if a.boneIndex == nil {
		a.reindex()
	}
	a.boneIndex[b.Name] = len(a.Bones)
	a.Bones = append(a.Bones, b)
}

// Bone looks a bone up by name.
func (a *ArmatureData) Bone(name string) *BoneData {
	if a == nil {
		return nil
	}
	if a.boneIndex == nil {
		a.reindex()
	}
	if i, ok := a.boneIndex[name]; ok {
		return a.Bones[i]
	}
	return nil
}

func (a *ArmatureData) reindex() {
	a.boneIndex = make(map[string]int, len(a.Bones))
	for i, b := range a.Bones {
		a.boneIndex[b.Name] = i
	}
}

// FrameData is one keyframe of a movement bone.
type FrameData struct {
	BaseData

	// FrameID is the absolute start tick inside the movement bone timeline.
	FrameID int
	// Duration is the number of ticks this frame holds before the next one.
	Duration int

	DisplayIndex int
	BlendType    BlendType
	TweenEasing  TweenType
	IsTween      bool

	Event       string
	Movement    string
	Sound       string
	SoundEffect string
}

// NewFrameData returns a frame with a one tick duration and linear easing.
func NewFrameData() *FrameData {
	return &FrameData{
		BaseData:    NewBaseData(),
		Duration:    1,
		TweenEasing: Linear,
		IsTween:     true,
	}
}

// Clone returns an independent copy of the frame.
func (f *FrameData) Clone() *FrameData {
	c := *f
	return &c
}

// MovementBoneData is the keyframe track of one bone inside one movement.
type MovementBoneData struct {
	Name     string
	Delay    float64
	Scale    float64
	Duration int
	Frames   []*FrameData
}

// NewMovementBoneData creates an empty track.
func NewMovementBoneData(name string) *MovementBoneData {
	return &MovementBoneData{Name: name, Scale: 1}
}

// AddFrame appends a frame in time order.
func (m *MovementBoneData) AddFrame(f *FrameData) {
	m.Frames = append(m.Frames, f)
}

// MovementData is one animation clip.
type MovementData struct {
	Name          string
	Duration      int
	DurationTo    int
	DurationTween int
	Loop          bool
	Scale         float64
	TweenEasing   TweenType
	Bones         []*MovementBoneData

	boneIndex map[string]int
}

// NewMovementData creates a looping clip with unit scale.
func NewMovementData(name string) *MovementData {
	return &MovementData{
		Name:        name,
		Loop:        true,
		Scale:       1,
		TweenEasing: Linear,
		boneIndex:   make(map[string]int),
	}
}

// AddMovementBone appends a track. It reports false and leaves the movement
// untouched when a track with the same name already exists.
func (m *MovementData) AddMovementBone(b *MovementBoneData) bool {
	if m.boneIndex == nil {
		m.reindex()
	}
	if _, exists := m.boneIndex[b.Name]; exists {
		return false
	}
	m.boneIndex[b.Name] = len(m.Bones)
	m.Bones = append(m.Bones, b)
	return true
}

// MovementBone looks a track up by bone name.
func (m *MovementData) MovementBone(name string) *MovementBoneData {
	if m.boneIndex == nil {
		m.reindex()
	}
	if i, ok := m.boneIndex[name]; ok {
		return m.Bones[i]
	}
	return nil
}

func (m *MovementData) reindex() {
	m.boneIndex = make(map[string]int, len(m.Bones))
	for i, b := range m.Bones {
		if _, exists := m.boneIndex[b.Name]; !exists {
			m.boneIndex[b.Name] = i
		}
	}
}

// AnimationData is the set of movements authored for one armature.
type AnimationData struct {
	Name      string
	Movements []*MovementData

	movementIndex map[string]int
}

// NewAnimationData creates an empty animation set.
func NewAnimationData(name string) *AnimationData {
	return &AnimationData{Name: name, movementIndex: make(map[string]int)}
}

// AddMovement appends a movement.
func (a *AnimationData) AddMovement(m *MovementData) {
	if a.movementIndex == nil {
		a.reindex()
	}
	a.movementIndex[m.Name] = len(a.Movements)
	a.Movements = append(a.Movements, m)
}

// Movement looks a movement up by name.
func (a *AnimationData) Movement(name string) *MovementData {
	if a.movementIndex == nil {
		a.reindex()
	}
	if i, ok := a.movementIndex[name]; ok {
		return a.Movements[i]
	}
	return nil
}

// MovementNames returns movement names in document order.
func (a *AnimationData) MovementNames() []string {
	names := make([]string, 0, len(a.Movements))
	for _, m := range a.Movements {
		names = append(names, m.Name)
	}
	return names
}

func (a *AnimationData) reindex() {
	a.movementIndex = make(map[string]int, len(a.Movements))
	for i, m := range a.Movements {
		a.movementIndex[m.Name] = i
		m.reindex()
	}
}

// ContourVertex is one point of a texture hull.
type ContourVertex struct {
	X, Y float64
}

// ContourData is a polygon hull of a texture.
type ContourData struct {
	Vertices []ContourVertex
}

// TextureData describes one sub texture of an atlas.
// PivotX and PivotY are normalized with a bottom-left origin.
type TextureData struct {
	Name     string
	Width    float64
	Height   float64
	PivotX   float64
	PivotY   float64
	Contours []*ContourData
}

// NewTextureData returns a texture with a centered pivot.
func NewTextureData() *TextureData {
	return &TextureData{PivotX: 0.5, PivotY: 0.5}
}

// Bundle is everything decoded from one source document.
type Bundle struct {
	// Path is the normalized source document path.
	Path       string
	Armatures  []*ArmatureData
	Animations []*AnimationData
	Textures   []*TextureData

	// ConfigFiles lists sprite sheet configs discovered in the document, relative
	// to the document base path and without extension.
	ConfigFiles []string

	// ExternalArmatures names armatures that animations in this document bind
	// to but that the document does not define. The decoded frames of such
	// animations depend on what was registered before the document.
	ExternalArmatures []string
}

// SelfContained reports whether the bundle decodes the same regardless of
// previously registered armatures.
func (b *Bundle) SelfContained() bool {
	return len(b.ExternalArmatures) == 0
}

// Armature finds an armature decoded from this document.
func (b *Bundle) Armature(name string) *ArmatureData {
	for _, a := range b.Armatures {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Reindex rebuilds the name indexes. Needed after a bundle was restored from
// a serialized form, where unexported indexes are not carried.
func (b *Bundle) Reindex() {
	for _, a := range b.Armatures {
		a.reindex()
	}
	for _, a := range b.Animations {
		a.reindex()
	}
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
