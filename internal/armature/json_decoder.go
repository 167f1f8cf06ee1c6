package armature

import (
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"
)

// JSON keys.
const (
	keyContentScale   = "content_scale"
	keyArmatureData   = "armature_data"
	keyBoneData       = "bone_data"
	keyDisplayData    = "display_data"
	keySkinData       = "skin_data"
	keyAnimationData  = "animation_data"
	keyMovementData   = "mov_data"
	keyMovementBone   = "mov_bone_data"
	keyFrameData      = "frame_data"
	keyTextureData    = "texture_data"
	keyContourData    = "contour_data"
	keyVertex         = "vertex"
	keyColor          = "color"
	keyConfigFilePath = "config_file_path"
	keyDisplayType    = "displayType"
	keyPlist          = "plist"
	keyFrameIndex     = "fi"
	keyTweenFrame     = "tweenFrame"
)

// DecodeJSON decodes a CocoStudio JSON document. Values are already in runtime
// convention: skews are radians and Y is not flipped.
func DecodeJSON(content []byte, info *DataInfo) (*Bundle, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("decode json %s: %w", info.Filename, ErrEmptyDocument)
	}
	root := gjson.ParseBytes(content)
	if !root.IsObject() {
		return nil, fmt.Errorf("decode json %s: %w: root is not an object", info.Filename, ErrEmptyDocument)
	}

	info.ContentScale = floatOr(root, keyContentScale, 1)

	bundle := &Bundle{Path: info.Filename}

	for _, node := range root.Get(keyArmatureData).Array() {
		bundle.Armatures = append(bundle.Armatures, decodeJSONArmature(node, info))
	}
	for _, node := range root.Get(keyAnimationData).Array() {
		bundle.Animations = append(bundle.Animations, decodeJSONAnimation(node, info))
	}
	for _, node := range root.Get(keyTextureData).Array() {
		bundle.Textures = append(bundle.Textures, decodeJSONTexture(node))
	}

	if info.AutoLoadSpriteFile {
		bundle.ConfigFiles = configFiles(root.Get(keyConfigFilePath), info.Filename)
	}

	return bundle, nil
}

// configFiles returns the config_file_path entries without extension. A
// non-string entry stops collection.
func configFiles(list gjson.Result, filename string) []string {
	var files []string
	for _, entry := range list.Array() {
		if entry.Type != gjson.String {
			log.Printf("[ArmatureDecoder] Warning: bad %s entry in %s, stopping", keyConfigFilePath, filename)
			break
		}
		files = append(files, trimExt(entry.String()))
	}
	return files
}

func trimExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return path
}

func floatOr(node gjson.Result, key string, def float64) float64 {
	v := node.Get(key)
	if !v.Exists() {
		return def
	}
	return v.Float()
}

func intOr(node gjson.Result, key string, def int) int {
	v := node.Get(key)
	if !v.Exists() {
		return def
	}
	return int(v.Int())
}

func boolOr(node gjson.Result, key string, def bool) bool {
	v := node.Get(key)
	if !v.Exists() {
		return def
	}
	return v.Bool()
}

// first returns element 0 of an array value.
func first(node gjson.Result, key string) (gjson.Result, bool) {
	arr := node.Get(key)
	if !arr.IsArray() {
		return gjson.Result{}, false
	}
	items := arr.Array()
	if len(items) == 0 {
		return gjson.Result{}, false
	}
	return items[0], true
}

func decodeJSONArmature(node gjson.Result, info *DataInfo) *ArmatureData {
	armature := NewArmatureData(node.Get(attrName).String())

	info.CocoStudioVersion = floatOr(node, attrVersion, DefaultCocoStudioVersion)
	armature.DataVersion = info.CocoStudioVersion

	for _, boneNode := range node.Get(keyBoneData).Array() {
		armature.AddBone(decodeJSONBone(boneNode, info))
	}
	return armature
}

func decodeJSONBone(node gjson.Result, info *DataInfo) *BoneData {
	bone := NewBoneData(node.Get(attrName).String())
	decodeJSONNode(&bone.BaseData, node, info)
	bone.ParentName = node.Get(attrParent).String()

	for _, displayNode := range node.Get(keyDisplayData).Array() {
		bone.AddDisplay(decodeJSONDisplay(displayNode, info))
	}
	return bone
}

func decodeJSONDisplay(node gjson.Result, info *DataInfo) DisplayData {
	name := node.Get(attrName).String()

	switch DisplayType(intOr(node, keyDisplayType, int(DisplaySprite))) {
	case DisplaySprite:
		display := &SpriteDisplayData{DisplayName: name, Skin: NewBaseData()}
		if skin, ok := first(node, keySkinData); ok {
			scale := info.PositionReadScale * info.ContentScale
			display.Skin.X = floatOr(skin, attrX, 0) * scale
			display.Skin.Y = floatOr(skin, attrY, 0) * scale
			display.Skin.ScaleX = floatOr(skin, attrScaleX, 1)
			display.Skin.ScaleY = floatOr(skin, attrScaleY, 1)
			display.Skin.SkewX = floatOr(skin, attrSkewX, 0)
			display.Skin.SkewY = floatOr(skin, attrSkewY, 0)
		}
		return display
	case DisplayArmature:
		return &ArmatureDisplayData{DisplayName: name}
	case DisplayParticle:
		display := &ParticleDisplayData{}
		if plist := node.Get(keyPlist); plist.Exists() {
			display.Plist = info.BaseFilePath + plist.String()
		}
		return display
	default:
		log.Printf("[ArmatureDecoder] Warning: unknown display type %d for %q in %s, using sprite",
			intOr(node, keyDisplayType, 0), name, info.Filename)
		return &SpriteDisplayData{Skin: NewBaseData()}
	}
}

func decodeJSONAnimation(node gjson.Result, info *DataInfo) *AnimationData {
	animation := NewAnimationData(node.Get(attrName).String())
	for _, movNode := range node.Get(keyMovementData).Array() {
		animation.AddMovement(decodeJSONMovement(movNode, info))
	}
	return animation
}

func decodeJSONMovement(node gjson.Result, info *DataInfo) *MovementData {
	movement := NewMovementData(node.Get(attrName).String())
	movement.Loop = boolOr(node, attrLoop, true)
	movement.DurationTween = intOr(node, attrDurationTween, 0)
	movement.DurationTo = intOr(node, attrDurationTo, 0)
	movement.Duration = intOr(node, attrDuration, 0)
	movement.Scale = floatOr(node, attrMovementScale, 1)
	movement.TweenEasing = TweenType(intOr(node, attrTweenEasing, int(Linear)))

	for _, boneNode := range node.Get(keyMovementBone).Array() {
		movBone := decodeJSONMovementBone(boneNode, info)
		if !movement.AddMovementBone(movBone) {
			log.Printf("[ArmatureDecoder] Skipping duplicate bone %q in movement %q", movBone.Name, movement.Name)
		}
	}
	return movement
}

func decodeJSONMovementBone(node gjson.Result, info *DataInfo) *MovementBoneData {
	movBone := NewMovementBoneData(node.Get(attrName).String())
	movBone.Delay = floatOr(node, attrMovementDelay, 0)

	combined := info.combinedFrames()
	for _, frameNode := range node.Get(keyFrameData).Array() {
		frame := decodeJSONFrame(frameNode, info)
		if !combined {
			frame.FrameID = movBone.Duration
			movBone.Duration += frame.Duration
		}
		movBone.AddFrame(frame)
	}

	if combined {
		deriveDurations(movBone)
	}

	if info.unwrapJSONRotation() {
		unwrapRotation(movBone.Frames)
	}

	if !combined {
		appendEndAnchor(movBone)
	}
	return movBone
}

// deriveDurations fills frame durations of an absolute-index track from the
// gap to the next frame. The last frame closes the track, so the track
// duration is its index.
func deriveDurations(m *MovementBoneData) {
	n := len(m.Frames)
	if n == 0 {
		return
	}
	for i := 0; i < n-1; i++ {
		m.Frames[i].Duration = m.Frames[i+1].FrameID - m.Frames[i].FrameID
	}
	m.Frames[n-1].Duration = 0
	m.Duration = m.Frames[n-1].FrameID
}

func decodeJSONFrame(node gjson.Result, info *DataInfo) *FrameData {
	frame := NewFrameData()
	decodeJSONNode(&frame.BaseData, node, info)

	frame.TweenEasing = TweenType(intOr(node, attrTweenEasing, int(Linear)))
	frame.DisplayIndex = intOr(node, attrDisplayIndex, 0)
	frame.BlendType = BlendType(intOr(node, attrBlendType, int(BlendNormal)))
	frame.IsTween = boolOr(node, keyTweenFrame, true)
	frame.Event = node.Get(attrEvent).String()

	if info.combinedFrames() {
		frame.FrameID = intOr(node, keyFrameIndex, 0)
	} else {
		frame.Duration = intOr(node, attrDuration, 1)
	}
	return frame
}

// decodeJSONNode reads the shared transform and color fields.
func decodeJSONNode(base *BaseData, node gjson.Result, info *DataInfo) {
	scale := info.PositionReadScale * info.ContentScale
	base.X = floatOr(node, attrX, 0) * scale
	base.Y = floatOr(node, attrY, 0) * scale
	base.ZOrder = intOr(node, attrZ, 0)

	base.SkewX = floatOr(node, attrSkewX, 0)
	base.SkewY = floatOr(node, attrSkewY, 0)
	base.ScaleX = floatOr(node, attrScaleX, 1)
	base.ScaleY = floatOr(node, attrScaleY, 1)

	var color gjson.Result
	var ok bool
	if info.colorAsArray() {
		color, ok = first(node, keyColor)
	} else {
		color = node.Get(keyColor)
		ok = color.IsObject()
	}
	if !ok {
		return
	}
	base.A = intOr(color, attrAlpha, 255)
	base.R = intOr(color, attrRed, 255)
	base.G = intOr(color, attrGreen, 255)
	base.B = intOr(color, attrBlue, 255)
	base.IsUseColorInfo = true
}

func decodeJSONTexture(node gjson.Result) *TextureData {
	texture := NewTextureData()
	texture.Name = node.Get(attrName).String()
	texture.Width = floatOr(node, attrWidth, 0)
	texture.Height = floatOr(node, attrHeight, 0)
	texture.PivotX = floatOr(node, attrPivotX, 0)
	texture.PivotY = floatOr(node, attrPivotY, 0)

	for _, contourNode := range node.Get(keyContourData).Array() {
		texture.Contours = append(texture.Contours, decodeJSONContour(contourNode))
	}
	return texture
}

func decodeJSONContour(node gjson.Result) *ContourData {
	contour := &ContourData{}
	vertices := node.Get(keyVertex).Array()
	for i := len(vertices) - 1; i >= 0; i-- {
		contour.Vertices = append(contour.Vertices, ContourVertex{
			X: floatOr(vertices[i], attrX, 0),
			Y: floatOr(vertices[i], attrY, 0),
		})
	}
	return contour
}
