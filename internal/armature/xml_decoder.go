package armature

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log"
	"math"
	"slices"
	"strconv"
	"strings"
)

// XML element names.
const (
	xmlArmatures    = "armatures"
	xmlArmature     = "armature"
	xmlBone         = "b"
	xmlDisplay      = "d"
	xmlAnimations   = "animations"
	xmlAnimation    = "animation"
	xmlMovement     = "mov"
	xmlFrame        = "f"
	xmlTextureAtlas = "TextureAtlas"
	xmlSubTexture   = "SubTexture"
	xmlContour      = "con"
	xmlContourVert  = "con_vt"
	xmlColor        = "colorTransform"
)

// XML attribute names.
const (
	attrVersion       = "version"
	attrName          = "name"
	attrParent        = "parent"
	attrZ             = "z"
	attrIsArmature    = "isArmature"
	attrDuration      = "dr"
	attrDurationTo    = "to"
	attrDurationTween = "drTW"
	attrLoop          = "lp"
	attrTweenEasing   = "twE"
	attrMovementScale = "sc"
	attrMovementDelay = "dl"
	attrDisplayIndex  = "dI"
	attrSkewX         = "kX"
	attrSkewY         = "kY"
	attrScaleX        = "cX"
	attrScaleY        = "cY"
	attrX             = "x"
	attrY             = "y"
	attrCocosX        = "cocos2d_x"
	attrCocosY        = "cocos2d_y"
	attrBlendType     = "bd"
	attrEvent         = "evt"
	attrMovement      = "mov"
	attrSound         = "sd"
	attrSoundEffect   = "sdE"
	attrWidth         = "width"
	attrHeight        = "height"
	attrPivotX        = "pX"
	attrPivotY        = "pY"
	attrCocosPivotX   = "cocos2d_pX"
	attrCocosPivotY   = "cocos2d_pY"

	attrAlpha        = "a"
	attrRed          = "r"
	attrGreen        = "g"
	attrBlue         = "b"
	attrAlphaPercent = "aM"
	attrRedPercent   = "rM"
	attrGreenPercent = "gM"
	attrBluePercent  = "bM"

	easingNaN = "NaN"
)

// xmlNode is a generic element tree: attributes and children in document order.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*xmlNode `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) floatAttr(name string) (float64, bool) {
	s, ok := n.attr(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// intAttr accepts integral and fractional text, truncating the latter.
func (n *xmlNode) intAttr(name string) (int, bool) {
	s, ok := n.attr(name)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v), true
	}
	return 0, false
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childrenNamed(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// parseXMLTree parses content into a generic element tree.
func parseXMLTree(content []byte) (*xmlNode, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyDocument
	}
	var root xmlNode
	if err := xml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyDocument, err)
	}
	return &root, nil
}

// xmlDecoder holds the state of one XML decode.
type xmlDecoder struct {
	info   *DataInfo
	lookup ArmatureLookup
	bundle *Bundle
}

// DecodeXML decodes a Flash/DragonBones XML document. Sections are processed
// in order: armatures, animations, texture atlas. Animations resolve their
// armature first from this document, then through lookup.
func DecodeXML(content []byte, info *DataInfo, lookup ArmatureLookup) (*Bundle, error) {
	root, err := parseXMLTree(content)
	if err != nil {
		return nil, fmt.Errorf("decode xml %s: %w", info.Filename, err)
	}

	if v, ok := root.floatAttr(attrVersion); ok {
		info.FlashToolVersion = v
	}

	d := &xmlDecoder{
		info:   info,
		lookup: lookup,
		bundle: &Bundle{Path: info.Filename},
	}

	armatures := root.child(xmlArmatures)
	if armatures == nil {
		return nil, fmt.Errorf("decode xml %s: %w: <%s>", info.Filename, ErrMissingSection, xmlArmatures)
	}
	for _, node := range armatures.childrenNamed(xmlArmature) {
		d.bundle.Armatures = append(d.bundle.Armatures, d.decodeArmature(node))
	}

	animations := root.child(xmlAnimations)
	if animations == nil {
		return nil, fmt.Errorf("decode xml %s: %w: <%s>", info.Filename, ErrMissingSection, xmlAnimations)
	}
	for _, node := range animations.childrenNamed(xmlAnimation) {
		d.bundle.Animations = append(d.bundle.Animations, d.decodeAnimation(node))
	}

	atlas := root.child(xmlTextureAtlas)
	if atlas == nil {
		return nil, fmt.Errorf("decode xml %s: %w: <%s>", info.Filename, ErrMissingSection, xmlTextureAtlas)
	}
	for _, node := range atlas.childrenNamed(xmlSubTexture) {
		d.bundle.Textures = append(d.bundle.Textures, d.decodeTexture(node))
	}

	return d.bundle, nil
}

func (d *xmlDecoder) decodeArmature(node *xmlNode) *ArmatureData {
	name, _ := node.attr(attrName)
	armature := NewArmatureData(name)
	armature.DataVersion = d.info.FlashToolVersion

	for _, boneNode := range node.childrenNamed(xmlBone) {
		armature.AddBone(d.decodeBone(boneNode))
	}
	return armature
}

func (d *xmlDecoder) decodeBone(node *xmlNode) *BoneData {
	name, _ := node.attr(attrName)
	bone := NewBoneData(name)
	if parent, ok := node.attr(attrParent); ok {
		bone.ParentName = parent
	}
	if z, ok := node.intAttr(attrZ); ok {
		bone.ZOrder = z
	}

	for _, displayNode := range node.childrenNamed(xmlDisplay) {
		bone.AddDisplay(d.decodeDisplay(displayNode))
	}
	return bone
}

func (d *xmlDecoder) decodeDisplay(node *xmlNode) DisplayData {
	name, _ := node.attr(attrName)
	if isArmature, ok := node.intAttr(attrIsArmature); ok && isArmature != 0 {
		return &ArmatureDisplayData{DisplayName: name}
	}
	return &SpriteDisplayData{DisplayName: name, Skin: NewBaseData()}
}

func (d *xmlDecoder) armature(name string) *ArmatureData {
	if a := d.bundle.Armature(name); a != nil {
		return a
	}
	if !slices.Contains(d.bundle.ExternalArmatures, name) {
		d.bundle.ExternalArmatures = append(d.bundle.ExternalArmatures, name)
	}
	if d.lookup != nil {
		return d.lookup.Armature(name)
	}
	return nil
}

func (d *xmlDecoder) decodeAnimation(node *xmlNode) *AnimationData {
	name, _ := node.attr(attrName)
	animation := NewAnimationData(name)

	armature := d.armature(name)
	if armature == nil {
		log.Printf("[ArmatureDecoder] Warning: animation %q has no armature, bones decode as roots", name)
	}

	for _, movNode := range node.childrenNamed(xmlMovement) {
		animation.AddMovement(d.decodeMovement(movNode, armature))
	}
	return animation
}

func (d *xmlDecoder) decodeMovement(node *xmlNode, armature *ArmatureData) *MovementData {
	name, _ := node.attr(attrName)
	movement := NewMovementData(name)

	if v, ok := node.intAttr(attrDuration); ok {
		movement.Duration = v
	}
	if v, ok := node.intAttr(attrDurationTo); ok {
		movement.DurationTo = v
	}
	if v, ok := node.intAttr(attrDurationTween); ok {
		movement.DurationTween = v
	}
	if v, ok := node.intAttr(attrLoop); ok {
		movement.Loop = v != 0
	}
	if easing, ok := xmlTweenEasing(node); ok {
		movement.TweenEasing = easing
	}

	boneNodes := node.childrenNamed(xmlBone)

	// First node per bone name, used to find a bone's parent track.
	byName := make(map[string]*xmlNode, len(boneNodes))
	for _, b := range boneNodes {
		n, _ := b.attr(attrName)
		if _, exists := byName[n]; !exists {
			byName[n] = b
		}
	}

	for _, boneNode := range boneNodes {
		boneName, _ := boneNode.attr(attrName)
		if movement.MovementBone(boneName) != nil {
			log.Printf("[ArmatureDecoder] Skipping duplicate bone %q in movement %q", boneName, name)
			continue
		}

		var parentNode *xmlNode
		if bone := armature.Bone(boneName); bone != nil && bone.ParentName != "" {
			parentNode = byName[bone.ParentName]
		}

		movement.AddMovementBone(d.decodeMovementBone(boneNode, parentNode))
	}
	return movement
}

func (d *xmlDecoder) decodeMovementBone(node *xmlNode, parentNode *xmlNode) *MovementBoneData {
	name, _ := node.attr(attrName)
	movBone := NewMovementBoneData(name)

	if v, ok := node.floatAttr(attrMovementScale); ok {
		movBone.Scale = v
	}
	if v, ok := node.floatAttr(attrMovementDelay); ok {
		// Flash frame indexes start at one.
		if v > 0 {
			v--
		}
		movBone.Delay = v
	}

	var parentFrames []*xmlNode
	var cursor *parentCursor
	if parentNode != nil {
		parentFrames = parentNode.childrenNamed(xmlFrame)
		durations := make([]int, len(parentFrames))
		for i, pf := range parentFrames {
			durations[i] = 1
			if v, ok := pf.intAttr(attrDuration); ok {
				durations[i] = v
			}
		}
		cursor = newParentCursor(durations)
	}

	total := 0
	for _, frameNode := range node.childrenNamed(xmlFrame) {
		var parentFrame *xmlNode
		if cursor != nil {
			if i := cursor.at(total); i >= 0 {
				parentFrame = parentFrames[i]
			}
		}

		frame := d.decodeFrame(frameNode, parentFrame)
		frame.FrameID = total
		total += frame.Duration
		movBone.Duration = total
		movBone.AddFrame(frame)
	}

	unwrapRotation(movBone.Frames)
	appendEndAnchor(movBone)
	return movBone
}

// readPosition reads the version dependent position attributes in runtime
// convention: Y flipped and scaled by the position read scale.
func (d *xmlDecoder) readPosition(node *xmlNode, base *BaseData) {
	xName, yName := attrX, attrY
	if d.info.useRenamedPosition() {
		xName, yName = attrCocosX, attrCocosY
	}
	if x, ok := node.floatAttr(xName); ok {
		base.X = x * d.info.PositionReadScale
	}
	if y, ok := node.floatAttr(yName); ok {
		base.Y = -y * d.info.PositionReadScale
	}
}

func (d *xmlDecoder) decodeFrame(node *xmlNode, parentNode *xmlNode) *FrameData {
	frame := NewFrameData()

	if s, ok := node.attr(attrMovement); ok {
		frame.Movement = s
	}
	if s, ok := node.attr(attrEvent); ok {
		frame.Event = s
	}
	if s, ok := node.attr(attrSound); ok {
		frame.Sound = s
	}
	if s, ok := node.attr(attrSoundEffect); ok {
		frame.SoundEffect = s
	}

	d.readPosition(node, &frame.BaseData)

	if v, ok := node.floatAttr(attrScaleX); ok {
		frame.ScaleX = v
	}
	if v, ok := node.floatAttr(attrScaleY); ok {
		frame.ScaleY = v
	}
	if v, ok := node.floatAttr(attrSkewX); ok {
		frame.SkewX = degToRad(v)
	}
	if v, ok := node.floatAttr(attrSkewY); ok {
		frame.SkewY = degToRad(-v)
	}
	if v, ok := node.intAttr(attrDuration); ok {
		frame.Duration = v
	}
	if v, ok := node.intAttr(attrDisplayIndex); ok {
		frame.DisplayIndex = v
	}
	if v, ok := node.intAttr(attrZ); ok {
		frame.ZOrder = v
	}
	if v, ok := node.intAttr(attrBlendType); ok {
		frame.BlendType = BlendType(v)
	}

	if color := node.child(xmlColor); color != nil {
		frame.A = colorChannel(color, attrAlpha, attrAlphaPercent)
		frame.R = colorChannel(color, attrRed, attrRedPercent)
		frame.G = colorChannel(color, attrGreen, attrGreenPercent)
		frame.B = colorChannel(color, attrBlue, attrBluePercent)
		frame.IsUseColorInfo = true
	}

	if easing, ok := xmlTweenEasing(node); ok {
		frame.TweenEasing = easing
	}

	if parentNode != nil {
		// Scaled like the child so both sit in the same space.
		parent := NewBaseData()
		d.readPosition(parentNode, &parent)
		if v, ok := parentNode.floatAttr(attrSkewX); ok {
			parent.SkewX = degToRad(v)
		}
		if v, ok := parentNode.floatAttr(attrSkewY); ok {
			parent.SkewY = degToRad(-v)
		}
		TransformFromParent(&frame.BaseData, &parent)
	}

	return frame
}

// colorChannel combines a Flash color transform channel: the percentage
// (default 100) scales full intensity and the offset is added on top
// (default 0). The result is rounded and clamped to 0-255.
func colorChannel(node *xmlNode, offsetAttr, percentAttr string) int {
	multiplier := 100.0
	if v, ok := node.floatAttr(percentAttr); ok {
		multiplier = v
	}
	offset := 0.0
	if v, ok := node.floatAttr(offsetAttr); ok {
		offset = v
	}
	c := int(math.Round(2.55*multiplier + offset))
	return max(0, min(255, c))
}

// xmlTweenEasing reads twE. "NaN" means linear and the Flash value 2 is the
// sine in-out curve.
func xmlTweenEasing(node *xmlNode) (TweenType, bool) {
	s, ok := node.attr(attrTweenEasing)
	if !ok {
		return Linear, false
	}
	if strings.TrimSpace(s) == easingNaN {
		return Linear, true
	}
	v, ok := node.intAttr(attrTweenEasing)
	if !ok {
		return Linear, false
	}
	if v == 2 {
		return SineEaseInOut, true
	}
	return TweenType(v), true
}

func (d *xmlDecoder) decodeTexture(node *xmlNode) *TextureData {
	texture := NewTextureData()
	if name, ok := node.attr(attrName); ok {
		texture.Name = name
	}

	texture.Width, _ = node.floatAttr(attrWidth)
	texture.Height, _ = node.floatAttr(attrHeight)

	if d.info.FlashToolVersion >= Version20 {
		if v, ok := node.floatAttr(attrCocosPivotX); ok {
			texture.PivotX = v
		}
		if v, ok := node.floatAttr(attrCocosPivotY); ok {
			texture.PivotY = v
		}
	} else {
		// Pixel pivot with a top-left origin.
		px, _ := node.floatAttr(attrPivotX)
		py, _ := node.floatAttr(attrPivotY)
		if texture.Width > 0 {
			texture.PivotX = px / texture.Width
		}
		if texture.Height > 0 {
			texture.PivotY = (texture.Height - py) / texture.Height
		}
	}

	for _, contourNode := range node.childrenNamed(xmlContour) {
		texture.Contours = append(texture.Contours, decodeXMLContour(contourNode))
	}
	return texture
}

func decodeXMLContour(node *xmlNode) *ContourData {
	contour := &ContourData{}
	for _, v := range node.childrenNamed(xmlContourVert) {
		x, _ := v.floatAttr(attrX)
		y, _ := v.floatAttr(attrY)
		contour.Vertices = append(contour.Vertices, ContourVertex{X: x, Y: -y})
	}
	return contour
}
