package plist

import (
	"errors"
	"fmt"
	"math"
	"sort"

	plistcodec "howett.net/plist"
)

// ErrNotSpriteSheet is returned when a plist has no frames dictionary.
var ErrNotSpriteSheet = errors.New("plist: not a sprite sheet")

// Frame is one sprite frame inside an atlas.
type Frame struct {
	Name string
	// Rect is the frame region in atlas pixels. When Rotated is set the region
	// is stored turned 90 degrees clockwise, so its atlas extent is H x W.
	Rect       Rect
	Rotated    bool
	Offset     Point
	SourceSize Size
}

// SpriteSheet is a decoded cocos2d sprite sheet plist.
type SpriteSheet struct {
	Format          int
	TextureFileName string
	Size            Size
	// Frames sorted by name.
	Frames []Frame
}

type sheetDoc struct {
	Frames   map[string]frameDoc `plist:"frames"`
	Metadata metadataDoc         `plist:"metadata"`
}

type metadataDoc struct {
	Format          int    `plist:"format"`
	TextureFileName string `plist:"textureFileName"`
	Size            string `plist:"size"`
}

// frameDoc is the union of the frame keys used by formats 0 through 3.
type frameDoc struct {
	// Format 0 stores plain numbers, either <integer> or <real>.
	X              any `plist:"x"`
	Y              any `plist:"y"`
	Width          any `plist:"width"`
	Height         any `plist:"height"`
	OffsetX        any `plist:"offsetX"`
	OffsetY        any `plist:"offsetY"`
	OriginalWidth  any `plist:"originalWidth"`
	OriginalHeight any `plist:"originalHeight"`

	// Formats 1 and 2.
	Frame      string `plist:"frame"`
	Rotated    bool   `plist:"rotated"`
	Offset     string `plist:"offset"`
	SourceSize string `plist:"sourceSize"`

	// Format 3.
	SpriteSize       string `plist:"spriteSize"`
	TextureRect      string `plist:"textureRect"`
	TextureRotated   bool   `plist:"textureRotated"`
	SpriteOffset     string `plist:"spriteOffset"`
	SpriteSourceSize string `plist:"spriteSourceSize"`
}

// ParseSpriteSheet decodes a cocos2d sprite sheet plist in any property list
// encoding. Sheet formats 0 through 3 are understood.
func ParseSpriteSheet(data []byte) (*SpriteSheet, error) {
	var doc sheetDoc
	if _, err := plistcodec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("plist: %w", err)
	}
	if doc.Frames == nil {
		return nil, ErrNotSpriteSheet
	}

	sheet := &SpriteSheet{
		Format:          doc.Metadata.Format,
		TextureFileName: doc.Metadata.TextureFileName,
	}
	if doc.Metadata.Size != "" {
		size, err := ParseSize(doc.Metadata.Size)
		if err != nil {
			return nil, err
		}
		sheet.Size = size
	}

	for name, fd := range doc.Frames {
		frame, err := decodeFrame(sheet.Format, &fd)
		if err != nil {
			return nil, fmt.Errorf("plist: frame %q: %w", name, err)
		}
		frame.Name = name
		sheet.Frames = append(sheet.Frames, frame)
	}
	sort.Slice(sheet.Frames, func(i, j int) bool {
		return sheet.Frames[i].Name < sheet.Frames[j].Name
	})
	return sheet, nil
}

func decodeFrame(format int, fd *frameDoc) (Frame, error) {
	var f Frame
	var err error

	switch format {
	case 0:
		f.Rect = Rect{
			X: number(fd.X),
			Y: number(fd.Y),
			W: number(fd.Width),
			H: number(fd.Height),
		}
		f.Offset = Point{X: number(fd.OffsetX), Y: number(fd.OffsetY)}
		f.SourceSize = Size{W: math.Abs(number(fd.OriginalWidth)), H: math.Abs(number(fd.OriginalHeight))}

	case 1, 2:
		if f.Rect, err = ParseRect(fd.Frame); err != nil {
			return f, err
		}
		if format == 2 {
			f.Rotated = fd.Rotated
		}
		if f.Offset, err = ParsePoint(fd.Offset); err != nil {
			return f, err
		}
		if f.SourceSize, err = ParseSize(fd.SourceSize); err != nil {
			return f, err
		}

	case 3:
		size, err := ParseSize(fd.SpriteSize)
		if err != nil {
			return f, err
		}
		rect, err := ParseRect(fd.TextureRect)
		if err != nil {
			return f, err
		}
		f.Rect = Rect{X: rect.X, Y: rect.Y, W: size.W, H: size.H}
		f.Rotated = fd.TextureRotated
		if f.Offset, err = ParsePoint(fd.SpriteOffset); err != nil {
			return f, err
		}
		if f.SourceSize, err = ParseSize(fd.SpriteSourceSize); err != nil {
			return f, err
		}

	default:
		return f, fmt.Errorf("unsupported sprite sheet format %d", format)
	}
	return f, nil
}
