package main

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// FrameSource 精灵帧图像来源
type FrameSource interface {
	FrameNames() []string
	Image(name string) (image.Image, error)
}

// ComposePreview 将所有精灵帧按网格排列到一张图上
// 每帧等比缩放到 cell x cell 以内并居中
//
// 返回：
//   - *image.RGBA: 预览图；没有可用帧时返回 nil
func ComposePreview(src FrameSource, cell, columns int) *image.RGBA {
	var frames []image.Image
	for _, name := range src.FrameNames() {
		img, err := src.Image(name)
		if err != nil {
			log.Printf("[Preview] Warning: skipping %s: %v", name, err)
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 || cell <= 0 {
		return nil
	}

	columns = max(1, min(columns, len(frames)))
	rows := (len(frames) + columns - 1) / columns
	canvas := image.NewRGBA(image.Rect(0, 0, columns*cell, rows*cell))

	for i, img := range frames {
		b := img.Bounds()
		if b.Empty() {
			continue
		}
		scale := min(float64(cell)/float64(b.Dx()), float64(cell)/float64(b.Dy()))
		w := max(1, int(float64(b.Dx())*scale))
		h := max(1, int(float64(b.Dy())*scale))

		x := (i%columns)*cell + (cell-w)/2
		y := (i/columns)*cell + (cell-h)/2
		draw.CatmullRom.Scale(canvas, image.Rect(x, y, x+w, y+h), img, b, draw.Over, nil)
	}
	return canvas
}

// WritePreview 以 WebP 格式保存预览图
func WritePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview %s: %w", path, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("WebP encode: %w", err)
	}
	return nil
}
