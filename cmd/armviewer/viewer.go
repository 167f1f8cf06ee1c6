package main

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/decker502/armature/pkg/app"
)

// 窗口与布局常量
const (
	ScreenWidth  = 960
	ScreenHeight = 640

	barX      = 20
	barY      = 20
	barWidth  = ScreenWidth - 40
	barHeight = 16

	listY      = 56
	lineHeight = 16
	columnW    = 300

	thumbSize  = 64
	thumbGap   = 8
	thumbY     = ScreenHeight - thumbSize - 40
	maxThumbs  = (ScreenWidth - 40) / (thumbSize + thumbGap)
	maxListLen = (thumbY - listY - 2*lineHeight) / lineHeight
)

// Viewer 实现 ebiten.Game 接口
// 所有回调都在 Update 中（调度器 Tick）执行，无需加锁
type Viewer struct {
	app *app.App

	progress float64
	loaded   int
	errors   []string

	// 精灵帧缩略图（帧名 -> GPU 图像）
	thumbs map[string]*ebiten.Image
}

// NewViewer 创建查看器
func NewViewer() *Viewer {
	return &Viewer{thumbs: make(map[string]*ebiten.Image)}
}

// Attach 绑定加载管线
func (v *Viewer) Attach(a *app.App) {
	v.app = a
	if len(a.Config.Documents) == 0 {
		v.progress = 1
	}
}

// OnProgress 异步加载进度回调
func (v *Viewer) OnProgress(progress float64) {
	v.progress = progress
	v.loaded++
}

// OnError 异步加载失败回调
func (v *Viewer) OnError(path string, err error) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %v", path, err))
}

// Update 推进调度器，驱动异步加载结果的取出
func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	v.app.Update(1.0 / float64(ebiten.TPS()))
	return nil
}

// Draw 绘制进度条、注册表内容与精灵帧缩略图
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{32, 36, 44, 255})

	vector.DrawFilledRect(screen, barX, barY, barWidth, barHeight, color.RGBA{70, 70, 80, 255}, false)
	vector.DrawFilledRect(screen, barX, barY, float32(barWidth*v.progress), barHeight, color.RGBA{90, 200, 110, 255}, false)
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("%3.0f%%  loaded=%d  in-flight=%d  TPS=%0.1f",
			v.progress*100, v.loaded, v.app.Reader.InFlight(), ebiten.ActualTPS()),
		barX, barY+barHeight+2)

	reg := v.app.Registry
	v.drawList(screen, 0, "Armatures", reg.ArmatureNames())
	v.drawList(screen, 1, "Animations", reg.AnimationNames())
	v.drawList(screen, 2, "Textures", reg.TextureNames())

	v.drawThumbs(screen)

	if n := len(v.errors); n > 0 {
		ebitenutil.DebugPrintAt(screen, "Error: "+v.errors[n-1], barX, ScreenHeight-20)
	}
}

func (v *Viewer) drawList(screen *ebiten.Image, column int, title string, names []string) {
	x := barX + column*columnW
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s (%d)", title, len(names)), x, listY)

	if len(names) > maxListLen {
		rest := len(names) - maxListLen + 1
		names = append(names[:maxListLen-1:maxListLen-1], fmt.Sprintf("... %d more", rest))
	}
	ebitenutil.DebugPrintAt(screen, strings.Join(names, "\n"), x+8, listY+lineHeight+4)
}

func (v *Viewer) drawThumbs(screen *ebiten.Image) {
	names := v.app.Sprites.FrameNames()
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Sprite frames (%d)", len(names)), barX, thumbY-lineHeight-4)
	if len(names) > maxThumbs {
		names = names[:maxThumbs]
	}

	for i, name := range names {
		img := v.thumb(name)
		if img == nil {
			continue
		}
		x := float64(barX + i*(thumbSize+thumbGap))
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		scale := min(float64(thumbSize)/float64(max(w, 1)), float64(thumbSize)/float64(max(h, 1)), 1)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(x, thumbY)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, op)
	}
}

// thumb 返回帧的缩略图，首次使用时从精灵帧缓存创建
func (v *Viewer) thumb(name string) *ebiten.Image {
	if img, ok := v.thumbs[name]; ok {
		return img
	}
	src, err := v.app.Sprites.Image(name)
	if err != nil {
		log.Printf("[Viewer] Warning: %v", err)
		v.thumbs[name] = nil
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	v.thumbs[name] = img
	return img
}

// Layout 返回逻辑屏幕尺寸
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
