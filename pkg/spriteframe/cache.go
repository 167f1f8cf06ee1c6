// Package spriteframe 管理从精灵表（plist + 图集图片）加载的精灵帧
//
// 支持的图集格式：PNG、JPEG、TGA、WebP。
// 同一个 plist 只加载一次，重复加载直接跳过。
package spriteframe

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log"
	"path"
	"sort"
	"sync"

	_ "github.com/ftrvxmtrx/tga" // Register TGA decoder
	_ "golang.org/x/image/webp"  // Register WebP decoder

	"github.com/decker502/armature/internal/plist"
)

// ReadFunc 读取资源文件内容
type ReadFunc func(name string) ([]byte, error)

// SpriteFrame 精灵帧
type SpriteFrame struct {
	Name    string
	Texture string // 图集图片路径
	// Rect 在图集中的区域（像素，左上角为原点）
	// Rotated 为 true 时图集中实际占用 H x W
	Rect       plist.Rect
	Rotated    bool
	Offset     plist.Point
	SourceSize plist.Size
	Sheet      string // 来源 plist 路径
}

// Cache 精灵帧缓存
// 并发安全：同步加载与异步加载的主线程回调可能同时触发注册
type Cache struct {
	read ReadFunc

	mu       sync.Mutex
	frames   map[string]*SpriteFrame
	textures map[string]image.Image
	sheets   map[string][]string // plist 路径 -> 帧名称
}

// New 创建精灵帧缓存
//
// 参数：
//   - read: 资源读取函数（通常为 assetfs.Resolver.ReadFile）
func New(read ReadFunc) *Cache {
	return &Cache{
		read:     read,
		frames:   make(map[string]*SpriteFrame),
		textures: make(map[string]image.Image),
		sheets:   make(map[string][]string),
	}
}

// AddSpriteFramesFromFile 加载精灵表并注册其中所有帧
//
// 参数：
//   - plistPath: 精灵表 plist 路径
//   - imagePath: 图集图片路径；为空时使用 plist 中的 textureFileName（相对于 plist 所在目录）
//
// 返回：
//   - error: plist 或图片读取、解析失败时返回错误
func (c *Cache) AddSpriteFramesFromFile(plistPath, imagePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, loaded := c.sheets[plistPath]; loaded {
		return nil
	}

	data, err := c.read(plistPath)
	if err != nil {
		return fmt.Errorf("failed to read sprite sheet %s: %w", plistPath, err)
	}
	sheet, err := plist.ParseSpriteSheet(data)
	if err != nil {
		return fmt.Errorf("failed to parse sprite sheet %s: %w", plistPath, err)
	}

	if imagePath == "" {
		if sheet.TextureFileName == "" {
			return fmt.Errorf("sprite sheet %s names no texture", plistPath)
		}
		imagePath = path.Join(path.Dir(plistPath), sheet.TextureFileName)
	}

	if _, ok := c.textures[imagePath]; !ok {
		img, err := c.decodeImage(imagePath)
		if err != nil {
			return err
		}
		c.textures[imagePath] = img
	}

	names := make([]string, 0, len(sheet.Frames))
	for _, f := range sheet.Frames {
		c.frames[f.Name] = &SpriteFrame{
			Name:       f.Name,
			Texture:    imagePath,
			Rect:       f.Rect,
			Rotated:    f.Rotated,
			Offset:     f.Offset,
			SourceSize: f.SourceSize,
			Sheet:      plistPath,
		}
		names = append(names, f.Name)
	}
	c.sheets[plistPath] = names

	log.Printf("[SpriteFrameCache] Loaded %d frames from %s (texture=%s)", len(names), plistPath, imagePath)
	return nil
}

func (c *Cache) decodeImage(imagePath string) (image.Image, error) {
	data, err := c.read(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read texture %s: %w", imagePath, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", imagePath, err)
	}
	return img, nil
}

// RemoveSpriteFramesFromFile 移除一个精灵表注册的帧
// 图集图片不再被任何帧引用时一并释放
func (c *Cache) RemoveSpriteFramesFromFile(plistPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, ok := c.sheets[plistPath]
	if !ok {
		return
	}
	delete(c.sheets, plistPath)

	for _, name := range names {
		if f, ok := c.frames[name]; ok && f.Sheet == plistPath {
			delete(c.frames, name)
		}
	}

	used := make(map[string]bool)
	for _, f := range c.frames {
		used[f.Texture] = true
	}
	for tex := range c.textures {
		if !used[tex] {
			delete(c.textures, tex)
		}
	}
}

// IsLoaded 检查精灵表是否已加载
func (c *Cache) IsLoaded(plistPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sheets[plistPath]
	return ok
}

// Frame 按名称查找精灵帧
func (c *Cache) Frame(name string) (SpriteFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.frames[name]
	if !ok {
		return SpriteFrame{}, false
	}
	return *f, true
}

// FrameNames 返回所有帧名称（已排序）
func (c *Cache) FrameNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.frames))
	for n := range c.frames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Texture 返回已加载的图集图片
func (c *Cache) Texture(imagePath string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.textures[imagePath]
	return img, ok
}

// Image 返回帧的图像（已还原旋转，尺寸为 Rect.W x Rect.H）
func (c *Cache) Image(name string) (image.Image, error) {
	c.mu.Lock()
	f, ok := c.frames[name]
	var tex image.Image
	if ok {
		tex = c.textures[f.Texture]
	}
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("sprite frame %q not found", name)
	}
	if tex == nil {
		return nil, fmt.Errorf("texture %s of frame %q not loaded", f.Texture, name)
	}
	return frameImage(tex, f), nil
}

// frameImage 从图集中裁剪出帧图像
func frameImage(tex image.Image, f *SpriteFrame) image.Image {
	x, y := int(f.Rect.X), int(f.Rect.Y)
	w, h := int(f.Rect.W), int(f.Rect.H)
	origin := tex.Bounds().Min

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if !f.Rotated {
		src := image.Rect(x, y, x+w, y+h).Add(origin)
		draw.Draw(dst, dst.Bounds(), tex, src.Min, draw.Src)
		return dst
	}

	// 图集中按顺时针旋转 90 度存放：原图 (px, py) 位于 (h-1-py, px)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			dst.Set(px, py, tex.At(origin.X+x+h-1-py, origin.Y+y+px))
		}
	}
	return dst
}
