// Package cache 持久化保存解码完成的文档，避免重复解码未变化的文件
//
// 存储基于 gdata（跨平台用户数据目录），每个文档一个属性，内容为 gob 编码的记录。
// 记录携带内容指纹，文件内容或解码参数变化后旧记录自动失效。
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/quasilyte/gdata/v2"

	"github.com/decker502/armature/internal/armature"
)

// 存储路径常量
const (
	bundleObject = "bundles"

	// recordVersion 记录格式版本，数据模型变化时递增
	recordVersion = 2
)

func init() {
	gob.Register(&armature.SpriteDisplayData{})
	gob.Register(&armature.ArmatureDisplayData{})
	gob.Register(&armature.ParticleDisplayData{})
}

// Fingerprint 文档内容与解码参数的指纹
type Fingerprint [sha256.Size]byte

// NewFingerprint 计算指纹
//
// 参数：
//   - content: 文档原始内容
//   - readScale: 解码时使用的全局坐标缩放
//   - autoLoad: 是否收集 config_file_path
func NewFingerprint(content []byte, readScale float64, autoLoad bool) Fingerprint {
	h := sha256.New()
	h.Write(content)

	var buf [9]byte
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(readScale))
	if autoLoad {
		buf[8] = 1
	}
	h.Write(buf[:])

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// record 存储记录
type record struct {
	Version     int
	Fingerprint Fingerprint
	Bundle      *armature.Bundle
}

// BundleCache 解码结果缓存
// gdataManager 为 nil 时为降级模式：Load 总是未命中，Store 不做任何事
type BundleCache struct {
	gdataManager *gdata.Manager

	mu sync.Mutex
}

// Open 打开以 appName 命名的缓存
//
// 返回：
//   - *BundleCache: 缓存实例
//   - error: gdata 初始化失败时返回错误
func Open(appName string) (*BundleCache, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle cache %q: %w", appName, err)
	}
	return New(m), nil
}

// New 使用已有的 gdata Manager 创建缓存，可为 nil（降级模式）
func New(gdataManager *gdata.Manager) *BundleCache {
	return &BundleCache{gdataManager: gdataManager}
}

// Enabled 缓存是否可用
func (c *BundleCache) Enabled() bool {
	return c != nil && c.gdataManager != nil
}

// propertyKey 文档路径对应的属性名
func propertyKey(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:16])
}

// Load 读取缓存的解码结果
//
// 参数：
//   - path: 文档路径（已标准化）
//   - fp: 当前内容指纹
//
// 返回：
//   - *armature.Bundle: 命中时返回解码结果
//   - bool: 是否命中
func (c *BundleCache) Load(path string, fp Fingerprint) (*armature.Bundle, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := propertyKey(path)
	if !c.gdataManager.ObjectPropExists(bundleObject, key) {
		return nil, false
	}

	data, err := c.gdataManager.LoadObjectProp(bundleObject, key)
	if err != nil {
		log.Printf("[BundleCache] Warning: Failed to load %s: %v", path, err)
		return nil, false
	}

	var rec record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		log.Printf("[BundleCache] Warning: Failed to decode %s: %v", path, err)
		return nil, false
	}
	if rec.Version != recordVersion || rec.Fingerprint != fp || rec.Bundle == nil || !rec.Bundle.SelfContained() {
		return nil, false
	}

	rec.Bundle.Path = path
	rec.Bundle.Reindex()
	return rec.Bundle, true
}

// Store 保存解码结果
// 依赖其他文档骨架的解码结果不保存：内容指纹无法反映注册表状态
//
// 返回：
//   - error: 序列化或写入失败时返回错误
func (c *BundleCache) Store(path string, fp Fingerprint, b *armature.Bundle) error {
	if !c.Enabled() || !b.SelfContained() {
		return nil
	}

	var buf bytes.Buffer
	rec := record{Version: recordVersion, Fingerprint: fp, Bundle: b}
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return fmt.Errorf("failed to encode bundle %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.gdataManager.SaveObjectProp(bundleObject, propertyKey(path), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save bundle %s: %w", path, err)
	}
	return nil
}
