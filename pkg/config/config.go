package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decker502/armature/internal/armature"
)

// 默认值
const (
	DefaultPositionReadScale = 1.0
	DefaultAssetRoot         = "."
	DefaultCacheAppName      = "armature_cache"
)

// Config 配置文件的顶层结构
type Config struct {
	PositionReadScale  float64          `yaml:"position_read_scale"`             // 全局坐标读取缩放，默认 1.0
	AutoLoadSpriteFile *bool            `yaml:"auto_load_sprite_file,omitempty"` // 可选：nil=默认true，显式false=不加载 config_file_path
	AssetRoot          string           `yaml:"asset_root"`                      // 相对文档路径的根目录
	Verbose            bool             `yaml:"verbose"`
	Cache              CacheConfig      `yaml:"cache"`
	Documents          []DocumentConfig `yaml:"documents"` // 启动时预加载的文档
}

// CacheConfig 解码缓存配置
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	AppName string `yaml:"app_name"` // gdata 应用名，决定数据目录
}

// DocumentConfig 预加载文档
// Image 与 Plist 同时指定时，文档解码完成后加载该图集
type DocumentConfig struct {
	Path  string `yaml:"path"`
	Image string `yaml:"image,omitempty"`
	Plist string `yaml:"plist,omitempty"`
}

// Flags 命令行覆盖项，零值表示不覆盖
type Flags struct {
	AssetRoot         string
	PositionReadScale float64
	Verbose           bool
	NoAutoLoad        bool
	Cache             bool
	Documents         []string
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load 从 YAML 文件加载配置
//
// 返回：
//   - *Config: 填充默认值后的配置
//   - error: 读取、解析或校验失败时返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取配置文件 %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("无法解析配置文件 %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 内容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 填充缺省字段
func (c *Config) applyDefaults() {
	if c.PositionReadScale == 0 {
		c.PositionReadScale = DefaultPositionReadScale
	}
	if c.AssetRoot == "" {
		c.AssetRoot = DefaultAssetRoot
	}
	if c.Cache.AppName == "" {
		c.Cache.AppName = DefaultCacheAppName
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.PositionReadScale < 0 {
		return fmt.Errorf("position_read_scale 不能为负数: %v", c.PositionReadScale)
	}
	for i, doc := range c.Documents {
		if doc.Path == "" {
			return fmt.Errorf("文档 #%d 缺少 'path' 字段", i)
		}
		if (doc.Image == "") != (doc.Plist == "") {
			return fmt.Errorf("文档 %s 的 'image' 与 'plist' 必须同时指定", doc.Path)
		}
	}
	return nil
}

// AutoLoad 是否自动加载 config_file_path 中的精灵表
func (c *Config) AutoLoad() bool {
	return c.AutoLoadSpriteFile == nil || *c.AutoLoadSpriteFile
}

// Resolve 应用命令行覆盖项
// 命令行指定的文档追加在配置文件的文档之后
func (c *Config) Resolve(f Flags) {
	if f.AssetRoot != "" {
		c.AssetRoot = f.AssetRoot
	}
	if f.PositionReadScale > 0 {
		c.PositionReadScale = f.PositionReadScale
	}
	if f.Verbose {
		c.Verbose = true
	}
	if f.NoAutoLoad {
		off := false
		c.AutoLoadSpriteFile = &off
	}
	if f.Cache {
		c.Cache.Enabled = true
	}
	for _, p := range f.Documents {
		c.Documents = append(c.Documents, DocumentConfig{Path: p})
	}
}

// Apply 将进程级设置写入解码器
// 之后创建的 DataInfo 使用新的坐标缩放
func (c *Config) Apply() {
	armature.SetPositionReadScale(c.PositionReadScale)
}
