// Package app 组装加载管线的各个组件
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被 armviewer、armdump、armserve 共用：
// 资源解析器、注册表、精灵帧缓存、调度器、解码缓存与 DataReader 按配置创建并连接。
package app

import (
	"fmt"
	"io"
	"log"

	"github.com/decker502/armature/pkg/assetfs"
	"github.com/decker502/armature/pkg/cache"
	"github.com/decker502/armature/pkg/config"
	"github.com/decker502/armature/pkg/loader"
	"github.com/decker502/armature/pkg/registry"
	"github.com/decker502/armature/pkg/scheduler"
	"github.com/decker502/armature/pkg/spriteframe"
)

// App 加载管线的组件集合
type App struct {
	Config    *config.Config
	Assets    *assetfs.Resolver
	Registry  *registry.Registry
	Sprites   *spriteframe.Cache
	Scheduler *scheduler.Scheduler
	Cache     *cache.BundleCache
	Reader    *loader.DataReader
}

// Option App 配置项
type Option func(*options)

type options struct {
	onError loader.ErrorFunc
}

// WithErrorHandler 指定异步加载失败回调
func WithErrorHandler(fn loader.ErrorFunc) Option {
	return func(o *options) { o.onError = fn }
}

// New 按配置创建并连接所有组件
//
// 未启用 Verbose 时丢弃日志输出。
// 缓存打开失败时进入降级模式（不缓存），不会返回错误。
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	cfg.Apply()

	assets := assetfs.New(cfg.AssetRoot)

	reg := registry.New()
	reg.SetVerbose(cfg.Verbose)

	sprites := spriteframe.New(assets.ReadFile)
	sched := scheduler.New()

	bundleCache := cache.New(nil)
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.Cache.AppName)
		if err != nil {
			log.Printf("[App] Warning: 解码缓存不可用，使用降级模式: %v", err)
		} else {
			bundleCache = c
			log.Printf("[App] Bundle cache enabled (%s)", cfg.Cache.AppName)
		}
	}

	readerOpts := []loader.Option{
		loader.WithRegistry(reg),
		loader.WithSpriteLoader(sprites),
		loader.WithScheduler(sched),
		loader.WithCache(bundleCache),
		loader.WithReadFunc(assets.ReadFile),
		loader.WithAutoLoadSpriteFile(cfg.AutoLoad()),
		loader.WithVerbose(cfg.Verbose),
	}
	if o.onError != nil {
		readerOpts = append(readerOpts, loader.WithErrorHandler(o.onError))
	}

	return &App{
		Config:    cfg,
		Assets:    assets,
		Registry:  reg,
		Sprites:   sprites,
		Scheduler: sched,
		Cache:     bundleCache,
		Reader:    loader.New(readerOpts...),
	}, nil
}

// LoadDocuments 同步加载配置中的所有文档
// 遇到第一个失败的文档即返回错误
func (a *App) LoadDocuments() error {
	for _, doc := range a.Config.Documents {
		if err := a.Reader.LoadFile(doc.Path); err != nil {
			return err
		}
		if doc.Image != "" && doc.Plist != "" {
			if err := a.Sprites.AddSpriteFramesFromFile(doc.Plist, doc.Image); err != nil {
				return fmt.Errorf("加载图集 %s 失败: %w", doc.Plist, err)
			}
		}
	}
	log.Printf("[App] Loaded %d documents", len(a.Config.Documents))
	return nil
}

// PreloadDocuments 异步加载配置中的所有文档
// 进度在调度器 Tick 时回调
func (a *App) PreloadDocuments(onProgress loader.ProgressFunc) error {
	for _, doc := range a.Config.Documents {
		if err := a.Reader.LoadFileAsync(doc.Image, doc.Plist, doc.Path, onProgress); err != nil {
			return err
		}
	}
	return nil
}

// Update 推进一帧：调用所有已注册的调度回调
func (a *App) Update(dt float64) {
	a.Scheduler.Tick(dt)
}

// Close 停止后台加载
func (a *App) Close() error {
	return a.Reader.Close()
}
