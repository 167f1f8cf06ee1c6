// Package loader 加载骨骼动画文档并注册解码结果
//
// DataReader 支持两种加载方式：
//   - 同步加载：LoadFile 在调用方 goroutine 中读取、解码并注册
//   - 异步加载：LoadFileAsync 将请求交给后台加载 goroutine，解码结果进入结果队列，
//     由主线程每帧调用 Poll（或通过调度器自动调用）取出，加载精灵表并回调进度
//
// 同一路径只解码一次：重复请求（无论同步还是异步）不会再次解码，
// 异步重复请求立即以当前进度回调。
package loader

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/decker502/armature/internal/armature"
	"github.com/decker502/armature/pkg/assetfs"
	"github.com/decker502/armature/pkg/cache"
	"github.com/decker502/armature/pkg/registry"
	"github.com/decker502/armature/pkg/scheduler"
)

// SchedulerKey 异步加载在调度器中注册的回调名
const SchedulerKey = "loader.DataReader.poll"

// ErrClosed DataReader 已关闭
var ErrClosed = errors.New("loader: data reader closed")

// ProgressFunc 异步加载进度回调，progress 范围 [0, 1]
type ProgressFunc func(progress float64)

// ErrorFunc 异步加载失败回调
type ErrorFunc func(path string, err error)

// ReadFunc 读取文档内容
type ReadFunc func(name string) ([]byte, error)

// SpriteLoader 精灵表加载器
type SpriteLoader interface {
	AddSpriteFramesFromFile(plistPath, imagePath string) error
}

// Scheduler 每帧回调调度器
type Scheduler interface {
	Schedule(key string, fn scheduler.Func)
	Unschedule(key string)
}

// request 异步加载请求
type request struct {
	id         string
	path       string
	imagePath  string
	plistPath  string
	onProgress ProgressFunc
	info       *armature.DataInfo
}

// result 解码结果，err 非空表示失败
type result struct {
	req    *request
	bundle *armature.Bundle
	err    error
}

// DataReader 文档加载器
type DataReader struct {
	registry *registry.Registry
	sprites  SpriteLoader
	sched    Scheduler
	cache    *cache.BundleCache
	read     ReadFunc
	onError  ErrorFunc
	verbose  bool

	autoLoadSpriteFile atomic.Bool

	// 去重表：已处理或正在处理的文档路径
	filesMu sync.Mutex
	files   map[string]struct{}

	// 请求队列（主线程 -> 加载线程）
	reqMu    sync.Mutex
	requests []*request
	started  bool
	closed   bool
	wake     chan struct{}
	quit     chan struct{}
	wg       sync.WaitGroup

	// 结果队列（加载线程 -> 主线程）
	resMu   sync.Mutex
	results []*result

	// 进度计数
	stateMu  sync.Mutex
	inFlight int
	total    int
}

// Option DataReader 配置项
type Option func(*DataReader)

// WithRegistry 指定注册表，默认创建新的注册表
func WithRegistry(r *registry.Registry) Option {
	return func(d *DataReader) { d.registry = r }
}

// WithSpriteLoader 指定精灵表加载器，为 nil 时跳过精灵表加载
func WithSpriteLoader(s SpriteLoader) Option {
	return func(d *DataReader) { d.sprites = s }
}

// WithScheduler 指定调度器；未指定时需由宿主每帧调用 Poll
func WithScheduler(s Scheduler) Option {
	return func(d *DataReader) { d.sched = s }
}

// WithCache 指定解码结果缓存
func WithCache(c *cache.BundleCache) Option {
	return func(d *DataReader) { d.cache = c }
}

// WithReadFunc 指定文档读取函数，默认 os.ReadFile
func WithReadFunc(read ReadFunc) Option {
	return func(d *DataReader) { d.read = read }
}

// WithAutoLoadSpriteFile 设置是否自动加载文档中列出的精灵表，默认 true
func WithAutoLoadSpriteFile(v bool) Option {
	return func(d *DataReader) { d.autoLoadSpriteFile.Store(v) }
}

// WithErrorHandler 指定异步加载失败回调
func WithErrorHandler(fn ErrorFunc) Option {
	return func(d *DataReader) { d.onError = fn }
}

// WithVerbose 输出每个请求的调试日志
func WithVerbose(v bool) Option {
	return func(d *DataReader) { d.verbose = v }
}

// New 创建 DataReader
// 后台加载 goroutine 在第一次异步请求时启动
func New(opts ...Option) *DataReader {
	d := &DataReader{
		files: make(map[string]struct{}),
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}
	d.autoLoadSpriteFile.Store(true)
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = registry.New()
	}
	if d.read == nil {
		d.read = os.ReadFile
	}
	return d
}

// Registry 返回注册表
func (d *DataReader) Registry() *registry.Registry {
	return d.registry
}

// SetAutoLoadSpriteFile 设置是否自动加载精灵表，对之后的请求生效
func (d *DataReader) SetAutoLoadSpriteFile(v bool) {
	d.autoLoadSpriteFile.Store(v)
}

// AutoLoadSpriteFile 返回是否自动加载精灵表
func (d *DataReader) AutoLoadSpriteFile() bool {
	return d.autoLoadSpriteFile.Load()
}

// claim 将路径加入去重表，已存在时返回 false
func (d *DataReader) claim(path string) bool {
	d.filesMu.Lock()
	defer d.filesMu.Unlock()
	if _, ok := d.files[path]; ok {
		return false
	}
	d.files[path] = struct{}{}
	return true
}

// Forget 从去重表中移除路径，之后可以重新加载
// 已注册的数据不会被移除，需要时调用 Registry().RemoveDocument
func (d *DataReader) Forget(path string) {
	path = assetfs.Normalize(path)
	d.filesMu.Lock()
	defer d.filesMu.Unlock()
	delete(d.files, path)
}

// IsLoaded 路径是否已加载或正在加载
func (d *DataReader) IsLoaded(path string) bool {
	path = assetfs.Normalize(path)
	d.filesMu.Lock()
	defer d.filesMu.Unlock()
	_, ok := d.files[path]
	return ok
}

func (d *DataReader) newDataInfo(path string) *armature.DataInfo {
	info := armature.NewDataInfo(path)
	info.AutoLoadSpriteFile = d.autoLoadSpriteFile.Load()
	return info
}

// LoadFile 同步加载文档
// 路径已加载过（或正在异步加载）时直接返回 nil
//
// 返回：
//   - error: 读取或解码失败时返回错误，此时路径从去重表中移除
func (d *DataReader) LoadFile(path string) error {
	path = assetfs.Normalize(path)
	if !d.claim(path) {
		return nil
	}

	info := d.newDataInfo(path)
	bundle, err := d.decodeFile(path, info)
	if err != nil {
		d.Forget(path)
		return err
	}
	d.registry.AddBundle(bundle)

	for _, cfg := range bundle.ConfigFiles {
		d.loadSprites(info.BaseFilePath+cfg+".plist", info.BaseFilePath+cfg+".png")
	}
	return nil
}

// MustLoadFile 同步加载文档，失败时 panic
// 适用于构建期资源：损坏的资源应立即暴露
func (d *DataReader) MustLoadFile(path string) {
	if err := d.LoadFile(path); err != nil {
		panic(fmt.Sprintf("armature: load %s: %v", path, err))
	}
}

// decodeFile 读取并解码文档，命中缓存时跳过解码
func (d *DataReader) decodeFile(path string, info *armature.DataInfo) (*armature.Bundle, error) {
	format := armature.FormatFromPath(path)
	if format == armature.FormatUnknown {
		return nil, fmt.Errorf("load %s: %w", path, armature.ErrUnknownFormat)
	}

	content, err := d.read(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	fp := cache.NewFingerprint(content, info.PositionReadScale, info.AutoLoadSpriteFile)
	if bundle, ok := d.cache.Load(path, fp); ok {
		if d.verbose {
			log.Printf("[DataReader] Cache hit for %s", path)
		}
		return bundle, nil
	}

	bundle, err := armature.Decode(format, content, info, d.registry)
	if err != nil {
		return nil, err
	}
	if !bundle.SelfContained() && d.verbose {
		log.Printf("[DataReader] Not caching %s: depends on armatures %v", path, bundle.ExternalArmatures)
	}
	if err := d.cache.Store(path, fp, bundle); err != nil {
		log.Printf("[DataReader] Warning: %v", err)
	}
	return bundle, nil
}

// loadSprites 加载精灵表，失败时记录日志并跳过
func (d *DataReader) loadSprites(plistPath, imagePath string) {
	if d.sprites == nil {
		return
	}
	if err := d.sprites.AddSpriteFramesFromFile(plistPath, imagePath); err != nil {
		log.Printf("[DataReader] Warning: skipping sprite sheet %s: %v", plistPath, err)
	}
}

// LoadFileAsync 异步加载文档
//
// 参数：
//   - imagePath, plistPath: 解码完成后加载的图集，任一为空则跳过
//   - path: 文档路径
//   - onProgress: 完成后在 Poll 所在 goroutine 回调，可为 nil
//
// 重复请求（同一路径已在加载中或已加载）不会入队，onProgress 在调用方
// goroutine 中立即以当前 Progress() 回调。文档仍在加载时该值可能为 0，
// 并不表示文档可用；需要等待完成时应使用首个请求的回调或 InFlight()。
//
// 返回：
//   - error: DataReader 已关闭时返回 ErrClosed
func (d *DataReader) LoadFileAsync(imagePath, plistPath, path string, onProgress ProgressFunc) error {
	path = assetfs.Normalize(path)

	d.reqMu.Lock()
	closed := d.closed
	d.reqMu.Unlock()
	if closed {
		return ErrClosed
	}

	if !d.claim(path) {
		if onProgress != nil {
			onProgress(d.Progress())
		}
		return nil
	}

	req := &request{
		id:         uuid.NewString(),
		path:       path,
		imagePath:  imagePath,
		plistPath:  plistPath,
		onProgress: onProgress,
		info:       d.newDataInfo(path),
	}

	d.stateMu.Lock()
	if d.inFlight == 0 && d.sched != nil {
		d.sched.Schedule(SchedulerKey, d.Poll)
	}
	d.inFlight++
	d.total++
	d.stateMu.Unlock()

	d.reqMu.Lock()
	if d.closed {
		d.reqMu.Unlock()
		d.Forget(path)
		d.settle()
		return ErrClosed
	}
	if !d.started {
		d.started = true
		d.wg.Add(1)
		go d.loop()
	}
	d.requests = append(d.requests, req)
	d.reqMu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	if d.verbose {
		log.Printf("[DataReader] Queued %s (request=%s)", path, req.id)
	}
	return nil
}

// Progress 返回当前批次的完成比例；没有进行中的请求时为 1
func (d *DataReader) Progress() float64 {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.total == 0 {
		return 1
	}
	return float64(d.total-d.inFlight) / float64(d.total)
}

// InFlight 返回已提交但尚未被 Poll 取出的请求数
func (d *DataReader) InFlight() int {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.inFlight
}

// settle 一个请求结束，返回结束后的进度
// 进行中的请求清零时重置批次并注销调度
func (d *DataReader) settle() float64 {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	d.inFlight--
	progress := 1.0
	if d.total > 0 {
		progress = float64(d.total-d.inFlight) / float64(d.total)
	}
	if d.inFlight <= 0 {
		d.inFlight = 0
		d.total = 0
		if d.sched != nil {
			d.sched.Unschedule(SchedulerKey)
		}
	}
	return progress
}

// loop 后台加载 goroutine
func (d *DataReader) loop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.quit:
			return
		default:
		}

		d.reqMu.Lock()
		var req *request
		if len(d.requests) > 0 {
			req = d.requests[0]
			d.requests[0] = nil
			d.requests = d.requests[1:]
		}
		d.reqMu.Unlock()

		if req == nil {
			select {
			case <-d.wake:
				continue
			case <-d.quit:
				return
			}
		}

		res := d.process(req)

		d.resMu.Lock()
		d.results = append(d.results, res)
		d.resMu.Unlock()
	}
}

// process 在加载 goroutine 中解码并注册
func (d *DataReader) process(req *request) *result {
	bundle, err := d.decodeFile(req.path, req.info)
	if err != nil {
		return &result{req: req, err: err}
	}
	d.registry.AddBundle(bundle)
	if d.verbose {
		log.Printf("[DataReader] Decoded %s (request=%s, armatures=%d, animations=%d, textures=%d)",
			req.path, req.id, len(bundle.Armatures), len(bundle.Animations), len(bundle.Textures))
	}
	return &result{req: req, bundle: bundle}
}

// Poll 取出所有已完成的结果：加载精灵表并回调进度
// 必须在主线程调用（通过调度器或宿主每帧调用）；dt 未使用
func (d *DataReader) Poll(dt float64) {
	d.resMu.Lock()
	batch := d.results
	d.results = nil
	d.resMu.Unlock()

	for _, res := range batch {
		req := res.req

		if res.err != nil {
			d.Forget(req.path)
			d.settle()
			log.Printf("[DataReader] Error: failed to load %s (request=%s): %v", req.path, req.id, res.err)
			if d.onError != nil {
				d.onError(req.path, res.err)
			}
			continue
		}

		if req.imagePath != "" && req.plistPath != "" {
			d.loadSprites(req.plistPath, req.imagePath)
		}
		for _, cfg := range res.bundle.ConfigFiles {
			d.loadSprites(req.info.BaseFilePath+cfg+".plist", req.info.BaseFilePath+cfg+".png")
		}

		progress := d.settle()
		if req.onProgress != nil {
			req.onProgress(progress)
		}
	}
}

// Close 停止加载 goroutine，丢弃尚未开始的请求并清空去重表
// 正在解码的请求会等待其完成，但结果被丢弃，不再回调
func (d *DataReader) Close() error {
	d.reqMu.Lock()
	if d.closed {
		d.reqMu.Unlock()
		return ErrClosed
	}
	d.closed = true
	discarded := len(d.requests)
	d.requests = nil
	d.reqMu.Unlock()

	close(d.quit)
	d.wg.Wait()

	d.resMu.Lock()
	d.results = nil
	d.resMu.Unlock()

	d.filesMu.Lock()
	d.files = make(map[string]struct{})
	d.filesMu.Unlock()

	d.stateMu.Lock()
	d.inFlight = 0
	d.total = 0
	if d.sched != nil {
		d.sched.Unschedule(SchedulerKey)
	}
	d.stateMu.Unlock()

	if discarded > 0 {
		log.Printf("[DataReader] Closed, discarded %d queued requests", discarded)
	}
	return nil
}
