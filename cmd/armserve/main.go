// cmd/armserve/main.go
// 骨骼动画注册表检查服务
//
// 启动时异步预加载配置中的文档，通过 HTTP 查询注册表内容，并支持在运行时加载与移除文档。
//
// 用法：
//   go run ./cmd/armserve --config=armature.yaml --addr=:8080

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decker502/armature/pkg/app"
	"github.com/decker502/armature/pkg/config"
)

var (
	configPath = flag.String("config", "", "配置文件路径（YAML）")
	assetRoot  = flag.String("root", "", "资源根目录")
	addr       = flag.String("addr", ":8080", "监听地址")
	tps        = flag.Int("tps", 60, "每秒取出异步加载结果的次数")
	useCache   = flag.Bool("cache", false, "启用解码缓存")
	verbose    = flag.Bool("verbose", false, "详细日志")
)

// pump 按固定频率推进调度器，异步加载的结果在此 goroutine 中取出
func pump(ctx context.Context, a *app.App, tps int) {
	dt := 1.0 / float64(tps)
	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Update(dt)
		}
	}
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	}
	cfg.Resolve(config.Flags{
		AssetRoot: *assetRoot,
		Verbose:   *verbose,
		Cache:     *useCache,
		Documents: flag.Args(),
	})
	if *tps <= 0 {
		*tps = 60
	}

	a, err := app.New(cfg, app.WithErrorHandler(func(path string, err error) {
		log.Printf("[Server] Error: failed to load %s: %v", path, err)
	}))
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pump(ctx, a, *tps)

	if err := a.PreloadDocuments(nil); err != nil {
		log.Fatalf("提交加载请求失败: %v", err)
	}

	srv := NewServer(a, cfg.Verbose)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Server] Listening on %s (root=%s, documents=%d)", *addr, cfg.AssetRoot, len(cfg.Documents))
	if err := srv.Listen(*addr); err != nil {
		// 非 verbose 模式下日志被丢弃，启动失败直接输出到 stderr
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}
