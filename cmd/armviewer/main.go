// cmd/armviewer/main.go
// 骨骼动画加载查看器
//
// 异步加载配置文件和命令行中列出的文档，显示加载进度、已注册的数据与精灵帧。
//
// 用法：
//   go run ./cmd/armviewer --config=armature.yaml
//   go run ./cmd/armviewer --root=assets hero/Hero.ExportJson slime/slime.xml

package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/armature/pkg/app"
	"github.com/decker502/armature/pkg/config"
)

var (
	configPath = flag.String("config", "", "配置文件路径（YAML）")
	assetRoot  = flag.String("root", "", "资源根目录")
	readScale  = flag.Float64("scale", 0, "坐标读取缩放，0 表示使用配置")
	noAutoLoad = flag.Bool("no-autoload", false, "不加载文档中列出的精灵表")
	useCache   = flag.Bool("cache", false, "启用解码缓存")
	verbose    = flag.Bool("verbose", false, "详细日志")
)

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
		AssetRoot:         *assetRoot,
		PositionReadScale: *readScale,
		Verbose:           *verbose,
		NoAutoLoad:        *noAutoLoad,
		Cache:             *useCache,
		Documents:         flag.Args(),
	})

	viewer := NewViewer()
	a, err := app.New(cfg, app.WithErrorHandler(viewer.OnError))
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer a.Close()
	viewer.Attach(a)

	if err := a.PreloadDocuments(viewer.OnProgress); err != nil {
		log.Fatalf("提交加载请求失败: %v", err)
	}

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("Armature Viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}
