// cmd/armdump/main.go
// 骨骼动画文档检查工具
//
// 同步加载文档，输出注册表内容的 YAML 摘要，可选生成精灵帧预览图（WebP）。
//
// 用法：
//   go run ./cmd/armdump --root=assets hero/Hero.ExportJson
//   go run ./cmd/armdump --config=armature.yaml --preview=frames.webp

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decker502/armature/pkg/app"
	"github.com/decker502/armature/pkg/config"
)

var (
	configPath  = flag.String("config", "", "配置文件路径（YAML）")
	assetRoot   = flag.String("root", "", "资源根目录")
	readScale   = flag.Float64("scale", 0, "坐标读取缩放，0 表示使用配置")
	noAutoLoad  = flag.Bool("no-autoload", false, "不加载文档中列出的精灵表")
	useCache    = flag.Bool("cache", false, "启用解码缓存")
	verbose     = flag.Bool("verbose", false, "详细日志")
	listFrames  = flag.Bool("frames", false, "输出精灵帧名称")
	previewPath = flag.String("preview", "", "精灵帧预览图输出路径（.webp）")
	cellSize    = flag.Int("cell", 96, "预览图单元尺寸（像素）")
	columns     = flag.Int("columns", 8, "预览图列数")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
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
	if len(cfg.Documents) == 0 {
		fmt.Fprintln(os.Stderr, "用法: armdump [flags] <document>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.LoadDocuments(); err != nil {
		fmt.Fprintf(os.Stderr, "加载失败: %v\n", err)
		os.Exit(1)
	}

	var frames []string
	if *listFrames {
		frames = a.Sprites.FrameNames()
	}
	out, err := yaml.Marshal(Summarize(a.Registry, frames))
	if err != nil {
		log.Fatalf("YAML 序列化失败: %v", err)
	}
	os.Stdout.Write(out)

	if *previewPath != "" {
		img := ComposePreview(a.Sprites, *cellSize, *columns)
		if img == nil {
			fmt.Fprintln(os.Stderr, "没有可用的精灵帧，跳过预览图")
			return
		}
		if err := WritePreview(*previewPath, img); err != nil {
			fmt.Fprintf(os.Stderr, "保存预览图失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "预览图已保存: %s (%dx%d)\n", *previewPath, img.Bounds().Dx(), img.Bounds().Dy())
	}
}
