package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/decker502/armature/pkg/app"
	"github.com/decker502/armature/pkg/assetfs"
)

// NewServer 创建检查服务，路由只读访问注册表，文档加载通过 DataReader 异步进行
func NewServer(a *app.App, logRequests bool) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName: "Armature Inspector",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	srv.Use(recover.New())
	if logRequests {
		srv.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	// ============================================================
	// Health Check Routes
	// ============================================================

	srv.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	srv.Get("/health/ready", func(c fiber.Ctx) error {
		inFlight := a.Reader.InFlight()
		status := "ready"
		if inFlight > 0 {
			status = "loading"
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"in_flight": inFlight,
			"progress":  a.Reader.Progress(),
		})
	})

	// ============================================================
	// Registry Routes
	// ============================================================

	reg := a.Registry

	srv.Get("/armatures", func(c fiber.Ctx) error {
		return c.JSON(reg.ArmatureNames())
	})
	srv.Get("/armatures/:name", func(c fiber.Ctx) error {
		arm := reg.Armature(c.Params("name"))
		if arm == nil {
			return notFound(c, "armature", c.Params("name"))
		}
		return c.JSON(arm)
	})

	srv.Get("/animations", func(c fiber.Ctx) error {
		return c.JSON(reg.AnimationNames())
	})
	srv.Get("/animations/:name", func(c fiber.Ctx) error {
		anim := reg.Animation(c.Params("name"))
		if anim == nil {
			return notFound(c, "animation", c.Params("name"))
		}
		return c.JSON(fiber.Map{
			"name":      anim.Name,
			"movements": anim.MovementNames(),
		})
	})
	srv.Get("/animations/:name/movements/:movement", func(c fiber.Ctx) error {
		anim := reg.Animation(c.Params("name"))
		if anim == nil {
			return notFound(c, "animation", c.Params("name"))
		}
		mov := anim.Movement(c.Params("movement"))
		if mov == nil {
			return notFound(c, "movement", c.Params("movement"))
		}
		return c.JSON(mov)
	})

	srv.Get("/textures", func(c fiber.Ctx) error {
		return c.JSON(reg.TextureNames())
	})
	srv.Get("/textures/:name", func(c fiber.Ctx) error {
		tex := reg.Texture(c.Params("name"))
		if tex == nil {
			return notFound(c, "texture", c.Params("name"))
		}
		return c.JSON(tex)
	})

	srv.Get("/frames", func(c fiber.Ctx) error {
		return c.JSON(a.Sprites.FrameNames())
	})

	// ============================================================
	// Document Routes
	// ============================================================

	srv.Get("/documents", func(c fiber.Ctx) error {
		return c.JSON(reg.Documents())
	})

	// POST /documents?path=hero/Hero.ExportJson[&image=...&plist=...]
	srv.Post("/documents", func(c fiber.Ctx) error {
		path := c.Query("path")
		if path == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path required"})
		}
		if err := a.Reader.LoadFileAsync(c.Query("image"), c.Query("plist"), path, nil); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"path":      path,
			"in_flight": a.Reader.InFlight(),
		})
	})

	// DELETE /documents?path=... 移除文档注册的全部数据，之后可以重新加载
	srv.Delete("/documents", func(c fiber.Ctx) error {
		path := assetfs.Normalize(c.Query("path"))
		if path == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path required"})
		}
		removed := reg.RemoveDocument(path)
		a.Reader.Forget(path)
		log.Printf("[Server] Removed document %s (%d entries)", path, removed)
		return c.JSON(fiber.Map{"path": path, "removed": removed})
	})

	return srv
}

func notFound(c fiber.Ctx, kind, name string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": kind + " not found",
		"name":  name,
	})
}
