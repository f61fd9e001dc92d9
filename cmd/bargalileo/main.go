package main

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"bargalileo/internal/config"
	"bargalileo/internal/http/handlers"
	applog "bargalileo/internal/log"
	"bargalileo/internal/repos"
	"bargalileo/internal/ws"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	hub := ws.NewHub()

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ocurrió un error inesperado"})
			}
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Algo salió mal. Inténtalo de nuevo.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Algo salió mal. Inténtalo de nuevo.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/ws/")
		},
	}))
	// Double-submit CSRF: the cookie is readable and terminals echo it in
	// the X-CSRFToken header on every mutation.
	app.Use(csrf.New(csrf.Config{
		// Terminals echo the cookie in X-CSRFToken; the board page posts a
		// hidden form field.
		Extractor: func(c *fiber.Ctx) (string, error) {
			if tok := c.Get("X-CSRFToken"); tok != "" {
				return tok, nil
			}
			if tok := c.FormValue("csrf"); tok != "" {
				return tok, nil
			}
			return "", errors.New("csrf token not found")
		},
		CookieName:     "csrftoken",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "CSRF token inválido"})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Static("/static", "./web/static")

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, hub)

	// Pages
	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/mesas/") })
	app.Get("/mesas/", deps.MesaHandler.Board)
	app.Post("/mesas/nueva/", deps.MesaHandler.Crear)
	app.Post("/mesas/:id/editar/", deps.MesaHandler.Editar)
	app.Post("/mesas/:id/estado/", deps.MesaHandler.CambiarEstado)
	app.Post("/mesas/:id/liberar/", deps.MesaHandler.Liberar)
	app.Get("/facturas/", deps.MesaHandler.ListFacturas)
	app.Get("/facturas/:id/", deps.MesaHandler.Factura)

	// Order API
	app.Get("/api/mesas/", deps.MesaHandler.List)
	app.Get("/api/mesas/:id/pedido/", deps.PedidoHandler.MesaPedido)
	app.Post("/api/pedidos/agregar-item/", deps.PedidoHandler.Agregar)
	app.Patch("/api/pedidos/actualizar-item/:id/", deps.PedidoHandler.Actualizar)
	app.Delete("/api/pedidos/eliminar-item/:id/", deps.PedidoHandler.Eliminar)
	app.Post("/api/pedidos/:id/usuarios/", deps.PedidoHandler.ManageUser)
	app.Post("/api/pedidos/:id/facturar/", deps.PedidoHandler.Facturar)
	app.Get("/api/users/", deps.UserHandler.List)

	// Stock feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("terminal", c.Get("X-Terminal-ID"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stock_updates/", websocket.New(func(conn *websocket.Conn) {
		hub.Serve(conn)
	}))

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "terminals": hub.Count()})
	})
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Página no encontrada"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
