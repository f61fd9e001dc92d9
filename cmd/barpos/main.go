package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bargalileo/internal/client"
	"bargalileo/internal/config"
	"bargalileo/internal/domain"
	"bargalileo/internal/ledger"
	applog "bargalileo/internal/log"
	"bargalileo/internal/pos"
	"bargalileo/internal/validate"
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

	api, err := client.New(cfg.BaseURL)
	if err != nil {
		log.Fatal(err)
	}
	api.TerminalID = uuid.NewString()

	ui := pos.NewTermUI(os.Stdin, os.Stdout)
	led := ledger.New()
	board := pos.NewBoard(api, ui, ui)
	session := pos.NewSession(api, led, ui, ui, ui)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	// Live stock feed. A reconnect means missed deltas, so the session
	// refreshes wholesale afterwards.
	feed := &client.StockFeed{
		URL:        cfg.WSURL,
		Handler:    session.HandleStockDelta,
		TerminalID: api.TerminalID,
		Reconnect: client.ReconnectPolicy{
			MaxAttempts: 10,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		OnResync: func() {
			if err := session.Refresh(context.Background()); err != nil {
				applog.Fail("feed.resync", err, nil)
			}
		},
	}
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			applog.Fail("feed.run", err, nil)
		}
	}()

	if err := board.Load(ctx); err == nil {
		printMesas(board.Mesas())
	}

	fmt.Println(`Comandos: mesas | abrir N | add N [cant] | cant ITEM N | del ITEM |
  clientes [filtro] | asignar N | quitar N | facturar | cerrar |
  estado N ESTADO | liberar N | salir`)

	for {
		line, err := ui.Prompt("> ")
		if err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "salir", "exit", "quit":
			return

		case "mesas":
			if err := board.Load(ctx); err == nil {
				printMesas(board.Mesas())
			}

		case "abrir":
			id, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: abrir N")
				continue
			}
			if m, found := board.Mesa(id); found && !board.CanManage(m) {
				ui.Error("Solo se puede gestionar el pedido de una mesa ocupada.")
				continue
			}
			_ = session.Open(ctx, id)

		case "cerrar":
			session.Close()
			ui.Toast("Sesión cerrada")

		case "add":
			id, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: add N [cant]")
				continue
			}
			if len(args) >= 3 {
				n, ok := argID(args, 2)
				if !ok {
					ui.Error("Uso: add N [cant]")
					continue
				}
				_ = session.Add(ctx, id, session.ClampCantidad(id, n))
			} else {
				_ = session.AddOrIncrement(ctx, id)
			}

		case "cant":
			itemID, ok1 := argID(args, 1)
			n, ok2 := argID(args, 2)
			if !ok1 || !ok2 {
				ui.Error("Uso: cant ITEM N")
				continue
			}
			_ = session.ChangeQuantity(ctx, itemID, n)

		case "del":
			itemID, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: del ITEM")
				continue
			}
			_ = session.RemoveItem(ctx, itemID)

		case "clientes":
			q := ""
			if len(args) > 1 {
				q = args[1]
			}
			for _, u := range session.SearchUsers(q) {
				fmt.Printf("  %4d  %s\n", u.ID, u.Username)
			}

		case "asignar":
			id, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: asignar N")
				continue
			}
			_ = session.AssignUser(ctx, id)

		case "quitar":
			id, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: quitar N")
				continue
			}
			_ = session.RemoveUser(ctx, id)

		case "facturar":
			if url, err := session.Invoice(ctx); err == nil && url != "" {
				ui.Toast("Factura: " + cfg.BaseURL + url)
			}

		case "estado":
			id, ok := argID(args, 1)
			if !ok || len(args) < 3 {
				ui.Error("Uso: estado N ESTADO")
				continue
			}
			estado, ok := validate.Estado(strings.Join(args[2:], " "))
			if !ok {
				ui.Error("Estado inválido.")
				continue
			}
			if err := board.ChangeEstado(ctx, id, estado); err == nil {
				printMesas(board.Mesas())
			}

		case "liberar":
			id, ok := argID(args, 1)
			if !ok {
				ui.Error("Uso: liberar N")
				continue
			}
			if err := board.Liberar(ctx, id); err == nil {
				printMesas(board.Mesas())
			}

		default:
			ui.Error("Comando desconocido: " + args[0])
		}
	}
}

func argID(args []string, i int) (int, bool) {
	if len(args) <= i {
		return 0, false
	}
	return validate.ID(args[i])
}

func printMesas(mesas []domain.Mesa) {
	fmt.Println("--- Mesas ---")
	for _, m := range mesas {
		fmt.Printf("  %4d  %-20s %s\n", m.ID, m.Nombre, m.Estado)
	}
}
