package pos

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TermUI is the terminal implementation of Notifier, Confirmer and Renderer.
// Writes are serialized so renders and prompts don't interleave when the
// stock feed redraws from its own goroutine.
type TermUI struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTermUI(in io.Reader, out io.Writer) *TermUI {
	return &TermUI{in: bufio.NewReader(in), out: out}
}

func (t *TermUI) Toast(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[aviso] %s\n", msg)
}

func (t *TermUI) Error(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[error] %s\n", msg)
}

func (t *TermUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s [s/n]: ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}

// Prompt prints p and reads one line. The command loop uses this so it
// shares the reader with Confirm.
func (t *TermUI) Prompt(p string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, p)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *TermUI) RenderCatalog(entries []CatalogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, "--- Productos ---")
	for _, e := range entries {
		marca := " "
		if e.Agotado {
			marca = "x" // disabled, still listed
		}
		fmt.Fprintf(t.out, "[%s] %4d  %-30s $%8.2f  quedan %d\n",
			marca, e.Producto.ID, e.Producto.Nombre, e.Producto.PrecioVenta, e.Restante)
	}
}

func (t *TermUI) RenderPedido(v PedidoView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "--- Pedido (%s) ---\n", v.MesaNombre)
	if len(v.Items) == 0 {
		fmt.Fprintln(t.out, "No hay items en el pedido")
	}
	for _, it := range v.Items {
		fmt.Fprintf(t.out, "#%-4d %-30s x%-3d $%8.2f\n", it.ID, it.Producto.Nombre, it.Cantidad, it.Subtotal)
	}
	fmt.Fprintf(t.out, "Total: $%.2f\n", v.Total)
	if len(v.Usuarios) > 0 {
		names := make([]string, 0, len(v.Usuarios))
		for _, u := range v.Usuarios {
			names = append(names, u.Username)
		}
		fmt.Fprintf(t.out, "Clientes: %s\n", strings.Join(names, ", "))
	}
}
