package pos_test

import (
	"context"
	"strings"
	"testing"

	"bargalileo/internal/domain"
	"bargalileo/internal/pos"
)

type fakeBoardAPI struct {
	mesas      []domain.Mesa
	items      map[int]int // mesaID -> active item count
	calls      map[string]int
	lastEstado string
}

func newFakeBoardAPI() *fakeBoardAPI {
	return &fakeBoardAPI{
		mesas: []domain.Mesa{
			{ID: 1, Nombre: "Mesa 1", Estado: domain.EstadoOcupada},
			{ID: 2, Nombre: "Mesa 2", Estado: domain.EstadoDisponible},
		},
		items: map[int]int{},
		calls: map[string]int{},
	}
}

func (f *fakeBoardAPI) Mesas(ctx context.Context) ([]domain.Mesa, error) {
	f.calls["mesas"]++
	return f.mesas, nil
}

func (f *fakeBoardAPI) MesaPedido(ctx context.Context, mesaID int) (*domain.MesaPedido, error) {
	f.calls["mesa_pedido"]++
	mp := &domain.MesaPedido{Mesa: domain.Mesa{ID: mesaID}}
	for i := 0; i < f.items[mesaID]; i++ {
		mp.Pedido.Items = append(mp.Pedido.Items, domain.PedidoItem{ID: i + 1, Cantidad: 1})
	}
	return mp, nil
}

func (f *fakeBoardAPI) CambiarEstado(ctx context.Context, mesaID int, estado string) error {
	f.calls["cambiar_estado"]++
	f.lastEstado = estado
	for i := range f.mesas {
		if f.mesas[i].ID == mesaID {
			f.mesas[i].Estado = estado
		}
	}
	return nil
}

func (f *fakeBoardAPI) Liberar(ctx context.Context, mesaID int) error {
	f.calls["liberar"]++
	for i := range f.mesas {
		if f.mesas[i].ID == mesaID {
			f.mesas[i].Estado = domain.EstadoDisponible
		}
	}
	f.items[mesaID] = 0
	return nil
}

func newBoard(api *fakeBoardAPI) (*pos.Board, *spyUI) {
	ui := &spyUI{answer: true}
	return pos.NewBoard(api, ui, ui), ui
}

func TestCanManageOnlyOccupied(t *testing.T) {
	api := newFakeBoardAPI()
	b, _ := newBoard(api)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	m1, _ := b.Mesa(1)
	m2, _ := b.Mesa(2)
	if !b.CanManage(m1) {
		t.Fatal("occupied mesa must be manageable")
	}
	if b.CanManage(m2) {
		t.Fatal("available mesa must not be manageable")
	}
}

func TestChangeEstadoBlockedWithActivePedidos(t *testing.T) {
	for _, tc := range []struct {
		estado string
		want   string
	}{
		{domain.EstadoDisponible, "No se puede cambiar la mesa a disponible"},
		{domain.EstadoReservada, "No se puede reservar una mesa"},
		{domain.EstadoFueraDeServicio, "No se puede poner fuera de servicio"},
	} {
		api := newFakeBoardAPI()
		api.items[1] = 2
		b, ui := newBoard(api)
		if err := b.Load(context.Background()); err != nil {
			t.Fatal(err)
		}

		if err := b.ChangeEstado(context.Background(), 1, tc.estado); err != nil {
			t.Fatal(err)
		}
		if got := api.calls["cambiar_estado"]; got != 0 {
			t.Fatalf("%s: estado submitted despite active pedidos", tc.estado)
		}
		if !strings.HasPrefix(ui.lastError(), tc.want) {
			t.Fatalf("%s: message %q, want prefix %q", tc.estado, ui.lastError(), tc.want)
		}
	}
}

func TestChangeEstadoToOcupadaSkipsPedidoCheck(t *testing.T) {
	api := newFakeBoardAPI()
	api.items[2] = 1
	b, _ := newBoard(api)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := b.ChangeEstado(context.Background(), 2, domain.EstadoOcupada); err != nil {
		t.Fatal(err)
	}
	if api.calls["mesa_pedido"] != 0 {
		t.Fatal("ocupada transition must not fetch pedidos")
	}
	if api.lastEstado != domain.EstadoOcupada {
		t.Fatalf("estado submitted %q", api.lastEstado)
	}
	m, _ := b.Mesa(2)
	if m.Estado != domain.EstadoOcupada {
		t.Fatal("board not reloaded after estado change")
	}
}

func TestChangeEstadoAllowedWithoutPedidos(t *testing.T) {
	api := newFakeBoardAPI()
	b, _ := newBoard(api)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := b.ChangeEstado(context.Background(), 2, domain.EstadoReservada); err != nil {
		t.Fatal(err)
	}
	if api.calls["cambiar_estado"] != 1 {
		t.Fatal("estado change not submitted")
	}
	m, _ := b.Mesa(2)
	if m.Estado != domain.EstadoReservada {
		t.Fatalf("estado %q after reload", m.Estado)
	}
}

func TestLiberarDeclinedIsNoOp(t *testing.T) {
	api := newFakeBoardAPI()
	api.items[1] = 3
	b, ui := newBoard(api)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	ui.answer = false
	if err := b.Liberar(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if api.calls["liberar"] != 0 {
		t.Fatal("liberar submitted despite decline")
	}
	m, _ := b.Mesa(1)
	if m.Estado != domain.EstadoOcupada {
		t.Fatal("mesa changed on declined liberar")
	}
}

func TestLiberarConfirmedReleasesAndReloads(t *testing.T) {
	api := newFakeBoardAPI()
	api.items[1] = 3
	b, ui := newBoard(api)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := b.Liberar(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if api.calls["liberar"] != 1 {
		t.Fatal("liberar not submitted")
	}
	m, _ := b.Mesa(1)
	if m.Estado != domain.EstadoDisponible {
		t.Fatalf("estado %q after liberar", m.Estado)
	}
	found := false
	for _, msg := range ui.toasts {
		if msg == "Mesa liberada" {
			found = true
		}
	}
	if !found {
		t.Fatal("success toast missing")
	}
}
