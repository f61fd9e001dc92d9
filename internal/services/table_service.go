package services

import (
	"database/sql"

	"bargalileo/internal/domain"
	"bargalileo/internal/repos"
	"bargalileo/internal/validate"
)

// TableService covers the mesa board: listing, estado transitions and the
// force-release pathway.
type TableService struct {
	Mesas   *repos.MesaRepo
	Pedidos *repos.PedidoRepo
}

func NewTableService(mesas *repos.MesaRepo, pedidos *repos.PedidoRepo) *TableService {
	return &TableService{Mesas: mesas, Pedidos: pedidos}
}

func (s *TableService) List() ([]domain.Mesa, error) {
	return s.Mesas.List()
}

// CambiarEstado validates and applies an estado transition. A mesa holding
// unbilled items cannot leave ocupada; the terminals gate this too, but the
// server is the one that counts.
func (s *TableService) CambiarEstado(mesaID int, estado string) error {
	estado, ok := validate.Estado(estado)
	if !ok {
		return badRequest("Estado inválido.")
	}
	if _, err := s.Mesas.Get(mesaID); err == sql.ErrNoRows {
		return notFound("Mesa no encontrada")
	} else if err != nil {
		return err
	}

	if estado != domain.EstadoOcupada {
		busy, err := s.Pedidos.TieneItemsActivos(mesaID)
		if err != nil {
			return err
		}
		if busy {
			return badRequest("La mesa tiene pedidos activos.")
		}
	}
	return s.Mesas.SetEstado(mesaID, estado)
}

// Liberar deletes the mesa's unbilled pedidos and frees it. Billed pedidos
// stay as history. Returns how many pedidos went away.
func (s *TableService) Liberar(mesaID int) (int, error) {
	if _, err := s.Mesas.Get(mesaID); err == sql.ErrNoRows {
		return 0, notFound("Mesa no encontrada")
	} else if err != nil {
		return 0, err
	}

	n, err := s.Pedidos.DeleteSinFacturar(mesaID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := s.Mesas.SetEstado(mesaID, domain.EstadoDisponible); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Crear registers a new mesa with a unique nombre.
func (s *TableService) Crear(nombre, descripcion string) (int, error) {
	nombre, ok := validate.Nombre(nombre)
	if !ok {
		return 0, badRequest("El nombre de la mesa no puede estar vacío.")
	}
	free, err := s.Mesas.NombreDisponible(nombre, 0)
	if err != nil {
		return 0, err
	}
	if !free {
		return 0, badRequest("Ya existe una mesa con ese nombre.")
	}
	return s.Mesas.Create(nombre, descripcion)
}

// Editar renames a mesa, keeping nombres unique.
func (s *TableService) Editar(mesaID int, nombre, descripcion string) error {
	nombre, ok := validate.Nombre(nombre)
	if !ok {
		return badRequest("El nombre de la mesa no puede estar vacío.")
	}
	free, err := s.Mesas.NombreDisponible(nombre, mesaID)
	if err != nil {
		return err
	}
	if !free {
		return badRequest("Ya existe una mesa con ese nombre.")
	}
	return s.Mesas.Update(mesaID, nombre, descripcion)
}
