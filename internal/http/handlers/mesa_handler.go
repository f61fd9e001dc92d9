package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "bargalileo/internal/log"
	"bargalileo/internal/repos"
	"bargalileo/internal/services"
	"bargalileo/internal/validate"
)

// MesaHandler serves the board: the rendered mesas page, its JSON mirror for
// the terminals, and the estado/liberar form endpoints.
type MesaHandler struct {
	Tables   *services.TableService
	Facturas *repos.FacturaRepo
}

// Board renders GET /mesas/.
func (h *MesaHandler) Board(c *fiber.Ctx) error {
	mesas, err := h.Tables.List()
	if err != nil {
		applog.Error(c, "mesas.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "No se pudieron cargar las mesas"})
	}
	return render(c, "mesas", fiber.Map{"Mesas": mesas})
}

// List answers GET /api/mesas/, the JSON the terminal board consumes.
func (h *MesaHandler) List(c *fiber.Ctx) error {
	mesas, err := h.Tables.List()
	if err != nil {
		return apiError(c, "mesas.list.fail", err)
	}
	return c.JSON(fiber.Map{"mesas": mesas})
}

// CambiarEstado answers POST /mesas/:id/estado/ (form or JSON body).
func (h *MesaHandler) CambiarEstado(c *fiber.Ctx) error {
	mesaID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mesa inválida"})
	}
	estado := c.FormValue("estado")
	if estado == "" {
		var body struct {
			Estado string `json:"estado"`
		}
		if err := c.BodyParser(&body); err == nil {
			estado = body.Estado
		}
	}

	if err := h.Tables.CambiarEstado(mesaID, estado); err != nil {
		return apiError(c, "mesas.estado.fail", err)
	}
	applog.Audit(c, "mesas.estado", map[string]any{"mesa_id": mesaID, "estado": estado})
	return c.Redirect("/mesas/")
}

// Crear answers POST /mesas/nueva/ (board form).
func (h *MesaHandler) Crear(c *fiber.Ctx) error {
	id, err := h.Tables.Crear(c.FormValue("nombre"), c.FormValue("descripcion"))
	if err != nil {
		return apiError(c, "mesas.crear.fail", err)
	}
	applog.Audit(c, "mesas.crear", map[string]any{"mesa_id": id})
	return c.Redirect("/mesas/")
}

// Editar answers POST /mesas/:id/editar/ (board form).
func (h *MesaHandler) Editar(c *fiber.Ctx) error {
	mesaID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mesa inválida"})
	}
	if err := h.Tables.Editar(mesaID, c.FormValue("nombre"), c.FormValue("descripcion")); err != nil {
		return apiError(c, "mesas.editar.fail", err)
	}
	applog.Audit(c, "mesas.editar", map[string]any{"mesa_id": mesaID})
	return c.Redirect("/mesas/")
}

// Liberar answers POST /mesas/:id/liberar/: drops unbilled pedidos and
// frees the mesa.
func (h *MesaHandler) Liberar(c *fiber.Ctx) error {
	mesaID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mesa inválida"})
	}

	n, err := h.Tables.Liberar(mesaID)
	if err != nil {
		return apiError(c, "mesas.liberar.fail", err)
	}
	applog.Audit(c, "mesas.liberar", map[string]any{"mesa_id": mesaID, "pedidos_eliminados": n})
	return c.Redirect("/mesas/")
}

// ListFacturas renders GET /facturas/, latest first.
func (h *MesaHandler) ListFacturas(c *fiber.Ctx) error {
	rows, err := h.Facturas.ListLatest(100)
	if err != nil {
		applog.Error(c, "facturas.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "No se pudieron cargar las facturas"})
	}
	return render(c, "facturas", fiber.Map{"Facturas": rows})
}

// Factura renders GET /facturas/:id/.
func (h *MesaHandler) Factura(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Factura no encontrada"})
	}
	f, items, err := h.Facturas.Get(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Factura no encontrada"})
	}
	return render(c, "factura", fiber.Map{"Factura": f, "Items": items})
}
