package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bargalileo/internal/domain"
	applog "bargalileo/internal/log"
	"bargalileo/internal/services"
	"bargalileo/internal/validate"
	"bargalileo/internal/ws"
)

// PedidoHandler exposes the JSON order API the terminals consume. Every
// confirmed mutation answers with the authoritative pedido and broadcasts
// the stock delta after the response semantics are settled.
type PedidoHandler struct {
	Order *services.OrderService
	Hub   *ws.Hub
}

// apiError maps a service error onto the {error: msg} wire shape. Unknown
// errors become an opaque 500.
func apiError(c *fiber.Ctx, action string, err error) error {
	var ae *domain.APIError
	if errors.As(err, &ae) {
		applog.Security(c, action, map[string]any{"error": ae.Message})
		return c.Status(ae.Status).JSON(fiber.Map{"error": ae.Message})
	}
	applog.Error(c, action, err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": domain.ErrGenerico})
}

// MesaPedido answers GET /api/mesas/:id/pedido/.
func (h *PedidoHandler) MesaPedido(c *fiber.Ctx) error {
	mesaID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mesa inválida"})
	}
	mp, err := h.Order.MesaPedido(mesaID)
	if err != nil {
		return apiError(c, "pedido.bootstrap.fail", err)
	}
	return c.JSON(mp)
}

// Agregar answers POST /api/pedidos/agregar-item/.
func (h *PedidoHandler) Agregar(c *fiber.Ctx) error {
	var body struct {
		MesaID     int `json:"mesa_id"`
		ProductoID int `json:"producto_id"`
		Cantidad   int `json:"cantidad"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Datos inválidos"})
	}
	if body.Cantidad == 0 {
		body.Cantidad = 1
	}

	pedido, delta, err := h.Order.AgregarItem(body.MesaID, body.ProductoID, body.Cantidad)
	if err != nil {
		return apiError(c, "pedido.agregar.fail", err)
	}

	applog.Audit(c, "pedido.agregar", map[string]any{
		"mesa_id": body.MesaID, "producto_id": body.ProductoID, "cantidad": body.Cantidad,
	})
	h.Hub.BroadcastStock(delta, c.Get("X-Terminal-ID"))
	return c.JSON(fiber.Map{"pedido": pedido})
}

// Actualizar answers PATCH /api/pedidos/actualizar-item/:id/.
func (h *PedidoHandler) Actualizar(c *fiber.Ctx) error {
	itemID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Item inválido"})
	}
	var body struct {
		Cantidad *int `json:"cantidad"`
	}
	if err := c.BodyParser(&body); err != nil || body.Cantidad == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cantidad no válida"})
	}

	pedido, delta, err := h.Order.ActualizarItem(itemID, *body.Cantidad)
	if err != nil {
		return apiError(c, "pedido.actualizar.fail", err)
	}

	applog.Audit(c, "pedido.actualizar", map[string]any{"item_id": itemID, "cantidad": *body.Cantidad})
	h.Hub.BroadcastStock(delta, c.Get("X-Terminal-ID"))
	return c.JSON(fiber.Map{"pedido": pedido})
}

// Eliminar answers DELETE /api/pedidos/eliminar-item/:id/.
func (h *PedidoHandler) Eliminar(c *fiber.Ctx) error {
	itemID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Item inválido"})
	}

	pedido, delta, err := h.Order.EliminarItem(itemID)
	if err != nil {
		return apiError(c, "pedido.eliminar.fail", err)
	}

	applog.Audit(c, "pedido.eliminar", map[string]any{"item_id": itemID})
	h.Hub.BroadcastStock(delta, c.Get("X-Terminal-ID"))
	return c.JSON(fiber.Map{"pedido": pedido})
}

// ManageUser answers POST /api/pedidos/:id/usuarios/.
func (h *PedidoHandler) ManageUser(c *fiber.Ctx) error {
	pedidoID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Pedido inválido"})
	}
	var body struct {
		UserID int    `json:"user_id"`
		Action string `json:"action"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Datos inválidos"})
	}
	action, ok := validate.UserAction(body.Action)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Datos inválidos"})
	}

	if err := h.Order.ManageUser(pedidoID, body.UserID, action); err != nil {
		return apiError(c, "pedido.usuarios.fail", err)
	}
	applog.Audit(c, "pedido.usuarios", map[string]any{"pedido_id": pedidoID, "user_id": body.UserID, "action": action})
	return c.JSON(fiber.Map{"success": true})
}

// Facturar answers POST /api/pedidos/:id/facturar/.
func (h *PedidoHandler) Facturar(c *fiber.Ctx) error {
	pedidoID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Pedido inválido"})
	}

	res, err := h.Order.Facturar(pedidoID)
	if err != nil {
		return apiError(c, "pedido.facturar.fail", err)
	}
	applog.Audit(c, "pedido.facturar", map[string]any{"pedido_id": pedidoID, "factura_url": res.FacturaURL})
	return c.JSON(res)
}
