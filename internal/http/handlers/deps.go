package handlers

import (
	"github.com/jmoiron/sqlx"

	"bargalileo/internal/repos"
	"bargalileo/internal/services"
	"bargalileo/internal/ws"
)

type Deps struct {
	PedidoHandler *PedidoHandler
	MesaHandler   *MesaHandler
	UserHandler   *UserHandler
}

func NewDeps(db *sqlx.DB, hub *ws.Hub) *Deps {
	mesaRepo := repos.NewMesaRepo(db)
	prodRepo := repos.NewProductoRepo(db)
	pedidoRepo := repos.NewPedidoRepo(db)
	facturaRepo := repos.NewFacturaRepo(db)
	userRepo := repos.NewUserRepo(db)

	orderSvc := services.NewOrderService(db, mesaRepo, prodRepo, pedidoRepo, facturaRepo, userRepo)
	tableSvc := services.NewTableService(mesaRepo, pedidoRepo)

	return &Deps{
		PedidoHandler: &PedidoHandler{Order: orderSvc, Hub: hub},
		MesaHandler:   &MesaHandler{Tables: tableSvc, Facturas: facturaRepo},
		UserHandler:   &UserHandler{Users: userRepo},
	}
}
