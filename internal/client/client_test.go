package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bargalileo/internal/client"
	"bargalileo/internal/domain"
)

func TestMesaPedidoDecodesBootstrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mesas/3/pedido/" {
			t.Errorf("path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"mesa": map[string]any{"id": 3, "nombre": "Mesa 3", "estado": "ocupada"},
			"pedido": map[string]any{
				"id": 10,
				"items": []map[string]any{
					{"id": 1, "producto": map[string]any{"id": 7, "nombre": "Cerveza"}, "cantidad": 2, "precio_unitario": 3.5, "subtotal": 7.0},
				},
				"total": 7.0,
			},
			"productos": []map[string]any{
				{"id_producto": 7, "nombre": "Cerveza", "precio_venta": 3.5, "stock": 12},
			},
			"reservas_stock": map[string]int{"7": 2},
		})
	}))
	defer srv.Close()

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	mp, err := c.MesaPedido(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if mp.Mesa.Nombre != "Mesa 3" || mp.Pedido.ID != 10 {
		t.Fatalf("bootstrap %+v", mp)
	}
	if mp.ReservasStock[7] != 2 {
		t.Fatalf("reservas %v", mp.ReservasStock)
	}
	if len(mp.Productos) != 1 || mp.Productos[0].Stock != 12 {
		t.Fatalf("productos %+v", mp.Productos)
	}
}

func TestMutationsEchoCSRFCookie(t *testing.T) {
	var gotToken, gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: client.CSRFCookie, Value: "tok-123", Path: "/"})
			w.Write([]byte(`{"mesas":[]}`))
			return
		}
		gotToken = r.Header.Get("X-CSRFToken")
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"success":true,"pedido":{"id":1,"items":[],"total":0}}`))
	}))
	defer srv.Close()

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	// a GET primes the jar the way loading the board page does
	if _, err := c.Mesas(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := c.AgregarItem(context.Background(), 1, 7, 2); err != nil {
		t.Fatal(err)
	}
	if gotToken != "tok-123" {
		t.Fatalf("X-CSRFToken %q", gotToken)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/pedidos/agregar-item/" {
		t.Fatalf("%s %s", gotMethod, gotPath)
	}

	if _, err := c.ActualizarItem(context.Background(), 9, 4); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/pedidos/actualizar-item/9/" {
		t.Fatalf("%s %s", gotMethod, gotPath)
	}

	if _, err := c.EliminarItem(context.Background(), 9); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/pedidos/eliminar-item/9/" {
		t.Fatalf("%s %s", gotMethod, gotPath)
	}
}

func TestAgregarItemSendsBody(t *testing.T) {
	var body map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"pedido":{"id":1,"items":[],"total":0}}`))
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	if _, err := c.AgregarItem(context.Background(), 4, 7, 3); err != nil {
		t.Fatal(err)
	}
	if body["mesa_id"] != 4 || body["producto_id"] != 7 || body["cantidad"] != 3 {
		t.Fatalf("body %v", body)
	}
}

func TestErrorPayloadSurfacesVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Stock insuficiente para Cerveza. Disponible: 1"}`))
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	_, err := c.AgregarItem(context.Background(), 1, 7, 5)
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*domain.APIError)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if apiErr.Status != 400 || apiErr.Message != "Stock insuficiente para Cerveza. Disponible: 1" {
		t.Fatalf("%+v", apiErr)
	}
	if domain.UserMessage(err) != apiErr.Message {
		t.Fatal("UserMessage must surface the server message")
	}
}

func TestUnparseableErrorFallsBackToGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>panic</html>`))
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	_, err := c.Facturar(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.UserMessage(err) != domain.ErrGenerico {
		t.Fatalf("message %q", domain.UserMessage(err))
	}
}

func TestLiberarTreatsRedirectAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/mesas/5/liberar/" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		http.Redirect(w, r, "/mesas/", http.StatusFound)
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	if err := c.Liberar(context.Background(), 5); err != nil {
		t.Fatalf("redirect must be success: %v", err)
	}
}

func TestManageUserPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pedidos/10/usuarios/" {
			t.Errorf("path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	if err := c.ManageUser(context.Background(), 10, 3, "add"); err != nil {
		t.Fatal(err)
	}
	if body["action"] != "add" || body["user_id"].(float64) != 3 {
		t.Fatalf("body %v", body)
	}
}

func TestTerminalIDHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Terminal-ID")
		w.Write([]byte(`{"users":[]}`))
	}))
	defer srv.Close()

	c, _ := client.New(srv.URL)
	c.TerminalID = "term-9"
	if _, err := c.Users(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "term-9" {
		t.Fatalf("X-Terminal-ID %q", got)
	}
}
