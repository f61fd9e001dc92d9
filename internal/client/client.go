// Package client speaks the bar server's REST and websocket contract on
// behalf of a POS terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"bargalileo/internal/domain"
)

// CSRFCookie is the double-submit cookie the server issues on safe requests;
// mutating requests echo its value in the X-CSRFToken header.
const CSRFCookie = "csrftoken"

type Client struct {
	base *url.URL
	http *http.Client

	// TerminalID tags requests in server logs; it carries no auth meaning.
	TerminalID string
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: bad base url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{base: u, http: &http.Client{
		Jar: jar,
		// Form endpoints answer with a redirect to the rendered board;
		// the terminal has no use for the HTML.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}, nil
}

// MesaPedido fetches mesa name, current order, catalog and pending
// reservations: the whole editing-session bootstrap in one call.
func (c *Client) MesaPedido(ctx context.Context, mesaID int) (*domain.MesaPedido, error) {
	var out domain.MesaPedido
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/mesas/%d/pedido/", mesaID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Mesas(ctx context.Context) ([]domain.Mesa, error) {
	var out struct {
		Mesas []domain.Mesa `json:"mesas"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/mesas/", nil, &out); err != nil {
		return nil, err
	}
	return out.Mesas, nil
}

func (c *Client) Users(ctx context.Context) ([]domain.Usuario, error) {
	var out struct {
		Users []domain.Usuario `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) AgregarItem(ctx context.Context, mesaID, productoID, cantidad int) (*domain.Pedido, error) {
	body := map[string]int{"mesa_id": mesaID, "producto_id": productoID, "cantidad": cantidad}
	return c.pedidoCall(ctx, http.MethodPost, "/api/pedidos/agregar-item/", body)
}

func (c *Client) ActualizarItem(ctx context.Context, itemID, cantidad int) (*domain.Pedido, error) {
	body := map[string]int{"cantidad": cantidad}
	return c.pedidoCall(ctx, http.MethodPatch, fmt.Sprintf("/api/pedidos/actualizar-item/%d/", itemID), body)
}

func (c *Client) EliminarItem(ctx context.Context, itemID int) (*domain.Pedido, error) {
	return c.pedidoCall(ctx, http.MethodDelete, fmt.Sprintf("/api/pedidos/eliminar-item/%d/", itemID), nil)
}

// ManageUser attaches or detaches a customer; action is "add" or "remove".
func (c *Client) ManageUser(ctx context.Context, pedidoID, userID int, action string) error {
	body := map[string]any{"user_id": userID, "action": action}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/pedidos/%d/usuarios/", pedidoID), body, nil)
}

func (c *Client) Facturar(ctx context.Context, pedidoID int) (*domain.FacturaResult, error) {
	var out domain.FacturaResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/pedidos/%d/facturar/", pedidoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liberar force-releases a mesa (form semantics server-side; the server
// answers with a redirect that we don't follow into the HTML page).
func (c *Client) Liberar(ctx context.Context, mesaID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/mesas/%d/liberar/", mesaID), nil, nil)
}

func (c *Client) CambiarEstado(ctx context.Context, mesaID int, estado string) error {
	body := map[string]string{"estado": estado}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/mesas/%d/estado/", mesaID), body, nil)
}

func (c *Client) pedidoCall(ctx context.Context, method, path string, body any) (*domain.Pedido, error) {
	var out struct {
		Pedido domain.Pedido `json:"pedido"`
	}
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Pedido, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.TerminalID != "" {
		req.Header.Set("X-Terminal-ID", c.TerminalID)
	}
	if method != http.MethodGet {
		if tok := c.csrfToken(); tok != "" {
			req.Header.Set("X-CSRFToken", tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.APIError{Status: 0, Message: ""}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.APIError{Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Redirects on form endpoints are success for our purposes.
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			return nil
		}
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &domain.APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.APIError{Status: resp.StatusCode}
		}
	}
	return nil
}

func (c *Client) csrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}
