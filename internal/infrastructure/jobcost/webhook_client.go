// Package jobcost avisa al sistema de órdenes de trabajo que debe recalcular los costos de una OT
// tras recibir mercancía comprada para ella.
package jobcost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/taller-compras/internal/application/procurement"
)

// Verificar en tiempo de compilación que ambos adaptadores implementan JobCostHook.
var (
	_ procurement.JobCostHook = (*WebhookClient)(nil)
	_ procurement.JobCostHook = Noop{}
)

// WebhookClient adaptador HTTP del JobCostHook: POST JSON {"job_id": "..."} a una URL fija.
// Usa net/http de la librería estándar; el receptor es un endpoint interno sin SDK.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient construye el adaptador. timeout <= 0 toma 5 s.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookClient{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type recomputeRequest struct {
	JobID string `json:"job_id"`
}

// RecomputeLinkedJobCosts envía el aviso. Cualquier respuesta fuera de 2xx es error.
func (c *WebhookClient) RecomputeLinkedJobCosts(ctx context.Context, jobID string) error {
	if c.url == "" {
		return fmt.Errorf("jobcost: JOBCOST_WEBHOOK_URL no configurado")
	}
	body, err := json.Marshal(recomputeRequest{JobID: jobID})
	if err != nil {
		return fmt.Errorf("jobcost: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jobcost: crear HTTP request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("jobcost: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("jobcost: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("jobcost: OT %s: HTTP %d: %s", jobID, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return nil
}

// Noop JobCostHook sin destino configurado.
type Noop struct{}

// RecomputeLinkedJobCosts no hace nada.
func (Noop) RecomputeLinkedJobCosts(context.Context, string) error { return nil }
