package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/recovery/internal/http/dto"
	"github.com/dropDatabas3/recovery/internal/http/helpers"
)

// Pinger es cualquier dependencia que sepa decir si está viva.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController atiende GET /healthz.
type HealthController struct {
	checks map[string]Pinger
}

func NewHealthController(checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks}
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, p := range c.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	helpers.WriteJSON(w, status, resp)
}
