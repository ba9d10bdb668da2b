// Package http mounts the service meta endpoints
package http

import (
	"context"
	nethttp "net/http"

	"meterbox/internal/core/version"
	"meterbox/internal/modkit/httpkit"
	perr "meterbox/internal/platform/errors"
)

type handlers struct {
	ready func(context.Context) error
}

// Register mounts health, readiness, and version routes on r
func Register(r httpkit.Router, ready func(context.Context) error) {
	h := &handlers{ready: ready}

	httpkit.Get(r, "/healthz", h.health)
	httpkit.Get(r, "/readyz", h.readyz)
	httpkit.Get(r, "/version", h.version)
}

func (h *handlers) health(*nethttp.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

func (h *handlers) readyz(r *nethttp.Request) (any, error) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			return nil, perr.Unavailablef("dependency not ready")
		}
	}
	return map[string]string{"status": "ready"}, nil
}

func (h *handlers) version(*nethttp.Request) (any, error) {
	return version.Info(), nil
}
