// Package http mounts the readings endpoints
package http

import (
	nethttp "net/http"

	"meterbox/internal/modkit/httpkit"
	"meterbox/internal/services/api/readings/domain"

	"github.com/go-chi/chi/v5"
)

type handlers struct{ svc domain.ServicePort }

// Register mounts the readings routes on r
func Register(r httpkit.Router, svc domain.ServicePort) {
	h := &handlers{svc: svc}

	httpkit.PostJSON(r, "/upload", h.upload)

	// PATCH per the published contract; POST kept for clients that cannot
	// send PATCH through their proxy
	httpkit.PatchJSON(r, "/confirm", h.confirm)
	httpkit.PostJSON(r, "/confirm", h.confirm)

	httpkit.Get(r, "/{customer_code}/list", h.list)
}

func (h *handlers) upload(r *nethttp.Request, in domain.UploadInput) (any, error) {
	return h.svc.Upload(r.Context(), in)
}

func (h *handlers) confirm(r *nethttp.Request, in domain.ConfirmInput) (any, error) {
	return h.svc.Confirm(r.Context(), in)
}

func (h *handlers) list(r *nethttp.Request) (any, error) {
	customer := chi.URLParam(r, "customer_code")
	measureType := r.URL.Query().Get("measure_type")
	return h.svc.List(r.Context(), customer, measureType)
}
