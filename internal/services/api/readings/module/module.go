// Package module assembles the readings vertical: repo, service, and routes
package module

import (
	"net/http"

	"meterbox/internal/core/extract"
	"meterbox/internal/modkit"
	"meterbox/internal/modkit/httpkit"
	readhttp "meterbox/internal/services/api/readings/http"
	"meterbox/internal/services/api/readings/repo"
	"meterbox/internal/services/api/readings/service"
)

// Module wires the readings feature into the API
type Module struct {
	name   string
	prefix string
	mw     []func(http.Handler) http.Handler

	svc   *service.Svc
	ports Ports
}

// New builds the readings module from shared deps and its own collaborators
func New(deps modkit.Deps, o Options, opts ...modkit.Option) *Module {
	svc := service.New(
		deps.PG,
		repo.NewPG(),
		o.Vision,
		o.Images,
		extract.New(o.Sentinel),
	)

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("readings"),
		modkit.WithPrefix("/"),
	}, opts...)...)

	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mw:     b.Mw,
		svc:    svc,
		ports:  Ports{Readings: svc},
	}
}

// MountRoutes mounts the readings endpoints. The module owns the API root:
// its paths carry no feature prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	mount := func(mr httpkit.Router) {
		for _, mw := range m.mw {
			mr.Use(mw)
		}
		readhttp.Register(mr, m.svc)
	}
	if m.prefix == "" || m.prefix == "/" {
		mount(r)
		return
	}
	r.Route(m.prefix, mount)
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports exposes the service port for cross-module wiring
func (m *Module) Ports() any { return m.ports }
