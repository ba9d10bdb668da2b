// Package module assembles the meta endpoints under /meta
package module

import (
	"context"
	"net/http"

	"meterbox/internal/modkit"
	"meterbox/internal/modkit/httpkit"
	"meterbox/internal/platform/strings"
	metahttp "meterbox/internal/services/api/meta/http"
)

// Options carries the readiness probe the meta module reports on
type Options struct {
	Ready func(context.Context) error
}

// Module serves health, readiness, and version endpoints
type Module struct {
	name   string
	prefix string
	mw     []func(http.Handler) http.Handler
	ready  func(context.Context) error
}

// New builds the meta module
func New(deps modkit.Deps, o Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	return &Module{
		name:   b.Name,
		prefix: strings.MustPrefix(b.Prefix),
		mw:     b.Mw,
		ready:  o.Ready,
	}
}

// MountRoutes mounts the meta routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(mr httpkit.Router) {
		for _, mw := range m.mw {
			mr.Use(mw)
		}
		metahttp.Register(mr, m.ready)
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns nil; meta exposes nothing for cross wiring
func (m *Module) Ports() any { return nil }
