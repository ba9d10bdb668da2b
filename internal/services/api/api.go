// Package api composes the HTTP surface of the meter reading service
package api

import (
	"context"

	"meterbox/internal/adapters/blob"
	"meterbox/internal/modkit"
	"meterbox/internal/modkit/httpkit"
	"meterbox/internal/modkit/module"
	"meterbox/internal/modkit/repokit"
	"meterbox/internal/modkit/swaggerkit"
	"meterbox/internal/platform/config"
	"meterbox/internal/platform/logger"
	metamod "meterbox/internal/services/api/meta/module"
	"meterbox/internal/services/api/readings/domain"
	readmod "meterbox/internal/services/api/readings/module"
)

// Options carries everything Mount needs to assemble the API
type Options struct {
	Cfg config.Conf
	Log logger.Logger
	DB  repokit.TxRunner

	Vision   domain.Recognizer
	Images   *blob.FS
	Sentinel string

	// Ready reports dependency readiness for the /meta/readyz probe
	Ready func(context.Context) error

	// Swagger toggles the interactive docs at /api/docs
	Swagger bool
}

// Mount registers every module, the docs, and the image file server on r.
// It returns the mounted modules so main can log what came up
func Mount(r httpkit.Router, o Options) []module.Module {
	deps := modkit.Deps{Log: o.Log, Cfg: o.Cfg, PG: o.DB}

	readings := readmod.New(deps, readmod.Options{
		Vision:   o.Vision,
		Images:   o.Images,
		Sentinel: o.Sentinel,
	})
	meta := metamod.New(deps, metamod.Options{Ready: o.Ready})

	mods := []module.Module{meta, readings}

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(apiR httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(apiR)
		}
	})

	for _, m := range mods {
		if p := m.Ports(); p != nil {
			module.Register(m.Name(), p)
		}
	}

	swaggerkit.Mount(r, o.Swagger)

	if o.Images != nil {
		r.Handle(o.Images.URLPrefix()+"/*", o.Images.Handler())
	}

	return mods
}
