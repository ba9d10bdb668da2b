// Command meterbox-api runs the meter reading HTTP service
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"meterbox/internal/adapters/blob"
	"meterbox/internal/adapters/vision/gemini"
	"meterbox/internal/core/extract"
	"meterbox/internal/modkit/repokit"
	"meterbox/internal/platform/config"
	"meterbox/internal/platform/logger"
	phttp "meterbox/internal/platform/net/http"
	"meterbox/internal/platform/net/http/bind"
	"meterbox/internal/platform/store"
	"meterbox/internal/services/api"
)

func main() {
	logger.Init(logger.FromEnv())
	log := logger.Get()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	visionCfg := root.Prefix("SERVICE_GEMINI_")

	bind.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "meterbox-api",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("URL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			SlowQueryMs: pgCfg.MayInt("SLOW_QUERY_MS", 250),
		},
	}, store.WithLogger(*log))
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer func() { _ = st.Close(context.Background()) }()

	repokit.MustGuard(ctx, st)

	vision := gemini.NewClient(gemini.Options{
		BaseURL:  visionCfg.MayString("BASE_URL", ""),
		APIKey:   visionCfg.MustString("API_KEY"),
		Model:    visionCfg.MayString("MODEL", ""),
		Timeout:  visionCfg.MayDuration("TIMEOUT", 15*time.Second),
		Sentinel: visionCfg.MayString("SENTINEL", extract.DefaultSentinel),
	})

	images, err := blob.NewFS(apiCfg.MayString("FILES_DIR", "./data/files"), "/files")
	if err != nil {
		log.Fatal().Err(err).Msg("image store init failed")
	}

	srv := phttp.NewServer(apiCfg)

	mods := api.Mount(srv.Router(), api.Options{
		Cfg:      apiCfg,
		Log:      *log,
		DB:       st.PG,
		Vision:   vision,
		Images:   images,
		Sentinel: visionCfg.MayString("SENTINEL", extract.DefaultSentinel),
		Ready:    st.Guard,
		Swagger:  apiCfg.MayBool("ENABLE_SWAGGER", false),
	})
	for _, m := range mods {
		log.Info().Str("module", m.Name()).Msg("module mounted")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutdown complete")
}
