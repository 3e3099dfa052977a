package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/googleplaces"
	"flex_reviews/internal/adapters/hostaway"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/observability"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage/memory"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	// approval store + cache: redis when configured, in-process otherwise
	var (
		approvals domain.ApprovalStore
		cache     domain.Cache
	)
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		approvals = redisad.NewApprovalStore(rc)
		cache = redisad.NewCache(rc)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis approval store")
	} else {
		approvals = memory.NewApprovalStore()
		cache = memory.NewCache()
		log.Info().Msg("using in-memory approval store")
	}

	// upstream clients; missing credentials mean fixture mode
	var upstream domain.UpstreamClient
	if cfg.HostawayAccountID != "" && cfg.HostawayAPIKey != "" {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayAPIKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("hostaway client init failed")
		}
		upstream = c
	}
	var places domain.PlacesClient
	if cfg.PlacesAPIKey != "" && len(cfg.PlaceIDs) > 0 {
		c, err := googleplaces.New(cfg.PlacesBase, cfg.PlacesAPIKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("places client init failed")
		}
		places = c
	}

	feed := app.NewReviewFeed(upstream, places, cfg.PlaceIDs, hostaway.Fixtures(), cache, cfg.CacheTTL, cfg.FetchWorkers)
	q := app.NewQueryService(feed, approvals)
	m := app.NewModerationService(feed, approvals)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, M: m})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
