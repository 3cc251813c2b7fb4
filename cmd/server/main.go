package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/config"
	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/journal"
	"github.com/dropline/vendor-console/internal/live"
	"github.com/dropline/vendor-console/internal/metrics"
	"github.com/dropline/vendor-console/internal/router"
	"github.com/dropline/vendor-console/internal/service"
	"github.com/dropline/vendor-console/internal/vendorapi"
	"github.com/dropline/vendor-console/internal/ws"
)

// Rider positions older than this are treated as unknown.
const positionMaxAge = 2 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	schema, err := bulk.SchemaByName(cfg.BulkSchema)
	if err != nil {
		log.Fatalf("invalid BULK_SCHEMA: %v", err)
	}
	duplicates, err := bulk.ParseDuplicatePolicy(cfg.BulkDuplicateStores)
	if err != nil {
		log.Fatalf("invalid BULK_DUPLICATE_STORES: %v", err)
	}
	if !enum.IsVehicleType(cfg.BulkDefaultVehicle) {
		log.Fatalf("invalid BULK_DEFAULT_VEHICLE: %q", cfg.BulkDefaultVehicle)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	platform := vendorapi.New(vendorapi.Options{
		BaseURL:  cfg.UpstreamBaseURL,
		Timeout:  cfg.UpstreamTimeout,
		Retries:  cfg.UpstreamRetries,
		Observer: reg.ObserveUpstream,
	})

	var j journal.Journal = journal.Nop{}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("ping database: %v", err)
		}
		pg := journal.NewPG(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure journal schema: %v", err)
		}
		j = pg
		log.Println("Bulk submission journal enabled")
	} else {
		log.Println("WARN: DATABASE_URL not set, bulk submissions are not journaled")
	}

	hub := ws.NewHub()
	hub.OnClientCount = func(n int) { reg.HubClients.Set(float64(n)) }
	go hub.Run(ctx)

	tracker := live.NewTracker(positionMaxAge)
	relay := &live.Relay{
		Tracker: tracker,
		Hub:     hub,
		OnEvent: func(eventType string) { reg.LiveEvents.WithLabelValues(eventType).Inc() },
	}

	var stream *live.Stream
	streamDone := make(chan struct{})
	if cfg.LiveStreamURL != "" {
		stream = live.NewStream(cfg.LiveStreamURL, cfg.LiveStreamToken, relay)
		stream.OnConnected = func(up bool) {
			if up {
				reg.LiveConnected.Set(1)
				return
			}
			reg.LiveConnected.Set(0)
		}
		go func() {
			defer close(streamDone)
			if err := stream.Run(ctx); err != nil && !errors.Is(err, live.ErrClosed) {
				log.Printf("ERROR: live stream stopped: %v", err)
			}
		}()
	} else {
		close(streamDone)
		log.Println("WARN: LIVE_STREAM_URL not set, live tracking disabled")
	}

	bulkSvc := service.NewBulkService(
		service.BulkConfig{Schema: schema, Duplicates: duplicates, DefaultVehicle: cfg.BulkDefaultVehicle},
		bulk.NewRegistry(cfg.SessionTTL),
		func(token string) service.BulkUpstream { return platform.WithToken(token) },
		j, hub, reg,
	)

	r := router.New(cfg, platform, bulkSvc, hub, tracker, reg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: http shutdown: %v", err)
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Printf("WARN: close live stream: %v", err)
		}
	}
	<-streamDone
	<-hub.Done()
}
