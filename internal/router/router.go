package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dropline/vendor-console/internal/config"
	"github.com/dropline/vendor-console/internal/handler"
	"github.com/dropline/vendor-console/internal/live"
	"github.com/dropline/vendor-console/internal/metrics"
	mw "github.com/dropline/vendor-console/internal/middleware"
	"github.com/dropline/vendor-console/internal/service"
	"github.com/dropline/vendor-console/internal/vendorapi"
	"github.com/dropline/vendor-console/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Every protected route acts on the platform as the session's vendor.
func New(cfg *config.Config, platform *vendorapi.Client, bulkSvc *service.BulkService, hub *ws.Hub, tracker *live.Tracker, reg *metrics.Registry) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", reg.Handler())

	authHandler := handler.NewAuthHandler(platform, cfg.JWTSecret, cfg.SessionTTL)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/live", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require a vendor session)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireVendor)

		authHandler.RegisterSessionRoutes(r)

		storeHandler := handler.NewStoreHandler(func(token string) handler.StoreUpstream {
			return platform.WithToken(token)
		})
		r.Route("/stores", storeHandler.RegisterRoutes)

		riderHandler := handler.NewRiderHandler(func(token string) handler.RiderUpstream {
			return platform.WithToken(token)
		})
		r.Route("/riders", riderHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(func(token string) handler.OrderUpstream {
			return platform.WithToken(token)
		}, tracker, cfg.BulkDefaultVehicle)
		bulkHandler := handler.NewBulkHandler(bulkSvc)
		r.Route("/orders", func(r chi.Router) {
			bulkHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
		})

		dashboardHandler := handler.NewDashboardHandler(func(token string) handler.DashboardUpstream {
			return platform.WithToken(token)
		})
		dashboardHandler.RegisterRoutes(r)

		reportsHandler := handler.NewReportsHandler(func(token string) handler.ReportUpstream {
			return platform.WithToken(token)
		})
		r.Route("/reports", reportsHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
