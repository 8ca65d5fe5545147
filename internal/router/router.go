package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daway0/pors/internal/config"
	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/directory"
	"github.com/daway0/pors/internal/handler"
	"github.com/daway0/pors/internal/jcal"
	mw "github.com/daway0/pors/internal/middleware"
	"github.com/daway0/pors/internal/service"
	"github.com/daway0/pors/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, the system open/closed gate, and admin-only
// middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notifier service.Notifier) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
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

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders/{date}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	clock := jcal.NewClock()
	locations := directory.NewResolver(queries)

	orderService := service.NewOrderService(
		pool,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		queries, clock, hub, locations,
	)
	menuService := service.NewMenuService(
		pool,
		func(db database.DBTX) service.MenuStore { return database.New(db) },
		queries, clock,
	)
	calendarService := service.NewCalendarService(
		pool,
		func(db database.DBTX) service.CalendarStore { return database.New(db) },
	)
	deadlineService := service.NewDeadlineService(
		pool, pool,
		func(db database.DBTX) service.DeadlineStore { return database.New(db) },
		queries, clock, notifier,
	)

	// Protected routes (require authentication; mutations also require the
	// system to be open for the caller's role)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.SystemOpen(queries))

		handler.NewOrderHandler(orderService).RegisterRoutes(r)
		handler.NewMenuHandler(menuService, queries).RegisterRoutes(r)
		handler.NewCalendarHandler(calendarService, queries).RegisterRoutes(r)
		handler.NewDeadlineHandler(deadlineService).RegisterRoutes(r)
		handler.NewDirectoryHandler(queries).RegisterRoutes(r)

		// Reports (admin only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			handler.NewReportHandler(queries).RegisterRoutes(r)
		})
	})

	return r
}
