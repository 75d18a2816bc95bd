package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k-cafe/api/internal/config"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/handler"
	mw "github.com/k-cafe/api/internal/middleware"
	"github.com/k-cafe/api/internal/mirror"
	"github.com/k-cafe/api/internal/service"
	"github.com/k-cafe/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware
// as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, m *mirror.Mirror, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // till dev server
			"https://pos.k-cafe.uz", // production terminals
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	newStore := func(db database.DBTX) service.Store {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newStore, m)
	tableService := service.NewTableService(queries, m, cfg.PinnedTableNumbers)
	menuService := service.NewMenuService(queries, m)

	// Handlers
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	tableHandler := handler.NewTableHandler(tableService, queries)
	menuHandler := handler.NewMenuHandler(menuService, queries)
	staffHandler := handler.NewStaffHandler(queries)
	expenseHandler := handler.NewExpenseHandler(queries)
	debtorHandler := handler.NewDebtorHandler(queries)
	settingsHandler := handler.NewSettingsHandler(queries)
	reportsHandler := handler.NewReportsHandler(queries)
	notificationHandler := handler.NewNotificationHandler(queries)
	userHandler := handler.NewUserHandler(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			orderHandler.RegisterRoutes(r)
			tableHandler.RegisterRoutes(r)
			menuHandler.RegisterRoutes(r)
			settingsHandler.RegisterRoutes(r)

			// Manager-and-up routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))

				staffHandler.RegisterRoutes(r)
				expenseHandler.RegisterRoutes(r)
				debtorHandler.RegisterRoutes(r)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))

				orderHandler.RegisterAdminRoutes(r)
				tableHandler.RegisterAdminRoutes(r)
				menuHandler.RegisterAdminRoutes(r)
				settingsHandler.RegisterAdminRoutes(r)
				reportsHandler.RegisterRoutes(r)
				notificationHandler.RegisterRoutes(r)
				userHandler.RegisterRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
