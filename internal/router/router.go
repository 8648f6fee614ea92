package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warungpos/api/internal/auth"
	"github.com/warungpos/api/internal/config"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/handler"
	"github.com/warungpos/api/internal/middleware"
	"github.com/warungpos/api/internal/service"
	"github.com/warungpos/api/internal/ws"
)

// New wires the full HTTP surface: services over the pool, handlers over the
// services, and the WebSocket entry point.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub) http.Handler {
	queries := database.New(pool)
	pins := auth.NewPinVerifier(queries)
	audit := service.NewAuditLogger(queries)

	// Store factories hand services a transaction-scoped store; a nil DBTX
	// falls back to the shared pool for plain reads.
	orderStore := func(db database.DBTX) service.OrderStore {
		if db == nil {
			return queries
		}
		return database.New(db)
	}
	pricingStore := func(db database.DBTX) service.PricingStore {
		if db == nil {
			return queries
		}
		return database.New(db)
	}
	settlementStore := func(db database.DBTX) service.SettlementStore {
		if db == nil {
			return queries
		}
		return database.New(db)
	}
	kitchenStore := func(db database.DBTX) service.KitchenStore {
		if db == nil {
			return queries
		}
		return database.New(db)
	}

	orders := service.NewOrderService(pool, orderStore, pins, audit, hub)
	pricing := service.NewPricingService(pool, pricingStore, pins, audit, hub)
	settlement := service.NewSettlementService(pool, settlementStore, audit, hub)
	kitchen := service.NewKitchenService(kitchenStore, hub)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(orders, pricing)
	settlementHandler := handler.NewSettlementHandler(settlement)
	kitchenHandler := handler.NewKitchenHandler(kitchen)
	voucherHandler := handler.NewVoucherHandler(pricing)
	productHandler := handler.NewProductHandler(queries)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// WebSocket join is authenticated by token query param inside ServeWS;
	// browsers cannot set headers on WS dials.
	r.Get("/ws/rooms/{room}", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, req)
	})

	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.JWTSecret))

			productHandler.RegisterRoutes(r)
			voucherHandler.RegisterRoutes(r)

			// Item status changes come from the kitchen display, not the
			// cashier terminals.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enum.UserRoleKitchen, enum.UserRoleManager, enum.UserRoleOwner))
				kitchenHandler.RegisterRoutes(r)
			})
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				settlementHandler.RegisterRoutes(r)
				kitchenHandler.RegisterOrderRoutes(r)
			})
		})
	})

	return r
}
