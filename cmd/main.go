// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/coupon"
	"github.com/caiomelo/ticketeer/internal/database"
	"github.com/caiomelo/ticketeer/internal/handler"
	"github.com/caiomelo/ticketeer/internal/inventory"
	"github.com/caiomelo/ticketeer/internal/service"
	"github.com/caiomelo/ticketeer/internal/store"
	"github.com/caiomelo/ticketeer/internal/store/memory"
	"github.com/caiomelo/ticketeer/internal/store/postgres"
	"github.com/caiomelo/ticketeer/internal/ticket"
)

func main() {
	ctx := context.Background()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// ── 1. Pick the store: PostgreSQL, or in-memory for local runs ────────
	var st store.Store
	if getEnv("STORE_DRIVER", "postgres") == "memory" {
		st = memory.New()
		log.Info("using in-memory store")
	} else {
		pool, err := database.NewPool(ctx)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		st = postgres.New(pool)
		log.Info("connected to postgres")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	invCtl := inventory.NewController(st.Events())
	validator := coupon.NewValidator(st.Coupons(), clk)
	orch := ticket.NewOrchestrator(st.Tickets(), st.Users(), st.Events(), invCtl, validator, clk, log)
	lifecycle := ticket.NewLifecycle(st.Tickets(), invCtl, log)

	userSvc := service.NewUserService(st.Users(), clk)
	eventSvc := service.NewEventService(st.Events(), st.Users(), clk)
	couponSvc := service.NewCouponService(st.Coupons(), st.Users(), st.Events(), validator, clk)
	ticketSvc := service.NewTicketService(st.Tickets(), orch, lifecycle)

	h := handler.New(userSvc, eventSvc, couponSvc, ticketSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.AccessLog(log))  // structured access log
	r.Use(handler.CORS)            // permissive CORS

	r.Get("/health", handler.HealthCheck)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Post("/validate", h.ValidateCoupon)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", h.IssueTicket)
		r.Get("/", h.ListTickets)
		r.Get("/{id}", h.GetTicket)
		r.Put("/{id}", h.UpdateTicket)
		r.Delete("/{id}", h.DeleteTicket)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
