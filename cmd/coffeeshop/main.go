package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/cart"
	"github.com/a-berezin/coffeeshop/internal/config"
	"github.com/a-berezin/coffeeshop/internal/customer"
	"github.com/a-berezin/coffeeshop/internal/db"
	"github.com/a-berezin/coffeeshop/internal/discount"
	coffeeHttp "github.com/a-berezin/coffeeshop/internal/handler/http"
	"github.com/a-berezin/coffeeshop/internal/menu"
	"github.com/a-berezin/coffeeshop/internal/order"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "coffeeshop").Logger()

	log.Info().Msg("Coffeeshop service starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	menuRepo := menu.NewRepository(dbConn.Pool)
	customerRepo := customer.NewRepository(dbConn.Pool)
	discountRepo := discount.NewRepository(dbConn.Pool)
	cartRepo := cart.NewRepository(dbConn.Pool)
	orderRepo := order.NewRepository(dbConn.Pool)

	menuSvc := menu.NewService(menuRepo)
	customerSvc := customer.NewService(customerRepo)
	discountSvc := discount.NewService(discountRepo, orderRepo)
	cartSvc := cart.NewService(cartRepo, menuRepo, discountSvc)
	orderSvc := order.NewService(orderRepo, cartSvc, discountSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	coffeeHttp.NewMenuHandler(menuSvc).RegisterRoutes(router)
	coffeeHttp.NewCustomerHandler(customerSvc).RegisterRoutes(router)
	coffeeHttp.NewDiscountHandler(discountSvc).RegisterRoutes(router)
	coffeeHttp.NewCartHandler(cartSvc).RegisterRoutes(router)
	coffeeHttp.NewOrderHandler(orderSvc).RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Coffeeshop service stopped gracefully.")
}
