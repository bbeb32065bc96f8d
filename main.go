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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"browntable/internal/auth"
	"browntable/internal/config"
	"browntable/internal/coordinator"
	coordapi "browntable/internal/coordinator/api"
	coorddb "browntable/internal/coordinator/db"
	"browntable/internal/database"
	"browntable/internal/database/migrations"
	"browntable/internal/groups"
	groupsapi "browntable/internal/groups/api"
	groupsdb "browntable/internal/groups/db"
	"browntable/internal/identity"
	identityapi "browntable/internal/identity/api"
	identitydb "browntable/internal/identity/db"
	"browntable/internal/kafka"
	"browntable/internal/logger"
	"browntable/internal/menu"
	"browntable/internal/orders"
	ordersapi "browntable/internal/orders/api"
	ordersdb "browntable/internal/orders/db"
	"browntable/internal/tables"
	tablesdb "browntable/internal/tables/db"
	tablesredis "browntable/internal/tables/redis"
	"browntable/internal/utils"
	"browntable/internal/weather"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", "No .env file found, using environment variables")
	}
	cfg := config.Load()

	bunDB, err := database.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns, cfg.Database.MaxLifetime, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.Up(); err != nil {
		log.Fatal("DATABASE", "Migrations failed: "+err.Error())
	}
	log.Info("DATABASE", "Migrations up to date")

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
	}
	defer rdb.Close()
	log.Info("REDIS", "Connected to "+cfg.Redis.Addr)

	var publisher kafka.Publisher
	switch {
	case !cfg.Kafka.Enabled || cfg.Kafka.MockMode:
		log.Warn("KAFKA", "Running with mock producer; events are dropped")
		publisher = kafka.MockProducer{}
	default:
		topics := []string{
			cfg.Kafka.Topics.ReservationConfirmed,
			cfg.Kafka.Topics.ReservationCancelled,
			cfg.Kafka.Topics.OrderUpdated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Fatal("KAFKA", "Topic bootstrap failed: "+err.Error())
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Producer ready (brokers: %v)", cfg.Kafka.Brokers))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	tableLock := tablesredis.NewTableLock(rdb, cfg.Redis.TableLockTTL)

	identityDB := identitydb.NewIdentityDB(bunDB)
	groupDB := groupsdb.NewGroupDB(bunDB)
	orderDB := ordersdb.NewOrderDB(bunDB)
	tableDB := tablesdb.NewTableDB(bunDB)
	coordDB := coorddb.NewCoordinatorDB(bunDB)

	identitySvc := identity.NewService(identityDB, tokenManager, log)
	orderSvc := orders.NewService(orderDB, groupDB, publisher, cfg.Kafka.Topics.OrderUpdated, log)
	groupSvc := groups.NewService(groupDB, identityDB, orderSvc, log, cfg.Frontend.URL)
	tableSvc := tables.NewService(tableDB, log)
	weatherSvc := weather.NewService(bunDB, log)
	menuSvc := menu.NewService(bunDB)
	coordSvc := coordinator.NewService(coordDB, tableDB, orderDB, tableLock, publisher, coordinator.Topics{
		ReservationConfirmed: cfg.Kafka.Topics.ReservationConfirmed,
		ReservationCancelled: cfg.Kafka.Topics.ReservationCancelled,
	}, log)

	identityHandler := identityapi.NewHandler(identitySvc, log)
	groupHandler := groupsapi.NewHandler(groupSvc, orderSvc, log)
	orderHandler := ordersapi.NewHandler(orderSvc, log)
	adminHandler := coordapi.NewHandler(coordSvc, tableSvc, orderSvc, weatherSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.WriteJSON(w, http.StatusOK, "OK", map[string]string{"service": "brown-table"})
		})
		r.Mount("/auth", identityHandler.Routes(tokenManager))
		r.Mount("/groups", groupHandler.Routes(tokenManager, identitySvc))
		r.Mount("/invites", groupHandler.InviteRoutes(tokenManager, identitySvc, identitySvc))
		r.Mount("/orders", orderHandler.Routes(tokenManager, identitySvc))
		r.Mount("/admin", adminHandler.Routes(tokenManager))
		r.Mount("/weather", weatherSvc.Routes(tokenManager))
		r.Get("/menu", menuSvc.SectionsHandler)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "The Brown Table API listening on port "+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("SERVER", "Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("SERVER", "Forced shutdown: "+err.Error())
	}
	log.Info("SERVER", "Stopped")
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path,
				fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
		})
	}
}
