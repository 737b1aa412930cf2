package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/auth"
	"github.com/example/room-reservations/internal/config"
	httptransport "github.com/example/room-reservations/internal/http"
	"github.com/example/room-reservations/internal/logging"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stdout, "info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL, now)
	auditor := audit.NewRecorder(newAuditStoreAdapter(storage), idGenerator, now, logger)
	notifier := notify.NewLogNotifier(logger)

	reservationService := application.NewReservationServiceWithLogger(storage, storage, storage, auditor, notifier, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(storage, storage, auditor, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(storage, tokens, auditor, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(storage, storage, auditor, now, logger)
	adminService := application.NewAdminServiceWithLogger(storage, storage, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, reservationService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Users:        httptransport.NewUserHandler(userService, reservationService, logger),
		Admin:        httptransport.NewAdminHandler(roomService, reservationService, userService, adminService, logger),
		Authenticate: httptransport.RequireAuth(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// auditStoreAdapter bridges the audit package's store seam onto the SQLite
// audit repository.
type auditStoreAdapter struct {
	repo persistence.AuditRepository
}

func newAuditStoreAdapter(repo persistence.AuditRepository) *auditStoreAdapter {
	return &auditStoreAdapter{repo: repo}
}

func (a *auditStoreAdapter) InsertEntry(ctx context.Context, id string, entry audit.Entry) error {
	return a.repo.InsertAuditLog(ctx, persistence.AuditLog{
		ID:         id,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		RecordedAt: entry.RecordedAt,
	})
}
