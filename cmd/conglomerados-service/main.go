// Command conglomerados-service runs the forest-inventory cluster workflow
// service over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ifn-colombia/conglomerados/internal/clima"
	"github.com/ifn-colombia/conglomerados/internal/config"
	"github.com/ifn-colombia/conglomerados/internal/engine"
	"github.com/ifn-colombia/conglomerados/internal/httpapi"
	"github.com/ifn-colombia/conglomerados/internal/identity"
	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/internal/ubicaciones"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuración inválida")
	}
	if nivel, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(nivel)
	}

	store, err := abrirStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("no se pudo abrir la base de datos")
	}
	defer store.Close()

	roles := identity.NewRolesConCache(
		identity.NewClienteRoles(cfg.UsuariosServiceURL, cfg.ServiceToken, cfg.ClientTimeout),
		cfg.RolesCacheTTL,
	)
	verificador := identity.NewClienteAuth(cfg.AuthServiceURL, cfg.ClientTimeout)
	resolver := ubicaciones.NewCliente(cfg.UbicacionesServiceURL, cfg.ClientTimeout)
	selector := &identity.SelectorPorRol{Roles: roles}

	var prov clima.Proveedor
	if cfg.OpenWeatherAPIKey != "" {
		prov = clima.NewCliente(cfg.OpenWeatherURL, cfg.OpenWeatherAPIKey, cfg.ClientTimeout)
	}

	svc := engine.New(store, resolver, selector, log, engine.Config{
		MaxConglomerados: cfg.MaxConglomerados,
	})
	servidor := httpapi.NewServer(svc, verificador, roles, prov, log)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           servidor.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("puerto", cfg.Port).Info("servicio de conglomerados escuchando")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("servidor HTTP terminó con error")
		}
	}()

	<-ctx.Done()
	log.Info("apagando servicio")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("apagado forzado del servidor HTTP")
	}
}

func abrirStore(cfg *config.Config) (persistence.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return persistence.NewPostgresStore(db)
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	// The embedded backend serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent claims.
	db.SetMaxOpenConns(1)
	return persistence.NewSQLiteStore(db)
}
