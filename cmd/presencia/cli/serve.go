package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/config"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/db"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/httpapi"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the record hub (SQLite-backed HTTP API)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "presencia-hub ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{}); err != nil {
			logger.Printf("dev seed failed: %v", err)
		}
	}

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: logger,
		Addr:   cfg.HTTPAddr,
		Store:  sqlite.New(sqlDB, writer),
		Auth:   service.NewSupervisorAuthorizer(cfg.SupervisorTokens),
	})

	go func() {
		logger.Printf("listening on %s (db=%s env=%s)", cfg.HTTPAddr, cfg.DBPath, cfg.Env)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
