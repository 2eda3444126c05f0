package main

import (
	"context"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/store"
	"github.com/lorekeep/skillforge/internal/toolsrv"
)

// skilltool serves the skill catalog over stdio for agent runtimes. With
// POSTGRES_DSN set it uses the shared database; without it the catalog is
// in-memory and scoped to the process.
func main() {
	_ = godotenv.Load()

	// stdout carries the protocol, so logs go to stderr only.
	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{"stderr"}
	logger, _ := logCfg.Build()
	defer logger.Sync()

	var repo service.Repository
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		st, err := store.New(dsn, logger)
		if err != nil {
			logger.Fatal("PostgreSQL unavailable", zap.Error(err))
		}
		defer st.Close()
		if err := st.Migrate(context.Background(), migrationsDir()); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		repo = st
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory catalog")
		repo = store.NewMemory()
	}

	svc := service.New(repo, logger)
	srv := toolsrv.NewServer(svc, logger)

	if err := srv.Run(context.Background(), os.Stdin, os.Stdout); err != nil && err != io.EOF {
		logger.Fatal("tool server error", zap.Error(err))
	}
}

func migrationsDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "migrations"
}
