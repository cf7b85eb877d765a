package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/recovery/internal/app"
	"github.com/dropDatabas3/recovery/internal/config"
	"github.com/dropDatabas3/recovery/internal/security/password"
	"github.com/dropDatabas3/recovery/internal/store/sqlstore"
	mysqlmig "github.com/dropDatabas3/recovery/migrations/mysql"
	pgmig "github.com/dropDatabas3/recovery/migrations/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (optional)")
	flag.Parse()
	_ = godotenv.Load()

	// Positional: [action]
	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if err := run(context.Background(), cfg, action); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, action string) error {
	migrations, err := migrationsFor(cfg.Storage.Driver)
	if err != nil {
		return err
	}
	st, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Params: password.Default,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()
	m := sqlstore.NewMigrator(migrations, ".")

	switch action {
	case "up":
		res, err := m.Run(ctx, st)
		if err != nil {
			return err
		}
		log.Printf("migrations applied=%v skipped=%v (%s)", res.Applied, res.Skipped, res.Duration)
	case "status":
		pending, err := m.Pending(ctx, st)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			log.Println("No pending migrations.")
			return nil
		}
		log.Printf("Pending migrations: %v", pending)
	case "seed":
		if cfg.Storage.Seed.Email == "" {
			return fmt.Errorf("seed: storage.seed.email (or SEED_EMAIL) is required")
		}
		if err := app.Seed(ctx, st, cfg); err != nil {
			return err
		}
		log.Printf("Seed user %s ready.", cfg.Storage.Seed.Email)
	default:
		return fmt.Errorf("unknown action %q. Use: up | status | seed", action)
	}
	return nil
}

func migrationsFor(driver string) (fs.FS, error) {
	switch driver {
	case "pgx":
		return pgmig.FS, nil
	case "mysql":
		return mysqlmig.FS, nil
	default:
		return nil, fmt.Errorf("migrate: storage.driver must be pgx or mysql, got %q", driver)
	}
}
