package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/food-ordering/internal/config"
	httpapi "github.com/example/food-ordering/internal/http"
	"github.com/example/food-ordering/internal/logging"
	"github.com/example/food-ordering/internal/models"
)

// seed loads restaurants, menus and demo accounts into the configured store.
// ADMIN_EMAIL and ADMIN_PASSWORD add an admin, the only way to create one.
func main() {
	var path string
	flag.StringVar(&path, "file", "", "fixture JSON file (defaults to the built-in demo data)")
	flag.Parse()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger("food-ordering-seed", cfg.LogLevel)
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("STORE_DRIVER=memory, seeded data will not outlive this process")
	}

	raw := defaultFixture
	if path != "" {
		if raw, err = os.ReadFile(path); err != nil {
			logger.Error("read fixture", "path", path, "error", err)
			os.Exit(1)
		}
	}
	f, err := parseFixture(raw)
	if err != nil {
		logger.Error("invalid fixture", "error", err)
		os.Exit(1)
	}
	if email, pass := strings.TrimSpace(os.Getenv("ADMIN_EMAIL")), os.Getenv("ADMIN_PASSWORD"); email != "" && pass != "" {
		f.Users = append(f.Users, seedUser{ID: uuid.NewString(), Name: "Admin", Email: email, Password: pass, Role: models.RoleAdmin})
	} else {
		logger.Info("skip seeding admin: missing ADMIN_EMAIL/ADMIN_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	store, err := httpapi.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	st, err := apply(ctx, store, f, time.Now().UTC(), logger)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "users", st.Users, "skipped_users", st.SkippedUsers, "restaurants", st.Restaurants, "menu_items", st.MenuItems)
}
