package main

import (
	"context"
	"flag"

	"hallbooking/pkg/config"
	"hallbooking/pkg/db"
	"hallbooking/pkg/logging"
)

func main() {
	checkOnly := flag.Bool("check-only", false, "only verify the runtime connection, skip migrations")
	steps := flag.Int("steps", 0, "apply n migrations (negative rolls back) instead of migrating to latest")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg)

	if !*checkOnly {
		// This uses DIRECT_URL if set.
		var (
			version uint
			err     error
		)
		if *steps != 0 {
			version, err = db.Steps(cfg.MigrationsPath, cfg, *steps)
		} else {
			version, err = db.Migrate(cfg.MigrationsPath, cfg)
		}
		if err != nil {
			log.WithError(err).Fatal("migrate failed")
		}
		log.WithField("schema_version", version).Info("migrations applied")
	}

	// Sanity check that the runtime connection (DATABASE_URL if set) can open.
	// DSNs are not logged.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("runtime db open failed")
	}
	pool.Close()

	log.Info("database ready")
}
