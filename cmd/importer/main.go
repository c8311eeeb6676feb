// Command importer loads the dataset CSV into Postgres as a new snapshot
// version so the API can run with DATASET_STORE=postgres.
package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/cancerdash/internal/config"
	"example.com/cancerdash/internal/dataset"
	pgdataset "example.com/cancerdash/internal/dataset/postgres"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	obs, err := dataset.Load(cfg.DataPath)
	if err != nil {
		log.Fatalf("failed to load dataset from %s: %v", cfg.DataPath, err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := pgdataset.NewRepository(pool)
	versionID, err := repo.Import(ctx, cfg.DataPath, obs)
	if err != nil {
		log.Fatalf("failed to import dataset: %v", err)
	}

	log.Printf("imported %d observations from %s as version %s", len(obs), cfg.DataPath, versionID)
}
