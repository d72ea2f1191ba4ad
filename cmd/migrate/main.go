// Command migrate manages the authorization schema: roles, permissions,
// role_permissions and user_profiles, plus the system-role seeds.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jtsaich/fda-search-sub000/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("FDASEARCH_PG_DSN"), "PostgreSQL DSN (defaults to FDASEARCH_PG_DSN)")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Directory with the authz schema migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Directory with the system-role and permission seeds")
		timeout        = flag.Duration("timeout", 30*time.Second, "Overall deadline for the command")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or FDASEARCH_PG_DSN")
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, os.DirFS(*migrationsPath), os.DirFS(*seedsPath))

	switch cmd {
	case "up":
		if err := mgr.Up(ctx); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		fmt.Println("authz schema is up to date")
	case "down":
		if err := mgr.Down(ctx); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Println("rolled back one migration")
	case "seed":
		if err := mgr.Seed(ctx); err != nil {
			log.Fatalf("migrate seed: %v", err)
		}
		fmt.Println("system roles and permission catalog seeded")
	case "status":
		history, err := mgr.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		if len(history) == 0 {
			fmt.Println("no migrations applied")
			return
		}
		for _, item := range history {
			fmt.Println("applied:", item)
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}
}
