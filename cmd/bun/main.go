package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	dashboardmigrations "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories/migrations"
	"github.com/clubpulse/pulse-bot/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, dashboardmigrations.Migrations)

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "manage dashboard database migrations",
		Commands: []*cli.Command{
			{
				Name:  "db",
				Usage: "database migration commands",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "create the migration tables",
						Action: func(c *cli.Context) error {
							return migrator.Init(c.Context)
						},
					},
					{
						Name:  "migrate",
						Usage: "apply pending migrations",
						Action: func(c *cli.Context) error {
							group, err := migrator.Migrate(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Println("no new migrations to run")
								return nil
							}
							fmt.Printf("migrated to %s\n", group)
							return nil
						},
					},
					{
						Name:  "rollback",
						Usage: "roll back the last migration group",
						Action: func(c *cli.Context) error {
							group, err := migrator.Rollback(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Println("no groups to roll back")
								return nil
							}
							fmt.Printf("rolled back %s\n", group)
							return nil
						},
					},
					{
						Name:  "status",
						Usage: "print migration status",
						Action: func(c *cli.Context) error {
							status, err := migrator.MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("migrations: %s\n", status)
							fmt.Printf("unapplied: %s\n", status.Unapplied())
							fmt.Printf("last group: %s\n", status.LastGroup())
							return nil
						},
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
