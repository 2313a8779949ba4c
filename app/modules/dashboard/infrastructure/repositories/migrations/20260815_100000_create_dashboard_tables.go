package dashboardmigrations

import (
	"context"
	"fmt"

	dashboarddb "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating members and activity_events tables...")

		if _, err := db.NewCreateTable().Model((*dashboarddb.Member)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewCreateTable().Model((*dashboarddb.ActivityEvent)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewRaw("CREATE UNIQUE INDEX IF NOT EXISTS idx_members_entity_member ON members (entity_id, member_id)").Exec(ctx)
		if err != nil {
			return err
		}
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_activity_events_entity_member ON activity_events (entity_id, member_id)").Exec(ctx)
		if err != nil {
			return err
		}
		// Covers the daily-history and hourly-histogram scans.
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_activity_events_entity_occurred ON activity_events (entity_id, occurred_at)").Exec(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Dashboard tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping members and activity_events tables...")

		if _, err := db.NewDropTable().Model((*dashboarddb.ActivityEvent)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*dashboarddb.Member)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Dashboard tables dropped successfully!")
		return nil
	})
}
