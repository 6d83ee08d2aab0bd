package db

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"flashdeck/internal/account"
	"flashdeck/internal/deck"
	"flashdeck/internal/jobs"
	"flashdeck/internal/logging"
)

func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logging.Gorm(log),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	return gdb, nil
}

// Models lists every table flashdeck owns, parents before children.
func Models() []any {
	return append(deck.Models(), &account.Preferences{}, &jobs.Job{})
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	// Postgres-only indexes; other dialects (tests) skip them.
	if gdb.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []string{
		`create index if not exists idx_deck_user_created on deck(user_id, created_at desc);`,
		`create index if not exists idx_card_deck_order on card(deck_id, display_order, id);`,
		`create index if not exists idx_attr_type_deck_order on deck_attribute_type(deck_id, display_order, id);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		`create unique index if not exists uq_jobs_active_purge on jobs(user_id)
where type = 'ACCOUNT_PURGE' and status in ('PENDING', 'RUNNING');`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return errors.Wrapf(err, "index exec failed (sql=%s)", s)
		}
	}

	return nil
}
