package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Base tables as the first deployed revision created them. Later columns are
// added by the alterations below so old and fresh databases converge.
var baseTables = []string{
	`CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id BIGINT PRIMARY KEY,
		nick_channel_id BIGINT,
		create_channel_id BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS personal_channels (
		channel_id BIGINT PRIMARY KEY,
		owner_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blog (
		channel_id BIGINT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (channel_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS dashboards (
		channel_id BIGINT PRIMARY KEY,
		message_id BIGINT
	)`,
}

type columnAddition struct {
	table, column, typ string
}

var addedColumns = []columnAddition{
	{"personal_channels", "guild_id", "BIGINT"},
	{"blog", "title", "TEXT"},
	{"guild_settings", "dashboard_channel_id", "BIGINT"},
	{"guild_settings", "dashboard_message_id", "BIGINT"},
}

var postgresFixups = []string{
	// Ownership used to be unique per owner across all guilds.
	`ALTER TABLE personal_channels DROP CONSTRAINT IF EXISTS personal_channels_owner_id_key`,
	// The link table used to hold a single url per channel.
	`DO $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM pg_index i
			JOIN pg_class c ON c.oid = i.indrelid
			WHERE c.relname = 'blog' AND i.indisprimary AND i.indnatts = 1
		) THEN
			ALTER TABLE blog DROP CONSTRAINT blog_pkey;
			ALTER TABLE blog ADD PRIMARY KEY (channel_id, url);
		END IF;
	END $$`,
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS personal_channels_guild_owner_idx ON personal_channels (guild_id, owner_id)`,
	`CREATE INDEX IF NOT EXISTS personal_channels_owner_idx ON personal_channels (owner_id)`,
}

// Migrate creates the schema if absent and applies additive alterations.
// Running it against an up-to-date schema changes nothing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	postgres := db.DriverName() == driverPostgres

	for _, stmt := range baseTables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	for _, c := range addedColumns {
		if err := addColumn(ctx, db, postgres, c); err != nil {
			return err
		}
	}

	if postgres {
		for _, stmt := range postgresFixups {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply fixup: %w", err)
			}
		}
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func addColumn(ctx context.Context, db *sqlx.DB, postgres bool, c columnAddition) error {
	var stmt string
	if postgres {
		stmt = fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.table, c.column, c.typ)
	} else {
		stmt = fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.typ)
	}
	_, err := db.ExecContext(ctx, stmt)
	if err == nil {
		log.Printf("database: ensured column %s.%s", c.table, c.column)
		return nil
	}
	if isDuplicateColumn(err) {
		return nil
	}
	return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
}
