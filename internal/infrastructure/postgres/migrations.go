package postgres

import (
	"context"
	"fmt"
)

// schema DDL idempotente del libro de stock. La guarda de no-negatividad vive también en
// la tabla (CHECK) además de en el WHERE de los incrementos.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_records (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		unit          TEXT NOT NULL DEFAULT 'und',
		category      TEXT NOT NULL,
		cost          NUMERIC(18,4) NOT NULL DEFAULT 0,
		quantity      NUMERIC(18,4) NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		min_threshold NUMERIC(18,4),
		version       BIGINT NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_adjustments (
		id              TEXT PRIMARY KEY,
		stock_id        TEXT NOT NULL,
		kind            TEXT NOT NULL CHECK (kind IN ('add','remove','set')),
		requested_qty   NUMERIC(18,4) NOT NULL,
		previous_qty    NUMERIC(18,4) NOT NULL,
		resulting_qty   NUMERIC(18,4) NOT NULL,
		reason_category TEXT NOT NULL,
		reason          TEXT,
		actor_id        TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_adjustments_stock ON inventory_adjustments (stock_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_adjustments_created_at ON inventory_adjustments (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id             TEXT PRIMARY KEY,
		sale_number    TEXT NOT NULL UNIQUE,
		customer       JSONB,
		payment_method TEXT NOT NULL,
		notes          TEXT,
		lines          JSONB NOT NULL,
		consumption    JSONB NOT NULL,
		subtotal       NUMERIC(18,2) NOT NULL,
		tax            NUMERIC(18,2) NOT NULL,
		discount       NUMERIC(18,2) NOT NULL DEFAULT 0,
		total          NUMERIC(18,2) NOT NULL,
		status         TEXT NOT NULL CHECK (status IN ('pending','completed','cancelled')),
		actor_id       TEXT NOT NULL,
		cancelled_by   TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		cancelled_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_consumption ON sales USING GIN (consumption jsonb_path_ops)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id               TEXT PRIMARY KEY,
		product_id       TEXT NOT NULL,
		name             TEXT NOT NULL,
		category         TEXT,
		price            NUMERIC(18,2) NOT NULL DEFAULT 0,
		preparation_time INT NOT NULL DEFAULT 0,
		active           BOOLEAN NOT NULL DEFAULT true,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_recipes_active_product ON recipes (product_id) WHERE active`,
	`CREATE TABLE IF NOT EXISTS recipe_ingredients (
		recipe_id TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		position  INT NOT NULL,
		stock_id  TEXT NOT NULL,
		quantity  NUMERIC(18,4) NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (recipe_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_stock ON recipe_ingredients (stock_id)`,
}

// Migrate crea las tablas si no existen.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración %d: %w", i+1, err)
		}
	}
	return nil
}
