package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// PostgresStore persists canonical units to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS units (
			detail_id             BIGINT PRIMARY KEY,
			city_name             TEXT,
			city_id               BIGINT,
			compound_name         TEXT,
			compound_id           BIGINT,
			developer_name        TEXT,
			developer_id          BIGINT,
			phase_name            TEXT,
			phase_id              BIGINT,
			unit_type             TEXT,
			sub_type              TEXT,
			type_id               BIGINT,
			bedrooms              BIGINT,
			outdoor_area          BOOLEAN,
			built_up_area_sqm     NUMERIC,
			total_price_egp       NUMERIC,
			total_price_to_egp    NUMERIC,
			price_per_sqm_egp     NUMERIC,
			cash_price_from_egp   NUMERIC,
			cash_price_to_egp     NUMERIC,
			delivery_from_months  BIGINT,
			delivery_to_months    BIGINT,
			payment_plan          TEXT,
			maintenance           NUMERIC,
			club_fees             NUMERIC,
			parking_fees          NUMERIC,
			finishing_type        TEXT,
			cash_discount_percent NUMERIC,
			status                BIGINT,
			is_sold               BOOLEAN NOT NULL DEFAULT FALSE,
			sold_at               TIMESTAMPTZ,
			first_seen            TIMESTAMPTZ NOT NULL,
			last_seen             TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_units_price    ON units(total_price_egp);
		CREATE INDEX IF NOT EXISTS idx_units_compound ON units(compound_id);
		CREATE INDEX IF NOT EXISTS idx_units_is_sold  ON units(is_sold);
	`)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// unitColumns is the full column list in insert/select order.
const unitColumns = `detail_id, city_name, city_id, compound_name, compound_id,
	developer_name, developer_id, phase_name, phase_id, unit_type, sub_type,
	type_id, bedrooms, outdoor_area, built_up_area_sqm, total_price_egp,
	total_price_to_egp, price_per_sqm_egp, cash_price_from_egp,
	cash_price_to_egp, delivery_from_months, delivery_to_months, payment_plan,
	maintenance, club_fees, parking_fees, finishing_type,
	cash_discount_percent, status, is_sold, sold_at, first_seen, last_seen`

const unitColumnCount = 33

func unitArgs(u *models.Unit) []any {
	return []any{
		u.DetailID, u.CityName, u.CityID, u.CompoundName, u.CompoundID,
		u.DevName, u.DevID, u.PhaseName, u.PhaseID, u.UnitType, u.SubType,
		u.TypeID, u.Bedrooms, u.Outdoor, u.BuiltUpArea, u.TotalPrice,
		u.TotalPriceTo, u.PricePerSqm, u.CashPriceFrom,
		u.CashPriceTo, u.DeliveryFrom, u.DeliveryTo, u.PaymentPlan,
		u.Maintenance, u.ClubFees, u.ParkingFees, u.Finishing,
		u.CashDiscount, u.Status, u.IsSold, u.SoldAt, u.FirstSeen, u.LastSeen,
	}
}

func scanUnit(rows *sql.Rows) (*models.Unit, error) {
	u := &models.Unit{}
	err := rows.Scan(
		&u.DetailID, &u.CityName, &u.CityID, &u.CompoundName, &u.CompoundID,
		&u.DevName, &u.DevID, &u.PhaseName, &u.PhaseID, &u.UnitType, &u.SubType,
		&u.TypeID, &u.Bedrooms, &u.Outdoor, &u.BuiltUpArea, &u.TotalPrice,
		&u.TotalPriceTo, &u.PricePerSqm, &u.CashPriceFrom,
		&u.CashPriceTo, &u.DeliveryFrom, &u.DeliveryTo, &u.PaymentPlan,
		&u.Maintenance, &u.ClubFees, &u.ParkingFees, &u.Finishing,
		&u.CashDiscount, &u.Status, &u.IsSold, &u.SoldAt, &u.FirstSeen, &u.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan row: %w", err)
	}
	return u, nil
}

func placeholders(n, offset int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return strings.Join(parts, ",")
}

// FetchAll loads the entire persisted state keyed by detail id.
func (s *PostgresStore) FetchAll(ctx context.Context) (map[int64]*models.Unit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+unitColumns+" FROM units")
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]*models.Unit)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		existing[u.DetailID] = u
	}
	return existing, rows.Err()
}

// Apply writes one cycle's mutation set inside a single transaction.
// Any failure rolls the whole cycle back; no partial writes are visible.
func (s *PostgresStore) Apply(ctx context.Context, ms *models.MutationSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	insertQuery := fmt.Sprintf("INSERT INTO units (%s) VALUES (%s)",
		unitColumns, placeholders(unitColumnCount, 0))
	for _, u := range ms.Inserts {
		if _, err := tx.ExecContext(ctx, insertQuery, unitArgs(u)...); err != nil {
			return fmt.Errorf("postgres: insert %d: %w", u.DetailID, err)
		}
	}

	for _, u := range ms.Updates {
		_, err := tx.ExecContext(ctx, `
			UPDATE units SET
				total_price_egp       = $1,
				total_price_to_egp    = $2,
				cash_price_from_egp   = $3,
				cash_price_to_egp     = $4,
				price_per_sqm_egp     = $5,
				status                = $6,
				payment_plan          = $7,
				delivery_from_months  = $8,
				delivery_to_months    = $9,
				maintenance           = $10,
				club_fees             = $11,
				parking_fees          = $12,
				finishing_type        = $13,
				last_seen             = $14,
				is_sold               = FALSE,
				sold_at               = NULL
			WHERE detail_id = $15
		`, u.TotalPrice, u.TotalPriceTo, u.CashPriceFrom, u.CashPriceTo,
			u.PricePerSqm, u.Status, u.PaymentPlan, u.DeliveryFrom,
			u.DeliveryTo, u.Maintenance, u.ClubFees, u.ParkingFees,
			u.Finishing, ms.Now, u.DetailID)
		if err != nil {
			return fmt.Errorf("postgres: update %d: %w", u.DetailID, err)
		}
	}

	for _, id := range ms.Touches {
		if _, err := tx.ExecContext(ctx,
			"UPDATE units SET last_seen = $1 WHERE detail_id = $2", ms.Now, id); err != nil {
			return fmt.Errorf("postgres: touch %d: %w", id, err)
		}
	}

	for _, id := range ms.SoldIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE units SET is_sold = TRUE, sold_at = $1 WHERE detail_id = $2", ms.Now, id); err != nil {
			return fmt.Errorf("postgres: mark sold %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// List retrieves all stored units. orderBy is "price" or "id".
func (s *PostgresStore) List(ctx context.Context, orderBy string) ([]*models.Unit, error) {
	order := "detail_id ASC"
	if orderBy == "price" {
		order = "total_price_egp ASC NULLS LAST"
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+unitColumns+" FROM units ORDER BY "+order)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	var units []*models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Stats computes the aggregate summary served by the stats endpoint.
func (s *PostgresStore) Stats(ctx context.Context) (*models.StatsReport, error) {
	r := &models.StatsReport{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN is_sold = TRUE OR status = 0 THEN 1 END),
			AVG(total_price_egp),
			MIN(total_price_egp),
			MAX(total_price_egp),
			COUNT(DISTINCT compound_name)
		FROM units
	`).Scan(&r.Total, &r.Sold, &r.AvgPrice, &r.MinPrice, &r.MaxPrice, &r.Compounds)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	return r, nil
}

// ResetSoldFlags clears is_sold/sold_at for every unit and returns the
// number of rows touched.
func (s *PostgresStore) ResetSoldFlags(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE units SET is_sold = FALSE, sold_at = NULL WHERE is_sold = TRUE OR sold_at IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("postgres: reset sold flags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: reset sold flags: %w", err)
	}
	return n, nil
}

// BulkImport batch-inserts units from the one-off CSV import, skipping
// detail ids that already exist.
func (s *PostgresStore) BulkImport(ctx context.Context, units []*models.Unit) error {
	if len(units) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	const batchSize = 50
	for i := 0; i < len(units); i += batchSize {
		end := i + batchSize
		if end > len(units) {
			end = len(units)
		}
		if err := insertBatch(ctx, tx, units[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Unit) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*unitColumnCount)

	for idx, u := range batch {
		valueStrings = append(valueStrings,
			"("+placeholders(unitColumnCount, idx*unitColumnCount)+")")
		valueArgs = append(valueArgs, unitArgs(u)...)
	}

	query := fmt.Sprintf(`
		INSERT INTO units (%s)
		VALUES %s
		ON CONFLICT (detail_id) DO NOTHING
	`, unitColumns, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: bulk insert: %w", err)
	}
	return nil
}
