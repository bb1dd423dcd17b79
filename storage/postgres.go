package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpulse/metrics"
	"carpulse/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS car_model (
		id BIGSERIAL PRIMARY KEY,
		maker TEXT NOT NULL,
		model_code TEXT NOT NULL,
		model_name TEXT NOT NULL DEFAULT '',
		model_name_en TEXT NOT NULL DEFAULT '',
		segment TEXT NOT NULL DEFAULT '',
		danawa_model_url TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (maker, model_code)
	);

	CREATE TABLE IF NOT EXISTS model_spec (
		id BIGSERIAL PRIMARY KEY,
		model_id BIGINT NOT NULL UNIQUE REFERENCES car_model(id),
		price_min INTEGER,
		price_max INTEGER,
		fuel_types JSONB,
		transmission TEXT NOT NULL DEFAULT '',
		mileage_kmpl DOUBLE PRECISION,
		colors JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sales_monthly (
		id BIGSERIAL PRIMARY KEY,
		model_id BIGINT NOT NULL REFERENCES car_model(id),
		year_month TEXT NOT NULL,
		sales_volume INTEGER,
		sales_mom_diff INTEGER,
		sales_yoy_diff INTEGER,
		danawa_popularity_rank INTEGER,
		market_share NUMERIC(9,4),
		danawa_popularity_score DOUBLE PRECISION,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (model_id, year_month)
	);

	CREATE TABLE IF NOT EXISTS interest_monthly (
		id BIGSERIAL PRIMARY KEY,
		model_id BIGINT NOT NULL REFERENCES car_model(id),
		year_month TEXT NOT NULL,
		naver_search_index DOUBLE PRECISION,
		google_trend_index DOUBLE PRECISION,
		interest_score DOUBLE PRECISION,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (model_id, year_month)
	);

	CREATE TABLE IF NOT EXISTS market_stats (
		id BIGSERIAL PRIMARY KEY,
		year_month TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		fuel_type TEXT NOT NULL,
		reg_count INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (year_month, vehicle_type, fuel_type)
	);

	CREATE TABLE IF NOT EXISTS blog_article (
		id BIGSERIAL PRIMARY KEY,
		model_id BIGINT NOT NULL REFERENCES car_model(id),
		source TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		posted_at TIMESTAMPTZ,
		collected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS blog_analysis (
		id BIGSERIAL PRIMARY KEY,
		blog_article_id BIGINT NOT NULL UNIQUE REFERENCES blog_article(id),
		cleaned_text TEXT NOT NULL DEFAULT '',
		nouns JSONB,
		top_keywords JSONB,
		wordcloud_key TEXT,
		analyzed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS word_frequency (
		blog_article_id BIGINT NOT NULL REFERENCES blog_article(id),
		word TEXT NOT NULL,
		freq INTEGER NOT NULL,
		PRIMARY KEY (blog_article_id, word)
	);

	CREATE TABLE IF NOT EXISTS collect_log (
		id BIGSERIAL PRIMARY KEY,
		job_name TEXT NOT NULL,
		batch_date TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_collect_log_key ON collect_log (job_name, batch_date);
	CREATE INDEX IF NOT EXISTS idx_sales_monthly_month ON sales_monthly (year_month);
	CREATE INDEX IF NOT EXISTS idx_interest_monthly_month ON interest_monthly (year_month);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Models
// =============================================================================

func (s *PostgresStore) GetModelByCode(ctx context.Context, maker, modelCode string) (*models.CarModel, error) {
	query := `
		SELECT id, maker, model_code, model_name, model_name_en, segment,
			danawa_model_url, is_active, created_at, updated_at
		FROM car_model WHERE maker = $1 AND model_code = $2`

	var m models.CarModel
	err := s.pool.QueryRow(ctx, query, maker, modelCode).Scan(
		&m.ID, &m.Maker, &m.ModelCode, &m.ModelName, &m.ModelNameEN, &m.Segment,
		&m.DanawaModelURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) GetModelByID(ctx context.Context, id int64) (*models.CarModel, error) {
	query := `
		SELECT id, maker, model_code, model_name, model_name_en, segment,
			danawa_model_url, is_active, created_at, updated_at
		FROM car_model WHERE id = $1`

	var m models.CarModel
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Maker, &m.ModelCode, &m.ModelName, &m.ModelNameEN, &m.Segment,
		&m.DanawaModelURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateModel inserts a new canonical model. The (maker, model_code) unique
// constraint protects against a concurrent first sighting: on conflict the
// existing row's id comes back instead of a duplicate being created.
func (s *PostgresStore) CreateModel(ctx context.Context, m *models.CarModel) error {
	query := `
		INSERT INTO car_model (
			maker, model_code, model_name, model_name_en, segment,
			danawa_model_url, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (maker, model_code) DO UPDATE SET updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		m.Maker, m.ModelCode, m.ModelName, m.ModelNameEN, m.Segment,
		m.DanawaModelURL, m.IsActive, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
}

func (s *PostgresStore) UpdateModel(ctx context.Context, m *models.CarModel) error {
	query := `
		UPDATE car_model SET
			model_name = $2, model_name_en = $3, segment = $4,
			danawa_model_url = $5, is_active = $6, updated_at = $7
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.ModelName, m.ModelNameEN, m.Segment,
		m.DanawaModelURL, m.IsActive, m.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) UpsertModelSpec(ctx context.Context, spec *models.ModelSpec) error {
	query := `
		INSERT INTO model_spec (
			model_id, price_min, price_max, fuel_types, transmission,
			mileage_kmpl, colors, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (model_id) DO UPDATE SET
			price_min = EXCLUDED.price_min,
			price_max = EXCLUDED.price_max,
			fuel_types = EXCLUDED.fuel_types,
			transmission = EXCLUDED.transmission,
			mileage_kmpl = EXCLUDED.mileage_kmpl,
			colors = EXCLUDED.colors,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		spec.ModelID, spec.PriceMin, spec.PriceMax, spec.FuelTypes,
		spec.Transmission, spec.MileageKmpl, spec.Colors, spec.UpdatedAt,
	).Scan(&spec.ID)
}

// =============================================================================
// Monthly facts
// =============================================================================

// UpsertSalesRaw writes the raw sales columns for a (model, month) without
// touching the derived market_share / danawa_popularity_score columns; those
// belong to the month recomputation.
func (s *PostgresStore) UpsertSalesRaw(ctx context.Context, row *models.SalesMonthly) error {
	query := `
		INSERT INTO sales_monthly (
			model_id, year_month, sales_volume, sales_mom_diff,
			sales_yoy_diff, danawa_popularity_rank, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (model_id, year_month) DO UPDATE SET
			sales_volume = EXCLUDED.sales_volume,
			sales_mom_diff = COALESCE(EXCLUDED.sales_mom_diff, sales_monthly.sales_mom_diff),
			sales_yoy_diff = COALESCE(EXCLUDED.sales_yoy_diff, sales_monthly.sales_yoy_diff),
			danawa_popularity_rank = COALESCE(EXCLUDED.danawa_popularity_rank, sales_monthly.danawa_popularity_rank),
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		row.ModelID, row.YearMonth, row.SalesVolume, row.SalesMoMDiff,
		row.SalesYoYDiff, row.DanawaPopularityRank,
	).Scan(&row.ID)
}

// UpsertTrendIndex writes one provider's raw index for a (model, month). A
// failed provider simply never calls this, leaving its column null for later
// backfill.
func (s *PostgresStore) UpsertTrendIndex(ctx context.Context, provider string, modelID int64, yearMonth string, index float64) error {
	var column string
	switch provider {
	case "naver":
		column = "naver_search_index"
	case "google":
		column = "google_trend_index"
	default:
		return fmt.Errorf("unknown trend provider: %s", provider)
	}

	query := fmt.Sprintf(`
		INSERT INTO interest_monthly (model_id, year_month, %s, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (model_id, year_month) DO UPDATE SET
			%s = EXCLUDED.%s,
			updated_at = NOW()`, column, column, column)

	_, err := s.pool.Exec(ctx, query, modelID, yearMonth, index)
	return err
}

// RecomputeMonth reads one month's full cohort inside a repeatable-read
// transaction, hands it to compute, and writes the derived values in the
// same transaction. A compute error rolls everything back, leaving prior
// derived values intact.
func (s *PostgresStore) RecomputeMonth(ctx context.Context, yearMonth string, compute func([]metrics.RawMonthRow) ([]metrics.MonthlyMetric, error)) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT COALESCE(sm.model_id, im.model_id) AS model_id,
			sm.sales_volume, sm.sales_mom_diff, sm.sales_yoy_diff,
			sm.danawa_popularity_rank,
			im.naver_search_index, im.google_trend_index
		FROM sales_monthly sm
		FULL OUTER JOIN interest_monthly im
			ON im.model_id = sm.model_id AND im.year_month = sm.year_month
		WHERE COALESCE(sm.year_month, im.year_month) = $1
		ORDER BY 1`

	rows, err := tx.Query(ctx, query, yearMonth)
	if err != nil {
		return fmt.Errorf("read cohort %s: %w", yearMonth, err)
	}

	var cohort []metrics.RawMonthRow
	for rows.Next() {
		var r metrics.RawMonthRow
		if err := rows.Scan(&r.ModelID, &r.SalesVolume, &r.MoMDiff, &r.YoYDiff,
			&r.Rank, &r.NaverIndex, &r.GoogleIndex); err != nil {
			rows.Close()
			return fmt.Errorf("scan cohort row: %w", err)
		}
		cohort = append(cohort, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read cohort %s: %w", yearMonth, err)
	}

	derived, err := compute(cohort)
	if err != nil {
		return err
	}

	for _, m := range derived {
		if m.SalesVolume != nil || m.Rank != nil {
			_, err := tx.Exec(ctx, `
				UPDATE sales_monthly SET
					market_share = $3,
					danawa_popularity_score = $4,
					updated_at = NOW()
				WHERE model_id = $1 AND year_month = $2`,
				m.ModelID, m.YearMonth, m.MarketShare, m.PopularityScore)
			if err != nil {
				return fmt.Errorf("write sales derived for model %d: %w", m.ModelID, err)
			}
		}

		if m.InterestScore != nil || m.NaverIndex != nil || m.GoogleIndex != nil {
			_, err := tx.Exec(ctx, `
				INSERT INTO interest_monthly (model_id, year_month, naver_search_index, google_trend_index, interest_score, updated_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				ON CONFLICT (model_id, year_month) DO UPDATE SET
					interest_score = EXCLUDED.interest_score,
					updated_at = NOW()`,
				m.ModelID, m.YearMonth, m.NaverIndex, m.GoogleIndex, m.InterestScore)
			if err != nil {
				return fmt.Errorf("write interest derived for model %d: %w", m.ModelID, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// =============================================================================
// Market stats
// =============================================================================

func (s *PostgresStore) UpsertMarketStats(ctx context.Context, stat *models.MarketStats) error {
	query := `
		INSERT INTO market_stats (year_month, vehicle_type, fuel_type, reg_count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (year_month, vehicle_type, fuel_type) DO UPDATE SET
			reg_count = EXCLUDED.reg_count,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		stat.YearMonth, stat.VehicleType, stat.FuelType, stat.RegCount,
	).Scan(&stat.ID)
}

// =============================================================================
// Blog articles & analysis
// =============================================================================

// UpsertBlogArticle inserts an article or, for a known URL, refreshes
// collected_at. Returns whether the row is new.
func (s *PostgresStore) UpsertBlogArticle(ctx context.Context, a *models.BlogArticle) (bool, error) {
	query := `
		INSERT INTO blog_article (model_id, source, title, url, posted_at, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url) DO UPDATE SET
			collected_at = EXCLUDED.collected_at
		RETURNING id, (xmax = 0) AS inserted`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		a.ModelID, a.Source, a.Title, a.URL, a.PostedAt, a.CollectedAt,
	).Scan(&a.ID, &inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ArticlesWithoutAnalysis lists articles whose analysis is absent, oldest
// first, for the analysis job and for backfilling earlier failures.
func (s *PostgresStore) ArticlesWithoutAnalysis(ctx context.Context, limit int) ([]models.BlogArticle, error) {
	query := `
		SELECT a.id, a.model_id, a.source, a.title, a.url, a.posted_at, a.collected_at
		FROM blog_article a
		LEFT JOIN blog_analysis an ON an.blog_article_id = a.id
		WHERE an.id IS NULL
		ORDER BY a.collected_at ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BlogArticle
	for rows.Next() {
		var a models.BlogArticle
		if err := rows.Scan(&a.ID, &a.ModelID, &a.Source, &a.Title, &a.URL, &a.PostedAt, &a.CollectedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceAnalysis writes an article's analysis and its full word-frequency
// set in one transaction: the old frequency rows are deleted and the new set
// inserted, never merged. No analysis row ever exists without its frequency
// set.
func (s *PostgresStore) ReplaceAnalysis(ctx context.Context, analysis *models.BlogAnalysis, freqs []models.WordFrequency) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO blog_analysis (blog_article_id, cleaned_text, nouns, top_keywords, wordcloud_key, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (blog_article_id) DO UPDATE SET
			cleaned_text = EXCLUDED.cleaned_text,
			nouns = EXCLUDED.nouns,
			top_keywords = EXCLUDED.top_keywords,
			wordcloud_key = EXCLUDED.wordcloud_key,
			analyzed_at = EXCLUDED.analyzed_at
		RETURNING id`,
		analysis.BlogArticleID, analysis.CleanedText, analysis.Nouns,
		analysis.TopKeywords, analysis.WordcloudKey, analysis.AnalyzedAt,
	).Scan(&analysis.ID)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM word_frequency WHERE blog_article_id = $1`, analysis.BlogArticleID); err != nil {
		return fmt.Errorf("clear word frequencies: %w", err)
	}

	for _, f := range freqs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO word_frequency (blog_article_id, word, freq)
			VALUES ($1, $2, $3)`,
			f.BlogArticleID, f.Word, f.Freq); err != nil {
			return fmt.Errorf("insert word frequency %q: %w", f.Word, err)
		}
	}

	return tx.Commit(ctx)
}

// =============================================================================
// Collect log (job ledger)
// =============================================================================

func (s *PostgresStore) CreateCollectLog(ctx context.Context, entry *models.CollectLog) error {
	query := `
		INSERT INTO collect_log (job_name, batch_date, status, started_at, finished_at, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		entry.JobName, entry.BatchDate, entry.Status,
		entry.StartedAt, entry.FinishedAt, entry.Message,
	).Scan(&entry.ID)
}

func (s *PostgresStore) FinishCollectLog(ctx context.Context, id int64, status models.JobStatus, message string, finishedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE collect_log SET status = $2, message = $3, finished_at = $4
		WHERE id = $1`,
		id, status, message, finishedAt)
	return err
}

func (s *PostgresStore) RunningCollectLogs(ctx context.Context, jobName, batchDate string) ([]models.CollectLog, error) {
	query := `
		SELECT id, job_name, batch_date, status, started_at, finished_at, message
		FROM collect_log
		WHERE job_name = $1 AND batch_date = $2 AND status = $3
		ORDER BY started_at ASC`

	rows, err := s.pool.Query(ctx, query, jobName, batchDate, models.JobStatusRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CollectLog
	for rows.Next() {
		var e models.CollectLog
		if err := rows.Scan(&e.ID, &e.JobName, &e.BatchDate, &e.Status, &e.StartedAt, &e.FinishedAt, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestCollectLog(ctx context.Context, jobName, batchDate string) (*models.CollectLog, error) {
	query := `
		SELECT id, job_name, batch_date, status, started_at, finished_at, message
		FROM collect_log
		WHERE job_name = $1 AND batch_date = $2
		ORDER BY started_at DESC, id DESC
		LIMIT 1`

	var e models.CollectLog
	err := s.pool.QueryRow(ctx, query, jobName, batchDate).Scan(
		&e.ID, &e.JobName, &e.BatchDate, &e.Status, &e.StartedAt, &e.FinishedAt, &e.Message,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
