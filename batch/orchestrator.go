// Package batch sequences the daily collection run: connectors feed the
// resolver, resolved raw rows land in the monthly fact tables, affected
// months are recomputed, and blog articles go through the text analytics
// workers. Every named step runs under a job ledger attempt, and one source
// failing never blocks the others.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"carpulse/ledger"
	"carpulse/metrics"
	"carpulse/models"
	"carpulse/resolver"
	"carpulse/sources"
	"carpulse/textkit"
)

// Store is the persistence surface the orchestrator writes through.
type Store interface {
	UpsertModelSpec(ctx context.Context, spec *models.ModelSpec) error
	UpsertSalesRaw(ctx context.Context, row *models.SalesMonthly) error
	UpsertTrendIndex(ctx context.Context, provider string, modelID int64, yearMonth string, index float64) error
	RecomputeMonth(ctx context.Context, yearMonth string, compute func([]metrics.RawMonthRow) ([]metrics.MonthlyMetric, error)) error
	UpsertMarketStats(ctx context.Context, stat *models.MarketStats) error
	UpsertBlogArticle(ctx context.Context, a *models.BlogArticle) (bool, error)
	ReplaceAnalysis(ctx context.Context, analysis *models.BlogAnalysis, freqs []models.WordFrequency) error
	ArticlesWithoutAnalysis(ctx context.Context, limit int) ([]models.BlogArticle, error)
}

// ArtifactUploader stores the wordcloud frequency CSV for an article.
type ArtifactUploader interface {
	UploadWordcloud(ctx context.Context, articleID int64, csvData []byte) (string, error)
}

// NoOpUploader skips artifact storage; analyses keep a null wordcloud key.
type NoOpUploader struct{}

func (NoOpUploader) UploadWordcloud(context.Context, int64, []byte) (string, error) {
	return "", nil
}

// Sources bundles the upstream connectors for one run. A nil entry means the
// source is not configured and its jobs are skipped.
type Sources struct {
	Catalog  sources.CatalogSource
	Sales    sources.SalesSource
	Naver    sources.TrendSource
	Google   sources.TrendSource
	Registry sources.RegistrySource
	Blogs    sources.BlogSource
}

type Options struct {
	Weights metrics.Weights
	TopK    int
	Workers int
}

type Orchestrator struct {
	store    Store
	resolver *resolver.Resolver
	ledger   *ledger.Ledger
	engine   *textkit.Engine
	srcs     Sources
	uploader ArtifactUploader
	weights  metrics.Weights
	workers  int

	mu     sync.Mutex
	months map[string]struct{}
}

func NewOrchestrator(store Store, res *resolver.Resolver, led *ledger.Ledger, srcs Sources, uploader ArtifactUploader, opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	if uploader == nil {
		uploader = NoOpUploader{}
	}
	return &Orchestrator{
		store:    store,
		resolver: res,
		ledger:   led,
		engine:   textkit.NewEngine(opts.TopK),
		srcs:     srcs,
		uploader: uploader,
		weights:  opts.Weights,
		workers:  workers,
		months:   make(map[string]struct{}),
	}
}

// RunDaily executes one batch run attributed to batchDate. Jobs run in
// dependency order: the catalog primes the resolver, the fact collectors run
// concurrently, aggregation recomputes the touched months, and the blog
// pipeline closes the run. The returned error reports how many jobs failed;
// per-job outcomes live in collect_log.
func (o *Orchestrator) RunDaily(ctx context.Context, batchDate time.Time) error {
	date := batchDate.Format("2006-01-02")
	log.Printf("Starting batch run for %s", date)

	o.mu.Lock()
	o.months = make(map[string]struct{})
	o.mu.Unlock()

	failed := 0

	if o.srcs.Catalog != nil {
		if err := o.runJob(ctx, models.JobCatalogCollect, date, o.collectCatalog); err != nil {
			failed++
		}
	}

	// independent fact collectors; each failure is isolated to its own job
	var wg sync.WaitGroup
	var failMu sync.Mutex
	runConcurrent := func(name string, fn func(context.Context) (string, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.runJob(ctx, name, date, fn); err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
		}()
	}

	if o.srcs.Sales != nil {
		runConcurrent(models.JobSalesCollect, func(ctx context.Context) (string, error) {
			return o.collectSales(ctx, batchDate)
		})
	}
	if o.srcs.Naver != nil {
		runConcurrent(models.JobNaverInterest, func(ctx context.Context) (string, error) {
			return o.collectTrend(ctx, o.srcs.Naver, "naver", batchDate)
		})
	}
	if o.srcs.Google != nil {
		runConcurrent(models.JobGoogleTrend, func(ctx context.Context) (string, error) {
			return o.collectTrend(ctx, o.srcs.Google, "google", batchDate)
		})
	}
	if o.srcs.Registry != nil {
		runConcurrent(models.JobRegistryCollect, func(ctx context.Context) (string, error) {
			return o.collectRegistry(ctx, batchDate)
		})
	}
	wg.Wait()

	if err := o.runJob(ctx, models.JobMetricAggregate, date, o.aggregateMonths); err != nil {
		failed++
	}

	if o.srcs.Blogs != nil {
		pending, err := o.runBlogCollect(ctx, date)
		if err != nil {
			failed++
		}
		if len(pending) > 0 {
			if err := o.runJob(ctx, models.JobBlogAnalysis, date, func(ctx context.Context) (string, error) {
				return o.analyzeArticles(ctx, pending)
			}); err != nil {
				failed++
			}
		}
	}

	log.Printf("Batch run for %s finished, %d job(s) failed", date, failed)
	if failed > 0 {
		return fmt.Errorf("batch %s: %d job(s) failed", date, failed)
	}
	return nil
}

// runJob wraps one named step in a ledger attempt.
func (o *Orchestrator) runJob(ctx context.Context, name, date string, fn func(context.Context) (string, error)) error {
	attempt, err := o.ledger.Start(ctx, name, date)
	if err != nil {
		log.Printf("[%s] not started: %v", name, err)
		return err
	}

	msg, err := fn(ctx)
	if err != nil {
		log.Printf("[%s] failed: %v", name, err)
		if ferr := attempt.Fail(ctx, err); ferr != nil {
			log.Printf("[%s] could not record failure: %v", name, ferr)
		}
		return err
	}

	log.Printf("[%s] %s", name, msg)
	return attempt.Succeed(ctx, msg)
}

func (o *Orchestrator) touchMonth(yearMonth string) {
	o.mu.Lock()
	o.months[yearMonth] = struct{}{}
	o.mu.Unlock()
}

func (o *Orchestrator) collectCatalog(ctx context.Context) (string, error) {
	records, err := o.srcs.Catalog.FetchCatalog(ctx)
	if err != nil {
		return "", &models.SourceUnavailableError{Source: o.srcs.Catalog.Name(), Err: err}
	}

	resolved, skipped := 0, 0
	for _, rec := range records {
		modelID, err := o.resolver.Resolve(ctx, resolver.Observation{
			Maker:       rec.Maker,
			ModelCode:   rec.ModelCode,
			ModelName:   rec.ModelName,
			ModelNameEN: rec.ModelNameEN,
			Segment:     rec.Segment,
			ModelURL:    rec.ModelURL,
		})
		if err != nil {
			skipped++
			logSkip("catalog", rec.Maker, rec.ModelName, err)
			continue
		}
		resolved++

		if rec.Spec != nil {
			spec := specFromRaw(modelID, rec.Spec)
			if err := o.store.UpsertModelSpec(ctx, spec); err != nil {
				return "", fmt.Errorf("upsert spec for model %d: %w", modelID, err)
			}
		}
	}

	return fmt.Sprintf("%d models resolved, %d skipped", resolved, skipped), nil
}

func (o *Orchestrator) collectSales(ctx context.Context, batchDate time.Time) (string, error) {
	yearMonth := batchDate.Format("2006-01")
	records, err := o.srcs.Sales.FetchSales(ctx, yearMonth)
	if err != nil {
		return "", &models.SourceUnavailableError{Source: o.srcs.Sales.Name(), Err: err}
	}

	written, skipped := 0, 0
	for _, rec := range records {
		modelID, err := o.resolver.Resolve(ctx, resolver.Observation{
			Maker:     rec.Maker,
			ModelCode: rec.ModelCode,
			ModelName: rec.ModelName,
		})
		if err != nil {
			skipped++
			logSkip("sales", rec.Maker, rec.ModelName, err)
			continue
		}

		volume := rec.SalesVolume
		row := &models.SalesMonthly{
			ModelID:              modelID,
			YearMonth:            rec.YearMonth,
			SalesVolume:          &volume,
			SalesMoMDiff:         rec.MoMDiff,
			SalesYoYDiff:         rec.YoYDiff,
			DanawaPopularityRank: rec.Rank,
		}
		if err := o.store.UpsertSalesRaw(ctx, row); err != nil {
			return "", fmt.Errorf("upsert sales for model %d: %w", modelID, err)
		}
		written++
		o.touchMonth(rec.YearMonth)
	}

	return fmt.Sprintf("%d rows written, %d skipped", written, skipped), nil
}

func (o *Orchestrator) collectTrend(ctx context.Context, src sources.TrendSource, provider string, batchDate time.Time) (string, error) {
	yearMonth := batchDate.Format("2006-01")
	records, err := src.FetchInterest(ctx, yearMonth)
	if err != nil {
		return "", &models.SourceUnavailableError{Source: src.Name(), Err: err}
	}

	written, skipped := 0, 0
	for _, rec := range records {
		modelID, err := o.resolver.Resolve(ctx, resolver.Observation{
			Maker:     rec.Maker,
			ModelCode: rec.ModelCode,
			ModelName: rec.ModelName,
		})
		if err != nil {
			skipped++
			logSkip(provider, rec.Maker, rec.ModelName, err)
			continue
		}

		if err := o.store.UpsertTrendIndex(ctx, provider, modelID, rec.YearMonth, rec.Index); err != nil {
			return "", fmt.Errorf("upsert %s index for model %d: %w", provider, modelID, err)
		}
		written++
		o.touchMonth(rec.YearMonth)
	}

	return fmt.Sprintf("%d rows written, %d skipped", written, skipped), nil
}

func (o *Orchestrator) collectRegistry(ctx context.Context, batchDate time.Time) (string, error) {
	yearMonth := batchDate.Format("2006-01")
	records, err := o.srcs.Registry.FetchStats(ctx, yearMonth)
	if err != nil {
		return "", &models.SourceUnavailableError{Source: o.srcs.Registry.Name(), Err: err}
	}

	for _, rec := range records {
		stat := &models.MarketStats{
			YearMonth:   rec.YearMonth,
			VehicleType: rec.VehicleType,
			FuelType:    rec.FuelType,
			RegCount:    rec.Count,
		}
		if err := o.store.UpsertMarketStats(ctx, stat); err != nil {
			return "", fmt.Errorf("upsert market stats %s/%s: %w", rec.VehicleType, rec.FuelType, err)
		}
	}

	return fmt.Sprintf("%d rows written", len(records)), nil
}

// aggregateMonths recomputes derived metrics for every month the collectors
// touched. Each month reads its full cohort in one snapshot; a month that
// fails keeps its prior derived values and does not stop the others.
func (o *Orchestrator) aggregateMonths(ctx context.Context) (string, error) {
	o.mu.Lock()
	months := make([]string, 0, len(o.months))
	for ym := range o.months {
		months = append(months, ym)
	}
	o.mu.Unlock()
	sort.Strings(months)

	if len(months) == 0 {
		return "no months touched", nil
	}

	var firstErr error
	done := 0
	for _, ym := range months {
		err := o.store.RecomputeMonth(ctx, ym, func(rows []metrics.RawMonthRow) ([]metrics.MonthlyMetric, error) {
			return metrics.ComputeMonth(ym, rows, o.weights)
		})
		if err != nil {
			log.Printf("Month %s recomputation failed: %v", ym, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}

	if firstErr != nil {
		return "", fmt.Errorf("%d/%d months recomputed: %w", done, len(months), firstErr)
	}
	return fmt.Sprintf("%d month(s) recomputed", done), nil
}

type pendingArticle struct {
	article models.BlogArticle
	rawHTML string
}

// runBlogCollect fetches the day's articles, attributes each to a model, and
// upserts the metadata rows. It returns the articles that still carry their
// raw HTML for the analysis job.
func (o *Orchestrator) runBlogCollect(ctx context.Context, date string) ([]pendingArticle, error) {
	var pending []pendingArticle

	err := o.runJob(ctx, models.JobBlogCollect, date, func(ctx context.Context) (string, error) {
		records, err := o.srcs.Blogs.FetchArticles(ctx)
		if err != nil {
			return "", &models.SourceUnavailableError{Source: o.srcs.Blogs.Name(), Err: err}
		}

		collected, skipped := 0, 0
		for _, rec := range records {
			modelID, err := o.resolver.Resolve(ctx, resolver.Observation{
				Maker:     rec.Maker,
				ModelCode: rec.ModelCode,
			})
			if err != nil {
				skipped++
				logSkip("blog", rec.Maker, rec.URL, err)
				continue
			}

			article := models.BlogArticle{
				ModelID:     modelID,
				Source:      rec.Source,
				Title:       rec.Title,
				URL:         rec.URL,
				PostedAt:    rec.PostedAt,
				CollectedAt: time.Now(),
			}
			if _, err := o.store.UpsertBlogArticle(ctx, &article); err != nil {
				return "", fmt.Errorf("upsert article %s: %w", rec.URL, err)
			}
			collected++
			pending = append(pending, pendingArticle{article: article, rawHTML: rec.RawHTML})
		}

		return fmt.Sprintf("%d articles collected, %d skipped", collected, skipped), nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// analyzeArticles fans the day's articles over the analysis workers. One
// article's failure never touches another: a failed article simply has no
// analysis row and is counted in the ledger message.
func (o *Orchestrator) analyzeArticles(ctx context.Context, pending []pendingArticle) (string, error) {
	jobs := make(chan pendingArticle)
	var analyzed, failed int64
	var countMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				err := o.analyzeOne(ctx, p)
				countMu.Lock()
				if err != nil {
					failed++
				} else {
					analyzed++
				}
				countMu.Unlock()
			}
		}()
	}

	for _, p := range pending {
		select {
		case jobs <- p:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return "", ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	msg := fmt.Sprintf("%d analyzed, %d failed", analyzed, failed)
	if backlog, err := o.store.ArticlesWithoutAnalysis(ctx, 1000); err == nil && len(backlog) > 0 {
		msg += fmt.Sprintf(", %d in backlog", len(backlog))
	}
	return msg, nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, p pendingArticle) error {
	result, err := o.engine.Analyze(p.article.ID, p.rawHTML, p.article.URL)
	if err != nil {
		var ae *models.AnalysisError
		if errors.As(err, &ae) {
			log.Printf("Skipping article %d (%s): %v", p.article.ID, p.article.URL, err)
			return err
		}
		return err
	}

	nouns, err := json.Marshal(result.Nouns)
	if err != nil {
		return fmt.Errorf("marshal nouns: %w", err)
	}
	keywords, err := json.Marshal(result.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	analysis := &models.BlogAnalysis{
		BlogArticleID: p.article.ID,
		CleanedText:   result.CleanedText,
		Nouns:         nouns,
		TopKeywords:   keywords,
		AnalyzedAt:    time.Now(),
	}

	if len(result.Keywords) > 0 {
		csvData, err := result.WordcloudCSV()
		if err != nil {
			return fmt.Errorf("render wordcloud csv: %w", err)
		}
		key, err := o.uploader.UploadWordcloud(ctx, p.article.ID, csvData)
		if err != nil {
			// artifact storage is best-effort; the analysis itself still lands
			log.Printf("Wordcloud upload failed for article %d: %v", p.article.ID, err)
		} else if key != "" {
			analysis.WordcloudKey = &key
		}
	}

	freqs := make([]models.WordFrequency, 0, len(result.Frequencies))
	for _, f := range result.Frequencies {
		freqs = append(freqs, models.WordFrequency{
			BlogArticleID: p.article.ID,
			Word:          f.Word,
			Freq:          f.Count,
		})
	}

	return o.store.ReplaceAnalysis(ctx, analysis, freqs)
}

func specFromRaw(modelID int64, raw *models.RawSpec) *models.ModelSpec {
	spec := &models.ModelSpec{
		ModelID:      modelID,
		PriceMin:     raw.PriceMin,
		PriceMax:     raw.PriceMax,
		Transmission: raw.Transmission,
		MileageKmpl:  raw.MileageKmpl,
		UpdatedAt:    time.Now(),
	}
	if raw.FuelTypes != nil {
		if data, err := json.Marshal(raw.FuelTypes); err == nil {
			spec.FuelTypes = data
		}
	}
	if raw.Colors != nil {
		if data, err := json.Marshal(raw.Colors); err == nil {
			spec.Colors = data
		}
	}
	return spec
}

func logSkip(job, maker, what string, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		log.Printf("[%s] skipping record %s/%s: %v", job, maker, what, err)
		return
	}
	log.Printf("[%s] record %s/%s not resolved: %v", job, maker, what, err)
}
