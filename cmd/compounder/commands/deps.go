package commands

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/wonny/compounder/internal/acquire"
	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/external/fmp"
	"github.com/wonny/compounder/internal/external/stockanalysis"
	"github.com/wonny/compounder/internal/pipeline"
	"github.com/wonny/compounder/internal/universe"
	"github.com/wonny/compounder/pkg/config"
	"github.com/wonny/compounder/pkg/database"
	"github.com/wonny/compounder/pkg/httputil"
	"github.com/wonny/compounder/pkg/logger"
	"github.com/wonny/compounder/pkg/redis"
)

// initConfig loads the environment config and applies the global flag
// overrides on top.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if criteriaFlag != "" {
		cfg.CriteriaFile = criteriaFlag
	}
	if envFlag != "" {
		cfg.Env = envFlag
	}
	if verbose {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "console"
	}

	return cfg, nil
}

// appDeps bundles the dependency graph the domain commands share:
// config, logger, storage, provider clients, gateway and criteria.
// ⭐ SSOT: CLI 의존성 조립은 여기서만
type appDeps struct {
	cfg *config.Config
	log *logger.Logger

	db  *database.DB
	rdb *redis.Client

	provider   *fmp.Client
	gateway    *acquire.Gateway
	store      *acquire.Repository
	checkpoint *pipeline.CheckpointRepository

	doc         *criteria.Document
	criteriaSHA string
}

// initDeps builds the full dependency graph. Callers must Close it.
func initDeps() (*appDeps, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	doc, _, err := criteria.LoadOrDefault(cfg.CriteriaFile)
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	sha, err := criteria.Hash(doc)
	if err != nil {
		return nil, fmt.Errorf("hash criteria: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 프로세스 내 토큰 버킷 + (redis가 켜져 있으면) 계정 단위 분당 예산
	httpClient := httputil.NewWithTimeout(log, cfg.FMP.Timeout).
		WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.FMP.RateLimit), cfg.FMP.RateBurst))
	if rdb.Enabled() && cfg.FMP.MinuteBudget > 0 {
		httpClient.WithRateLimiter(redis.BudgetWaiter{
			Limiter: redis.NewRateLimiter(rdb, "compounder"),
			Config:  redis.FMPMinuteBudget(cfg.FMP.MinuteBudget),
		})
	}

	provider := fmp.NewClient(httpClient, log, cfg.FMP.APIKey, cfg.FMP.BaseURL)

	// 폴백 스크레이퍼는 FMP 예산과 무관한 별도 클라이언트를 쓴다
	var fallback contracts.QuoteProvider
	if cfg.StockAnalysis.Enabled {
		fallback = stockanalysis.NewClient(httputil.New(log), log, cfg.StockAnalysis.BaseURL)
	}

	store := acquire.NewRepository(db.Pool)
	quotes := redis.NewCache(rdb, "compounder")
	gateway := acquire.NewGateway(provider, fallback, store, quotes, acquire.Config{
		FundamentalsTTL: cfg.Cache.FundamentalsTTL,
		QuoteTTL:        cfg.Cache.QuoteTTL,
		StatementYears:  cfg.FMP.StatementYears,
	}, log)

	return &appDeps{
		cfg:         cfg,
		log:         log,
		db:          db,
		rdb:         rdb,
		provider:    provider,
		gateway:     gateway,
		store:       store,
		checkpoint:  pipeline.NewCheckpointRepository(db.Pool),
		doc:         doc,
		criteriaSHA: sha,
	}, nil
}

// Close releases the connections initDeps opened.
func (d *appDeps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// universeBuilder constructs the candidate-list builder over the shared
// provider and criteria.
func (d *appDeps) universeBuilder() *universe.Builder {
	return universe.NewBuilder(d.provider, d.doc.Universe, d.log)
}

// orchestrator wires the full pipeline over the shared deps.
func (d *appDeps) orchestrator() (*pipeline.Orchestrator, error) {
	return pipeline.NewOrchestrator(d.universeBuilder(), d.gateway, d.doc, d.checkpoint, pipeline.Config{
		Workers:   d.cfg.Pipeline.Workers,
		BatchSize: d.cfg.Pipeline.BatchSize,
	}, d.log)
}
