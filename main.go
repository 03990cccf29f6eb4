package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"zigbang-scraper/config"
	"zigbang-scraper/geo"
	"zigbang-scraper/landomo"
	"zigbang-scraper/models"
	"zigbang-scraper/scraper/zigbang"
	"zigbang-scraper/services"
	"zigbang-scraper/storage"
	"zigbang-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	if cfg.APIKey == "" && cfg.IsProduction() {
		logger.Error("LANDOMO_API_KEY is required in production")
		os.Exit(1)
	}

	logger.Info("=== Zigbang Scraping System starting ===")
	logger.Info("Config — cities: %v | property types: %v | batch: %d | delay: %dms | cap: %d",
		cfg.Cities, cfg.PropertyTypes, cfg.BatchSize, cfg.RequestDelayMs, cfg.MaxResults)

	cityIndex := geo.DefaultIndex()
	if cfg.CityTablePath != "" {
		ix, err := geo.LoadIndex(cfg.CityTablePath)
		if err != nil {
			logger.Error("Failed to load city table %s: %v", cfg.CityTablePath, err)
			os.Exit(1)
		}
		cityIndex = ix
	}

	var recorder storage.RunRecorder = storage.NopRecorder{}
	if cfg.ScraperDBEnabled() {
		pr, err := storage.NewPostgresRecorder(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to scraper database: %v", err)
			os.Exit(1)
		}
		recorder = pr
	}
	defer recorder.Close()

	limiter := utils.NewRateLimiter(cfg.RequestDelay())

	p := &pipeline{
		cfg:         cfg,
		logger:      logger,
		scraper:     zigbang.New(cfg, logger, limiter),
		transformer: services.NewTransformer(cfg, logger),
		client:      landomo.New(cfg, logger, limiter),
		recorder:    recorder,
		runID:       uuid.NewString(),
	}

	ctx := context.Background()

	var properties []*models.CanonicalProperty
	for _, city := range cfg.Cities {
		cells := cityIndex.Cells(city)
		for _, propertyType := range cfg.PropertyTypes {
			properties = append(properties, p.runCombination(ctx, city, propertyType, cells)...)
		}
	}

	if len(properties) == 0 {
		logger.Warn("Run produced no properties")
	}

	reportSvc := services.NewReportService(logger)
	reportSvc.Print(reportSvc.Generate(properties))

	logger.Info("Scraping completed — run %s, %d properties normalized", p.runID, len(properties))
}

// pipeline bundles the wired components for one scrape run.
type pipeline struct {
	cfg         *config.Config
	logger      *utils.Logger
	scraper     *zigbang.Scraper
	transformer *services.Transformer
	client      *landomo.Client
	recorder    storage.RunRecorder
	runID       string
}

// runCombination drives discovery → cap → fetch → normalize-and-send for
// one (city, property-type) combination. Every record's failure is isolated
// so one bad record never aborts the batch.
func (p *pipeline) runCombination(ctx context.Context, city, propertyType string, cells []string) []*models.CanonicalProperty {
	started := time.Now()
	p.logger.Info("[run] %s / %s — searching %d cells", city, propertyType, len(cells))

	ids := p.scraper.Discover(ctx, cells, zigbang.SearchFilter{PropertyType: propertyType})
	discovered := len(ids)

	if p.cfg.MaxResults > 0 && len(ids) > p.cfg.MaxResults {
		p.logger.Info("[run] Capping %d discovered ids at %d", len(ids), p.cfg.MaxResults)
		ids = ids[:p.cfg.MaxResults]
	}

	listings := p.scraper.FetchDetails(ctx, ids)

	var props []*models.CanonicalProperty
	ingested, failed := 0, 0
	for _, listing := range listings {
		prop, err := p.transformer.Transform(listing)
		if err != nil {
			p.logger.Warn("[run] Skipping listing %d: %v", listing.ItemID, err)
			failed++
			continue
		}
		props = append(props, prop)

		env := &models.IngestionEnvelope{
			Portal:   p.cfg.Portal,
			PortalID: strconv.FormatInt(listing.ItemID, 10),
			Country:  p.cfg.Country,
			Data:     prop,
			RawData:  listing.Raw,
		}
		if err := p.client.Send(ctx, env); err != nil {
			failed++
			continue
		}
		ingested++
	}

	p.logger.Info("[run] %s / %s done — discovered %d, fetched %d, ingested %d, failed %d",
		city, propertyType, discovered, len(listings), ingested, failed)

	record := &models.RunRecord{
		RunID:        p.runID,
		Portal:       p.cfg.Portal,
		City:         city,
		PropertyType: propertyType,
		Discovered:   discovered,
		Fetched:      len(listings),
		Ingested:     ingested,
		Failed:       failed,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if err := p.recorder.Record(record); err != nil {
		p.logger.Warn("[run] Failed to record run history: %v", err)
	}

	return props
}
