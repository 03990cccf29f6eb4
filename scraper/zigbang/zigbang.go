package zigbang

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"zigbang-scraper/config"
	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

const (
	searchPath = "/v2/items"
	detailPath = "/v2/items/list"
	domain     = "zigbang"

	userAgent = "Mozilla/5.0 (compatible; LandomoBot/1.0)"
)

// salesTypeFilter requests all three pricing regimes in one search.
const salesTypeFilter = "전세|월세|매매"

// SearchFilter narrows one search request. Amounts are in manwon; a zero
// upper bound means unbounded.
type SearchFilter struct {
	PropertyType string
	DepositMin   int
	DepositMax   int
	RentMin      int
	RentMax      int
}

// Scraper talks to the Zigbang REST API: per-cell listing discovery and
// chunked batch-detail fetching. All requests go through the shared rate
// limiter, one at a time.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	limiter    *utils.RateLimiter
	httpClient *http.Client
	baseURL    string
}

// New creates a ready-to-use Zigbang Scraper.
func New(cfg *config.Config, logger *utils.Logger, limiter *utils.RateLimiter) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		baseURL: cfg.ZigbangAPIURL,
	}
}

type searchResponse struct {
	Items []struct {
		ItemID int64 `json:"item_id"`
	} `json:"items"`
}

type detailRequest struct {
	Domain  string  `json:"domain"`
	ItemIDs []int64 `json:"item_ids"`
}

type detailResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Discover queries every cell with the given filter and returns the
// deduplicated identifiers. A failing cell is logged and skipped; it never
// aborts the search.
func (s *Scraper) Discover(ctx context.Context, cells []string, filter SearchFilter) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64

	for _, cell := range cells {
		cellIDs, err := s.searchCell(ctx, cell, filter)
		if err != nil {
			s.logger.Warn("[zigbang] Cell %s search failed: %v — skipping", cell, err)
			continue
		}
		for _, id := range cellIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		s.logger.Debug("[zigbang] Cell %s: %d items (%d unique so far)", cell, len(cellIDs), len(ids))
	}

	return ids
}

// searchCell issues one search request for a single geohash cell.
func (s *Scraper) searchCell(ctx context.Context, cell string, filter SearchFilter) ([]int64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("domain", domain)
	q.Set("geohash", cell)
	q.Set("sales_type_in", salesTypeFilter)
	q.Set("deposit_gteq", strconv.Itoa(filter.DepositMin))
	q.Set("rent_gteq", strconv.Itoa(filter.RentMin))
	if filter.DepositMax > 0 {
		q.Set("deposit_lteq", strconv.Itoa(filter.DepositMax))
	}
	if filter.RentMax > 0 {
		q.Set("rent_lteq", strconv.Itoa(filter.RentMax))
	}
	if filter.PropertyType != "" {
		q.Set("service_type_eq", filter.PropertyType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search request: unexpected status %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]int64, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ItemID != 0 {
			ids = append(ids, item.ItemID)
		}
	}
	return ids, nil
}

// FetchDetails retrieves full records for the given identifiers, chunked to
// the configured batch size. A failing chunk is logged and skipped while
// earlier chunks are retained; a malformed item is logged and omitted
// without discarding the rest of its chunk.
func (s *Scraper) FetchDetails(ctx context.Context, ids []int64) []*models.RawListing {
	chunks := chunkIDs(ids, s.cfg.BatchSize)
	var listings []*models.RawListing

	for i, chunk := range chunks {
		chunkListings, err := s.fetchChunk(ctx, chunk)
		if err != nil {
			s.logger.Warn("[zigbang] Detail chunk %d/%d (%d ids) failed: %v — skipping",
				i+1, len(chunks), len(chunk), err)
			continue
		}
		listings = append(listings, chunkListings...)
	}

	return listings
}

// fetchChunk posts one batch of identifiers to the detail endpoint and
// decodes each returned item independently.
func (s *Scraper) fetchChunk(ctx context.Context, ids []int64) ([]*models.RawListing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(detailRequest{Domain: domain, ItemIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("encode detail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+detailPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build detail request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("detail request: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read detail response: %w", err)
	}

	var parsed detailResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode detail response: %w", err)
	}

	listings := make([]*models.RawListing, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		listing := &models.RawListing{}
		if err := json.Unmarshal(item, listing); err != nil {
			s.logger.Warn("[zigbang] Skipping malformed item in batch: %v", err)
			continue
		}
		if listing.ItemID == 0 {
			s.logger.Warn("[zigbang] Skipping item without identifier")
			continue
		}
		listing.Raw = json.RawMessage(append([]byte(nil), item...))
		listings = append(listings, listing)
	}

	return listings, nil
}

// chunkIDs partitions ids into consecutive chunks of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = 1
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
