package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/agridata/mygap-api/models"
)

// Scraper produces the current certification records for one category.
// It is the narrow seam between the page-structure assumptions and the
// cache/serving layers; a browser-automation fetcher would implement the
// same interface.
type Scraper interface {
	Fetch(ctx context.Context, category string) (*FetchResult, error)
}

// FetchResult is one successful capture of a category's table.
type FetchResult struct {
	Records      []models.CertificationRecord
	SkippedRows  int // rows dropped for a missing certification number
	DateWarnings int // records whose expiry precedes the certification date
	SourceURL    string
	FetchedAt    time.Time
}

// Options configures a SiteScraper.
type Options struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	DetailRatePerSec int
}

// SiteScraper fetches and parses the MyGAP listing pages over HTTP.
type SiteScraper struct {
	client  *resty.Client
	baseURL string
	limiter *rate.Limiter
	log     *slog.Logger
}

// New builds a SiteScraper. The client carries a browser user-agent and
// browser-like transport headers; the DOA site rejects default Go client
// signatures. Fulltext dialog fetches are rate limited to stay polite.
func New(opts Options) *SiteScraper {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.5")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	perSec := opts.DetailRatePerSec
	if perSec <= 0 {
		perSec = 2
	}

	return &SiteScraper{
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/") + "/",
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
		log:     slog.Default().With("component", "scraper"),
	}
}

// Fetch retrieves the full listing for a category and extracts its records.
// The listing is requested unpaginated (pagesize=-1) so one capture holds
// every row. Read-only against the source.
func (s *SiteScraper) Fetch(ctx context.Context, category string) (*FetchResult, error) {
	category = strings.ToLower(category)
	endpoint, ok := categoryEndpoints[category]
	if !ok {
		return nil, &UnsupportedCategoryError{Category: category}
	}
	pageURL := s.baseURL + endpoint

	s.log.Info("fetching listing page", "category", category, "url", pageURL)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("pagesize", "-1").
		Get(endpoint)
	if err != nil {
		return nil, &SourceUnavailableError{URL: pageURL, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &SourceUnavailableError{URL: pageURL, StatusCode: resp.StatusCode()}
	}
	if len(resp.Body()) == 0 {
		return nil, &SourceUnavailableError{URL: pageURL, Err: errEmptyBody}
	}

	ex, err := s.extractTable(ctx, resp.Body(), pageURL)
	if err != nil {
		return nil, err
	}

	s.log.Info("extraction complete",
		"category", category,
		"records", len(ex.records),
		"skipped_rows", ex.skippedRows,
		"date_warnings", ex.dateWarnings,
	)

	return &FetchResult{
		Records:      ex.records,
		SkippedRows:  ex.skippedRows,
		DateWarnings: ex.dateWarnings,
		SourceURL:    pageURL,
		FetchedAt:    time.Now(),
	}, nil
}
