package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

// FinnhubClient fetches company news from the Finnhub REST API.
type FinnhubClient struct {
	client *resty.Client
	cache  *FileCache
	apiKey string
}

type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func NewFinnhubClient(cfg *config.Config) *FinnhubClient {
	client := resty.New().
		SetBaseURL("https://finnhub.io/api/v1").
		SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  NewFileCache(filepath.Join(cfg.DataCacheDir, "finnhub"), 6*time.Hour, cfg.CacheEnabled),
		apiKey: cfg.FinnhubAPIKey,
	}
}

func (fc *FinnhubClient) Configured() bool { return fc.apiKey != "" }

// CompanyNews returns news articles for a symbol in the [from, to] window.
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]*models.NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("%w: finnhub api key not configured", ErrDataUnavailable)
	}

	cacheKey := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []*models.NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var raw []finnhubNews
	err := withRetry(ctx, 3, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			SetResult(&raw).
			Get("/company-news")
		if err != nil {
			return err
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub returned status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	articles := make([]*models.NewsArticle, 0, len(raw))
	for _, n := range raw {
		articles = append(articles, &models.NewsArticle{
			Headline: n.Headline,
			Summary:  n.Summary,
			Source:   n.Source,
			URL:      n.URL,
			DateTime: n.DateTime,
		})
	}

	_ = fc.cache.Set("finnhub", "company_news", cacheKey, articles)
	return articles, nil
}
