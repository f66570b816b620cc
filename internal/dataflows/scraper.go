package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

// HeadlineScraper pulls recent headlines from Google News search pages.
// It is the keyless fallback for the news and sentiment domains.
type HeadlineScraper struct {
	client *resty.Client
	cache  *FileCache
}

func NewHeadlineScraper(cfg *config.Config) *HeadlineScraper {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; tradeflow/1.0)")

	return &HeadlineScraper{
		client: client,
		cache:  NewFileCache(filepath.Join(cfg.DataCacheDir, "headlines"), 2*time.Hour, cfg.CacheEnabled),
	}
}

// Search scrapes up to maxResults headlines matching the query.
func (hs *HeadlineScraper) Search(ctx context.Context, query string, maxResults int) ([]*models.NewsArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty headline query", ErrDataUnavailable)
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	cacheKey := map[string]any{"query": query, "max": maxResults}
	var cached []*models.NewsArticle
	if hs.cache.Get("headlines", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := "https://news.google.com/search?" + url.Values{
		"q":  {query},
		"hl": {"en-US"},
		"gl": {"US"},
	}.Encode()

	var body string
	err := withRetry(ctx, 3, func() error {
		resp, err := hs.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return err
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("headline search returned status %d", resp.StatusCode())
		}
		body = resp.String()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse headline page: %v", ErrDataUnavailable, err)
	}

	articles := make([]*models.NewsArticle, 0, maxResults)
	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("a").First().Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find("h3, h4").First().Text())
		}
		if title == "" {
			return true
		}
		href, _ := sel.Find("a").First().Attr("href")
		source := strings.TrimSpace(sel.Find("div[data-n-tid]").First().Text())
		articles = append(articles, &models.NewsArticle{
			Headline: title,
			Source:   source,
			URL:      href,
			DateTime: time.Now().Unix(),
		})
		return len(articles) < maxResults
	})

	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no headlines found for %q", ErrDataUnavailable, query)
	}

	_ = hs.cache.Set("headlines", "search", cacheKey, articles)
	return articles, nil
}
