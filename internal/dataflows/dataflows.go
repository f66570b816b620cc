package dataflows

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

// ErrDataUnavailable marks a fetch that exhausted its sources. Stages
// convert it into a degraded placeholder; it never aborts a run.
var ErrDataUnavailable = errors.New("dataflows: data unavailable")

// Fetcher is the analyst-data contract consumed by the pipeline.
type Fetcher interface {
	FetchAnalystData(ctx context.Context, symbol, domain string) (string, error)
	LastQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// DataFlows routes each analyst domain to its data sources: Longport for
// HK/CN candles, Yahoo for US quotes, Finnhub or the headline scraper for
// news and sentiment.
type DataFlows struct {
	finnhub  *FinnhubClient
	scraper  *HeadlineScraper
	yahoo    *YahooClient
	longport *LongportClient
	logger   *zap.Logger
	online   bool
}

func New(cfg *config.Config, logger *zap.Logger) *DataFlows {
	df := &DataFlows{
		finnhub: NewFinnhubClient(cfg),
		scraper: NewHeadlineScraper(cfg),
		yahoo:   NewYahooClient(cfg),
		logger:  logger,
		online:  cfg.OnlineTools,
	}
	if lp, err := NewLongportClient(cfg); err == nil {
		df.longport = lp
	} else {
		logger.Info("longport client disabled", zap.Error(err))
	}
	return df
}

func (df *DataFlows) FetchAnalystData(ctx context.Context, symbol, domain string) (string, error) {
	if !df.online {
		return "", fmt.Errorf("%w: online tools disabled", ErrDataUnavailable)
	}
	switch domain {
	case consts.MarketAnalyst:
		return df.marketData(ctx, symbol)
	case consts.FundamentalsAnalyst:
		return df.fundamentalsData(ctx, symbol)
	case consts.NewsAnalyst:
		return df.newsData(ctx, symbol)
	case consts.SentimentAnalyst:
		return df.sentimentData(ctx, symbol)
	default:
		return "", fmt.Errorf("%w: unknown analyst domain %q", ErrDataUnavailable, domain)
	}
}

// LastQuote resolves the latest traded price, preferring the venue-native
// source for the symbol's market.
func (df *DataFlows) LastQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if models.MarketCurrency(symbol) != models.USD && df.longport != nil {
		if q, err := df.longport.Quote(ctx, toLongportSymbol(symbol)); err == nil {
			return q, nil
		}
	}
	return df.yahoo.Quote(ctx, symbol)
}

func (df *DataFlows) marketData(ctx context.Context, symbol string) (string, error) {
	if df.longport != nil && models.MarketCurrency(symbol) != models.USD {
		sticks, err := df.longport.DailySticks(ctx, toLongportSymbol(symbol), 30)
		if err == nil && len(sticks) > 0 {
			return renderCandles(symbol, sticks), nil
		}
		df.logger.Debug("longport candles unavailable, falling back", zap.String("symbol", symbol), zap.Error(err))
	}

	q, err := df.yahoo.Quote(ctx, symbol)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Latest quote for %s: %s %s.", symbol, q.Currency.Symbol(), q.Last.StringFixed(2)), nil
}

func (df *DataFlows) fundamentalsData(ctx context.Context, symbol string) (string, error) {
	q, err := df.LastQuote(ctx, symbol)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Fundamental snapshot for %s (currency %s):\n", symbol, q.Currency)
	fmt.Fprintf(&b, "- last traded price: %s %s\n", q.Currency.Symbol(), q.Last.StringFixed(2))
	fmt.Fprintf(&b, "- market: %s listing\n", q.Currency)
	return b.String(), nil
}

func (df *DataFlows) newsData(ctx context.Context, symbol string) (string, error) {
	var articles []*models.NewsArticle
	var err error
	if df.finnhub.Configured() {
		to := time.Now()
		articles, err = df.finnhub.CompanyNews(ctx, symbol, to.AddDate(0, 0, -7), to)
	}
	if len(articles) == 0 {
		articles, err = df.scraper.Search(ctx, symbol+" stock", 15)
	}
	if err != nil && len(articles) == 0 {
		return "", err
	}
	return renderArticles(symbol, articles), nil
}

func (df *DataFlows) sentimentData(ctx context.Context, symbol string) (string, error) {
	articles, err := df.scraper.Search(ctx, symbol+" investor sentiment", 15)
	if err != nil {
		return "", err
	}

	pos, neg := 0, 0
	for _, a := range articles {
		text := strings.ToLower(a.Headline + " " + a.Summary)
		for _, w := range []string{"surge", "beat", "upgrade", "rally", "growth", "record"} {
			if strings.Contains(text, w) {
				pos++
			}
		}
		for _, w := range []string{"plunge", "miss", "downgrade", "selloff", "lawsuit", "decline"} {
			if strings.Contains(text, w) {
				neg++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sentiment scan for %s across %d recent headlines: %d positive cues, %d negative cues.\n\n", symbol, len(articles), pos, neg)
	b.WriteString(renderArticles(symbol, articles))
	return b.String(), nil
}

func renderCandles(symbol string, sticks []*models.MarketData) string {
	first, last := sticks[0], sticks[len(sticks)-1]
	high, low := sticks[0].High, sticks[0].Low
	var volume int64
	for _, s := range sticks {
		if s.High > high {
			high = s.High
		}
		if s.Low < low {
			low = s.Low
		}
		volume += s.Volume
	}
	change := 0.0
	if first.Close != 0 {
		change = (last.Close - first.Close) / first.Close * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily price history for %s (%s to %s, %d sessions):\n", symbol, first.Date, last.Date, len(sticks))
	fmt.Fprintf(&b, "- close moved from %.2f to %.2f (%+.2f%%)\n", first.Close, last.Close, change)
	fmt.Fprintf(&b, "- range high %.2f, range low %.2f\n", high, low)
	fmt.Fprintf(&b, "- average daily volume %d\n", volume/int64(len(sticks)))
	return b.String()
}

func renderArticles(symbol string, articles []*models.NewsArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recent headlines for %s:\n", symbol)
	for i, a := range articles {
		if i >= 15 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s", a.Source, a.Headline)
		if a.Summary != "" {
			fmt.Fprintf(&b, ": %s", a.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var bareAShare = regexp.MustCompile(`^\d{6}$`)

// toLongportSymbol maps common suffixes to Longport's venue notation.
// Bare six digit codes get their exchange suffix from the code prefix.
func toLongportSymbol(symbol string) string {
	up := strings.ToUpper(symbol)
	if strings.HasSuffix(up, ".SS") {
		return strings.TrimSuffix(up, ".SS") + ".SH"
	}
	if bareAShare.MatchString(up) {
		if strings.HasPrefix(up, "6") {
			return up + ".SH"
		}
		return up + ".SZ"
	}
	return up
}

// withRetry runs fn with bounded exponential backoff. Only used for data
// fetches; LLM calls go through llm.Retrying.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 3 * time.Second, Factor: 2, Jitter: true}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
