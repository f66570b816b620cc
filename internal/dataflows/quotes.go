package dataflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	lpquote "github.com/longportapp/openapi-go/quote"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

// YahooClient looks up quotes and candles for US-listed symbols.
type YahooClient struct {
	cache *FileCache
}

func NewYahooClient(cfg *config.Config) *YahooClient {
	return &YahooClient{
		cache: NewFileCache(filepath.Join(cfg.DataCacheDir, "yahoo"), time.Hour, cfg.CacheEnabled),
	}
}

func (yc *YahooClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var cached models.Quote
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *models.Quote
	err := withRetry(ctx, 3, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return err
		}
		if q == nil {
			return errors.New("empty quote")
		}
		result = &models.Quote{
			Symbol:   symbol,
			Last:     decimal.NewFromFloat(q.RegularMarketPrice),
			Currency: models.MarketCurrency(symbol),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	_ = yc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// LongportClient covers HK and mainland symbols through the Longport
// OpenAPI. Construction fails fast when credentials are missing; callers
// degrade to other sources.
type LongportClient struct {
	quoteCtx *lpquote.QuoteContext
	cache    *FileCache
}

func NewLongportClient(cfg *config.Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}
	quoteCtx, err := lpquote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteCtx,
		cache:    NewFileCache(filepath.Join(cfg.DataCacheDir, "longport"), time.Hour, cfg.CacheEnabled),
	}, nil
}

// DailySticks returns the last count daily candlesticks for a symbol.
func (lc *LongportClient) DailySticks(ctx context.Context, symbol string, count int) ([]*models.MarketData, error) {
	if lc.quoteCtx == nil {
		return nil, fmt.Errorf("%w: longport quote context is nil", ErrDataUnavailable)
	}

	cacheKey := map[string]any{"symbol": symbol, "count": count}
	var cached []*models.MarketData
	if lc.cache.Get("longport", "daily_sticks", cacheKey, &cached) {
		return cached, nil
	}

	sticks, err := lc.quoteCtx.Candlesticks(ctx, symbol, lpquote.PeriodDay, int32(count), lpquote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	out := make([]*models.MarketData, 0, len(sticks))
	for _, s := range sticks {
		open, _ := s.Open.Float64()
		high, _ := s.High.Float64()
		low, _ := s.Low.Float64()
		closeP, _ := s.Close.Float64()
		out = append(out, &models.MarketData{
			Symbol: symbol,
			Date:   time.Unix(s.Timestamp, 0).Format("2006-01-02"),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: s.Volume,
		})
	}

	_ = lc.cache.Set("longport", "daily_sticks", cacheKey, out)
	return out, nil
}

// Quote returns the latest traded price for a HK/CN symbol.
func (lc *LongportClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	sticks, err := lc.DailySticks(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(sticks) == 0 {
		return nil, fmt.Errorf("%w: no candlesticks for %s", ErrDataUnavailable, symbol)
	}
	last := sticks[len(sticks)-1]
	return &models.Quote{
		Symbol:   symbol,
		Last:     decimal.NewFromFloat(last.Close),
		Currency: models.MarketCurrency(symbol),
	}, nil
}
