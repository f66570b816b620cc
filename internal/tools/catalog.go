package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/dataflows"
)

type fetchArgs struct {
	Symbol string `json:"symbol"`
}

func fetchCapability(name, desc, domain string, fetcher dataflows.Fetcher) Capability {
	return Capability{
		Info: &schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "The stock symbol, e.g. 600519.SH, 0700.HK or AAPL",
					Required: true,
				},
			}),
		},
		Handler: func(ctx context.Context, argsJSON string) (string, error) {
			var args fetchArgs
			if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
				return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
			}
			if args.Symbol == "" {
				return "", fmt.Errorf("tools: %s requires a symbol", name)
			}
			return fetcher.FetchAnalystData(ctx, args.Symbol, domain)
		},
	}
}

// Catalog assembles the capability table for one analyst domain. Every
// domain gets its own narrow table so the model only sees the tools that
// stage is allowed to call.
func Catalog(domain string, fetcher dataflows.Fetcher) *Registry {
	r := NewRegistry()
	switch domain {
	case consts.MarketAnalyst:
		_ = r.Register(fetchCapability("get_market_data",
			"Get recent daily price history and volume for a symbol", domain, fetcher))
	case consts.FundamentalsAnalyst:
		_ = r.Register(fetchCapability("get_fundamentals",
			"Get a fundamental snapshot (latest price, listing market) for a symbol", domain, fetcher))
	case consts.NewsAnalyst:
		_ = r.Register(fetchCapability("get_company_news",
			"Get recent company news headlines for a symbol", domain, fetcher))
	case consts.SentimentAnalyst:
		_ = r.Register(fetchCapability("get_sentiment_scan",
			"Get a sentiment scan over recent headlines for a symbol", domain, fetcher))
	}
	return r
}
