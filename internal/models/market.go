package models

import "github.com/shopspring/decimal"

// MarketData is one daily candlestick.
type MarketData struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Quote is the latest traded price for a symbol, currency tagged so the
// signal extractor can anchor percentage based estimates.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Last     decimal.Decimal `json:"last"`
	Currency Currency        `json:"currency"`
}

// NewsArticle is one headline consumed by the news/sentiment analysts.
type NewsArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	DateTime int64  `json:"datetime"`
}
