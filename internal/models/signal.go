package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the extracted trading action.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionHold  Direction = "hold"
	DirectionClose Direction = "close"
)

// Currency tags every extracted price with the market it belongs to.
type Currency string

const (
	CNY Currency = "CNY"
	HKD Currency = "HKD"
	USD Currency = "USD"
)

// Symbol returns the textual prefix used in narratives for this currency.
func (c Currency) Symbol() string {
	switch c {
	case CNY:
		return "¥"
	case HKD:
		return "HK$"
	default:
		return "$"
	}
}

var ashareCode = regexp.MustCompile(`^\d{6}$`)

// MarketCurrency derives the currency implied by a traded symbol.
// ".HK" suffixed symbols trade in HKD, Shanghai/Shenzhen suffixes and bare
// six digit codes in CNY, everything else in USD.
func MarketCurrency(symbol string) Currency {
	up := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case strings.HasSuffix(up, ".HK"):
		return HKD
	case strings.HasSuffix(up, ".SH"), strings.HasSuffix(up, ".SS"), strings.HasSuffix(up, ".SZ"):
		return CNY
	case ashareCode.MatchString(up):
		return CNY
	default:
		return USD
	}
}

// Price is a currency-tagged amount.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// Signal is the structured, numerically bounded decision handed to callers.
// Confidence and RiskScore are always populated and clamped to [0,1].
type Signal struct {
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	Confidence      float64   `json:"confidence"`
	RiskScore       float64   `json:"risk_score"`
	TargetPrice     *Price    `json:"target_price,omitempty"`
	StopLossPrice   *Price    `json:"stop_loss_price,omitempty"`
	PositionSizePct *float64  `json:"position_size_pct,omitempty"`
	Reasoning       string    `json:"reasoning"`
	Estimated       bool      `json:"estimated"`
	IsError         bool      `json:"is_error"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// ErrorSignal builds the hold-at-neutral signal returned when the pipeline
// fails before a usable recommendation exists.
func ErrorSignal(symbol, msg string) *Signal {
	return &Signal{
		Symbol:       symbol,
		Direction:    DirectionHold,
		Confidence:   0.5,
		RiskScore:    0.5,
		Estimated:    true,
		IsError:      true,
		ErrorMessage: msg,
	}
}
