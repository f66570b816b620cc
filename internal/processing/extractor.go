// Package processing converts the trader's free-text recommendation into a
// bounded Signal. Extraction is deterministic and never fails: garbage in
// yields a neutral hold signal, not an error.
package processing

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

// Extractor parses trade narratives. All regexes are compiled once; the
// zero value is not usable, construct with NewExtractor.
type Extractor struct {
	fallbackPct float64
	neutral     float64
	logger      *zap.Logger
}

func NewExtractor(cfg *config.Config, logger *zap.Logger) *Extractor {
	return &Extractor{
		fallbackPct: cfg.FallbackEstimatePct,
		neutral:     cfg.NeutralConfidence,
		logger:      logger,
	}
}

type keywordSet struct {
	direction models.Direction
	patterns  []*regexp.Regexp
}

// Keyword tables are ordered; within the narrative the LAST match wins,
// and a match after a final-decision marker beats everything before it.
// ASCII keywords only match whole words, so "shareholders" never counts
// as "hold". CJK text has no word boundaries; those stay substring matches.
var directionKeywords = []keywordSet{
	{models.DirectionLong, keywordPatterns("buy", "accumulate", "go long", "买入", "买进", "加仓", "做多", "建仓")},
	{models.DirectionShort, keywordPatterns("sell", "go short", "卖出", "做空", "减仓", "清仓", "抛售")},
	{models.DirectionHold, keywordPatterns("hold", "stay flat", "持有", "观望", "持仓不动")},
}

func keywordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		expr := regexp.QuoteMeta(w)
		if isASCII(w) {
			expr = `\b` + expr + `\b`
		}
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

var finalDecisionMarkers = []string{
	"final trade decision",
	"final decision",
	"final stance",
	"最终交易决定",
	"最终决定",
	"最终建议",
}

var (
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONPattern  = regexp.MustCompile(`(?s)\{[^{}]*"(?:direction|action)"[^{}]*\}`)

	numberGroup = `[¥$]?(?:HK\$)?\s*(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:美元|港元|港币|元|USD|HKD|CNY)?`

	targetPricePattern = regexp.MustCompile(`(?i)(?:目标价位|目标价|price target|target price|target)\D{0,6}?` + numberGroup)
	stopPricePattern   = regexp.MustCompile(`(?i)(?:止损价位|止损价|止损|stop[- ]?loss|stop)\D{0,6}?` + numberGroup)

	risePctPattern = regexp.MustCompile(`(?i)(?:(?:上涨|上升|涨幅|upside|rise|gain|increase|up)\D{0,8}?(\d+(?:\.\d+)?)\s*%|(\d+(?:\.\d+)?)\s*%\s*(?:above|higher|upside|gain))`)
	fallPctPattern = regexp.MustCompile(`(?i)(?:(?:下跌|下行|跌幅|downside|fall|drop|decline|down)\D{0,8}?(\d+(?:\.\d+)?)\s*%|(\d+(?:\.\d+)?)\s*%\s*(?:below|lower|downside|decline))`)

	confidencePattern = regexp.MustCompile(`(?i)(?:confidence|conviction|信心|置信度|把握)\D{0,10}?(\d+(?:\.\d+)?)\s*%?`)
	riskPattern       = regexp.MustCompile(`(?i)(?:risk score|risk level|风险评分|风险度|风险水平|风险)\D{0,10}?(\d+(?:\.\d+)?)\s*%?`)
	positionPattern   = regexp.MustCompile(`(?i)(?:position size|position|仓位)\D{0,12}?(\d+(?:\.\d+)?)\s*%`)
)

// Extract converts a trade narrative into a Signal. currentPrice is the
// last known quote and may be nil; without it the percentage and fallback
// estimation steps are skipped and prices stay unset.
func (e *Extractor) Extract(symbol, narrative string, currentPrice *models.Price) *models.Signal {
	cur := models.MarketCurrency(symbol)
	sig := &models.Signal{
		Symbol:     symbol,
		Direction:  models.DirectionHold,
		Confidence: e.neutral,
		RiskScore:  e.neutral,
		Reasoning:  strings.TrimSpace(narrative),
		Estimated:  true,
	}
	if strings.TrimSpace(narrative) == "" {
		return sig
	}

	// The JSON path consumes its block; text rules only ever see the
	// surrounding prose, so a block field is never re-parsed as narrative.
	if rest, ok := e.fromJSONBlock(sig, narrative, cur); ok {
		e.fillFromText(sig, rest, currentPrice)
		return sig
	}

	if dir, ok := extractDirection(narrative); ok {
		sig.Direction = dir
	}
	e.fillFromText(sig, narrative, currentPrice)
	return sig
}

// fromJSONBlock handles narratives where the model emitted a structured
// block. Broken JSON is repaired before parsing; a block without a usable
// direction is ignored entirely. On success it returns the narrative with
// the block removed.
func (e *Extractor) fromJSONBlock(sig *models.Signal, narrative string, cur models.Currency) (string, bool) {
	raw, whole := "", ""
	if m := jsonBlockPattern.FindStringSubmatch(narrative); m != nil {
		raw, whole = m[1], m[0]
	} else if m := bareJSONPattern.FindString(narrative); m != "" {
		raw, whole = m, m
	}
	if raw == "" {
		return "", false
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		e.logger.Debug("json block repair failed, falling back to text rules", zap.Error(err))
		return "", false
	}

	dirField := gjson.Get(repaired, "direction")
	if !dirField.Exists() {
		dirField = gjson.Get(repaired, "action")
	}
	dir, ok := normalizeDirection(dirField.String())
	if !ok {
		return "", false
	}
	sig.Direction = dir

	if v := gjson.Get(repaired, "confidence"); v.Exists() {
		sig.Confidence = clamp01(normalizeRatio(v.Float()))
	}
	if v := gjson.Get(repaired, "risk_score"); v.Exists() {
		sig.RiskScore = clamp01(normalizeRatio(v.Float()))
	}
	if v := gjson.Get(repaired, "target_price"); v.Exists() && v.Float() > 0 {
		sig.TargetPrice = &models.Price{Amount: decimal.NewFromFloat(v.Float()), Currency: cur}
		sig.Estimated = false
	}
	if v := gjson.Get(repaired, "stop_loss_price"); v.Exists() && v.Float() > 0 {
		sig.StopLossPrice = &models.Price{Amount: decimal.NewFromFloat(v.Float()), Currency: cur}
	}
	if v := gjson.Get(repaired, "position_size_pct"); v.Exists() {
		p := clamp01(normalizeRatio(v.Float()))
		sig.PositionSizePct = &p
	}
	if v := gjson.Get(repaired, "reasoning"); v.Exists() && v.String() != "" {
		sig.Reasoning = v.String()
	}
	return strings.Replace(narrative, whole, "", 1), true
}

// fillFromText runs the ordered textual extraction steps for whatever the
// JSON path (if any) left unset.
func (e *Extractor) fillFromText(sig *models.Signal, narrative string, currentPrice *models.Price) {
	cur := models.MarketCurrency(sig.Symbol)
	if sig.TargetPrice == nil {
		if amt, ok := matchPrice(targetPricePattern, narrative); ok {
			sig.TargetPrice = &models.Price{Amount: amt, Currency: cur}
			sig.Estimated = false
		}
	}
	if sig.StopLossPrice == nil {
		if amt, ok := matchPrice(stopPricePattern, narrative); ok {
			sig.StopLossPrice = &models.Price{Amount: amt, Currency: cur}
		}
	}

	if sig.TargetPrice == nil && currentPrice != nil {
		pct, sign, found := extractChangePct(narrative)
		if !found {
			pct = e.fallbackPct
			sign = directionSign(sig.Direction)
		}
		target := currentPrice.Amount.Mul(decimal.NewFromFloat(1 + sign*pct))
		sig.TargetPrice = &models.Price{Amount: target, Currency: currentPrice.Currency}
		sig.Estimated = true
	}

	if m := confidencePattern.FindStringSubmatch(narrative); m != nil {
		sig.Confidence = clamp01(normalizeRatio(parseFloat(m[1])))
	}
	if m := riskPattern.FindStringSubmatch(narrative); m != nil {
		sig.RiskScore = clamp01(normalizeRatio(parseFloat(m[1])))
	}
	if sig.PositionSizePct == nil {
		if m := positionPattern.FindStringSubmatch(narrative); m != nil {
			p := clamp01(parseFloat(m[1]) / 100)
			sig.PositionSizePct = &p
		}
	}
}

// extractDirection applies the conflict rule: keywords after the last
// final-decision marker take precedence; otherwise the last occurrence in
// text order wins.
func extractDirection(narrative string) (models.Direction, bool) {
	lowered := strings.ToLower(narrative)

	search := lowered
	markerAt := -1
	for _, marker := range finalDecisionMarkers {
		if idx := strings.LastIndex(lowered, marker); idx > markerAt {
			markerAt = idx
		}
	}
	if markerAt >= 0 {
		tail := lowered[markerAt:]
		if dir, ok := lastKeyword(tail); ok {
			return dir, true
		}
	}
	return lastKeyword(search)
}

func lastKeyword(text string) (models.Direction, bool) {
	best := -1
	var dir models.Direction
	for _, set := range directionKeywords {
		for _, p := range set.patterns {
			locs := p.FindAllStringIndex(text, -1)
			if len(locs) == 0 {
				continue
			}
			if idx := locs[len(locs)-1][0]; idx > best {
				best = idx
				dir = set.direction
			}
		}
	}
	return dir, best >= 0
}

func normalizeDirection(s string) (models.Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long", "买入":
		return models.DirectionLong, true
	case "sell", "short", "卖出":
		return models.DirectionShort, true
	case "hold", "持有":
		return models.DirectionHold, true
	case "close", "平仓":
		return models.DirectionClose, true
	}
	return "", false
}

// extractChangePct finds an expected percentage move and its sign. The
// last stated move wins, matching the direction rule.
func extractChangePct(narrative string) (pct, sign float64, found bool) {
	riseIdx, risePct := lastPctMatch(risePctPattern, narrative)
	fallIdx, fallPct := lastPctMatch(fallPctPattern, narrative)
	switch {
	case riseIdx < 0 && fallIdx < 0:
		return 0, 0, false
	case riseIdx > fallIdx:
		return risePct / 100, 1, true
	default:
		return fallPct / 100, -1, true
	}
}

func lastPctMatch(p *regexp.Regexp, text string) (int, float64) {
	idxs := p.FindAllStringSubmatchIndex(text, -1)
	if len(idxs) == 0 {
		return -1, 0
	}
	last := idxs[len(idxs)-1]
	for g := 1; 2*g+1 < len(last); g++ {
		if last[2*g] >= 0 {
			return last[0], parseFloat(text[last[2*g]:last[2*g+1]])
		}
	}
	return -1, 0
}

// matchPrice finds the first absolute price after a target/stop cue. A
// number trailed by a percent sign is a move, not a price; RE2 has no
// lookahead, so those matches are filtered here and left for the
// percentage-estimation step.
func matchPrice(p *regexp.Regexp, text string) (decimal.Decimal, bool) {
	for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
		if percentFollows(text, m[3]) {
			continue
		}
		amt, err := decimal.NewFromString(strings.ReplaceAll(text[m[2]:m[3]], ",", ""))
		if err != nil || amt.Sign() <= 0 {
			continue
		}
		return amt, true
	}
	return decimal.Decimal{}, false
}

func percentFollows(text string, at int) bool {
	rest := strings.TrimLeft(text[at:], " \t")
	return strings.HasPrefix(rest, "%") || strings.HasPrefix(rest, "％")
}

func directionSign(d models.Direction) float64 {
	switch d {
	case models.DirectionShort:
		return -1
	default:
		return 1
	}
}

func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// normalizeRatio maps percentage-style values (70, 70.0) to ratios (0.7),
// leaving values already in [0,1] untouched.
func normalizeRatio(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
