// Package cli holds the interactive prompts used when the analyze command
// is started without flags.
package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/ashareq/tradeflow/consts"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

// PromptForSymbol asks for a ticker. A-share codes (600519), HK tickers
// (0700.HK) and US tickers (AAPL) are all accepted.
func PromptForSymbol() (string, error) {
	var symbol string
	prompt := &survey.Input{
		Message: "Ticker symbol (e.g. 600519, 0700.HK, AAPL):",
	}
	err := survey.AskOne(prompt, &symbol, survey.WithValidator(func(val interface{}) error {
		str := strings.ToUpper(strings.TrimSpace(val.(string)))
		if str == "" {
			return fmt.Errorf("ticker cannot be empty")
		}
		if len(str) > 12 {
			return fmt.Errorf("ticker too long")
		}
		if !tickerPattern.MatchString(str) {
			return fmt.Errorf("use letters, digits, dots and hyphens only")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(symbol)), nil
}

// PromptForDate asks for the trade date, defaulting to today.
func PromptForDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Trade date (YYYY-MM-DD):",
		Default: time.Now().Format("2006-01-02"),
	}
	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		if _, err := time.Parse("2006-01-02", str); err != nil {
			return fmt.Errorf("use YYYY-MM-DD, e.g. %s", time.Now().Format("2006-01-02"))
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dateStr) == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	return strings.TrimSpace(dateStr), nil
}

// PromptForAnalysts asks which analyst domains to run, all by default.
func PromptForAnalysts() ([]string, error) {
	selected := append([]string(nil), consts.AllAnalysts...)
	prompt := &survey.MultiSelect{
		Message: "Analyst domains:",
		Options: consts.AllAnalysts,
		Default: consts.AllAnalysts,
	}
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}
	return selected, nil
}
