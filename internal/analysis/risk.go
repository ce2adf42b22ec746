package analysis

import (
	"fmt"
	"math"

	"fxengine/internal/model"
)

// Default account leverage used for margin estimates (50:1).
const defaultMarginRate = 0.02

// TradeParams describe a prospective trade for assessment.
type TradeParams struct {
	Instrument  string
	Balance     float64
	RiskPercent float64
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
}

// Assessment is the sizing and validation verdict for a prospective trade.
type Assessment struct {
	PositionSize    float64  `json:"positionSize"` // units
	RiskAmount      float64  `json:"riskAmount"`
	PipsAtRisk      float64  `json:"pipsAtRisk"`
	RiskRewardRatio float64  `json:"riskRewardRatio"`
	MarginRequired  float64  `json:"marginRequired"`
	Grade           string   `json:"grade"` // conservative | moderate | aggressive
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Valid           bool     `json:"valid"`
}

// AssessTrade sizes a position so the stop-loss distance risks exactly
// RiskPercent of the balance, then validates the trade's geometry. Errors
// make the trade invalid; warnings do not.
func AssessTrade(p TradeParams) Assessment {
	var a Assessment

	if p.Balance <= 0 {
		a.Errors = append(a.Errors, "account balance must be positive")
	}
	if p.RiskPercent <= 0 {
		a.Errors = append(a.Errors, "risk percent must be positive")
	}
	if p.EntryPrice <= 0 {
		a.Errors = append(a.Errors, "entry price must be positive")
	}
	if p.StopLoss == p.EntryPrice {
		a.Errors = append(a.Errors, "stop loss cannot equal entry price")
	}
	if len(a.Errors) > 0 {
		return a
	}

	long := p.TakeProfit > p.EntryPrice
	if long && p.StopLoss > p.EntryPrice {
		a.Errors = append(a.Errors, "long trade: stop loss must be below entry")
	}
	if !long && p.TakeProfit > 0 && p.StopLoss < p.EntryPrice {
		a.Errors = append(a.Errors, "short trade: stop loss must be above entry")
	}
	if len(a.Errors) > 0 {
		return a
	}

	pip := model.PipSize(p.Instrument)
	a.PipsAtRisk = math.Abs(p.EntryPrice-p.StopLoss) / pip
	a.RiskAmount = p.Balance * p.RiskPercent / 100

	// One pip per unit is worth the pip size in quote currency; quote
	// conversion to the account currency is out of scope here.
	pipValuePerUnit := pip
	a.PositionSize = math.Floor(a.RiskAmount / (a.PipsAtRisk * pipValuePerUnit))
	a.MarginRequired = a.PositionSize * p.EntryPrice * defaultMarginRate

	if p.TakeProfit > 0 {
		a.RiskRewardRatio = math.Abs(p.TakeProfit-p.EntryPrice) / math.Abs(p.EntryPrice-p.StopLoss)
		if a.RiskRewardRatio < 1 {
			a.Warnings = append(a.Warnings, "reward is smaller than risk")
		} else if a.RiskRewardRatio < 1.5 {
			a.Warnings = append(a.Warnings, fmt.Sprintf("risk/reward %.2f is below 1.5", a.RiskRewardRatio))
		}
	}

	if p.RiskPercent > 2 {
		a.Warnings = append(a.Warnings, fmt.Sprintf("risking %.1f%% of balance exceeds the 2%% guideline", p.RiskPercent))
	}
	if a.MarginRequired > p.Balance*0.5 {
		a.Warnings = append(a.Warnings, "margin required exceeds half the account balance")
	}

	switch {
	case p.RiskPercent <= 1:
		a.Grade = "conservative"
	case p.RiskPercent <= 2:
		a.Grade = "moderate"
	default:
		a.Grade = "aggressive"
	}

	a.Valid = true
	return a
}
