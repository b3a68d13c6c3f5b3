package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
)

// Candidate is the enriched data a buy decision sees.
type Candidate struct {
	Address      string
	WatchedSince time.Time
	Details      *domain.TokenDetails
	Price        *domain.PriceData
}

// Criteria decides whether a candidate is bought. The reason explains a
// rejection in logs.
type Criteria interface {
	Match(c Candidate) (ok bool, reason string)
}

// Func adapts a predicate to Criteria.
type Func func(c Candidate) (bool, string)

// Match calls f.
func (f Func) Match(c Candidate) (bool, string) { return f(c) }

// Always buys every candidate.
func Always() Criteria {
	return Func(func(Candidate) (bool, string) { return true, "" })
}

// MinDailyVolume requires 24h volume above usd. The token API's daily volume
// is preferred; the enrichment's 24h volume is used when it is absent.
func MinDailyVolume(usd decimal.Decimal) Criteria {
	return Func(func(c Candidate) (bool, string) {
		var vol *decimal.Decimal
		if c.Details != nil {
			vol = c.Details.DailyVolumeUSD
		}
		if vol == nil && c.Price != nil && c.Price.Enrichment != nil {
			vol = c.Price.Enrichment.Volume24hUSD
		}
		if vol == nil {
			return false, "daily volume unknown"
		}
		if !vol.GreaterThan(usd) {
			return false, fmt.Sprintf("daily volume %s <= %s", vol.StringFixed(0), usd)
		}
		return true, ""
	})
}

// MinLiquidity requires pool liquidity above usd.
func MinLiquidity(usd decimal.Decimal) Criteria {
	return Func(func(c Candidate) (bool, string) {
		e := enrichment(c)
		if e == nil || e.LiquidityUSD == nil {
			return false, "liquidity unknown"
		}
		if !e.LiquidityUSD.GreaterThan(usd) {
			return false, fmt.Sprintf("liquidity %s <= %s", e.LiquidityUSD.StringFixed(0), usd)
		}
		return true, ""
	})
}

// MomentumThresholds are percentage floors, each strictly exceeded.
type MomentumThresholds struct {
	PriceChange6h       decimal.Decimal
	VolumeChange        decimal.Decimal
	View30mChange       decimal.Decimal
	UniqueView30mChange decimal.Decimal
}

// DefaultMomentum: price +100 % over 6h, volume +200 %, 30m views +100 %,
// 30m unique views +50 %.
func DefaultMomentum() MomentumThresholds {
	return MomentumThresholds{
		PriceChange6h:       decimal.NewFromInt(100),
		VolumeChange:        decimal.NewFromInt(200),
		View30mChange:       decimal.NewFromInt(100),
		UniqueView30mChange: decimal.NewFromInt(50),
	}
}

// Momentum requires every enrichment figure to exceed its threshold.
// A missing figure fails the check.
func Momentum(th MomentumThresholds) Criteria {
	return Func(func(c Candidate) (bool, string) {
		e := enrichment(c)
		if e == nil {
			return false, "no enrichment"
		}
		checks := []struct {
			name  string
			value *decimal.Decimal
			floor decimal.Decimal
		}{
			{"price_change_6h", e.PriceChange6hPercent, th.PriceChange6h},
			{"volume_change", e.VolumeChangePercent, th.VolumeChange},
			{"view_30m_change", e.View30mChangePercent, th.View30mChange},
			{"unique_view_30m_change", e.UniqueView30mChangePercent, th.UniqueView30mChange},
		}
		for _, chk := range checks {
			if chk.value == nil {
				return false, chk.name + " unknown"
			}
			if !chk.value.GreaterThan(chk.floor) {
				return false, fmt.Sprintf("%s %s%% <= %s%%", chk.name, chk.value.StringFixed(1), chk.floor)
			}
		}
		return true, ""
	})
}

// All matches when every criteria matches; the first rejection is reported.
func All(criteria ...Criteria) Criteria {
	return Func(func(c Candidate) (bool, string) {
		for _, cr := range criteria {
			if ok, reason := cr.Match(c); !ok {
				return false, reason
			}
		}
		return true, ""
	})
}

// CriteriaConfig names the rules to combine and their thresholds.
type CriteriaConfig struct {
	Rules             []string // "always", "volume", "liquidity", "momentum"
	MinDailyVolumeUSD decimal.Decimal
	MinLiquidityUSD   decimal.Decimal
	Momentum          MomentumThresholds
}

// BuildCriteria combines the configured rules with All.
func BuildCriteria(cfg CriteriaConfig) (Criteria, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("no criteria rules configured")
	}
	var parts []Criteria
	for _, rule := range cfg.Rules {
		switch strings.ToLower(strings.TrimSpace(rule)) {
		case "always":
			parts = append(parts, Always())
		case "volume":
			parts = append(parts, MinDailyVolume(cfg.MinDailyVolumeUSD))
		case "liquidity":
			parts = append(parts, MinLiquidity(cfg.MinLiquidityUSD))
		case "momentum":
			parts = append(parts, Momentum(cfg.Momentum))
		default:
			return nil, fmt.Errorf("unknown criteria rule %q", rule)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return All(parts...), nil
}

func enrichment(c Candidate) *domain.Enrichment {
	if c.Price == nil {
		return nil
	}
	return c.Price.Enrichment
}
