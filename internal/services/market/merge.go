package market

import (
	"github.com/bobmcallan/tickwatch/internal/models"
)

// mergeSnapshots reconciles a fresh fetch into the stored snapshot.
// Quote fields always take the fresh values; indicators and each
// fundamental field only move forward, so a source that returned nothing
// for some field never erases what an earlier fetch established.
func mergeSnapshots(existing, fresh *models.Snapshot) *models.Snapshot {
	if fresh == nil {
		return existing
	}
	if existing == nil {
		merged := *fresh
		return &merged
	}

	merged := *existing
	merged.Name = pickString(fresh.Name, existing.Name)
	merged.Price = fresh.Price
	merged.Change = fresh.Change
	merged.ChangePct = fresh.ChangePct
	merged.MarketStatus = fresh.MarketStatus
	merged.Simulated = fresh.Simulated
	merged.Source = fresh.Source
	merged.LastUpdated = fresh.LastUpdated
	merged.News = fresh.News

	merged.Indicators = mergeIndicators(existing.Indicators, fresh.Indicators)
	merged.Fundamentals = mergeFundamentals(existing.Fundamentals, fresh.Fundamentals)

	return &merged
}

// mergeIndicators overwrites key by key. A fetch over a shorter history
// computes fewer indicators; the keys it did not produce keep the values
// an earlier fetch established.
func mergeIndicators(existing, fresh models.IndicatorSet) models.IndicatorSet {
	if fresh.Empty() {
		return existing
	}
	if existing.Empty() {
		return fresh
	}
	merged := make(models.IndicatorSet, len(existing)+len(fresh))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}

func mergeFundamentals(existing, fresh *models.Fundamentals) *models.Fundamentals {
	if fresh == nil {
		return existing
	}
	if existing == nil {
		merged := *fresh
		return &merged
	}

	merged := *existing
	merged.Sector = pickString(fresh.Sector, existing.Sector)
	merged.Industry = pickString(fresh.Industry, existing.Industry)
	merged.MarketCap = pickFloat(fresh.MarketCap, existing.MarketCap)
	merged.PERatio = pickFloat(fresh.PERatio, existing.PERatio)
	merged.ForwardPE = pickFloat(fresh.ForwardPE, existing.ForwardPE)
	merged.EPS = pickFloat(fresh.EPS, existing.EPS)
	merged.DividendYield = pickFloat(fresh.DividendYield, existing.DividendYield)
	merged.Beta = pickFloat(fresh.Beta, existing.Beta)
	merged.High52Week = pickFloat(fresh.High52Week, existing.High52Week)
	merged.Low52Week = pickFloat(fresh.Low52Week, existing.Low52Week)
	return &merged
}

func pickString(fresh, existing string) string {
	if fresh != "" {
		return fresh
	}
	return existing
}

func pickFloat(fresh, existing *float64) *float64 {
	if fresh != nil {
		return fresh
	}
	return existing
}
