package totalreturn

import "sort"

// SummaryRow is the canonical per-symbol reconciliation result, before
// price enrichment.
type SummaryRow struct {
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	NetInvested float64 `json:"net_invested_cash"`
	Dividends   float64 `json:"dividends_received"`
}

// mergePortfolio combines activity aggregates and position aggregates into
// one row per symbol, sorted ascending by symbol. The ordering is part of
// the output contract, not cosmetic.
//
// Positions are authoritative for share count: activity share deltas are
// never added on top of a known position. Cost basis is the preferred
// invested figure, with activity-derived net invested cash as the fallback
// when the positions export omits it. Dividends always come from activity,
// independent of which source supplied shares.
func mergePortfolio(act map[string]ActivityAggregate, pos map[string]PositionAggregate) []SummaryRow {
	symbols := make([]string, 0, len(act)+len(pos))
	seen := map[string]struct{}{}
	for s := range act {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	for s := range pos {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	rows := make([]SummaryRow, 0, len(symbols))
	for _, s := range symbols {
		var shares, invested float64
		if p, ok := pos[s]; ok {
			shares = p.BaseShares
			invested = p.CostBasis
			if invested <= 0 {
				if a, ok := act[s]; ok && a.NetInvested > invested {
					invested = a.NetInvested
				}
			}
		} else {
			a := act[s]
			shares = a.SharesDelta
			invested = a.NetInvested
		}
		rows = append(rows, SummaryRow{
			Symbol:      s,
			Shares:      shares,
			NetInvested: invested,
			Dividends:   act[s].Dividends,
		})
	}
	return rows
}

// computeSummary runs the full reconciliation over raw activity and
// positions tables. Both aggregators dedupe their input first, so
// re-uploading identical files yields identical aggregates.
func computeSummary(activity, positions *Table) []SummaryRow {
	return mergePortfolio(aggregateActivity(activity), parsePositions(positions))
}
