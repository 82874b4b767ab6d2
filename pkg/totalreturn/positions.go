package totalreturn

// PositionAggregate accumulates a symbol's broker-confirmed holdings across
// accounts. Authoritative for current share count.
type PositionAggregate struct {
	BaseShares float64
	CostBasis  float64
}

// parsePositions reduces the deduplicated positions snapshot to one
// aggregate per symbol, summing shares and cost basis across all accounts
// holding it. Rows with non-positive quantity or cash-like instruments are
// skipped.
func parsePositions(t *Table) map[string]PositionAggregate {
	t = dedupeTable(t)
	out := map[string]PositionAggregate{}
	if t.Empty() {
		return out
	}

	symIdx, hasSym := t.Column(symbolAliases...)
	descIdx, hasDesc := t.Column(descAliases...)
	qtyIdx, hasQty := t.Column(quantityAliases...)
	costIdx, hasCost := t.Column(costBasisAliases...)

	for _, row := range t.Rows {
		var symRaw, desc string
		if hasSym {
			symRaw = t.Cell(row, symIdx)
		}
		if hasDesc {
			desc = t.Cell(row, descIdx)
		}
		sym, ok := NormalizeSymbol(symRaw)
		if !ok || isCashLike(symRaw, desc) {
			continue
		}

		var qty, cost float64
		if hasQty {
			qty = toNumber(t.Cell(row, qtyIdx))
		}
		if qty <= 0 {
			continue
		}
		if hasCost {
			cost = toNumber(t.Cell(row, costIdx))
		}

		agg := out[sym]
		agg.BaseShares += qty
		agg.CostBasis += cost
		out[sym] = agg
	}
	return out
}
