package totalreturn

// Column alias lists, in priority order. Exports from different brokerages
// (and different export tools of the same brokerage) disagree on naming.
var (
	actionAliases    = []string{"Action"}
	symbolAliases    = []string{"Symbol"}
	descAliases      = []string{"Description"}
	quantityAliases  = []string{"Quantity"}
	amountAliases    = []string{"Amount ($)", "Amount", "Net Amount", "Net Amount ($)"}
	costBasisAliases = []string{"Cost Basis Total", "Cost Basis"}
)

// ActivityAggregate accumulates per-symbol figures from transaction history.
type ActivityAggregate struct {
	SharesDelta float64
	NetInvested float64
	Dividends   float64
}

// aggregateActivity reduces the deduplicated activity table to one
// aggregate per security symbol. Rows that do not map to a genuine
// security (cash-like instruments, blank symbols) are dropped. A missing
// quantity or amount column reads as zero for every row; a missing action
// column leaves every row unclassified.
func aggregateActivity(t *Table) map[string]ActivityAggregate {
	t = dedupeTable(t)
	out := map[string]ActivityAggregate{}
	if t.Empty() {
		return out
	}

	actionIdx, hasAction := t.Column(actionAliases...)
	symIdx, hasSym := t.Column(symbolAliases...)
	descIdx, hasDesc := t.Column(descAliases...)
	qtyIdx, hasQty := t.Column(quantityAliases...)
	amtIdx, hasAmt := t.Column(amountAliases...)

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

		var qty, amount float64
		if hasQty {
			qty = toNumber(t.Cell(row, qtyIdx))
		}
		if hasAmt {
			amount = toNumber(t.Cell(row, amtIdx))
		}

		cls := actionOther
		if hasAction {
			cls = classifyAction(t.Cell(row, actionIdx))
		}

		agg := out[sym]
		switch cls {
		case actionBuy:
			agg.SharesDelta += qty
			// Buys are recorded as negative cash amounts; count only the
			// outflow portion.
			if outflow := -amount; outflow > 0 {
				agg.NetInvested += outflow
			}
		case actionSell:
			agg.SharesDelta -= qty
			if amount > 0 {
				agg.NetInvested -= amount
			}
		case actionDividend:
			// Only positive dividend amounts count; a reversal is
			// excluded, not subtracted.
			if amount > 0 {
				agg.Dividends += amount
			}
		}
		out[sym] = agg
	}
	return out
}
