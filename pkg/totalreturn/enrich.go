package totalreturn

import (
	"context"
	"time"
)

// PortfolioRow is one holding enriched with market data.
type PortfolioRow struct {
	Symbol             string   `json:"symbol"`
	Shares             float64  `json:"shares"`
	NetInvested        Amount   `json:"net_invested_cash"`
	Dividends          Amount   `json:"dividends_received"`
	CurrentPrice       *float64 `json:"current_price"`
	MarketValue        *Amount  `json:"market_value"`
	TotalReturnDollars *Amount  `json:"total_return_dollars"`
	TotalReturnPercent *float64 `json:"total_return_percent"`
}

// PortfolioOverall aggregates the enriched rows. Holdings without a price
// contribute zero market value here; MissingPrices on the view flags them.
type PortfolioOverall struct {
	TotalMarketValue   Amount   `json:"total_market_value"`
	TotalNetInvested   Amount   `json:"total_net_invested"`
	TotalDividends     Amount   `json:"total_dividends"`
	TotalReturnDollars Amount   `json:"total_return_dollars"`
	TotalReturnPercent *float64 `json:"total_return_percent"`
}

// PortfolioView is the full enriched portfolio payload.
type PortfolioView struct {
	Rows          []PortfolioRow   `json:"rows"`
	Overall       PortfolioOverall `json:"overall"`
	MissingPrices []string         `json:"missing_prices"`
	PricesAsOf    string           `json:"prices_as_of"`
}

// GetPortfolio recomputes the per-symbol summary from the stored uploads
// and enriches it with current prices. Price lookups degrade per symbol;
// only missing uploads or corrupt CSV content fail the call.
func (c *Core) GetPortfolio(ctx context.Context) (*PortfolioView, error) {
	summary, err := c.ComputeSummary()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(summary))
	for _, row := range summary {
		symbols = append(symbols, row.Symbol)
	}
	prices := c.GetCurrentPrices(ctx, symbols)

	view := enrichSummary(summary, prices)
	view.PricesAsOf = time.Now().UTC().Format(time.RFC3339)
	return view, nil
}

// enrichSummary combines the reconciled summary rows with a price map into
// the final portfolio view. Row order follows the summary (symbols
// ascending); MissingPrices follows the same order.
func enrichSummary(summary []SummaryRow, prices map[string]*float64) *PortfolioView {
	view := &PortfolioView{
		Rows:          make([]PortfolioRow, 0, len(summary)),
		MissingPrices: []string{},
	}

	var totalMV, totalInvested, totalDividends float64
	for _, s := range summary {
		row := PortfolioRow{
			Symbol:      s.Symbol,
			Shares:      s.Shares,
			NetInvested: NewAmount(s.NetInvested),
			Dividends:   NewAmount(s.Dividends),
		}

		price := prices[s.Symbol]
		marketValue := 0.0
		if price != nil {
			p := *price
			row.CurrentPrice = &p
			marketValue = p * s.Shares
			row.MarketValue = amountPtr(NewAmount(marketValue))
		} else {
			// Every unpriced symbol is flagged, fully-sold ones included.
			view.MissingPrices = append(view.MissingPrices, s.Symbol)
		}

		// A priced holding, or one with no shares left, has a defined
		// return. Shares without a price leave it unknown.
		if price != nil || s.Shares == 0 {
			tr := marketValue + s.Dividends - s.NetInvested
			row.TotalReturnDollars = amountPtr(NewAmount(tr))
			if s.NetInvested > 0 {
				pct := tr / s.NetInvested * 100
				row.TotalReturnPercent = &pct
			}
		}

		totalMV += marketValue
		totalInvested += s.NetInvested
		totalDividends += s.Dividends
		view.Rows = append(view.Rows, row)
	}

	totalReturn := totalMV + totalDividends - totalInvested
	view.Overall = PortfolioOverall{
		TotalMarketValue:   NewAmount(totalMV),
		TotalNetInvested:   NewAmount(totalInvested),
		TotalDividends:     NewAmount(totalDividends),
		TotalReturnDollars: NewAmount(totalReturn),
	}
	if totalInvested > 0 {
		pct := totalReturn / totalInvested * 100
		view.Overall.TotalReturnPercent = &pct
	}
	return view
}
