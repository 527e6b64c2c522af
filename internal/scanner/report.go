package scanner

import (
	"fmt"
	"strings"

	"positionsMonitor/internal/domain"

	"github.com/shopspring/decimal"
)

// RenderReport turns a scan result into the plain-text message handed to the
// notifier. Sections without findings are omitted; an empty string means
// there is nothing to send.
func RenderReport(result *domain.ScanResult) string {
	var sb strings.Builder

	if len(result.Whales) > 0 {
		sb.WriteString("Whale Positions:\n")
		for _, pos := range result.Whales {
			writePositionInfo(&sb, pos)
			sb.WriteString("\n")
		}
	}

	for _, cluster := range result.Clusters {
		fmt.Fprintf(&sb, "Symbol: %s\n", cluster.Representative.Symbol)
		if cluster.Concentration == domain.ConcentrationHigh {
			sb.WriteString("High concentration of similar positions (")
			fmt.Fprintf(&sb, "%.1f%%)\n", cluster.SimilarityPct)
			sb.WriteString("This could indicate significant trading interest and liquidity in the symbol.\n")
			sb.WriteString("Retail traders may be getting trapped and providing liquidity to market makers.\n")
		} else {
			sb.WriteString("Moderate concentration of similar positions (")
			fmt.Fprintf(&sb, "%.1f%%)\n", cluster.SimilarityPct)
			sb.WriteString("Traders are showing interest in the symbol.\n")
		}
		writePositionInfo(&sb, cluster.Representative)
		sb.WriteString("\n")
	}

	if risk := result.Risk; risk != nil {
		sb.WriteString("Risk Analysis:\n")
		fmt.Fprintf(&sb, "%s\n", capitalize(string(risk.Direction)))
		fmt.Fprintf(&sb, "Risk Value: %s\n", formatMoney(risk.RiskValue))
		fmt.Fprintf(&sb, "Biggest Open Position: %s\n", risk.Biggest.Symbol)
		fmt.Fprintf(&sb, "Direction: %s\n", capitalize(string(risk.Biggest.Direction)))
		fmt.Fprintf(&sb, "Amount: %s/%s\n", risk.Biggest.Amount.StringFixed(4), baseAsset(risk.Biggest.Symbol))
		fmt.Fprintf(&sb, "Entry Price: %s\n", formatMoney(risk.Biggest.EntryPrice))
		if !risk.BiggestMarkPrice.IsZero() {
			fmt.Fprintf(&sb, "Mark Price: %s\n", formatMoney(risk.BiggestMarkPrice))
		}
		fmt.Fprintf(&sb, "PNL: %s$\n", risk.Biggest.PNL.StringFixed(2))
		fmt.Fprintf(&sb, "ROE: %s%%\n", risk.Biggest.ROE.StringFixed(2))
		fmt.Fprintf(&sb, "Position Cost: %s\n", formatMoney(risk.Biggest.NotionalCost()))
		fmt.Fprintf(&sb, "Average Open PNL: %s$\n", risk.AvgPNL.StringFixed(2))
		fmt.Fprintf(&sb, "Average Open ROE: %s%%\n", risk.AvgROE.StringFixed(2))
		fmt.Fprintf(&sb, "Average Leverage: %sx\n", risk.AvgLeverage.StringFixed(2))
		fmt.Fprintf(&sb, "Average Position Cost: %s\n", formatMoney(risk.AvgCost))
		fmt.Fprintf(&sb, "Total Long Position Cost: %s\n", formatMoney(risk.LongCost))
		fmt.Fprintf(&sb, "Total Short Position Cost: %s\n", formatMoney(risk.ShortCost))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// writePositionInfo appends the standard per-position block.
func writePositionInfo(sb *strings.Builder, pos *domain.TraderPosition) {
	fmt.Fprintf(sb, "Symbol: %s\n", pos.Symbol)
	fmt.Fprintf(sb, "Direction: %s\n", capitalize(string(pos.Direction)))
	fmt.Fprintf(sb, "Amount: %s/%s\n", pos.Amount.StringFixed(4), baseAsset(pos.Symbol))
	fmt.Fprintf(sb, "Entry Price: %s\n", formatMoney(pos.EntryPrice))
	fmt.Fprintf(sb, "PNL: %s$\n", pos.PNL.StringFixed(2))
	fmt.Fprintf(sb, "ROE: %s%%\n", pos.ROE.StringFixed(2))
	fmt.Fprintf(sb, "Position Cost: %s\n", formatMoney(pos.NotionalCost()))
	fmt.Fprintf(sb, "Leverage: %dx\n", pos.Leverage)
}

// formatMoney renders a decimal with two fraction digits, thousands
// separators and a dollar sign, e.g. 1,234,567.89$.
func formatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	if negative {
		sb.WriteString("-")
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteString(",")
		}
		sb.WriteRune(r)
	}
	sb.WriteString(".")
	sb.WriteString(fracPart)
	sb.WriteString("$")
	return sb.String()
}

// baseAsset strips the USDT quote suffix for display, matching the feed's
// symbol convention.
func baseAsset(symbol string) string {
	return strings.TrimSuffix(symbol, "USDT")
}

// capitalize upper-cases the first byte of an ASCII string.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
