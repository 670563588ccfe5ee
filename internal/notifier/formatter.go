package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/rotation"
)

// FormatPercent renders a fractional return as "+1.23%", or "N/A" when missing.
func FormatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	pct := *v * 100
	if pct == 0 {
		pct = 0 // drop negative zero
	}
	return fmt.Sprintf("%+.2f%%", pct)
}

func quadrantIcon(q model.Quadrant) string {
	switch q {
	case model.QuadrantLeaders:
		return "🟢"
	case model.QuadrantFading:
		return "🟡"
	case model.QuadrantRecovering:
		return "🔵"
	default:
		return "🔴"
	}
}

func writeRanked(b *strings.Builder, list []ranking.RankedFactor) {
	if len(list) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for i, rf := range list {
		fmt.Fprintf(b, "  %d. %s %s\n", i+1, html.EscapeString(rf.Record.Name), FormatPercent(rf.Value))
	}
}

// FormatRankings formats the top and bottom lists at one horizon.
func FormatRankings(h model.Horizon, top, bottom []ranking.RankedFactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>Top factors</b> (%s)\n", h)
	writeRanked(&b, top)
	fmt.Fprintf(&b, "\n📉 <b>Bottom factors</b> (%s)\n", h)
	writeRanked(&b, bottom)
	return b.String()
}

// FormatRotation lists each quadrant's factors, at most perGroup each
// (zero means all).
func FormatRotation(view *rotation.View, perGroup int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 <b>Factor rotation</b> (x: %s, y: %s)\n", view.X, view.Y)
	for _, g := range view.Groups {
		fmt.Fprintf(&b, "\n%s <b>%s</b> (%d)\n", quadrantIcon(g.Quadrant), g.Quadrant, len(g.Points))
		points := g.Points
		if perGroup > 0 && len(points) > perGroup {
			points = points[:perGroup]
		}
		for _, p := range points {
			x, y := p.X, p.Y
			fmt.Fprintf(&b, "  %s %s / %s\n", html.EscapeString(p.Name), FormatPercent(&x), FormatPercent(&y))
		}
	}
	if n := len(view.Skipped); n > 0 {
		fmt.Fprintf(&b, "\n<i>%d factor(s) without data at %s or %s</i>\n", n, view.X, view.Y)
	}
	return b.String()
}

// FormatFactor formats one factor with its full return series.
func FormatFactor(rec *model.FactorRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>", html.EscapeString(rec.Name))
	if rec.Type != "" {
		fmt.Fprintf(&b, " [%s]", rec.Type)
	}
	b.WriteString("\n")
	if rec.NumHoldings != nil {
		fmt.Fprintf(&b, "Holdings: %d\n", *rec.NumHoldings)
	}
	if rec.Description != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(rec.Description))
	}
	b.WriteString("\n")
	for i, v := range rec.Series() {
		fmt.Fprintf(&b, "%-4s %s\n", model.AllHorizons[i].String()+":", FormatPercent(v))
	}
	return b.String()
}

// FormatSummary formats the per-horizon cross-section statistics.
func FormatSummary(stats []calculator.HorizonStats) string {
	var b strings.Builder
	b.WriteString("📋 <b>Factor summary</b>\n")
	for _, s := range stats {
		if s.Count == 0 {
			fmt.Fprintf(&b, "\n<b>%s</b>: no data\n", s.Horizon)
			continue
		}
		mean, median := s.Mean, s.Median
		fmt.Fprintf(&b, "\n<b>%s</b>: mean %s, median %s, breadth %.0f%% (%d/%d)\n",
			s.Horizon, FormatPercent(&mean), FormatPercent(&median),
			s.Breadth*100, s.Count, s.Count+s.Missing)
		fmt.Fprintf(&b, "  best %s, worst %s\n", html.EscapeString(s.Best), html.EscapeString(s.Worst))
	}
	return b.String()
}

// FormatDigest formats the scheduled digest: rankings plus rotation leaders.
func FormatDigest(asOf time.Time, h model.Horizon, top, bottom []ranking.RankedFactor, view *rotation.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 <b>FactorPulse digest</b> | %s\n\n", asOf.Format("2006-01-02 15:04"))
	b.WriteString(FormatRankings(h, top, bottom))
	if view != nil {
		b.WriteString("\n")
		b.WriteString(FormatRotation(view, 3))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("🤖 <b>FactorPulse commands</b>\n\n")
	b.WriteString("/top [horizon] [n] - best and worst factors\n")
	b.WriteString("/rotation [x] [y] - quadrant view (x: 1D/5D/1M, y: 1M/3M/6M/12M)\n")
	b.WriteString("/factor name - one factor's returns\n")
	b.WriteString("/summary - cross-section statistics\n")
	b.WriteString("/refresh - fetch the latest factor data\n")
	return b.String()
}
