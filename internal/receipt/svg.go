package receipt

import (
	"fmt"
	"html"
	"strings"
)

type cardData struct {
	Summary   string
	TxHash    string
	Chain     string
	TotalETH  string
	TotalUSD  string
	Timestamp string
	Success   bool
	Style     string
}

type palette struct {
	background string
	panel      string
	accent     string
	text       string
	muted      string
}

var palettes = map[string]palette{
	"dark":  {background: "#0F172A", panel: "#1E293B", accent: "#34D399", text: "#F8FAFC", muted: "#94A3B8"},
	"light": {background: "#F8FAFC", panel: "#FFFFFF", accent: "#059669", text: "#0F172A", muted: "#64748B"},
	"neon":  {background: "#09090B", panel: "#18181B", accent: "#22D3EE", text: "#FAFAFA", muted: "#A1A1AA"},
}

// renderCard produces a self-contained 600x340 SVG receipt card. Unknown
// styles fall back to dark.
func renderCard(d cardData) string {
	p, ok := palettes[d.Style]
	if !ok {
		p = palettes["dark"]
	}

	statusLabel := "CONFIRMED"
	statusColor := p.accent
	if !d.Success {
		statusLabel = "FAILED"
		statusColor = "#EF4444"
	}

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="600" height="340" viewBox="0 0 600 340">`)
	fmt.Fprintf(&b, `<rect width="600" height="340" rx="16" fill="%s"/>`, p.background)
	fmt.Fprintf(&b, `<rect x="24" y="24" width="552" height="292" rx="12" fill="%s"/>`, p.panel)

	fmt.Fprintf(&b, `<text x="48" y="72" font-family="monospace" font-size="14" fill="%s">AYA SHIELD RECEIPT</text>`, p.muted)
	fmt.Fprintf(&b, `<text x="456" y="72" font-family="monospace" font-size="14" font-weight="bold" fill="%s">%s</text>`, statusColor, statusLabel)

	fmt.Fprintf(&b, `<text x="48" y="128" font-family="sans-serif" font-size="26" font-weight="bold" fill="%s">%s</text>`, p.text, html.EscapeString(d.Summary))
	fmt.Fprintf(&b, `<text x="48" y="164" font-family="monospace" font-size="13" fill="%s">%s</text>`, p.muted, html.EscapeString(shortHash(d.TxHash)))

	fmt.Fprintf(&b, `<line x1="48" y1="192" x2="552" y2="192" stroke="%s" stroke-width="1" opacity="0.3"/>`, p.muted)

	fmt.Fprintf(&b, `<text x="48" y="228" font-family="sans-serif" font-size="13" fill="%s">Total cost</text>`, p.muted)
	fmt.Fprintf(&b, `<text x="48" y="254" font-family="sans-serif" font-size="18" font-weight="bold" fill="%s">%s · %s</text>`,
		p.text, html.EscapeString(d.TotalETH), html.EscapeString(d.TotalUSD))

	fmt.Fprintf(&b, `<text x="48" y="296" font-family="sans-serif" font-size="12" fill="%s">%s</text>`, p.muted, html.EscapeString(d.Timestamp))
	fmt.Fprintf(&b, `<text x="456" y="296" font-family="sans-serif" font-size="12" fill="%s">%s</text>`, p.accent, html.EscapeString(strings.ToUpper(d.Chain)))

	b.WriteString(`</svg>`)
	return b.String()
}

func shortHash(h string) string {
	if len(h) <= 20 {
		return h
	}
	return h[:12] + "…" + h[len(h)-8:]
}
