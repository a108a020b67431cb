// Package certificate draws authenticity certificates of orders.
package certificate

import (
	"fmt"
	"html"
	"strings"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

const (
	Width  = 600
	Height = 400

	ContentType = "image/svg+xml"
)

// Shorten abbreviates long hex like contract addresses as "0x1234...abcd".
func Shorten(s string) string {
	if len(s) <= 13 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// SVG draws the certificate of the order. The same order is drawn the same.
func SVG(o domain.Order) []byte {
	lines := []string{"Item: " + o.Item.Name}
	if o.Item.TokenId != "" {
		lines = append(lines, "Token ID: "+o.Item.TokenId)
	}
	if o.Item.Contract != "" {
		lines = append(lines, "Contract: "+Shorten(o.Item.Contract))
	}
	if o.Item.Chain != "" {
		lines = append(lines, "Chain: "+o.Item.Chain)
	}
	lines = append(lines,
		"Order: "+o.Id,
		"Issued: "+o.CreatedAt.UTC().Format("January 2, 2006"),
	)

	b := new(strings.Builder)
	fmt.Fprintf(b, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+"\n", Width, Height, Width, Height)
	b.WriteString("  <style>\n")
	b.WriteString("    .title { font: bold 24px sans-serif; fill: #fff; }\n")
	b.WriteString("    .meta { font: 14px sans-serif; fill: #ccc; }\n")
	b.WriteString("    .seal { font: 12px monospace; fill: #8a8a99; }\n")
	b.WriteString("  </style>\n")
	b.WriteString(`  <rect width="100%" height="100%" fill="#0b0b0f"/>` + "\n")
	fmt.Fprintf(b, `  <rect x="12" y="12" width="%d" height="%d" fill="none" stroke="#c9a227" stroke-width="2"/>`+"\n", Width-24, Height-24)
	b.WriteString(`  <text x="30" y="50" class="title">EtchNFT Certificate</text>` + "\n")
	for i, l := range lines {
		fmt.Fprintf(b, `  <text x="30" y="%d" class="meta">%s</text>`+"\n", 100+30*i, html.EscapeString(l))
	}
	fmt.Fprintf(b, `  <text x="30" y="%d" class="seal">%s</text>`+"\n", Height-30, html.EscapeString(o.CertURL))
	b.WriteString("</svg>\n")
	return []byte(b.String())
}
