package imaging

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

var ErrInvalidTemplate = errors.New("template has no <svg> element")

const svgNS = "http://www.w3.org/2000/svg"

// Placeholders are values filled into {{...}} of templates.
type Placeholders struct {
	ImageURL       string
	NFTName        string
	CollectionName string
	TokenId        string
}

// Render fills the template and marks the svg element as laser ready.
func Render(t domain.DesignTemplate, p Placeholders, opts Options) (string, error) {
	name := p.NFTName
	if name == "" {
		name = "Custom NFT"
	}
	svg := strings.NewReplacer(
		"{{image_url}}", html.EscapeString(p.ImageURL),
		"{{nft_name}}", html.EscapeString(name),
		"{{collection_name}}", html.EscapeString(p.CollectionName),
		"{{token_id}}", html.EscapeString(p.TokenId),
	).Replace(t.TemplateSVG)

	at := strings.Index(svg, "<svg")
	if at < 0 {
		return "", ErrInvalidTemplate
	}
	head := svg[at:]
	end := strings.Index(head, ">")
	if end < 0 {
		return "", ErrInvalidTemplate
	}

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}
	attrs := ` data-laser-ready="true" data-processing-options="` + html.EscapeString(string(optsJSON)) + `"`
	if !strings.Contains(head[:end], "xmlns=") {
		attrs = ` xmlns="` + svgNS + `"` + attrs
	}
	return svg[:at] + "<svg" + attrs + svg[at+len("<svg"):], nil
}
