package imaging

import (
	"math"
	"strings"
)

type Quality string

const (
	Excellent Quality = "excellent"
	Good      Quality = "good"
	Fair      Quality = "fair"
	Poor      Quality = "poor"
)

const (
	contrastEnhancement = 0.2
	edgeEnhancement     = 0.3
)

// Options of processing.
type Options struct {
	// raise contrast before engraving. Defaults to true.
	ContrastEnhancement *bool `json:"contrast_enhancement,omitempty"`

	EdgeDetection bool `json:"edge_detection,omitempty"`

	// grayscale, bw or color. Laser files are always grayscale.
	ColorMode string `json:"color_mode,omitempty"`
}

func (o Options) contrastEnhancement() bool {
	return o.ContrastEnhancement == nil || *o.ContrastEnhancement
}

type Metrics struct {
	ContrastScore float64 `json:"contrast_score"`
	DetailScore   float64 `json:"detail_score"`
	Quality       Quality `json:"engraving_quality"`
}

// score is capped at 1 and rounded to 2 decimal places.
func score(v float64) float64 {
	return math.Round(math.Min(1, v)*100) / 100
}

// Grade scores how well the image engraves after enhancements of opts.
func Grade(a Analysis, opts Options) Metrics {
	contrast := a.Contrast
	if opts.contrastEnhancement() {
		contrast += contrastEnhancement
	}
	detail := a.Detail
	if opts.EdgeDetection {
		detail += edgeEnhancement
	}
	m := Metrics{
		ContrastScore: score(contrast),
		DetailScore:   score(detail),
	}

	switch overall := (m.ContrastScore + m.DetailScore) / 2; {
	case 0.8 <= overall:
		m.Quality = Excellent
	case 0.6 <= overall:
		m.Quality = Good
	case 0.4 <= overall:
		m.Quality = Fair
	default:
		m.Quality = Poor
	}
	return m
}

// Settings of the laser.
type Settings struct {
	// percent
	Power int `json:"power"`

	// mm/min
	Speed int `json:"speed"`

	Passes int `json:"passes"`
}

var materials = map[string]Settings{
	"wood":    {Power: 60, Speed: 1000, Passes: 1},
	"acrylic": {Power: 80, Speed: 800, Passes: 1},
	"metal":   {Power: 100, Speed: 500, Passes: 2},
	"leather": {Power: 40, Speed: 1200, Passes: 1},
	"bamboo":  {Power: 50, Speed: 1000, Passes: 1},
}

// Recommend laser settings for the material. Unknown materials are treated as wood.
//
// Contrasty images get more power and slower speed.
func Recommend(material string, m Metrics) Settings {
	base, ok := materials[strings.ToLower(material)]
	if !ok {
		base = materials["wood"]
	}
	adjust := m.ContrastScore * 0.2
	return Settings{
		Power:  int(math.Round(float64(base.Power) + adjust*20)),
		Speed:  int(math.Round(float64(base.Speed) - adjust*100)),
		Passes: base.Passes,
	}
}
