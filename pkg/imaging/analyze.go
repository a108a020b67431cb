// Package imaging prepares artwork for laser engraving.
//
// It analyses images and renders laser templates. Pixels are not rewritten.
package imaging

import (
	"bufio"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"sort"
)

const (
	// at most this many pixels are sampled along each axis.
	maxSamples = 512

	// luminance step regarded as an edge.
	edgeThreshold = 32

	// edge density is scaled to detail score by this factor.
	// Line art has edges on about a fifth of its pixels.
	detailScale = 5
)

// Analysis is what an image looks like to the laser.
type Analysis struct {
	Width  int
	Height int

	// png, jpeg or gif.
	Format string

	// bytes read.
	Size int64

	// Contrast is the luminance spread (5th to 95th percentile) in [0, 1].
	Contrast float64

	// Detail is the edge density scaled into [0, 1].
	Detail float64
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Analyze decodes an image from stream and scores it.
func Analyze(ctx context.Context, stream io.Reader) (Analysis, error) {
	cr := &countingReader{r: stream}
	img, format, err := image.Decode(bufio.NewReader(cr))
	if err != nil {
		return Analysis{}, err
	}
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	// count bytes left after the image, like gif trailers.
	io.Copy(io.Discard, cr)

	b := img.Bounds()
	a := Analysis{Width: b.Dx(), Height: b.Dy(), Format: format, Size: cr.n}
	if a.Width == 0 || a.Height == 0 {
		return a, nil
	}

	lum := luminance(img)
	a.Contrast = spread(lum)
	a.Detail = math.Min(1, edgeDensity(lum)*detailScale)
	return a, nil
}

// luminance samples the image into a grid of Rec. 601 luma in [0, 255].
func luminance(img image.Image) [][]float64 {
	b := img.Bounds()
	stepX := max(1, (b.Dx()+maxSamples-1)/maxSamples)
	stepY := max(1, (b.Dy()+maxSamples-1)/maxSamples)

	rows := [][]float64{}
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		row := []float64{}
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				// transparency is not burnt.
				row = append(row, 255)
				continue
			}
			l := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			row = append(row, math.Round(l/257))
		}
		rows = append(rows, row)
	}
	return rows
}

func spread(lum [][]float64) float64 {
	all := []float64{}
	for _, row := range lum {
		all = append(all, row...)
	}
	if len(all) == 0 {
		return 0
	}
	sort.Float64s(all)
	lo := all[int(float64(len(all)-1)*0.05)]
	hi := all[int(float64(len(all)-1)*0.95)]
	return (hi - lo) / 255
}

func edgeDensity(lum [][]float64) float64 {
	edges, total := 0, 0
	for y := 0; y+1 < len(lum); y++ {
		for x := 0; x+1 < len(lum[y]) && x+1 < len(lum[y+1]); x++ {
			gx := math.Abs(lum[y][x+1] - lum[y][x])
			gy := math.Abs(lum[y+1][x] - lum[y][x])
			if edgeThreshold <= gx+gy {
				edges += 1
			}
			total += 1
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edges) / float64(total)
}
