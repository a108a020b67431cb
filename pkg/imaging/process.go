package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

// MaxImageBytes is the largest image accepted.
const MaxImageBytes = 20 << 20

var ErrTooLarge = errors.New("image is too large")

type Result struct {
	// where the laser file is served.
	LaserFileURL string

	SVG      string
	Analysis Analysis
	Metrics  Metrics
	Settings Settings
	Took     time.Duration
}

type Processor struct {
	client *http.Client
	clock  func() time.Time
}

type Option func(*Processor)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Processor) { p.client = client }
}

func WithClock(clock func() time.Time) Option {
	return func(p *Processor) { p.clock = clock }
}

func NewProcessor(options ...Option) *Processor {
	p := &Processor{client: &http.Client{Timeout: 30 * time.Second}, clock: time.Now}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Processor) fetch(ctx context.Context, imageURL string) (Analysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Analysis{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Analysis{}, xe.Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}
	if MaxImageBytes < resp.ContentLength {
		return Analysis{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	a, err := Analyze(ctx, io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to analyze image: %w", err)
	}
	if MaxImageBytes < a.Size {
		return Analysis{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, MaxImageBytes)
	}
	return a, nil
}

// laserURL is the address of the laser file of the image for the template.
func laserURL(imageURL string, t domain.DesignTemplate) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("laser", "true")
	q.Set("template", t.Id)
	if 0 < t.ImageMaxWidth {
		q.Set("w", strconv.Itoa(t.ImageMaxWidth))
	}
	if 0 < t.ImageMaxHeight {
		q.Set("h", strconv.Itoa(t.ImageMaxHeight))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Process fetches the image, scores it and renders the template for the laser.
func (p *Processor) Process(
	ctx context.Context, imageURL string, t domain.DesignTemplate, vars Placeholders, opts Options,
) (Result, error) {
	begin := p.clock()

	a, err := p.fetch(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}

	laser, err := laserURL(imageURL, t)
	if err != nil {
		return Result{}, err
	}
	vars.ImageURL = imageURL
	svg, err := Render(t, vars, opts)
	if err != nil {
		return Result{}, err
	}

	m := Grade(a, opts)
	return Result{
		LaserFileURL: laser,
		SVG:          svg,
		Analysis:     a,
		Metrics:      m,
		Settings:     Recommend(t.Material, m),
		Took:         p.clock().Sub(begin),
	}, nil
}

// ProcessItem processes the original image of a drop item and records the laser file.
//
// The item goes processing, then ready or failed. A failure is reported with
// the item marked failed.
func (p *Processor) ProcessItem(
	ctx context.Context, drops kdrop.DropInterface, itemId string, templateId string, opts Options,
) (domain.DropItem, Result, error) {
	item, err := drops.GetItem(ctx, itemId)
	if err != nil {
		return domain.DropItem{}, Result{}, xe.Wrap(err)
	}
	t, err := drops.GetTemplate(ctx, templateId)
	if err != nil {
		return domain.DropItem{}, Result{}, xe.Wrap(err)
	}
	return p.processItem(ctx, drops, item, t, opts)
}

func (p *Processor) processItem(
	ctx context.Context, drops kdrop.DropInterface, item domain.DropItem, t domain.DesignTemplate, opts Options,
) (domain.DropItem, Result, error) {
	if _, err := drops.SetLaserFile(ctx, item.Id, domain.LaserFileProcessing, "", "processing"); err != nil {
		return domain.DropItem{}, Result{}, xe.Wrap(err)
	}

	res, err := p.Process(ctx, item.OriginalImageURL, t, Placeholders{NFTName: item.Name, TokenId: item.TokenId}, opts)
	if err != nil {
		failed, ferr := drops.SetLaserFile(ctx, item.Id, domain.LaserFileFailed, "", err.Error())
		if ferr != nil {
			return domain.DropItem{}, Result{}, errors.Join(err, ferr)
		}
		return failed, Result{}, err
	}

	notes := fmt.Sprintf(
		"quality %s (contrast %.2f, detail %.2f); power %d%%, speed %d, %d pass(es)",
		res.Metrics.Quality, res.Metrics.ContrastScore, res.Metrics.DetailScore,
		res.Settings.Power, res.Settings.Speed, res.Settings.Passes,
	)
	ready, err := drops.SetLaserFile(ctx, item.Id, domain.LaserFileReady, res.LaserFileURL, notes)
	if err != nil {
		return domain.DropItem{}, Result{}, xe.Wrap(err)
	}
	return ready, res, nil
}

type ItemOutcome struct {
	Item   domain.DropItem
	Result Result

	// why the item failed. Nil when its laser file is ready.
	Err error
}

type Batch struct {
	Outcomes   []ItemOutcome
	Successful int
	Failed     int
}

// ProcessDrop processes every pending item of the drop with the template, one by one.
//
// A failing item is counted in the batch and the rest are processed.
// It stops with an error when the drop or the template is not found,
// when the context is done, or when the database fails.
func (p *Processor) ProcessDrop(
	ctx context.Context, drops kdrop.DropInterface, dropId string, templateId string, opts Options,
) (Batch, error) {
	t, err := drops.GetTemplate(ctx, templateId)
	if err != nil {
		return Batch{}, xe.Wrap(err)
	}
	pending, err := drops.Items(ctx, dropId, domain.LaserFilePending)
	if err != nil {
		return Batch{}, xe.Wrap(err)
	}

	batch := Batch{Outcomes: make([]ItemOutcome, 0, len(pending))}
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		done, res, err := p.processItem(ctx, drops, item, t, opts)
		if err != nil && done.LaserFileStatus != domain.LaserFileFailed {
			return batch, err
		}
		if err != nil {
			batch.Failed += 1
		} else {
			batch.Successful += 1
		}
		batch.Outcomes = append(batch.Outcomes, ItemOutcome{Item: done, Result: res, Err: err})
	}
	return batch, nil
}
