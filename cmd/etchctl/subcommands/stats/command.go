// Package stats shows counts of orders and payment events, scraped from /metrics of etchd.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/metrics"
)

type Flags struct {
	Server string `flag:"server" alias:"s" metavar:"URL" help:"base URL of etchd. Default: $ETCHNFT_URL or http://localhost:8080"`
}

func New() (flarc.Command, error) {
	server := os.Getenv("ETCHNFT_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	return flarc.NewCommand(
		"Show the number of orders by status and payment events by state.",
		Flags{Server: server},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Task(http.DefaultClient)),
	)
}

// Stats is what the command prints.
type Stats struct {
	Orders        map[string]float64 `json:"orders"`
	PaymentEvents map[string]float64 `json:"paymentEvents"`
}

func Task(client *http.Client) common.TaskWithCommonFlag[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		_ common.CommonFlags,
		cl flarc.Commandline[Flags],
		_ []any,
	) error {
		endpoint, err := url.JoinPath(cl.Flags().Server, "metrics/")
		if err != nil {
			return fmt.Errorf("%w: --server is not a URL: %s", flarc.ErrUsage, cl.Flags().Server)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: cannot reach etchd", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("etchd responded %s for %s", resp.Status, endpoint)
		}

		families, err := metrics.Parse(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: broken metrics", err)
		}

		stats := Stats{Orders: map[string]float64{}, PaymentEvents: map[string]float64{}}
		for _, s := range domain.OrderStatuses() {
			v, err := metrics.Value(families, metrics.ForKey(metrics.OrdersKey, metrics.WithLabelAndValue("status", s.String())))
			if err != nil {
				return err
			}
			stats.Orders[s.String()] = v
		}
		for _, s := range domain.EventStates() {
			v, err := metrics.Value(families, metrics.ForKey(metrics.EventsKey, metrics.WithLabelAndValue("state", s.String())))
			if err != nil {
				return err
			}
			stats.PaymentEvents[s.String()] = v
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(stats); err != nil {
			logger.Panicf("fail to dump stats")
		}
		return nil
	}
}
