// Package metrics exposes counts of orders and payment events in the prometheus text format.
package metrics

import (
	"context"
	"io"

	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/cozyartz/etchNFT/pkg/domain"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/utils/pointer"
)

const (
	OrdersKey = "etchnft_orders"
	EventsKey = "etchnft_payment_events"

	// ContentType of the text exposition format.
	ContentType = "text/plain; version=0.0.4; charset=utf-8"
)

func gauge(name string, help string, label string, values []string, counts func(string) int) *io_prometheus_client.MetricFamily {
	mf := &io_prometheus_client.MetricFamily{
		Name: pointer.Ref(name),
		Help: pointer.Ref(help),
		Type: io_prometheus_client.MetricType_GAUGE.Enum(),
	}
	for _, v := range values {
		mf.Metric = append(mf.Metric, &io_prometheus_client.Metric{
			Label: []*io_prometheus_client.LabelPair{
				{Name: pointer.Ref(label), Value: pointer.Ref(v)},
			},
			Gauge: &io_prometheus_client.Gauge{Value: pointer.Ref(float64(counts(v)))},
		})
	}
	return mf
}

// Gather counts orders by status and payment events by state.
//
// Every status and state is reported, zero or not.
func Gather(
	ctx context.Context, orders korder.OrderInterface, events kpayment.PaymentEventInterface,
) ([]*io_prometheus_client.MetricFamily, error) {
	byStatus, err := orders.CountByStatus(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	byState, err := events.CountByState(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	statuses := []string{}
	for _, s := range domain.OrderStatuses() {
		statuses = append(statuses, s.String())
	}
	states := []string{}
	for _, s := range domain.EventStates() {
		states = append(states, s.String())
	}

	return []*io_prometheus_client.MetricFamily{
		gauge(
			OrdersKey, "Number of orders by status.", "status", statuses,
			func(s string) int { return byStatus[domain.OrderStatus(s)] },
		),
		gauge(
			EventsKey, "Number of payment events by state.", "state", states,
			func(s string) int { return byState[domain.EventState(s)] },
		),
	}, nil
}

// Write renders metric families in the text format.
func Write(w io.Writer, families []*io_prometheus_client.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads metric families in the text format, as scraped from /metrics.
func Parse(r io.Reader) (map[string]*io_prometheus_client.MetricFamily, error) {
	var p expfmt.TextParser
	return p.TextToMetricFamilies(r)
}

// Filter visits metrics in families.
type Filter func(
	map[string]*io_prometheus_client.MetricFamily,
	func(*io_prometheus_client.Metric) error,
) error

// ForKey visits metrics of the family named key, which satisfy all of mfilt.
func ForKey(key string, mfilt ...MetricFilter) Filter {
	return func(
		mfs map[string]*io_prometheus_client.MetricFamily,
		callback func(*io_prometheus_client.Metric) error,
	) error {
		mf, ok := mfs[key]
		if !ok {
			return nil
		}
	METRIC:
		for _, m := range mf.Metric {
			for _, f := range mfilt {
				if !f(m) {
					continue METRIC
				}
			}
			if err := callback(m); err != nil {
				return err
			}
		}
		return nil
	}
}

// MetricFilter is a filter for metrics.
type MetricFilter func(*io_prometheus_client.Metric) bool

// WithLabelAndValue matches a metric having a label with given name and value.
func WithLabelAndValue(name string, value string) MetricFilter {
	return func(m *io_prometheus_client.Metric) bool {
		for _, l := range m.Label {
			if l.GetName() == name && l.GetValue() == value {
				return true
			}
		}
		return false
	}
}

// Value sums gauges matching the filter.
func Value(mfs map[string]*io_prometheus_client.MetricFamily, f Filter) (float64, error) {
	sum := 0.0
	err := f(mfs, func(m *io_prometheus_client.Metric) error {
		sum += m.GetGauge().GetValue()
		return nil
	})
	return sum, err
}
