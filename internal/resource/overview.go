package resource

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/telemetry"
)

// Counts are the dashboard totals. Kinds without a count endpoint stay 0.
type Counts struct {
	Doctors      int64 `json:"total_doctors" yaml:"total_doctors"`
	Patients     int64 `json:"total_patients" yaml:"total_patients"`
	Appointments int64 `json:"total_appointments" yaml:"total_appointments"`
	Feedback     int64 `json:"total_feedbacks" yaml:"total_feedbacks"`
}

// Overview loads the dashboard totals.
type Overview struct {
	registry *Registry
	client   Client
	notifier notify.Notifier
	logger   *log.Logger
}

// NewOverview creates a dashboard loader over every kind with a count endpoint.
func NewOverview(registry *Registry, opts Options) *Overview {
	n := opts.Notifier
	if n == nil {
		n = notify.Discard{}
	}
	return &Overview{
		registry: registry,
		client:   opts.Client,
		notifier: n,
		logger:   log.OrDefault(opts.Logger).With("component", "overview"),
	}
}

// Load fetches every count concurrently. Counts that could not be read stay
// 0; any failure sends one error notification and is returned.
func (o *Overview) Load(ctx context.Context) (Counts, error) {
	ctx, span := telemetry.StartOperationSpan(ctx, "dashboard", "load")
	defer span.End()

	var (
		mu     sync.Mutex
		totals = map[string]int64{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range o.registry.Kinds() {
		if k.CountPath == "" {
			continue
		}
		g.Go(func() error {
			var body map[string]json.RawMessage
			if err := o.client.Get(gctx, k.CountPath, &body); err != nil {
				return err
			}
			n, err := countValue(body[k.CountKey])
			if err != nil {
				return err
			}
			mu.Lock()
			totals[k.Name] = n
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	counts := Counts{
		Doctors:      totals["doctors"],
		Patients:     totals["patients"],
		Appointments: totals["appointments"],
		Feedback:     totals["feedback"],
	}
	if err != nil {
		telemetry.RecordError(span, err)
		o.logger.WithContext(ctx).WithError(err).Warn("dashboard load failed")
		o.notifier.Notify(notify.Notification{
			Title:       "Error",
			Description: "Failed to fetch dashboard data",
			Severity:    notify.Error,
		})
		return counts, err
	}
	telemetry.RecordSuccess(span)
	return counts, nil
}

// countValue accepts a JSON number or a numeric string.
func countValue(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var n json.Number
	if err := unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		return int64(f), err
	}
	var s string
	if err := unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
