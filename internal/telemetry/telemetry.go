// Package telemetry records scan counters through OpenTelemetry.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope of the counters.
const ScopeName = "github.com/coregx/corescan"

// Recorder holds the scan instruments of one database.
type Recorder struct {
	scans      metric.Int64Counter
	bytes      metric.Int64Counter
	matches    metric.Int64Counter
	terminated metric.Int64Counter

	// Attribute sets are built once per mode.
	modes map[string]metric.MeasurementOption
}

// Modes lists the mode attribute values.
var Modes = []string{"block", "stream", "vectored"}

// New creates the instruments on mp. A nil mp records nothing.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(ScopeName)
	r := &Recorder{modes: make(map[string]metric.MeasurementOption, len(Modes))}
	var err error
	if r.scans, err = meter.Int64Counter("corescan.scans",
		metric.WithDescription("Scan calls, counting every stream write.")); err != nil {
		return nil, err
	}
	if r.bytes, err = meter.Int64Counter("corescan.bytes",
		metric.WithDescription("Bytes scanned."), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if r.matches, err = meter.Int64Counter("corescan.matches",
		metric.WithDescription("Matches delivered to handlers.")); err != nil {
		return nil, err
	}
	if r.terminated, err = meter.Int64Counter("corescan.terminated",
		metric.WithDescription("Scans stopped by their handler.")); err != nil {
		return nil, err
	}
	for _, m := range Modes {
		r.modes[m] = metric.WithAttributeSet(attribute.NewSet(attribute.String("mode", m)))
	}
	return r, nil
}

// Noop returns a recorder that records nothing.
func Noop() *Recorder {
	r, _ := New(nil)
	return r
}

// Scan records one scan call.
func (r *Recorder) Scan(mode string, bytes, matches int, terminated bool) {
	ctx := context.Background()
	opt, ok := r.modes[mode]
	if !ok {
		opt = metric.WithAttributes(attribute.String("mode", mode))
	}
	r.scans.Add(ctx, 1, opt)
	if bytes > 0 {
		r.bytes.Add(ctx, int64(bytes), opt)
	}
	if matches > 0 {
		r.matches.Add(ctx, int64(matches), opt)
	}
	if terminated {
		r.terminated.Add(ctx, 1, opt)
	}
}
