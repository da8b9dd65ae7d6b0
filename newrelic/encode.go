package newrelic

import (
	"strings"
	"time"

	"github.com/jpra1113/micrometer/metric"
)

// baseTimeUnit is the unit every duration-valued statistic is rendered in
// on the wire.
const baseTimeUnit = time.Second

// encoder flattens one meter's snapshot into events, applying the active
// naming convention to the event type and the meter's tags. extraTags are
// appended verbatim after the convention-rendered tags on every event.
type encoder struct {
	convention metric.NamingConvention
	extraTags  []metric.Tag
}

// events dispatches on the concrete meter kind. Timers, function timers
// and summaries get the statistic sets the events API dashboarding
// expects; everything else falls back to the meter's own measurements.
func (enc *encoder) events(m metric.Meter) []Event {
	switch v := m.(type) {
	case *metric.Timer:
		return enc.timerEvents(v)
	case *metric.FunctionTimer:
		return enc.functionTimerEvents(v)
	case *metric.DistributionSummary:
		return enc.summaryEvents(v)
	default:
		return enc.meterEvents(m)
	}
}

func (enc *encoder) timerEvents(t *metric.Timer) []Event {
	snap := t.TakeSnapshot()
	id := t.ID()
	return []Event{
		enc.event(id, "count", float64(snap.Count)),
		enc.event(id, "sum", snap.TotalIn(baseTimeUnit)),
		enc.event(id, "avg", snap.MeanIn(baseTimeUnit)),
		enc.event(id, "max", snap.MaxIn(baseTimeUnit)),
	}
}

func (enc *encoder) functionTimerEvents(t *metric.FunctionTimer) []Event {
	id := t.ID()
	count := t.Count()
	return []Event{
		enc.event(id, "count", count),
		// sum reports the same reading as count for function timers.
		enc.event(id, "sum", count),
		enc.event(id, "mean", t.Mean(baseTimeUnit)),
	}
}

func (enc *encoder) summaryEvents(s *metric.DistributionSummary) []Event {
	snap := s.TakeSnapshot()
	id := s.ID()
	return []Event{
		enc.event(id, "count", float64(snap.Count)),
		enc.event(id, "sum", snap.Total),
		enc.event(id, "avg", snap.Mean()),
		enc.event(id, "max", snap.Max),
	}
}

func (enc *encoder) meterEvents(m metric.Meter) []Event {
	measurements := m.Measure()
	if len(measurements) == 0 {
		return nil
	}
	id := m.ID()
	events := make([]Event, 0, len(measurements))
	for _, ms := range measurements {
		events = append(events, enc.event(id, strings.ToLower(string(ms.Statistic)), ms.Value))
	}
	return events
}

func (enc *encoder) event(id metric.ID, statistic string, value float64) Event {
	idTags := id.Tags()
	tags := make([]metric.Tag, 0, len(idTags)+len(enc.extraTags))
	for _, t := range idTags {
		tags = append(tags, metric.Tag{
			Key:   enc.convention.TagKey(t.Key),
			Value: enc.convention.TagValue(t.Value),
		})
	}
	tags = append(tags, enc.extraTags...)
	return Event{
		EventType: enc.convention.Name(id.Name()),
		Statistic: statistic,
		Value:     value,
		Tags:      tags,
	}
}
