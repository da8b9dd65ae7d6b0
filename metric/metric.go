// Package metric provides a small dimensional-metrics facade: named,
// tagged instruments (counters, gauges, timers, distribution summaries,
// function timers) registered in a Registry and read out as flat
// measurements by exporter packages.
package metric

import (
	"fmt"
	"sort"
	"strings"
)

// Tag is one key/value dimension attached to a meter.
type Tag struct {
	Key   string
	Value string
}

// Tags builds a tag slice from alternating key/value pairs:
//
//	Tags("region", "us-east-1", "host", "web01")
//
// It panics when given an odd number of arguments.
func Tags(kv ...string) []Tag {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("metric: Tags requires key/value pairs, got %d arguments", len(kv)))
	}
	tags := make([]Tag, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		tags = append(tags, Tag{Key: kv[i], Value: kv[i+1]})
	}
	return tags
}

// normalizeTags returns tags sorted by key with duplicates removed. When a
// key appears more than once the value supplied last wins, which is what
// lets instrument tags override registry-wide common tags.
func normalizeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	byKey := make(map[string]string, len(tags))
	for _, t := range tags {
		byKey[t.Key] = t.Value
	}
	out := make([]Tag, 0, len(byKey))
	for k, v := range byKey {
		out = append(out, Tag{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ID names a meter: a dot-separated name plus its canonical tag set. Two
// instruments are the same meter exactly when their IDs render the same Key.
type ID struct {
	name string
	tags []Tag
}

// NewID canonicalizes tags (sorted by key, last value wins per key) so that
// tag order at the call site never produces a distinct meter.
func NewID(name string, tags []Tag) ID {
	return ID{name: name, tags: normalizeTags(tags)}
}

// Name returns the meter name as registered, before any naming convention
// is applied.
func (id ID) Name() string { return id.name }

// Tags returns a copy of the canonical tag set.
func (id ID) Tags() []Tag {
	if len(id.tags) == 0 {
		return nil
	}
	out := make([]Tag, len(id.tags))
	copy(out, id.tags)
	return out
}

// Key renders the ID as "name{k=v,...}", the form used to index meters in a
// Registry.
func (id ID) Key() string {
	if len(id.tags) == 0 {
		return id.name
	}
	var b strings.Builder
	b.WriteString(id.name)
	b.WriteByte('{')
	for i, t := range id.tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// withTags returns a new ID carrying extra tags merged into the existing
// set. Existing keys win over the extras.
func (id ID) withTags(extra []Tag) ID {
	if len(extra) == 0 {
		return id
	}
	merged := make([]Tag, 0, len(extra)+len(id.tags))
	merged = append(merged, extra...)
	merged = append(merged, id.tags...)
	return NewID(id.name, merged)
}

// Statistic classifies what a single measurement's value represents.
type Statistic string

const (
	StatisticCount       Statistic = "COUNT"
	StatisticTotal       Statistic = "TOTAL"
	StatisticTotalTime   Statistic = "TOTAL_TIME"
	StatisticMax         Statistic = "MAX"
	StatisticValue       Statistic = "VALUE"
	StatisticActiveTasks Statistic = "ACTIVE_TASKS"
	StatisticDuration    Statistic = "DURATION"
	StatisticUnknown     Statistic = "UNKNOWN"
)

// Measurement is one (statistic, value) sample read from a meter.
type Measurement struct {
	Statistic Statistic
	Value     float64
}

// Meter is a named, tagged source of measurements. The concrete instruments
// in this package all implement it; exporters that don't recognize a
// concrete type fall back to Measure.
type Meter interface {
	ID() ID
	Measure() []Measurement
}
