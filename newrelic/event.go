package newrelic

import (
	"strconv"
	"strings"

	"github.com/jpra1113/micrometer/metric"
)

// Event is the flat, wire-ready form of one (meter, statistic) pair. On
// the wire it becomes a single flat JSON object: eventType and statistic,
// the numeric value, then one string field per tag.
type Event struct {
	EventType string
	Statistic string
	Value     float64
	Tags      []metric.Tag
}

// appendJSON renders the event into b. Values go through
// strconv.FormatFloat, so NaN and infinities are written as bare literals
// and produce a body the endpoint rejects. Callers that need finite
// output must guard their gauge functions.
func (e Event) appendJSON(b *strings.Builder) {
	b.WriteString(`{"eventType":`)
	b.WriteString(strconv.Quote(e.EventType))
	b.WriteString(`,"statistic":`)
	b.WriteString(strconv.Quote(e.Statistic))
	b.WriteString(`,"value":`)
	b.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	for _, t := range e.Tags {
		b.WriteByte(',')
		b.WriteString(strconv.Quote(t.Key))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(t.Value))
	}
	b.WriteByte('}')
}

// encodeBody serializes a batch as one JSON array, comma-joined with no
// trailing separator.
func encodeBody(events []Event) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range events {
		if i > 0 {
			b.WriteByte(',')
		}
		e.appendJSON(&b)
	}
	b.WriteByte(']')
	return b.String()
}
