package metric

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestTagsFromPairs(t *testing.T) {
	tags := Tags("region", "us-east-1", "host", "web01")

	assert.Equal(t, len(tags), 2)
	assert.Equal(t, tags[0], Tag{Key: "region", Value: "us-east-1"})
	assert.Equal(t, tags[1], Tag{Key: "host", Value: "web01"})
}

func TestTagsPanicsOnOddArguments(t *testing.T) {
	defer func() {
		assert.Assert(t, recover() != nil, "expected panic for odd key/value list")
	}()
	Tags("region", "us-east-1", "host")
}

func TestIDCanonicalizesTagOrder(t *testing.T) {
	a := NewID("http.requests", Tags("method", "GET", "status", "200"))
	b := NewID("http.requests", Tags("status", "200", "method", "GET"))

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), "http.requests{method=GET,status=200}")
}

func TestIDDuplicateKeyLastWins(t *testing.T) {
	id := NewID("queue.depth", []Tag{{Key: "queue", Value: "old"}, {Key: "queue", Value: "new"}})

	assert.Equal(t, id.Key(), "queue.depth{queue=new}")
}

func TestIDWithoutTags(t *testing.T) {
	id := NewID("uptime", nil)

	assert.Equal(t, id.Key(), "uptime")
	assert.Assert(t, id.Tags() == nil)
}

func TestIDTagsReturnsCopy(t *testing.T) {
	id := NewID("uptime", Tags("host", "web01"))

	tags := id.Tags()
	tags[0].Value = "mutated"

	assert.Equal(t, id.Tags()[0].Value, "web01")
}
