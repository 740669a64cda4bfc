package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/filter"
)

func TestInboundSession_DefaultPredicateMatchesAll(t *testing.T) {
	s := NewInboundSession("s1")
	assert.True(t, s.sees(configwatch.UpstreamDescriptor{Tags: []string{"prod"}}))
	assert.True(t, s.sees(configwatch.UpstreamDescriptor{}))
}

func TestInboundSession_SetPredicate_Narrows(t *testing.T) {
	s := NewInboundSession("s1")
	pred := filter.PredicateFunc(func(tags filter.TagSet) bool {
		_, ok := tags["prod"]
		return ok
	})
	s.SetPredicate(pred)

	assert.True(t, s.sees(configwatch.UpstreamDescriptor{Tags: []string{"prod"}}))
	assert.False(t, s.sees(configwatch.UpstreamDescriptor{Tags: []string{"staging"}}))
}

func TestInboundSession_SetPredicate_NilResetsToMatchAll(t *testing.T) {
	s := NewInboundSession("s1")
	s.SetPredicate(filter.PredicateFunc(func(filter.TagSet) bool { return false }))
	s.SetPredicate(nil)

	assert.True(t, s.sees(configwatch.UpstreamDescriptor{}))
}
