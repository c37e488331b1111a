package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrich_MergesSnippets(t *testing.T) {
	lookup := &stubLookup{answers: map[string][]string{
		"Passer domesticus bird description":              {"Small brown bird.", "Lives near people."},
		"Passer domesticus habitat":                       {"Towns and farmland", "Hedges"},
		"Passer domesticus injured bird rescue treatment": {"Keep warm", "Call a rehabber"},
	}}
	e := NewEnricher(lookup, testLogger())

	got := e.Enrich(context.Background(), "Passer domesticus")
	assert.Equal(t, "Small brown bird. Lives near people.", got.Description)
	assert.Equal(t, "Towns and farmland", got.Habitat)
	assert.Equal(t, []string{"Keep warm", "Call a rehabber"}, got.Treatment)
	assert.Len(t, lookup.Queries(), 3)
}

func TestEnrich_SwallowsFailures(t *testing.T) {
	tests := []struct {
		name   string
		lookup Lookup
	}{
		{"错误", &stubLookup{err: errors.New("timeout")}},
		{"panic", &stubLookup{panics: true}},
		{"未配置", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.lookup, testLogger())
			assert.Equal(t, Enrichment{}, e.Enrich(context.Background(), "Passer domesticus"))
		})
	}
}

func TestEnrich_SkipsUnknown(t *testing.T) {
	lookup := &stubLookup{}
	e := NewEnricher(lookup, testLogger())

	assert.Equal(t, Enrichment{}, e.Enrich(context.Background(), ""))
	assert.Equal(t, Enrichment{}, e.Enrich(context.Background(), UnknownSpecies))
	assert.Empty(t, lookup.Queries())
}
