package tickets

import (
	"testing"
	"time"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/core/proportion"
	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlyCatalog returns n releases dated on the first of each month of 2020, ids "v0".."v{n-1}".
func monthlyCatalog(n int) *catalog.Catalog {
	var raw []schema.RawVersion
	for i := range n {
		raw = append(raw, schema.RawVersion{
			ID:      "v" + string(rune('0'+i)),
			Name:    "1." + string(rune('0'+i)),
			Date:    day(2020, time.Month(i+1), 1),
			HasDate: true,
		})
	}
	return catalog.New(raw)
}

func TestResolveScenario(t *testing.T) {
	cat := catalog.New([]schema.RawVersion{
		{ID: "a", Name: "1.0", Date: day(2020, 1, 1), HasDate: true},
		{ID: "b", Name: "1.1", Date: day(2020, 6, 1), HasDate: true},
		{ID: "c", Name: "2.0", Date: day(2021, 1, 1), HasDate: true},
	})
	res, err := NewResolver(cat, proportion.NewEstimator(5, nil)).Resolve([]schema.RawTicket{{
		Key:              "PROJ-1",
		Created:          day(2020, 3, 1),
		Resolved:         day(2020, 8, 1),
		AffectedVersions: []string{"a"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)

	tk := res.Tickets[0]
	assert.Equal(t, 0, *tk.Injected)
	assert.Equal(t, 1, tk.Opening)
	assert.Equal(t, 2, tk.Fixed)
	assert.False(t, tk.Adjusted)
	assert.Equal(t, []int{0, 1}, cat.AffectedReleases(tk.Injected, tk.Fixed))
}

func TestResolveDiscardsWithoutRelease(t *testing.T) {
	cat := monthlyCatalog(3)
	res, err := NewResolver(cat, nil).Resolve([]schema.RawTicket{
		{Key: "P-1", Created: day(2020, 2, 15), Resolved: day(2021, 1, 1), AffectedVersions: []string{"v0"}},
		{Key: "P-2", Created: day(2022, 1, 1), Resolved: day(2022, 2, 1)},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Tickets)
	assert.Equal(t, 2, res.Discarded[schema.DiscardNoRelease])
}

func TestResolveEarliestAffectedVersion(t *testing.T) {
	cat := monthlyCatalog(5)
	res, err := NewResolver(cat, nil).Resolve([]schema.RawTicket{
		{Key: "P-1", Created: day(2020, 4, 1), Resolved: day(2020, 5, 1), AffectedVersions: []string{"v2", "unknown", "v1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, 1, *res.Tickets[0].Injected)
}

func TestResolveAdjustsWithLocalMean(t *testing.T) {
	cat := monthlyCatalog(8)
	var raw []schema.RawTicket
	// Two consistent tickets with P = (4-1)/(4-3) = 3, resolved first.
	for i, key := range []string{"P-1", "P-2"} {
		raw = append(raw, schema.RawTicket{
			Key:              key,
			Created:          day(2020, 4, 1),
			Resolved:         day(2020, 5, 1).Add(time.Duration(i) * time.Hour),
			AffectedVersions: []string{"v1"},
		})
	}
	// Missing injected release: OV=5, FV=6 -> IV = floor(6 - 1*3) = 3.
	raw = append(raw, schema.RawTicket{Key: "P-3", Created: day(2020, 6, 1), Resolved: day(2020, 7, 1)})

	pool := func() ([]float64, error) {
		t.Fatal("local samples reach the threshold")
		return nil, nil
	}
	res, err := NewResolver(cat, proportion.NewEstimator(2, pool)).Resolve(raw)
	require.NoError(t, err)
	require.Len(t, res.Tickets, 3)

	adjusted := res.Tickets[2]
	assert.Equal(t, "P-3", adjusted.Key)
	assert.True(t, adjusted.Adjusted)
	assert.Equal(t, 3, *adjusted.Injected)
	assert.Equal(t, 1, res.Adjusted)
	assert.Equal(t, proportion.SourceLocal, res.Source)
	assert.InDelta(t, 3.0, res.Proportion, 1e-9)
}

func TestResolveUsesColdStartBelowThreshold(t *testing.T) {
	cat := monthlyCatalog(8)
	raw := []schema.RawTicket{
		{Key: "P-1", Created: day(2020, 4, 1), Resolved: day(2020, 5, 1), AffectedVersions: []string{"v1"}},
		{Key: "P-2", Created: day(2020, 6, 1), Resolved: day(2020, 8, 1)},
	}
	res, err := NewResolver(cat, proportion.NewEstimator(5, func() ([]float64, error) {
		return []float64{1.0, 2.0}, nil
	})).Resolve(raw)
	require.NoError(t, err)
	require.Len(t, res.Tickets, 2)

	// OV=5, FV=7, P=1.5 -> IV = floor(7 - 3) = 4.
	assert.Equal(t, 4, *res.Tickets[1].Injected)
	assert.Equal(t, proportion.SourceColdStart, res.Source)
	assert.InDelta(t, 1.5, res.Proportion, 1e-9)
}

func TestResolveDiscardsAfterAdjustment(t *testing.T) {
	cat := monthlyCatalog(8)
	raw := []schema.RawTicket{
		// OV=FV=5 -> IV = floor(5 - 0.5) = 4.
		{Key: "KEEP", Created: day(2020, 5, 15), Resolved: day(2020, 5, 20)},
		{Key: "DROP", Created: day(2020, 2, 15), Resolved: day(2020, 4, 15)},
	}
	calls := 0
	est := proportion.NewEstimator(5, func() ([]float64, error) {
		calls++
		return []float64{0.5}, nil
	})
	res, err := NewResolver(cat, est).Resolve(raw)
	require.NoError(t, err)

	// DROP: OV=2, FV=4 -> IV = floor(4 - 2*0.5) = 3, which is >= OV.
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, "KEEP", res.Tickets[0].Key)
	assert.Equal(t, 4, *res.Tickets[0].Injected)
	assert.Equal(t, 1, res.Discarded[schema.DiscardInvalidOrder])
	assert.Equal(t, 2, res.Adjusted)
	assert.Equal(t, 1, calls)
}

func TestResolveReportedInjectedAfterOpeningIsAdjusted(t *testing.T) {
	cat := monthlyCatalog(8)
	raw := []schema.RawTicket{
		{Key: "P-1", Created: day(2020, 2, 15), Resolved: day(2020, 6, 15), AffectedVersions: []string{"v4"}},
	}
	res, err := NewResolver(cat, proportion.NewEstimator(5, func() ([]float64, error) {
		return []float64{2.0}, nil
	})).Resolve(raw)
	require.NoError(t, err)

	// OV=2, FV=6, P=2 -> IV = max(0, 6 - 8) = 0.
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, 0, *res.Tickets[0].Injected)
	assert.True(t, res.Tickets[0].Adjusted)
}

func TestResolveEmptyColdStartIsFatal(t *testing.T) {
	cat := monthlyCatalog(4)
	_, err := NewResolver(cat, proportion.NewEstimator(5, func() ([]float64, error) {
		return nil, nil
	})).Resolve([]schema.RawTicket{{Key: "P-1", Created: day(2020, 1, 15), Resolved: day(2020, 3, 1)}})
	assert.ErrorIs(t, err, proportion.ErrEmptyColdStart)
}

func TestResolveWithoutEstimatorDropsInconsistent(t *testing.T) {
	cat := monthlyCatalog(4)
	res, err := NewResolver(cat, nil).Resolve([]schema.RawTicket{
		{Key: "P-1", Created: day(2020, 1, 15), Resolved: day(2020, 3, 1)},
		{Key: "P-2", Created: day(2020, 2, 15), Resolved: day(2020, 4, 1), AffectedVersions: []string{"v0"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, "P-2", res.Tickets[0].Key)
	assert.Equal(t, 1, res.Discarded[schema.DiscardInconsistent])
	assert.Equal(t, 1, res.TotalDiscarded())
}

func TestResolvedTicketsSatisfyInvariant(t *testing.T) {
	cat := monthlyCatalog(10)
	var raw []schema.RawTicket
	for i := range 40 {
		created := day(2020, 1, 1).AddDate(0, 0, i*7)
		rt := schema.RawTicket{
			Key:      "P-" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Created:  created,
			Resolved: created.AddDate(0, 0, 10+i*3),
		}
		if i%3 == 0 {
			rt.AffectedVersions = []string{"v" + string(rune('0'+i%10))}
		}
		raw = append(raw, rt)
	}
	res, err := NewResolver(cat, proportion.NewEstimator(5, func() ([]float64, error) {
		return []float64{1.5}, nil
	})).Resolve(raw)
	require.NoError(t, err)

	for _, tk := range res.Tickets {
		require.NotNil(t, tk.Injected, tk.Key)
		assert.LessOrEqual(t, *tk.Injected, tk.Opening, tk.Key)
		assert.LessOrEqual(t, tk.Opening, tk.Fixed, tk.Key)
		assert.Less(t, *tk.Injected, tk.Opening, tk.Key)
	}
	assert.Equal(t, len(raw), len(res.Tickets)+res.TotalDiscarded())
	for i := 1; i < len(res.Tickets); i++ {
		assert.False(t, res.Tickets[i].Resolved.Before(res.Tickets[i-1].Resolved))
	}
}
