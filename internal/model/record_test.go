package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestRecord_Counts(t *testing.T) {
	tests := []struct {
		name     string
		r        Record
		crash    int
		fatality int
	}{
		{"crash", Record{Source: SourceCrash, CrashID: "abc"}, 1, 0},
		{"fatality", Record{Source: SourceFatality, PersonID: "P1", Victim: VictimPedestrian}, 0, 1},
		{"fatality without role", Record{Source: SourceFatality, PersonID: "P2", Victim: "  "}, 0, 0},
		{"empty", Record{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.crash, tt.r.CrashCount())
			assert.Equal(t, tt.fatality, tt.r.FatalityCount())
		})
	}
}

func TestRecord_Key(t *testing.T) {
	assert.Equal(t, "abc", Record{CrashID: "abc"}.Key())
	assert.Equal(t, "P1", Record{PersonID: "P1"}.Key())
	assert.Empty(t, Record{}.Key())
}

func TestRecord_NullableInjuries(t *testing.T) {
	r := Record{}
	assert.Equal(t, 0, r.Injuries())
	assert.Equal(t, 0, r.Incapacitating())

	r.InjuriesTotal = intp(3)
	r.InjuriesIncapacitating = intp(1)
	assert.Equal(t, 3, r.Injuries())
	assert.Equal(t, 1, r.Incapacitating())
}

func TestRecord_InRange(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	late := Record{Time: time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)}
	early := Record{Time: time.Date(2022, 12, 31, 23, 59, 0, 0, time.UTC)}

	assert.True(t, late.InRange(start, end), "end day is inclusive")
	assert.False(t, early.InRange(start, end))
	assert.True(t, early.InRange(time.Time{}, end))
	assert.True(t, late.InRange(time.Time{}, time.Time{}))
}

func TestDistrictIDs(t *testing.T) {
	var d DistrictIDs
	d2 := d.With(KindSenate, "6").With(KindHouse, "12")
	assert.Equal(t, "", d.Get(KindSenate), "With returns a copy")
	assert.Equal(t, "6", d2.Get(KindSenate))
	assert.Equal(t, "12", d2.Get(KindHouse))
	assert.Equal(t, "", d2.Get("ward"))
}

func TestParseDistrictKind(t *testing.T) {
	k, err := ParseDistrictKind(" Senate ")
	require.NoError(t, err)
	assert.Equal(t, KindSenate, k)

	_, err = ParseDistrictKind("ward")
	assert.Error(t, err)
}

func TestDistrictSummary_Values(t *testing.T) {
	s := DistrictSummary{TotalCrashes: 4, ScooterFatalities: 1, EstimatedEconomicDamages: 11400}
	v := s.Values()
	require.Len(t, v, len(SummaryColumns))
	assert.Equal(t, 4, v[0])
	assert.Equal(t, 1, v[14])
	assert.Equal(t, 11400.0, v[15])
}
