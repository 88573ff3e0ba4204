// Package summary rolls classified, costed records up into one row per
// district (or a single ALL row).
package summary

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/model"
)

// GroupBy selects the aggregation key.
type GroupBy string

const (
	GroupSenate GroupBy = "senate"
	GroupHouse  GroupBy = "house"
	GroupNone   GroupBy = "none"
)

// ParseGroupBy validates a grouping key name. Empty means none.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupSenate, GroupHouse, GroupNone:
		return g, nil
	case "":
		return GroupNone, nil
	}
	return "", eris.Errorf("summary: unknown group_by %q", s)
}

// KeyColumn is the header of the key column in tabular exports.
func (g GroupBy) KeyColumn() string {
	switch g {
	case GroupSenate:
		return "senate_district"
	case GroupHouse:
		return "house_district"
	}
	return "group"
}

func (g GroupBy) key(r model.Record) string {
	switch g {
	case GroupSenate:
		return r.Districts.Senate
	case GroupHouse:
		return r.Districts.House
	}
	return model.KeyAll
}

// Aggregate builds one DistrictSummary per distinct key. Records without a
// value for the key are skipped; keys with no records produce no row. Rows
// are ordered by key, numerically when both keys are integers.
func Aggregate(records []model.Record, by GroupBy) []model.DistrictSummary {
	acc := make(map[string]*model.DistrictSummary)
	for _, r := range records {
		k := by.key(r)
		if k == "" {
			continue
		}
		s, ok := acc[k]
		if !ok {
			s = &model.DistrictSummary{Key: k}
			acc[k] = s
		}
		add(s, r)
	}

	out := make([]model.DistrictSummary, 0, len(acc))
	for _, s := range acc {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })
	return out
}

func add(s *model.DistrictSummary, r model.Record) {
	crash := r.CrashCount()
	injuries := r.Injuries()

	s.TotalCrashes += crash
	if crash == 1 && injuries > 0 {
		s.CrashesWithInjuries++
	}
	s.SumInjuries += injuries
	s.SumInjuriesIncapacitating += r.Incapacitating()

	if crash == 1 {
		switch strings.ToUpper(r.FirstCrashType) {
		case model.CrashTypePedestrian:
			s.PedestrianCrashes++
		case model.CrashTypePedalcyclist:
			s.CyclistCrashes++
		}
		if r.HitAndRun != nil && *r.HitAndRun {
			s.HitAndRunCrashes++
			s.InjuriesInHitAndRun += injuries
		}
	}

	if r.FatalityCount() == 1 {
		s.TotalFatalities++
		switch strings.ToUpper(strings.TrimSpace(r.Victim)) {
		case model.VictimCyclist:
			s.CyclistFatalities++
		case model.VictimDriver:
			s.DriverFatalities++
		case model.VictimPassenger:
			s.PassengerFatalities++
		case model.VictimPedestrian:
			s.PedestrianFatalities++
		case model.VictimMotorcyclist:
			s.MotorcyclistFatalities++
		case model.VictimScooter:
			s.ScooterFatalities++
		}
	}

	s.EstimatedEconomicDamages += r.Damages
}

func lessKey(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}

// Total sums rows into a single ALL row.
func Total(rows []model.DistrictSummary) model.DistrictSummary {
	t := model.DistrictSummary{Key: model.KeyAll}
	for _, r := range rows {
		t.TotalCrashes += r.TotalCrashes
		t.CrashesWithInjuries += r.CrashesWithInjuries
		t.SumInjuries += r.SumInjuries
		t.SumInjuriesIncapacitating += r.SumInjuriesIncapacitating
		t.PedestrianCrashes += r.PedestrianCrashes
		t.CyclistCrashes += r.CyclistCrashes
		t.HitAndRunCrashes += r.HitAndRunCrashes
		t.InjuriesInHitAndRun += r.InjuriesInHitAndRun
		t.TotalFatalities += r.TotalFatalities
		t.CyclistFatalities += r.CyclistFatalities
		t.DriverFatalities += r.DriverFatalities
		t.PassengerFatalities += r.PassengerFatalities
		t.PedestrianFatalities += r.PedestrianFatalities
		t.MotorcyclistFatalities += r.MotorcyclistFatalities
		t.ScooterFatalities += r.ScooterFatalities
		t.EstimatedEconomicDamages += r.EstimatedEconomicDamages
	}
	return t
}
