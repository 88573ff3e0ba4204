package model

// KeyAll is the group key of an ungrouped summary.
const KeyAll = "ALL"

// SummaryColumns are the statistic columns of a DistrictSummary in export
// order.
var SummaryColumns = []string{
	"total_crashes",
	"crashes_with_injuries",
	"sum_injuries",
	"sum_injuries_incapacitating",
	"pedestrian_crashes",
	"cyclist_crashes",
	"hit_and_run_crashes",
	"injuries_in_hit_and_run",
	"total_fatalities",
	"cyclist_fatalities",
	"driver_fatalities",
	"passenger_fatalities",
	"pedestrian_fatalities",
	"motorcyclist_fatalities",
	"scooter_fatalities",
	"estimated_economic_damages",
}

// DistrictSummary is one aggregated row, keyed by district id or KeyAll.
type DistrictSummary struct {
	Key string `json:"key"`

	TotalCrashes              int `json:"total_crashes"`
	CrashesWithInjuries       int `json:"crashes_with_injuries"`
	SumInjuries               int `json:"sum_injuries"`
	SumInjuriesIncapacitating int `json:"sum_injuries_incapacitating"`
	PedestrianCrashes         int `json:"pedestrian_crashes"`
	CyclistCrashes            int `json:"cyclist_crashes"`
	HitAndRunCrashes          int `json:"hit_and_run_crashes"`
	InjuriesInHitAndRun       int `json:"injuries_in_hit_and_run"`

	TotalFatalities        int `json:"total_fatalities"`
	CyclistFatalities      int `json:"cyclist_fatalities"`
	DriverFatalities       int `json:"driver_fatalities"`
	PassengerFatalities    int `json:"passenger_fatalities"`
	PedestrianFatalities   int `json:"pedestrian_fatalities"`
	MotorcyclistFatalities int `json:"motorcyclist_fatalities"`
	ScooterFatalities      int `json:"scooter_fatalities"`

	EstimatedEconomicDamages float64 `json:"estimated_economic_damages"`
}

// Values returns the statistics in SummaryColumns order.
func (s DistrictSummary) Values() []any {
	return []any{
		s.TotalCrashes,
		s.CrashesWithInjuries,
		s.SumInjuries,
		s.SumInjuriesIncapacitating,
		s.PedestrianCrashes,
		s.CyclistCrashes,
		s.HitAndRunCrashes,
		s.InjuriesInHitAndRun,
		s.TotalFatalities,
		s.CyclistFatalities,
		s.DriverFatalities,
		s.PassengerFatalities,
		s.PedestrianFatalities,
		s.MotorcyclistFatalities,
		s.ScooterFatalities,
		s.EstimatedEconomicDamages,
	}
}
