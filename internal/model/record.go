// Package model defines the records and summary rows that flow through an
// analysis run.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Source tells which input file a record came from.
type Source string

const (
	SourceCrash    Source = "crash"
	SourceFatality Source = "fatality"
)

// First crash types that the aggregator counts.
const (
	CrashTypePedestrian   = "PEDESTRIAN"
	CrashTypePedalcyclist = "PEDALCYCLIST"
)

// Victim roles on fatality records.
const (
	VictimCyclist      = "CYCLIST"
	VictimDriver       = "DRIVER"
	VictimPassenger    = "PASSENGER"
	VictimPedestrian   = "PEDESTRIAN"
	VictimMotorcyclist = "MOTORCYCLIST"
	VictimScooter      = "SCOOTER"
)

// DistrictKind is the chamber a district boundary belongs to.
type DistrictKind string

const (
	KindSenate DistrictKind = "senate"
	KindHouse  DistrictKind = "house"
)

// ParseDistrictKind validates a district kind name.
func ParseDistrictKind(s string) (DistrictKind, error) {
	switch DistrictKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSenate:
		return KindSenate, nil
	case KindHouse:
		return KindHouse, nil
	}
	return "", eris.Errorf("model: unknown district kind %q", s)
}

// DistrictIDs holds the district a record was joined to, per kind. An empty
// string means not joined.
type DistrictIDs struct {
	Senate string `json:"senate_district,omitempty"`
	House  string `json:"house_district,omitempty"`
}

// Get returns the id for kind.
func (d DistrictIDs) Get(kind DistrictKind) string {
	switch kind {
	case KindSenate:
		return d.Senate
	case KindHouse:
		return d.House
	}
	return ""
}

// With returns a copy with the id for kind set.
func (d DistrictIDs) With(kind DistrictKind, id string) DistrictIDs {
	switch kind {
	case KindSenate:
		d.Senate = id
	case KindHouse:
		d.House = id
	}
	return d
}

// Record is the unioned crash/fatality row. Crash rows carry CrashID and the
// injury fields; fatality rows carry PersonID, Location and Victim. Lon/Lat
// are WGS84 degrees and always present once a record leaves the geocoder.
type Record struct {
	Source   Source    `json:"source"`
	CrashID  string    `json:"crash_record_id,omitempty"`
	PersonID string    `json:"person_id,omitempty"`
	Time     time.Time `json:"crash_date"`
	Location string    `json:"crash_location,omitempty"`
	Victim   string    `json:"victim,omitempty"`
	Lon      float64   `json:"longitude"`
	Lat      float64   `json:"latitude"`

	InjuriesTotal          *int   `json:"injuries_total,omitempty"`
	InjuriesIncapacitating *int   `json:"injuries_incapacitating,omitempty"`
	FirstCrashType         string `json:"first_crash_type,omitempty"`
	HitAndRun              *bool  `json:"hit_and_run,omitempty"`

	Districts DistrictIDs `json:"districts"`
	InBuffer  bool        `json:"is_in_corridor_buffer"`
	Damages   float64     `json:"estimated_economic_damages"`
}

// Key identifies the row within its source: the crash record id or the
// person id.
func (r Record) Key() string {
	if r.CrashID != "" {
		return r.CrashID
	}
	return r.PersonID
}

// CrashCount is 1 for a row describing a crash and 0 otherwise.
func (r Record) CrashCount() int {
	if r.CrashID != "" {
		return 1
	}
	return 0
}

// FatalityCount is 1 for a row describing a fatality and 0 otherwise.
func (r Record) FatalityCount() int {
	if strings.TrimSpace(r.Victim) != "" {
		return 1
	}
	return 0
}

// Injuries returns the total injury count, treating missing as zero.
func (r Record) Injuries() int { return deref(r.InjuriesTotal) }

// Incapacitating returns the incapacitating injury count, treating missing as zero.
func (r Record) Incapacitating() int { return deref(r.InjuriesIncapacitating) }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// InRange reports whether the record's calendar day falls within
// [start, end]. Zero bounds are open.
func (r Record) InRange(start, end time.Time) bool {
	day := time.Date(r.Time.Year(), r.Time.Month(), r.Time.Day(), 0, 0, 0, 0, time.UTC)
	if !start.IsZero() && day.Before(dayOf(start)) {
		return false
	}
	if !end.IsZero() && day.After(dayOf(end)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
