// Package rem stores the monthly safety indicator reports (REM) companies
// file alongside their evaluations.
package rem

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("rem report not found")

	// ErrDuplicatePeriod maps the UNIQUE(company_id, period) constraint.
	ErrDuplicatePeriod = errors.New("rem report already exists for this company and period")
)

// Indicators carries the raw monthly figures. Pointers distinguish "not
// reported" from zero.
type Indicators struct {
	Employees     *int     `json:"employees,omitempty"`
	ExposureHours *float64 `json:"exposure_hours,omitempty"`

	// typical accidents
	Fatalities        *int `json:"fatalities,omitempty"`
	LostTimeTypical   *int `json:"lost_time_typical,omitempty"`
	MedicalTreatment  *int `json:"medical_treatment,omitempty"`
	RestrictedWork    *int `json:"restricted_work,omitempty"`
	FirstAid          *int `json:"first_aid,omitempty"`
	DaysLostCharged   *int `json:"days_lost_charged,omitempty"`
	RecordableInjured *int `json:"recordable_injured,omitempty"`

	// atypical accidents
	LostTime   *int `json:"lost_time,omitempty"`
	NoLostTime *int `json:"no_lost_time,omitempty"`
	Commuting  *int `json:"commuting,omitempty"`
	Other      *int `json:"other,omitempty"`

	// rates
	TotalRecordableRate *float64 `json:"total_recordable_rate,omitempty"`
	LostTimeRate        *float64 `json:"lost_time_rate,omitempty"`
	NoLostTimeRate      *float64 `json:"no_lost_time_rate,omitempty"`
	IncidenceRate       *float64 `json:"incidence_rate,omitempty"`
	SeverityRate        *float64 `json:"severity_rate,omitempty"`

	LMANCA  *int `json:"lma_nca,omitempty"`
	LMATFCA *int `json:"lma_tfca,omitempty"`
}

type Report struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"company_id"`
	Period     time.Time  `json:"period"` // date precision, one report per month
	Indicators Indicators `json:"indicators"`
}
