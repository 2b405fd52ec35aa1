package pipeline

import (
	"time"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

// PatientRecord is the stored patient data a treatment comparison draws on.
type PatientRecord struct {
	DateOfBirth       *time.Time
	CancerStage       string
	CancerType        string
	ERStatus          string
	PRStatus          string
	HER2Status        string
	TumorSizeCM       *float64
	LymphNodePositive *bool
	MenopausalStatus  string
}

// ProfileFromPatient builds the profile sent for treatment comparison. Age is computed
// against now and left unset when the date of birth is unknown or in the future.
func ProfileFromPatient(rec PatientRecord, now time.Time) llm.PatientProfile {
	p := llm.PatientProfile{
		CancerStage:       rec.CancerStage,
		CancerType:        rec.CancerType,
		ERStatus:          rec.ERStatus,
		PRStatus:          rec.PRStatus,
		HER2Status:        rec.HER2Status,
		TumorSizeCM:       rec.TumorSizeCM,
		LymphNodePositive: rec.LymphNodePositive,
		MenopausalStatus:  rec.MenopausalStatus,
	}
	if rec.DateOfBirth != nil {
		if age, ok := ageAt(*rec.DateOfBirth, now); ok {
			p.Age = &age
		}
	}
	return p
}

func ageAt(dob, now time.Time) (int, bool) {
	if dob.After(now) {
		return 0, false
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}
