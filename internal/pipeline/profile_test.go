package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromPatient_Age(t *testing.T) {
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	cases := map[string]struct {
		dob  time.Time
		want int
	}{
		"birthday passed":  {time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), 56},
		"birthday today":   {time.Date(1970, 6, 15, 0, 0, 0, 0, time.UTC), 56},
		"birthday pending": {time.Date(1970, 6, 16, 0, 0, 0, 0, time.UTC), 55},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := ProfileFromPatient(PatientRecord{DateOfBirth: &tc.dob}, now)
			require.NotNil(t, p.Age)
			assert.Equal(t, tc.want, *p.Age)
		})
	}
}

func TestProfileFromPatient_CopiesFields(t *testing.T) {
	size := 1.8
	positive := false
	p := ProfileFromPatient(PatientRecord{
		CancerStage: "IIA", ERStatus: "positive", HER2Status: "negative",
		TumorSizeCM: &size, LymphNodePositive: &positive, MenopausalStatus: "post",
	}, time.Now())

	assert.Nil(t, p.Age)
	assert.Equal(t, "IIA", p.CancerStage)
	assert.Equal(t, "positive", p.ERStatus)
	assert.Equal(t, 1.8, *p.TumorSizeCM)
	assert.False(t, *p.LymphNodePositive)
	assert.Equal(t, "post", p.MenopausalStatus)
}

func TestProfileFromPatient_FutureBirthDate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dob := now.AddDate(0, 0, 1)
	assert.Nil(t, ProfileFromPatient(PatientRecord{DateOfBirth: &dob}, now).Age)
}
