package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMostRestrictive(t *testing.T) {
	assert.Equal(t, ZoneGreen, MostRestrictive())
	assert.Equal(t, ZoneYellow, MostRestrictive(ZoneGreen, ZoneYellow))
	assert.Equal(t, ZoneRed, MostRestrictive(ZoneYellow, ZoneRed, ZoneGreen))
	assert.Equal(t, MostRestrictive(ZoneRed, ZoneYellow), MostRestrictive(ZoneYellow, ZoneRed))
}

func TestZoneConfig_Validate(t *testing.T) {
	assert.NoError(t, IntunivZoneConfig.Validate())
	assert.NoError(t, TenexZoneConfig.Validate())
	assert.NoError(t, ZoneConfig{}.Validate())

	bad := []ZoneConfig{
		{GreenHoursBefore: 2, YellowHoursBefore: 3, RedHoursAfter: 3, YellowHoursAfter: 5},
		{GreenHoursBefore: 5, YellowHoursBefore: 3, RedHoursAfter: 6, YellowHoursAfter: 5},
		{GreenHoursBefore: -1},
		{RedHoursAfter: -1, YellowHoursAfter: 2},
	}
	for _, c := range bad {
		assert.ErrorIs(t, c.Validate(), ErrInvalidZoneConfig, "%+v", c)
	}
}

func TestParseMedicationType(t *testing.T) {
	assert.Equal(t, MedicationTenex, ParseMedicationType("TENEX"))
	assert.Equal(t, MedicationTenex, ParseMedicationType(" tenex "))
	assert.Equal(t, MedicationIntuniv, ParseMedicationType("INTUNIV"))
	assert.Equal(t, MedicationIntuniv, ParseMedicationType(""))
	assert.Equal(t, MedicationIntuniv, ParseMedicationType("aspirin"))

	assert.Equal(t, TenexZoneConfig, MedicationTenex.ZoneConfig())
	assert.Equal(t, IntunivZoneConfig, MedicationIntuniv.ZoneConfig())
}

func TestParseFeedbackType(t *testing.T) {
	for _, f := range FeedbackTypes {
		got, err := ParseFeedbackType(f.String())
		assert.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFeedbackType("too_dizzy")
	assert.NoError(t, err)
	assert.Equal(t, FeedbackTooDizzy, got)

	_, err = ParseFeedbackType("sleepy")
	assert.Error(t, err)
}
