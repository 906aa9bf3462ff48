package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 15/01/2025 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.January, 15), d)
	assert.Equal(t, "15/01/2025", d.String())

	for _, bad := range []string{"2025-01-15", "32/01/2025", "", "15/13/2025"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := MustParseDate("31/12/2024")
	assert.Equal(t, "30/01/2025", d.AddDays(30).String())
	assert.Equal(t, 5, MustParseDate("10/01/2025").DaysUntil(MustParseDate("15/01/2025")))
	assert.Equal(t, -1, MustParseDate("10/01/2025").DaysUntil(MustParseDate("09/01/2025")))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d), "same day")
	assert.True(t, d.Equal(MustParseDate("31/12/2024")))
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		On  Date `json:"on"`
		Off Date `json:"off"`
	}
	data, err := json.Marshal(wrapper{On: MustParseDate("01/02/2025")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"01/02/2025","off":""}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"on":"03/04/2025","off":null}`), &w))
	assert.Equal(t, "03/04/2025", w.On.String())
	assert.True(t, w.Off.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"on":"2025-04-03"}`), &w))
}

func TestEnvDateSource(t *testing.T) {
	t.Setenv(DateOverrideEnv, "15/01/2025")
	assert.Equal(t, "15/01/2025", EnvDateSource{}.Today().String())
	assert.Equal(t, "15/01/2025", CurrentDate())

	t.Setenv(DateOverrideEnv, "not a date")
	assert.Equal(t, DateOf(time.Now()), EnvDateSource{}.Today())
}

func TestFixedDate(t *testing.T) {
	d := MustParseDate("09/01/2025")
	assert.Equal(t, d, FixedDate(d).Today())
}
