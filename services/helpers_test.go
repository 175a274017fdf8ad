package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blindcellar/tasting-system/models"
)

func TestGenerateJoinCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateJoinCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, joinCodeMin)
		assert.LessOrEqual(t, n, joinCodeMax)
	}
}

func TestFormatAccuracy(t *testing.T) {
	tests := []struct {
		correct, total int
		want           string
	}{
		{0, 0, "0.0"},
		{0, 4, "0.0"},
		{1, 1, "100.0"},
		{1, 3, "33.3"},
		{2, 3, "66.7"},
		{3, 4, "75.0"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatAccuracy(tc.correct, tc.total),
			"formatAccuracy(%d, %d)", tc.correct, tc.total)
	}
}

func TestRoundToOneDecimal(t *testing.T) {
	assert.InDelta(t, 7.5, roundToOneDecimal(7.45), 0.0001)
	assert.InDelta(t, 7.4, roundToOneDecimal(7.44), 0.0001)
	assert.InDelta(t, 0.0, roundToOneDecimal(0), 0.0001)
}

func TestParticipantsToValues(t *testing.T) {
	assert.Empty(t, ParticipantsToValues(nil))

	values := ParticipantsToValues([]*models.Participant{
		{ID: 1, Name: "Anna"},
		{ID: 2, Name: "Boris"},
	})
	require.Len(t, values, 2)
	assert.Equal(t, "Boris", values[1].Name)
}

func TestDerefString(t *testing.T) {
	assert.Equal(t, "", derefString(nil))
	s := "wine"
	assert.Equal(t, "wine", derefString(&s))
}
