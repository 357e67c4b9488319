package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeeRoundsUpToStartedHour(t *testing.T) {
	assert.Equal(t, int64(8000), Fee(1, 8000))
	assert.Equal(t, int64(8000), Fee(60, 8000))
	assert.Equal(t, int64(16000), Fee(61, 8000))
	assert.Equal(t, int64(24000), Fee(125, 8000))
	assert.Equal(t, int64(0), Fee(0, 8000))
	assert.Equal(t, int64(0), Fee(-5, 8000))
}

func TestMinutesRoundsUp(t *testing.T) {
	entry := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Minutes(entry, entry))
	assert.Equal(t, 1, Minutes(entry, entry.Add(30*time.Second)))
	assert.Equal(t, 125, Minutes(entry, entry.Add(125*time.Minute)))
	assert.Equal(t, 126, Minutes(entry, entry.Add(125*time.Minute+time.Second)))
	assert.Equal(t, 0, Minutes(entry, entry.Add(-time.Hour)))
}

func TestDepositForOneHourWindow(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(8000), Deposit(start, start.Add(time.Hour), 8000))
	assert.Equal(t, int64(16000), Deposit(start, start.Add(90*time.Minute), 8000))
}
