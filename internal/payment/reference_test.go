package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferenceStructured(t *testing.T) {
	ref, err := ParseReference("USER_12_SPOT_34_LOT_5")
	require.NoError(t, err)
	assert.Equal(t, Reference{UserID: 12, SpotID: 34, LotID: 5}, ref)
	assert.True(t, ref.Structured())
}

func TestParseReferenceStructuredWithBankNoise(t *testing.T) {
	// Banks wrap the remitter's note in their own text.
	ref, err := ParseReference("CT DEN:512 USER_7_SPOT_21_LOT_3 GD 123456")
	require.NoError(t, err)
	assert.Equal(t, Reference{UserID: 7, SpotID: 21, LotID: 3}, ref)
}

func TestParseReferenceBare(t *testing.T) {
	ref, err := ParseReference("  42 ")
	require.NoError(t, err)
	assert.Equal(t, Reference{UserID: 42}, ref)
	assert.False(t, ref.Structured())
}

func TestParseReferenceRejectsUnknownForms(t *testing.T) {
	for _, desc := range []string{
		"",
		"thanks for parking",
		"USER_x_SPOT_1_LOT_2",
		"GD 123456 tu tai khoan 99887766",
	} {
		_, err := ParseReference(desc)
		assert.ErrorIs(t, err, ErrBadReference, "description %q", desc)
	}
}

func TestBuildReferenceRoundTrips(t *testing.T) {
	ref, err := ParseReference(BuildReference(3, 14, 15))
	require.NoError(t, err)
	assert.Equal(t, Reference{UserID: 3, SpotID: 14, LotID: 15}, ref)
}
