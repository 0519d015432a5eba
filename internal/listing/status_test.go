package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Rent(t *testing.T) {
	cases := []struct {
		raw    string
		closed bool
		want   State
	}{
		{"For Rent", false, StateForRent},
		{"  for rent  ", false, StateForRent},
		{"FOR RENT", false, StateForRent},
		{"Rent Out", false, StateRentOut},
		{"rent out", false, StateRentOut},
		{"closed rent", false, StateRentOut},
		{"For Rent", true, StateRentOut}, // closed flag beats contradictory text
		{"", false, StateForRent},        // lenient fallback
		{"garbage value", false, StateForRent},
	}
	for _, tc := range cases {
		got, err := Classify(KindRent, tc.raw, tc.closed)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "raw=%q closed=%v", tc.raw, tc.closed)
	}
}

func TestClassify_Sale(t *testing.T) {
	cases := []struct {
		raw    string
		closed bool
		want   State
	}{
		{"For Sale", false, StateForSale},
		{"for sale", false, StateForSale},
		{"Sold Out", false, StateSoldOut},
		{"sold", false, StateSoldOut},
		{"closed sale", false, StateSoldOut},
		{"For Sale", true, StateSoldOut},
		{"", false, StateForSale},
		{"???", false, StateForSale},
	}
	for _, tc := range cases {
		got, err := Classify(KindSale, tc.raw, tc.closed)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "raw=%q closed=%v", tc.raw, tc.closed)
	}
}

func TestClassify_IdempotentOverOwnOutput(t *testing.T) {
	raws := []string{"For Rent", "Rent Out", "", "weird legacy text", "closed rent"}
	for _, kind := range []Kind{KindRent, KindSale} {
		for _, raw := range raws {
			for _, closed := range []bool{false, true} {
				first, err := Classify(kind, raw, closed)
				require.NoError(t, err)
				again, err := Classify(kind, string(first), false)
				require.NoError(t, err)
				assert.Equal(t, first, again, "kind=%s raw=%q closed=%v", kind, raw, closed)
			}
		}
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	_, err := Classify(Kind("commercial"), "For Rent", false)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Rent ")
	require.NoError(t, err)
	assert.Equal(t, KindRent, k)

	k, err = ParseKind("sale")
	require.NoError(t, err)
	assert.Equal(t, KindSale, k)

	_, err = ParseKind("lease")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestClosedAndOpenState(t *testing.T) {
	closed, err := ClosedState(KindRent)
	require.NoError(t, err)
	assert.Equal(t, StateRentOut, closed)

	closed, err = ClosedState(KindSale)
	require.NoError(t, err)
	assert.Equal(t, StateSoldOut, closed)

	open, err := OpenState(KindRent)
	require.NoError(t, err)
	assert.Equal(t, StateForRent, open)

	_, err = ClosedState(Kind(""))
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.True(t, StateRentOut.IsClosed())
	assert.True(t, StateSoldOut.IsClosed())
	assert.False(t, StateForRent.IsClosed())
	assert.False(t, StateForSale.IsClosed())
}
