package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homzy/server/internal/models"
	"homzy/server/internal/utils"
)

func rentProperty(title string) models.Property {
	p := models.Property{
		Kind:        string(KindRent),
		ListingType: "For Rent",
	}
	p.GenID()
	p.Basic.Title = title
	return p
}

func TestReconcile_MatchesByNormalizedID(t *testing.T) {
	prop := rentProperty("Sunny 2BHK")

	booking := models.Booking{
		UserID:     utils.FlexID("u1"),
		PropertyID: utils.FlexID(prop.ID.Hex()),
		Status:     models.BookingPending,
		CreatedAt:  time.Now(),
	}
	booking.GenID()

	got := Reconcile([]models.Booking{booking}, []models.Property{prop})
	require.Len(t, got, 1)
	assert.True(t, got[0].PropertyFound)
	assert.Equal(t, "Sunny 2BHK", got[0].Title)
	assert.Equal(t, StateForRent, got[0].ListingState)
	assert.Equal(t, models.BookingPending, got[0].Status)
	require.NotNil(t, got[0].Property)
	assert.Equal(t, prop.ID, got[0].Property.ID)
}

func TestReconcile_WrappedReferenceStillMatches(t *testing.T) {
	// The propertyId arrives via JSON as {"$oid": ...}; FlexID normalizes it
	// at ingestion, so the reconciler sees the plain string.
	prop := rentProperty("Wrapped")

	var ref utils.FlexID
	err := ref.UnmarshalJSON([]byte(`{"$oid":"` + prop.ID.Hex() + `"}`))
	require.NoError(t, err)

	booking := models.Booking{PropertyID: ref, Status: models.BookingPending}
	booking.GenID()

	got := Reconcile([]models.Booking{booking}, []models.Property{prop})
	require.Len(t, got, 1)
	assert.True(t, got[0].PropertyFound)
	assert.Equal(t, "Wrapped", got[0].Title)
}

func TestReconcile_UnmatchedReferenceKeptAsPlaceholder(t *testing.T) {
	booking := models.Booking{
		PropertyID: utils.FlexID(primitive.NewObjectID().Hex()),
		Status:     models.BookingPending,
		CreatedAt:  time.Now(),
	}
	booking.GenID()

	got := Reconcile([]models.Booking{booking}, nil)
	require.Len(t, got, 1)
	assert.False(t, got[0].PropertyFound)
	assert.Equal(t, UnknownPropertyTitle, got[0].Title)
	assert.Nil(t, got[0].Property)
}

func TestReconcile_EmptyBookings(t *testing.T) {
	got := Reconcile(nil, []models.Property{rentProperty("X")})
	assert.Empty(t, got)
}

func TestReconcile_SortsNewestFirstStable(t *testing.T) {
	now := time.Now()
	mk := func(ts time.Time, ref string) models.Booking {
		b := models.Booking{
			PropertyID: utils.FlexID(ref),
			Status:     models.BookingPending,
			CreatedAt:  ts,
		}
		b.GenID()
		return b
	}

	older := mk(now.Add(-time.Hour), "p-old")
	tiedA := mk(now, "p-a")
	tiedB := mk(now, "p-b")

	got := Reconcile([]models.Booking{older, tiedA, tiedB}, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "p-a", got[0].PropertyID)
	assert.Equal(t, "p-b", got[1].PropertyID) // equal timestamps keep input order
	assert.Equal(t, "p-old", got[2].PropertyID)
}
