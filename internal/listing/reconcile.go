package listing

import (
	"log"
	"sort"
	"time"

	"homzy/server/internal/models"
	"homzy/server/internal/utils"
)

// UnknownPropertyTitle is the placeholder shown for a booking whose property
// reference matches nothing in the supplied collection. Losing the booking
// record would be a worse failure than showing incomplete data.
const UnknownPropertyTitle = "Unknown property"

// EnrichedBooking is a booking joined with its referenced property's current
// display attributes and canonical state. Built transiently on each fetch
// cycle for one view; never persisted.
type EnrichedBooking struct {
	BookingID     string               `json:"_id"`
	UserID        string               `json:"userId"`
	PropertyID    string               `json:"propertyId"`
	Status        models.BookingStatus `json:"status"`
	VisitDate     *time.Time           `json:"visitDate,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	PropertyFound bool                 `json:"propertyFound"`
	Title         string               `json:"title"`
	ListingState  State                `json:"listingState,omitempty"`
	Property      *models.Property     `json:"propertyDetails,omitempty"`
}

// Reconcile joins each booking with its referenced property, producing one
// display-ready entry per input booking sorted newest first (stable, so
// bookings with identical timestamps keep their relative order).
//
// Identifiers on both sides are normalized through utils.UnwrapID before
// comparison. A booking whose reference matches no property is retained with
// a placeholder marker rather than dropped.
func Reconcile(bookings []models.Booking, properties []models.Property) []EnrichedBooking {
	byID := make(map[string]*models.Property, len(properties))
	for i := range properties {
		byID[utils.UnwrapID(properties[i].ID)] = &properties[i]
	}

	out := make([]EnrichedBooking, 0, len(bookings))
	for _, b := range bookings {
		ref := utils.UnwrapID(b.PropertyID)
		entry := EnrichedBooking{
			BookingID:  utils.UnwrapID(b.ID),
			UserID:     utils.UnwrapID(b.UserID),
			PropertyID: ref,
			Status:     b.Status,
			VisitDate:  b.VisitDate,
			CreatedAt:  b.CreatedAt,
		}

		if prop, ok := byID[ref]; ok {
			entry.PropertyFound = true
			entry.Title = prop.Basic.Title
			entry.Property = prop
			state, err := Classify(Kind(prop.Kind), prop.ListingType, prop.IsClosed)
			if err != nil {
				log.Printf("WARN: property %s has unclassifiable kind %q: %v", ref, prop.Kind, err)
			} else {
				entry.ListingState = state
			}
		} else {
			entry.Title = UnknownPropertyTitle
			log.Printf("WARN: booking %s references unknown property %s", entry.BookingID, ref)
		}

		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}
