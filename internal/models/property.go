package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BasicDetails carries the headline attributes of a property. Price applies to
// sale listings; MonthlyRent, SecurityDeposit and MaintenanceCharges apply to
// rentals. Field names mirror what clients submit and render.
type BasicDetails struct {
	Title              string   `bson:"title" json:"title"`
	PropertyType       string   `bson:"property_type" json:"propertyType"`
	BhkType            string   `bson:"bhk_type,omitempty" json:"bhkType,omitempty"`
	FurnishingStatus   string   `bson:"furnishing_status,omitempty" json:"furnishingStatus,omitempty"`
	PropertyStatus     string   `bson:"property_status,omitempty" json:"propertyStatus,omitempty"`
	PropertyFacing     string   `bson:"property_facing,omitempty" json:"propertyFacing,omitempty"`
	PropertyAge        string   `bson:"property_age,omitempty" json:"propertyAge,omitempty"`
	Area               string   `bson:"area,omitempty" json:"Area,omitempty"`
	Floor              string   `bson:"floor,omitempty" json:"floor,omitempty"`
	Bathrooms          int      `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Garages            int      `bson:"garages,omitempty" json:"garages,omitempty"`
	Price              float64  `bson:"price,omitempty" json:"price,omitempty"`
	PriceUnit          string   `bson:"price_unit,omitempty" json:"priceUnit,omitempty"`
	MonthlyRent        float64  `bson:"monthly_rent,omitempty" json:"monthlyRent,omitempty"`
	SecurityDeposit    float64  `bson:"security_deposit,omitempty" json:"securityDeposit,omitempty"`
	MaintenanceCharges float64  `bson:"maintenance_charges,omitempty" json:"maintenanceCharges,omitempty"`
	Amenities          []string `bson:"amenities,omitempty" json:"amenities,omitempty"`
}

// PropertyLocation is the postal location of a property.
type PropertyLocation struct {
	FullAddress string `bson:"full_address" json:"fullAddress"`
	City        string `bson:"city" json:"city"`
	State       string `bson:"state,omitempty" json:"state,omitempty"`
	Pincode     string `bson:"pincode,omitempty" json:"pincode,omitempty"`
}

// ContactInfo is how interested parties reach the owner.
type ContactInfo struct {
	OwnerName    string `bson:"owner_name" json:"ownerName"`
	PhoneNumber  string `bson:"phone_number" json:"phoneNumber"`
	EmailAddress string `bson:"email_address,omitempty" json:"emailAddress,omitempty"`
}

// Property represents a rental or sale listing.
//
// Kind ("rent" or "sale") is authoritative for which state pair applies.
// ListingType holds the raw state text as received ("For Rent", "Rent Out",
// legacy case/spacing variants); IsClosed forces the closed state regardless
// of that text. The canonical state is always derived from the three fields
// via listing.Classify, never stored as a second source of truth.
type Property struct {
	Base        `bson:",inline"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	Kind        string             `bson:"kind" json:"kind"`
	ListingType string             `bson:"listing_type" json:"listingType"`
	IsClosed    bool               `bson:"is_closed" json:"isClosed"`
	Basic       BasicDetails       `bson:"basic" json:"basicDetails"`
	Location    PropertyLocation   `bson:"location" json:"location"`
	Contact     ContactInfo        `bson:"contact" json:"contactInfo"`
	Images      []string           `bson:"images" json:"images"` // S3 keys
	VideoURL    string             `bson:"video_url,omitempty" json:"propertyVideo,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
	Deleted     bool               `bson:"deleted" json:"-"` // Soft delete flag
}
