package models

import "time"

// ListingStatus represents the sales state of a listing
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
)

// Listing is a sellable unit in the catalog. The pricing engine only reads
// status, prices and the cohort key, and only ever writes CurrentPrice.
type Listing struct {
	ID           int64         `json:"id" gorm:"primaryKey"`
	ProjectID    *int64        `json:"project_id" gorm:"index"`
	Rooms        *int          `json:"rooms"`
	Status       ListingStatus `json:"status" gorm:"index;default:available"`
	BasePrice    float64       `json:"base_price"`
	CurrentPrice float64       `json:"current_price"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// CohortKey identifies the demand comparison group: listings in the same
// project with the same room count.
type CohortKey struct {
	ProjectID int64
	Rooms     int
}

// Cohort returns the listing's cohort key. Listings without a project or a
// room count (commercial units, parking) have no cohort.
func (l *Listing) Cohort() (CohortKey, bool) {
	if l.ProjectID == nil || l.Rooms == nil {
		return CohortKey{}, false
	}
	return CohortKey{ProjectID: *l.ProjectID, Rooms: *l.Rooms}, true
}

// DemandSnapshot holds the per-listing demand counters the scorer reads.
// The analytics aggregator maintains one row per listing.
type DemandSnapshot struct {
	ListingID    int64     `json:"listing_id" gorm:"primaryKey"`
	Views        int       `json:"views"`
	Leads        int       `json:"leads"`
	Bookings     int       `json:"bookings"`
	DaysOnMarket int       `json:"days_on_market"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DemandSnapshot) TableName() string {
	return "demand_snapshots"
}

// ViewEvent classifies entries in the views log.
type ViewEvent string

const (
	ViewEventView     ViewEvent = "view"
	ViewEventFavorite ViewEvent = "favorite"
	ViewEventLead     ViewEvent = "lead"
)

// ViewsLog records a single view/favorite/lead event for a listing.
type ViewsLog struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	ListingID  int64     `json:"listing_id" gorm:"index"`
	Event      ViewEvent `json:"event"`
	OccurredAt time.Time `json:"occurred_at" gorm:"index"`
}

func (ViewsLog) TableName() string {
	return "views_logs"
}

// BookingStatus represents the state of a booking
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is read-only here; the eligibility gate checks for recent ones.
type Booking struct {
	ID        int64         `json:"id" gorm:"primaryKey"`
	ListingID int64         `json:"listing_id" gorm:"index"`
	Status    BookingStatus `json:"status" gorm:"default:active"`
	BookedAt  time.Time     `json:"booked_at" gorm:"index"`
}

func (Booking) TableName() string {
	return "bookings"
}
