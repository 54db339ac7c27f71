package models

import "time"

const (
	BookingStatusPending     = "pending"
	BookingStatusConfirmed   = "confirmed"
	BookingStatusAssigned    = "assigned"
	BookingStatusInProgress  = "in_progress"
	BookingStatusCompleted   = "completed"
	BookingStatusCancelled   = "cancelled"
	BookingStatusRescheduled = "rescheduled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"

	UrgencyNormal    = "normal"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"

	TechnicianStatusActive   = "active"
	TechnicianStatusInactive = "inactive"
	TechnicianStatusBusy     = "busy"

	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"

	RoleUser       = "user"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Booking carries both the store id and a human-readable bookingId;
// lookups must accommodate either (legacy clients send whichever they have).
type Booking struct {
	ID                 string     `bson:"_id,omitempty" json:"id"`
	BookingID          string     `bson:"bookingId" json:"bookingId"`
	UserID             string     `bson:"userId,omitempty" json:"userId,omitempty"`
	Service            string     `bson:"service" json:"service"`
	Status             string     `bson:"status" json:"status"`
	PaymentStatus      string     `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID          string     `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	OrderID            string     `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Amount             int        `bson:"amount" json:"amount"`
	CustomerName       string     `bson:"customerName" json:"customerName"`
	CustomerEmail      string     `bson:"customerEmail" json:"customerEmail"`
	CustomerPhone      string     `bson:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	Address            string     `bson:"address,omitempty" json:"address,omitempty"`
	TechnicianID       string     `bson:"technicianId,omitempty" json:"technicianId,omitempty"`
	Urgency            string     `bson:"urgency,omitempty" json:"urgency,omitempty"`
	Notes              string     `bson:"notes,omitempty" json:"notes,omitempty"`
	ScheduledDate      string     `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
	BookingTime        string     `bson:"bookingTime,omitempty" json:"bookingTime,omitempty"`
	Rating             int        `bson:"rating,omitempty" json:"rating,omitempty"`
	Feedback           string     `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CancellationReason string     `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	AcceptedAt         *time.Time `bson:"technicianAcceptedAt,omitempty" json:"technicianAcceptedAt,omitempty"`
	RejectedAt         *time.Time `bson:"technicianRejectedAt,omitempty" json:"technicianRejectedAt,omitempty"`
	RejectionReason    string     `bson:"technicianRejectionReason,omitempty" json:"technicianRejectionReason,omitempty"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Technician struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	UserID          string    `bson:"userId,omitempty" json:"userId,omitempty"`
	Name            string    `bson:"name" json:"name"`
	Email           string    `bson:"email" json:"email"`
	Phone           string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Specializations []string  `bson:"specializations,omitempty" json:"specializations,omitempty"`
	Status          string    `bson:"status" json:"status"`
	IsAvailable     bool      `bson:"isAvailable" json:"isAvailable"`
	Rating          float64   `bson:"rating" json:"rating"`
	TotalRatings    int       `bson:"totalRatings" json:"totalRatings"`
	CompletedJobs   int       `bson:"completedBookings" json:"completedBookings"`
	Location        string    `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

type JobOffer struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	BookingID    string    `bson:"bookingId" json:"bookingId"`
	TechnicianID string    `bson:"technicianId" json:"technicianId"`
	Status       string    `bson:"status" json:"status"`
	Amount       int       `bson:"amount,omitempty" json:"amount,omitempty"`
	Distance     float64   `bson:"distance,omitempty" json:"distance,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
}

type Notification struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	RecipientID   string    `bson:"recipientId" json:"recipientId"`
	RecipientType string    `bson:"recipientType" json:"recipientType"`
	Title         string    `bson:"title" json:"title"`
	Message       string    `bson:"message" json:"message"`
	Type          string    `bson:"type,omitempty" json:"type,omitempty"`
	ReferenceID   string    `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	IsRead        bool      `bson:"isRead" json:"isRead"`
	IsImportant   bool      `bson:"isImportant,omitempty" json:"isImportant,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

type Payment struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	BookingID string    `bson:"bookingId" json:"bookingId"`
	Gateway   string    `bson:"gateway,omitempty" json:"gateway,omitempty"`
	Status    string    `bson:"status" json:"status"`
	Amount    int       `bson:"amount,omitempty" json:"amount,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Order struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	BookingID string    `bson:"bookingId" json:"bookingId"`
	Status    string    `bson:"status" json:"status"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Review struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	BookingID    string    `bson:"bookingId" json:"bookingId"`
	TechnicianID string    `bson:"technicianId" json:"technicianId"`
	UserID       string    `bson:"userId" json:"userId"`
	Rating       int       `bson:"rating" json:"rating"`
	Feedback     string    `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Payout struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	TechnicianID string    `bson:"technicianId" json:"technicianId"`
	BookingIDs   []string  `bson:"bookingIds" json:"bookingIds"`
	Amount       int       `bson:"amount" json:"amount"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Service struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	BasePrice   int       `bson:"basePrice" json:"basePrice"`
	Slug        string    `bson:"slug" json:"slug"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Setting is a singleton-per-key document; the commission rate lives
// under key "commission".
type Setting struct {
	Key       string    `bson:"_id" json:"key"`
	Value     float64   `bson:"value" json:"value"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
	UpdatedBy string    `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

type ActivityLog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Actor     string    `bson:"actor" json:"actor"`
	Action    string    `bson:"action" json:"action"`
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

var validBookingStatuses = map[string]struct{}{
	BookingStatusPending:   {},
	BookingStatusConfirmed: {},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

// IsValidBookingStatus reports whether value is accepted by the admin
// status-update path. Assigned/in_progress/rescheduled are reachable
// only through their dedicated flows.
func IsValidBookingStatus(value string) bool {
	_, ok := validBookingStatuses[value]
	return ok
}

func IsTerminalBookingStatus(value string) bool {
	return value == BookingStatusCompleted || value == BookingStatusCancelled
}

var knownBookingStatuses = map[string]struct{}{
	BookingStatusPending:     {},
	BookingStatusConfirmed:   {},
	BookingStatusAssigned:    {},
	BookingStatusInProgress:  {},
	BookingStatusCompleted:   {},
	BookingStatusCancelled:   {},
	BookingStatusRescheduled: {},
}

// IsKnownBookingStatus reports whether value is any status a booking
// can hold, including the ones written by the offer and reschedule
// flows. Use this for filters, not for the admin update path.
func IsKnownBookingStatus(value string) bool {
	_, ok := knownBookingStatuses[value]
	return ok
}
