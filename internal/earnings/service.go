package earnings

import (
	"context"
	"math"
	"sort"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"
)

// DefaultCommissionPercent applies when no commission setting exists.
const DefaultCommissionPercent = 30

// Commission is the platform's cut of a booking amount, rounded to the
// nearest whole unit.
func Commission(amount int, ratePercent float64) int {
	return int(math.Round(float64(amount) * ratePercent / 100))
}

// TechnicianShare is what remains after commission.
func TechnicianShare(amount int, ratePercent float64) int {
	return amount - Commission(amount, ratePercent)
}

// Job is one booking with its derived earnings breakdown.
type Job struct {
	Booking       models.Booking `json:"booking"`
	Commission    int            `json:"commission"`
	Earnings      int            `json:"earnings"`
	PaymentStatus string         `json:"paymentStatus"`
}

type HistoryPage struct {
	Jobs          []Job `json:"jobs"`
	Total         int64 `json:"total"`
	TotalEarnings int   `json:"totalEarnings"`
	PaidEarnings  int   `json:"paidEarnings"`
}

type Report struct {
	TotalBookings    int             `json:"totalBookings"`
	TotalRevenue     int             `json:"totalRevenue"`
	UniqueCustomers  int             `json:"uniqueCustomers"`
	ByStatus         map[string]int  `json:"byStatus"`
	RevenueByService map[string]int  `json:"revenueByService"`
	Monthly          []MonthlyBucket `json:"monthly"`
}

type MonthlyBucket struct {
	Month   string `json:"month"`
	Count   int    `json:"count"`
	Revenue int    `json:"revenue"`
}

// Service derives earnings and reports at read time. Nothing here is
// persisted: every figure is recomputed from bookings, payouts and
// whatever the commission rate happens to be right now. Changing the
// rate retroactively changes the reported earnings of past bookings;
// there is no per-booking rate snapshot.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Rate reads the commission percentage fresh from settings, falling
// back to the default when unset.
func (s *Service) Rate(ctx context.Context) (float64, error) {
	rate, ok, err := s.repo.CommissionRate(ctx)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	if !ok {
		return DefaultCommissionPercent, nil
	}
	return rate, nil
}

// JobHistory joins a technician's bookings with payout records to mark
// each job paid or pending, newest first.
func (s *Service) JobHistory(ctx context.Context, technicianID, status string, limit, offset int64) (HistoryPage, error) {
	rate, err := s.Rate(ctx)
	if err != nil {
		return HistoryPage{}, err
	}

	bookings, total, err := s.repo.TechnicianBookings(ctx, technicianID, status, limit, offset)
	if err != nil {
		return HistoryPage{}, apperr.Internal(err)
	}

	payouts, err := s.repo.PayoutsForTechnician(ctx, technicianID)
	if err != nil {
		return HistoryPage{}, apperr.Internal(err)
	}

	paidBookings := make(map[string]struct{})
	for _, p := range payouts {
		for _, id := range p.BookingIDs {
			paidBookings[id] = struct{}{}
		}
	}

	page := HistoryPage{Jobs: make([]Job, 0, len(bookings)), Total: total}
	for _, b := range bookings {
		job := Job{
			Booking:       b,
			Commission:    Commission(b.Amount, rate),
			Earnings:      TechnicianShare(b.Amount, rate),
			PaymentStatus: models.PaymentStatusPending,
		}
		if _, paid := paidBookings[b.ID]; paid {
			job.PaymentStatus = models.PaymentStatusPaid
		}
		if b.Status == models.BookingStatusCompleted {
			page.TotalEarnings += job.Earnings
			if job.PaymentStatus == models.PaymentStatusPaid {
				page.PaidEarnings += job.Earnings
			}
		}
		page.Jobs = append(page.Jobs, job)
	}
	return page, nil
}

// Summary is a technician's lifetime earnings rollup.
type Summary struct {
	CommissionRate  float64 `json:"commissionRate"`
	TotalEarnings   int     `json:"totalEarnings"`
	PaidEarnings    int     `json:"paidEarnings"`
	PendingEarnings int     `json:"pendingEarnings"`
	CompletedJobs   int     `json:"completedJobs"`
}

// Summary folds every completed booking for the technician, however
// many pages the job history would span.
func (s *Service) Summary(ctx context.Context, technicianID string) (Summary, error) {
	rate, err := s.Rate(ctx)
	if err != nil {
		return Summary{}, err
	}

	bookings, err := s.repo.CompletedBookings(ctx, technicianID)
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}

	payouts, err := s.repo.PayoutsForTechnician(ctx, technicianID)
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}

	paidBookings := make(map[string]struct{})
	for _, p := range payouts {
		for _, id := range p.BookingIDs {
			paidBookings[id] = struct{}{}
		}
	}

	sum := Summary{CommissionRate: rate, CompletedJobs: len(bookings)}
	for _, b := range bookings {
		earnings := TechnicianShare(b.Amount, rate)
		sum.TotalEarnings += earnings
		if _, paid := paidBookings[b.ID]; paid {
			sum.PaidEarnings += earnings
		}
	}
	sum.PendingEarnings = sum.TotalEarnings - sum.PaidEarnings
	return sum, nil
}

const monthLabelLayout = "Jan 2006"

// AdminReport aggregates bookings in a date range. Customers are
// deduplicated by the first non-empty of userId, email, phone.
func (s *Service) AdminReport(ctx context.Context, from, to time.Time) (Report, error) {
	bookings, err := s.repo.BookingsInRange(ctx, from, to)
	if err != nil {
		return Report{}, apperr.Internal(err)
	}

	report := Report{
		ByStatus:         make(map[string]int),
		RevenueByService: make(map[string]int),
	}

	customers := make(map[string]struct{})
	monthly := make(map[string]*MonthlyBucket)

	for _, b := range bookings {
		report.TotalBookings++
		report.TotalRevenue += b.Amount
		report.ByStatus[b.Status]++
		if b.Service != "" {
			report.RevenueByService[b.Service] += b.Amount
		}

		if key := customerKey(b); key != "" {
			customers[key] = struct{}{}
		}

		label := b.CreatedAt.Format(monthLabelLayout)
		bucket, ok := monthly[label]
		if !ok {
			bucket = &MonthlyBucket{Month: label}
			monthly[label] = bucket
		}
		bucket.Count++
		bucket.Revenue += b.Amount
	}
	report.UniqueCustomers = len(customers)

	report.Monthly = make([]MonthlyBucket, 0, len(monthly))
	for _, bucket := range monthly {
		report.Monthly = append(report.Monthly, *bucket)
	}
	// Labels sort chronologically by re-parsing, not lexically.
	sort.Slice(report.Monthly, func(i, j int) bool {
		ti, _ := time.Parse(monthLabelLayout, report.Monthly[i].Month)
		tj, _ := time.Parse(monthLabelLayout, report.Monthly[j].Month)
		return ti.Before(tj)
	})

	return report, nil
}

func customerKey(b models.Booking) string {
	if b.UserID != "" {
		return "u:" + b.UserID
	}
	if b.CustomerEmail != "" {
		return "e:" + b.CustomerEmail
	}
	if b.CustomerPhone != "" {
		return "p:" + b.CustomerPhone
	}
	return ""
}
