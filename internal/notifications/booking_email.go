package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"fixify-backend/internal/models"
)

const bookingUpdateTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.Name}},</p>
  <p>Your booking {{.BookingID}} ({{.Service}}) has been updated.</p>
  <p>Current status: <strong>{{.Status}}</strong></p>
  {{if .Detail}}<p>{{.Detail}}</p>{{end}}
  {{if .Date}}<p>Scheduled for {{.Date}}{{if .Time}} at {{.Time}}{{end}}.</p>{{end}}
  <p>Thank you for choosing Fixify.</p>
</body>
</html>`

var bookingUpdateTmpl = template.Must(template.New("booking_update").Parse(bookingUpdateTemplate))

type bookingUpdateData struct {
	Name      string
	BookingID string
	Service   string
	Status    string
	Detail    string
	Date      string
	Time      string
}

func buildBookingUpdateHTML(booking models.Booking, detail string) (string, error) {
	data := bookingUpdateData{
		Name:      booking.CustomerName,
		BookingID: booking.BookingID,
		Service:   booking.Service,
		Status:    booking.Status,
		Detail:    detail,
		Date:      booking.ScheduledDate,
		Time:      booking.BookingTime,
	}

	var buf bytes.Buffer
	if err := bookingUpdateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendBookingUpdate mails the customer about a status change. Used for
// plain status transitions and completion.
func (c *BrevoClient) SendBookingUpdate(ctx context.Context, booking models.Booking) (string, error) {
	subject := fmt.Sprintf("Booking %s update - %s", booking.BookingID, booking.Status)
	htmlBody, err := buildBookingUpdateHTML(booking, "")
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, booking.CustomerEmail, booking.CustomerName, subject, htmlBody)
}

func (c *BrevoClient) SendBookingCancellation(ctx context.Context, booking models.Booking) (string, error) {
	subject := fmt.Sprintf("Booking %s cancelled", booking.BookingID)
	detail := ""
	if booking.CancellationReason != "" {
		detail = "Reason: " + booking.CancellationReason
	}
	htmlBody, err := buildBookingUpdateHTML(booking, detail)
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, booking.CustomerEmail, booking.CustomerName, subject, htmlBody)
}

func (c *BrevoClient) SendBookingReschedule(ctx context.Context, booking models.Booking) (string, error) {
	subject := fmt.Sprintf("Booking %s rescheduled", booking.BookingID)
	htmlBody, err := buildBookingUpdateHTML(booking, "Your visit has been moved to a new slot.")
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, booking.CustomerEmail, booking.CustomerName, subject, htmlBody)
}
