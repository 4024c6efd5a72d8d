package alerts

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AlertService emails operators about conditions that need a human,
// like a paid sponsorship that could not get a slot.
type AlertService interface {
	CapacityExceeded(startupID int64, paidMonths int)
	Notify(subject, body string)
}

type alertService struct {
	client      *sendgrid.Client
	senderEmail string
	senderName  string
	alertsEmail string
}

func NewAlertService() AlertService {
	return &alertService{
		client:      sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY")),
		senderEmail: os.Getenv("SENDGRID_SENDER_EMAIL"),
		senderName:  os.Getenv("SENDGRID_SENDER_NAME"),
		alertsEmail: os.Getenv("ALERTS_EMAIL"),
	}
}

func (a *alertService) CapacityExceeded(startupID int64, paidMonths int) {
	subject := "Sponsor slots full: paid purchase left unassigned"
	body := fmt.Sprintf(
		"Startup %d paid for %d month(s) of sponsorship but every sidebar slot is taken.\n"+
			"Assign a slot manually once one frees up, or refund the payment.",
		startupID, paidMonths,
	)
	a.Notify(subject, body)
}

func (a *alertService) Notify(subject, body string) {
	if a.alertsEmail == "" || a.senderEmail == "" {
		log.Printf("ALERT (email not configured): %s: %s", subject, body)
		return
	}

	// Sent in the background so webhook handling never waits on SendGrid.
	go func() {
		if err := a.send(subject, body); err != nil {
			log.Printf("alert email failed: %v", err)
		}
	}()
}

func (a *alertService) send(subject, body string) error {
	from := mail.NewEmail(a.senderName, a.senderEmail)
	to := mail.NewEmail("", a.alertsEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")
	response, err := a.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return errors.New("failed to send alert email")
	}
	return nil
}
