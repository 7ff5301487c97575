package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/wneessen/go-mail"
)

const (
	smtpTimeout    = 15 * time.Second
	displayDate    = "02.01.2006"
	calendarType   = mail.ContentType("text/calendar; method=REQUEST")
	inviteFilename = "termin.ics"
)

type MailerConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
	StudioName string
	Address    string
	Location   *time.Location
}

// Mailer delivers notifications over SMTP. Confirmations carry an iCalendar
// invite so customers can add the appointment to their calendar.
type Mailer struct {
	cfg  MailerConfig
	send func(ctx context.Context, msgs ...*mail.Msg) error
	now  func() time.Time
}

func NewMailer(cfg MailerConfig) (*Mailer, error) {
	const op = "notify.NewMailer"

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(smtpTimeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return newMailer(cfg, client.DialAndSendWithContext), nil
}

func newMailer(cfg MailerConfig, send func(ctx context.Context, msgs ...*mail.Msg) error) *Mailer {
	if cfg.StudioName == "" {
		cfg.StudioName = "Atelier"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Mailer{cfg: cfg, send: send, now: time.Now}
}

func (m *Mailer) message(to, replyTo, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return nil, fmt.Errorf("reply-to %q: %w", replyTo, err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (m *Mailer) attachInvite(msg *mail.Msg, inv Invite) error {
	ics := BuildInvite(inv, m.now())
	return msg.AttachReader(
		inviteFilename,
		strings.NewReader(ics),
		mail.WithFileContentType(calendarType),
	)
}

func (m *Mailer) BookingCreated(ctx context.Context, b domain.Booking, slot domain.TimeSlot) error {
	const op = "notify.Mailer.BookingCreated"

	when := m.slotLabel(slot)

	admin, err := m.message(m.cfg.AdminEmail, b.Email,
		fmt.Sprintf("Neue Buchungsanfrage: %s", when),
		fmt.Sprintf("Name: %s\nE-Mail: %s\nTelefon: %s\nPersonen: %d\nTermin: %s\nNotizen: %s\nBuchungs-ID: %s\n",
			b.Name, b.Email, orDash(b.Phone), b.Participants, when, orDash(b.Notes), b.ID),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	customer, err := m.message(b.Email, m.cfg.AdminEmail,
		fmt.Sprintf("Ihre Buchungsanfrage bei %s", m.cfg.StudioName),
		fmt.Sprintf("Hallo %s,\n\nvielen Dank für Ihre Anfrage für %d Person(en) am %s.\nWir melden uns, sobald der Termin bestätigt ist.\n\n%s\n",
			b.Name, b.Participants, when, m.cfg.StudioName),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.send(ctx, admin, customer); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (m *Mailer) BookingConfirmed(ctx context.Context, b domain.Booking, slot domain.TimeSlot) error {
	const op = "notify.Mailer.BookingConfirmed"

	start, end, err := SlotWindow(slot, m.cfg.Location)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	when := m.slotLabel(slot)
	msg, err := m.message(b.Email, m.cfg.AdminEmail,
		fmt.Sprintf("Buchungsbestätigung: %s", when),
		fmt.Sprintf("Hallo %s,\n\nIhr Termin am %s für %d Person(en) ist bestätigt.\nIm Anhang finden Sie eine Kalendereinladung.\n\n%s\n%s\n",
			b.Name, when, b.Participants, m.cfg.StudioName, m.cfg.Address),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.attachInvite(msg, Invite{
		UID:         b.ID,
		Summary:     fmt.Sprintf("Keramikmalen im %s", m.cfg.StudioName),
		Description: fmt.Sprintf("Buchung für %d Person(en)", b.Participants),
		Location:    m.cfg.Address,
		Start:       start,
		End:         end,
		Organizer:   m.cfg.From,
		Attendee:    b.Email,
	}); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (m *Mailer) WorkshopBookingCreated(ctx context.Context, b domain.WorkshopBooking, w domain.Workshop) error {
	const op = "notify.Mailer.WorkshopBookingCreated"

	when := m.workshopLabel(w)

	admin, err := m.message(m.cfg.AdminEmail, b.Email,
		fmt.Sprintf("Neue Workshop-Anmeldung: %s", w.Title),
		fmt.Sprintf("Workshop: %s\nTermin: %s\nPreis: %s\nName: %s\nE-Mail: %s\nTelefon: %s\nPersonen: %d\nNotizen: %s\nBuchungs-ID: %s\n",
			w.Title, when, w.Price, b.Name, b.Email, orDash(b.Phone), b.Participants, orDash(b.Notes), b.ID),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	customer, err := m.message(b.Email, m.cfg.AdminEmail,
		fmt.Sprintf("Ihre Anmeldung: %s", w.Title),
		fmt.Sprintf("Hallo %s,\n\nvielen Dank für Ihre Anmeldung zum Workshop \"%s\" am %s für %d Person(en).\nWir bestätigen Ihre Teilnahme in Kürze.\n\n%s\n",
			b.Name, w.Title, when, b.Participants, m.cfg.StudioName),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.send(ctx, admin, customer); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (m *Mailer) WorkshopBookingConfirmed(ctx context.Context, b domain.WorkshopBooking, w domain.Workshop) error {
	const op = "notify.Mailer.WorkshopBookingConfirmed"

	start, end, err := WorkshopWindow(w, m.cfg.Location)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg, err := m.message(b.Email, m.cfg.AdminEmail,
		fmt.Sprintf("Workshop bestätigt: %s", w.Title),
		fmt.Sprintf("Hallo %s,\n\nIhre Teilnahme am Workshop \"%s\" am %s ist bestätigt.\nPreis: %s\n\n%s\n%s\n",
			b.Name, w.Title, m.workshopLabel(w), w.Price, m.cfg.StudioName, m.cfg.Address),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.attachInvite(msg, Invite{
		UID:         b.ID,
		Summary:     w.Title,
		Description: w.Description,
		Location:    m.cfg.Address,
		Start:       start,
		End:         end,
		Organizer:   m.cfg.From,
		Attendee:    b.Email,
	}); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (m *Mailer) ReviewSubmitted(ctx context.Context, r domain.Review) error {
	const op = "notify.Mailer.ReviewSubmitted"

	msg, err := m.message(m.cfg.AdminEmail, "",
		fmt.Sprintf("Neue Bewertung (%d/5) von %s", r.Rating, r.Name),
		fmt.Sprintf("%s\n\nDie Bewertung ist erst nach Freigabe sichtbar. ID: %s\n", r.Comment, r.ID),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (m *Mailer) slotLabel(slot domain.TimeSlot) string {
	label := displayDay(slot.Date) + ", " + slot.Time
	if slot.EndTime != "" {
		label += " - " + slot.EndTime
	}
	return label + " Uhr"
}

func (m *Mailer) workshopLabel(w domain.Workshop) string {
	return displayDay(w.Date) + ", " + w.Time + " Uhr"
}

func displayDay(date string) string {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(displayDate)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// IsNotConfigured reports whether err only means that email is switched off.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
