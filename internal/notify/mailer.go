// Package notify sends alert emails over SMTP.
//
// Delivery is best-effort and decoupled from alert durability: a recorded
// alert stays recorded whether or not its email goes out. One attempt per
// alert; the next matching slot produces its own alert and its own email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/courtwatch/courtwatch-data/internal/availability"
)

const reservationURLFormat = "https://www.rec.us/locations/%s"

// Config carries the SMTP connection parameters.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	UseTLS      bool
}

// Mailer sends alert emails. Nil-safe: when the channel is disabled, all
// methods are no-ops.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewMailer creates a mailer. Returns nil when the channel is disabled —
// the nil mailer still satisfies availability.Notifier and does nothing.
func NewMailer(enabled bool, cfg Config, logger *slog.Logger) *Mailer {
	if !enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Notify sends one alert email to the watch's contact. No-op when the
// channel is disabled or the watch has no contact address.
func (m *Mailer) Notify(ctx context.Context, alert availability.Alert, watch availability.Watch) error {
	if m == nil {
		return nil
	}
	if watch.Contact == "" {
		return nil
	}

	courtName := alert.CourtName
	if courtName == "" {
		courtName = alert.CourtID
	}
	subject := fmt.Sprintf("Court available at %s", alert.LocationName)
	body := fmt.Sprintf("%s\nCourt: %s\nTime: %s %s\nReservation link: "+reservationURLFormat,
		alert.LocationName,
		courtName,
		alert.StartLocal.Format("2006-01-02 15:04"),
		alert.Timezone,
		alert.LocationID)

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(watch.Contact); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := m.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	m.logger.Info("Sent alert email",
		"watch_id", watch.ID, "to", redact(watch.Contact), "location", alert.LocationName)
	return nil
}

func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}
	if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

// redact masks the local part of an address for logs.
func redact(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 1 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}
