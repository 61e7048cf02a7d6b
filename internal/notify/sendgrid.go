package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

const sendPath = "/v3/mail/send"

// SendGridConfig holds the sender identity and the links embedded in mails.
type SendGridConfig struct {
	APIKey    string
	Host      string
	FromEmail string
	FromName  string
	ResetURL  string
	VerifyURL string
}

// SendGridNotifier delivers notifications as transactional email.
type SendGridNotifier struct {
	cfg SendGridConfig
}

// NewSendGridNotifier creates a SendGridNotifier.
func NewSendGridNotifier(cfg SendGridConfig) *SendGridNotifier {
	if cfg.Host == "" {
		cfg.Host = constants.DefaultSendGridHost
	}
	return &SendGridNotifier{cfg: cfg}
}

// Notify renders the notification and posts it to the mail API.
func (s *SendGridNotifier) Notify(ctx context.Context, n Notification) error {
	subject, intro, base := s.template(n.Kind)
	if subject == "" {
		return fmt.Errorf("no mail template for notification kind %q", n.Kind)
	}

	link, err := withToken(base, n.Token)
	if err != nil {
		return fmt.Errorf("failed to build %s link: %w", n.Kind, err)
	}

	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail("", n.Email)
	plain := fmt.Sprintf("%s: %s\n\nThe link expires at %s.", intro, link, n.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	html := fmt.Sprintf("<p><strong>%s:</strong> <a href=\"%s\">%s</a></p><p>The link expires at %s.</p>",
		intro, link, subject, n.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(s.cfg.APIKey)
	client.BaseURL = strings.TrimRight(s.cfg.Host, "/") + sendPath

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		log.Error().Err(err).Str("kind", n.Kind).Str("user_id", n.UserID).Msg("Failed to send email")
		return fmt.Errorf("failed to send %s email: %w", n.Kind, err)
	}
	if response.StatusCode >= 400 {
		log.Error().Int("status_code", response.StatusCode).Str("kind", n.Kind).Msg("Mail API rejected email")
		return fmt.Errorf("mail api returned status %d", response.StatusCode)
	}

	log.Info().Int("status_code", response.StatusCode).Str("kind", n.Kind).Str("user_id", n.UserID).Msg("Email sent")
	return nil
}

func (s *SendGridNotifier) template(kind string) (subject, intro, base string) {
	switch kind {
	case constants.NotificationResetPassword:
		return "Password Reset Request", "Please use the following link to reset your password", s.cfg.ResetURL
	case constants.NotificationVerifyEmail:
		return "Verify Your Email", "Please use the following link to verify your email address", s.cfg.VerifyURL
	default:
		return "", "", ""
	}
}

// withToken appends the token as a query parameter. Without a base URL the
// bare token is returned.
func withToken(base, token string) (string, error) {
	if base == "" {
		return token, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
