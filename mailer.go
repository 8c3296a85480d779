package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"

	"github.com/goliatone/go-errors"
)

const verificationEmailSubject = "TapCanvas login verification code"

// verificationEmailTemplate renders the one-time code email body.
var verificationEmailTemplate = template.Must(template.New("verification_email").Parse(`
<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 480px; margin: 0 auto; padding: 32px;">
	<h2 style="color: #09090b; margin-bottom: 24px;">TapCanvas verification code</h2>
	<p style="color: #52525b; margin-bottom: 16px;">Your verification code is:</p>
	<div style="background: #f4f4f5; border-radius: 8px; padding: 16px 24px; text-align: center; margin-bottom: 24px;">
		<span style="font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #09090b;">{{.Code}}</span>
	</div>
	<p style="color: #71717a; font-size: 14px;">The code is valid for {{.ExpiryMinutes}} minutes.</p>
	<p style="color: #a1a1aa; font-size: 12px; margin-top: 32px;">This email was sent automatically by TapCanvas, please do not reply.</p>
</div>
`))

type verificationEmailParams struct {
	Code          string
	ExpiryMinutes int
}

func renderVerificationEmail(code string, expiryMinutes int) (subject, htmlBody string, err error) {
	var buf bytes.Buffer
	if err := verificationEmailTemplate.Execute(&buf, verificationEmailParams{
		Code:          code,
		ExpiryMinutes: expiryMinutes,
	}); err != nil {
		return "", "", errors.Wrap(err, errors.CategoryInternal, "failed to render verification email")
	}
	return verificationEmailSubject, buf.String(), nil
}

// RelayMailer delivers email through an HTTP transactional relay
// (MailChannels-compatible JSON API). Requests are bounded by the configured
// timeout; a non-2xx response or transport error surfaces as ErrMailTransport.
type RelayMailer struct {
	endpoint string
	from     string
	fromName string
	client   *http.Client
	logger   Logger
}

var _ Mailer = (*RelayMailer)(nil)

// NewRelayMailer builds a mailer from configuration.
func NewRelayMailer(cfg Config) *RelayMailer {
	return &RelayMailer{
		endpoint: cfg.GetMailRelayURL(),
		from:     cfg.GetMailFrom(),
		fromName: cfg.GetMailFromName(),
		client:   &http.Client{Timeout: cfg.GetMailTimeout()},
		logger:   defLogger{},
	}
}

// WithLogger sets a custom logger.
func (m *RelayMailer) WithLogger(logger Logger) *RelayMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithHTTPClient overrides the HTTP client, used by tests.
func (m *RelayMailer) WithHTTPClient(client *http.Client) *RelayMailer {
	if client != nil {
		m.client = client
	}
	return m
}

type relayAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type relayContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type relayPersonalization struct {
	To []relayAddress `json:"to"`
}

type relayMessage struct {
	Personalizations []relayPersonalization `json:"personalizations"`
	From             relayAddress           `json:"from"`
	Subject          string                 `json:"subject"`
	Content          []relayContent         `json:"content"`
}

func (m *RelayMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.from == "" || m.endpoint == "" {
		m.logger.Error("RelayMailer is not configured, refusing to send")
		return ErrMailNotConfigured
	}

	payload := relayMessage{
		Personalizations: []relayPersonalization{
			{To: []relayAddress{{Email: to}}},
		},
		From:    relayAddress{Email: m.from, Name: m.fromName},
		Subject: subject,
		Content: []relayContent{
			{Type: "text/html", Value: htmlBody},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build mail request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Error("RelayMailer send failed: %v", err)
		return errors.Wrap(err, ErrMailTransport.Category, ErrMailTransport.Message).
			WithTextCode(ErrMailTransport.TextCode).
			WithCode(ErrMailTransport.Code)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.logger.Error("RelayMailer relay rejected message with %d: %s", resp.StatusCode, string(snippet))
		return errors.New(ErrMailTransport.Message, ErrMailTransport.Category).
			WithTextCode(ErrMailTransport.TextCode).
			WithCode(ErrMailTransport.Code).
			WithMetadata(map[string]any{
				"status": resp.StatusCode,
			})
	}

	return nil
}
