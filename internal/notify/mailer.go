// Package notify emails the run summary and the day's first-priority actions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// ErrNoRecipients is returned when the mailer has nobody to write to.
var ErrNoRecipients = errors.New("notify: no recipients configured")

// SESAPI is the subset of the SES v2 client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

const subjectTemplate = `Offer diagnostics {{ today }}: {{ actions }} actions, {{ tier1 }} first priority`

const bodyTemplate = `Report {{ id }} for {{ today }}
{% if day_new != "" %}Comparing {{ day_new }} with {{ day_old }}.
{% endif %}{% if influence != "" %}
{{ influence }}
{% endif %}
First priority actions ({{ tier1 }}):
{% for a in tier1_items %}- {{ a.offer_id }} {{ a.advertiser }} / {{ a.affiliate | default: "-" }}: {{ a.label }}
{% endfor %}{% if tier1 == 0 %}- none
{% endif %}{% if warnings.size > 0 %}
Warnings:
{% for w in warnings %}- {{ w }}
{% endfor %}{% endif %}`

// Mailer sends report summaries through SES.
type Mailer struct {
	client     SESAPI
	from       string
	recipients []string
	subject    *liquid.Template
	body       *liquid.Template
}

// NewMailer uses static credentials when configured, else the default chain.
func NewMailer(ctx context.Context, cfg config.NotifyConfig) (*Mailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewMailerWithClient(sesv2.NewFromConfig(awsCfg), cfg.From, cfg.Recipients)
}

func NewMailerWithClient(client SESAPI, from string, recipients []string) (*Mailer, error) {
	engine := liquid.NewEngine()
	subject, err := engine.ParseString(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing subject template: %w", err)
	}
	body, err := engine.ParseString(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing body template: %w", err)
	}
	return &Mailer{client: client, from: from, recipients: recipients, subject: subject, body: body}, nil
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func bindings(rep *report.Report) liquid.Bindings {
	tier1 := rep.TierActions(domain.Tier1)
	items := make([]map[string]any, len(tier1))
	for i, a := range tier1 {
		items[i] = map[string]any{
			"offer_id":   a.OfferID,
			"advertiser": a.Advertiser,
			"affiliate":  a.Affiliate,
			"label":      a.Label,
		}
	}
	influence := ""
	if rep.Influence != nil {
		influence = rep.Influence.Conclusion
	}
	return liquid.Bindings{
		"id":          rep.ID,
		"today":       day(rep.Today),
		"day_new":     day(rep.DayNew),
		"day_old":     day(rep.DayOld),
		"influence":   influence,
		"actions":     len(rep.Actions),
		"tier1":       len(tier1),
		"tier1_items": items,
		"warnings":    rep.Warnings,
	}
}

// Render returns the subject and plain text body for rep.
func (m *Mailer) Render(rep *report.Report) (subject, body string, err error) {
	b := bindings(rep)
	s, serr := m.subject.RenderString(b)
	if serr != nil {
		return "", "", fmt.Errorf("rendering subject: %w", serr)
	}
	t, berr := m.body.RenderString(b)
	if berr != nil {
		return "", "", fmt.Errorf("rendering body: %w", berr)
	}
	return s, t, nil
}

// SendSummary emails the summary of rep to every recipient.
func (m *Mailer) SendSummary(ctx context.Context, rep *report.Report) error {
	if len(m.recipients) == 0 {
		return ErrNoRecipients
	}
	subject, body, err := m.Render(rep)
	if err != nil {
		return err
	}
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: m.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: sending summary: %w", err)
	}
	logger.Info("notify: summary sent", "report", rep.ID, "from_email", m.from,
		"recipients", len(m.recipients), "message_id", aws.ToString(out.MessageId))
	return nil
}
