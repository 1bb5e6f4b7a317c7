package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/go-resty/resty/v2"
)

const defaultBrevoURL = "https://api.brevo.com"

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, html string) error
}

// BrevoMailer sends transactional email through the Brevo HTTP API.
type BrevoMailer struct {
	client      *resty.Client
	senderEmail string
	senderName  string
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoMailer(baseURL, apiKey, senderEmail, senderName string) *BrevoMailer {
	if baseURL == "" {
		baseURL = defaultBrevoURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("api-key", apiKey).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)
	return &BrevoMailer{client: client, senderEmail: senderEmail, senderName: senderName}
}

func (m *BrevoMailer) Send(ctx context.Context, toEmail, toName, subject, html string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %q", toEmail)
	}
	if toName == "" {
		toName = toEmail[:strings.Index(toEmail, "@")]
	}
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(brevoPayload{
			Sender:      map[string]string{"name": m.senderName, "email": m.senderEmail},
			To:          []map[string]string{{"email": toEmail, "name": toName}},
			Subject:     subject,
			HTMLContent: html,
		}).
		Post("/v3/smtp/email")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send email: brevo returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// EmailNotifier renders notifications as HTML email.
type EmailNotifier struct {
	mailer      Mailer
	frontendURL string
}

var _ app.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailer Mailer, frontendURL string) *EmailNotifier {
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	return &EmailNotifier{mailer: mailer, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (e *EmailNotifier) QuizAssigned(ctx context.Context, n app.AssignmentNotice) error {
	body, err := render(assignmentTmpl, map[string]any{
		"Name":      displayName(n.Assignee),
		"Quiz":      n.Quiz.Title,
		"Assignor":  displayName(n.Assignor),
		"ExpiresAt": n.ExpiresAt,
		"Link":      e.frontendURL + "/assigned-quizzes",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, n.Assignee.Email, displayName(n.Assignee), "Quiz Assignment: "+n.Quiz.Title, body)
}

func (e *EmailNotifier) AssignmentsSummary(ctx context.Context, n app.AssignmentSummaryNotice) error {
	names := make([]string, len(n.Assignees))
	for i, u := range n.Assignees {
		names[i] = displayName(u)
	}
	body, err := render(summaryTmpl, map[string]any{
		"Quiz":      n.Quiz.Title,
		"Assignees": names,
		"Link":      e.frontendURL + "/dashboard",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, n.Assignor.Email, displayName(n.Assignor), "Quiz Assignment Summary: "+n.Quiz.Title, body)
}

func (e *EmailNotifier) AssignmentCompleted(ctx context.Context, n app.CompletionNotice) error {
	body, err := render(completionTmpl, map[string]any{
		"Name":       displayName(n.Assignee),
		"Quiz":       n.Quiz.Title,
		"Assignor":   displayName(n.Assignor),
		"Score":      n.Score,
		"Total":      n.TotalQuestions,
		"Percentage": n.Percentage,
		"Link":       e.frontendURL + "/dashboard",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, n.Assignee.Email, displayName(n.Assignee), "Quiz Completed: "+n.Quiz.Title, body)
}

func displayName(u domain.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var assignmentTmpl = template.Must(template.New("assignment").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 24px;">QuizGen</h1>
  <h2>Hello {{.Name}}!</h2>
  <p>{{.Assignor}} has assigned you a new quiz.</p>
  <h3>Quiz Details</h3>
  <p><strong>{{.Quiz}}</strong></p>
  {{with .ExpiresAt}}<p>Complete it before {{.Format "Jan 2, 2006 15:04 MST"}}.</p>{{end}}
  <p><a href="{{.Link}}">Take the quiz</a></p>
</div>`))

var summaryTmpl = template.Must(template.New("summary").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 24px;">QuizGen</h1>
  <h2>Quiz Assignment Summary</h2>
  <h3>Assignment Details</h3>
  <p><strong>{{.Quiz}}</strong> was assigned to {{len .Assignees}} user(s).</p>
  <h4>Assigned Users:</h4>
  <ul>{{range .Assignees}}<li>{{.}}</li>{{end}}</ul>
  <p><a href="{{.Link}}">View dashboard</a></p>
</div>`))

var completionTmpl = template.Must(template.New("completion").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 24px;">QuizGen</h1>
  <h2>Congratulations {{.Name}}!</h2>
  <p>You completed the quiz assigned by {{.Assignor}}.</p>
  <h3>Quiz Results</h3>
  <p><strong>{{.Quiz}}</strong>: {{.Score}} / {{.Total}} ({{.Percentage}}%)</p>
  <p><a href="{{.Link}}">View dashboard</a></p>
</div>`))
