package notify

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/addr-verify-api/internal/config"
	"github.com/addr-verify-api/internal/domain"
	"github.com/addr-verify-api/internal/infrastructure/smtp"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Template groups recognized on client records. Anything else falls back to
// the general template so no client ever receives an empty email.
const (
	GroupDismissing = "DismissingClients"
	GroupBig        = "BigClients"
	GroupGeneral    = "GeneralClients"
)

type variant struct {
	name    string
	subject string
}

var variants = map[string]variant{
	GroupDismissing: {name: "dismissing", subject: "Confirm your address – returning your original documents"},
	GroupBig:        {name: "big", subject: "Please confirm your mailing address"},
	GroupGeneral:    {name: "general", subject: "Action needed: verify your address"},
}

var (
	htmlTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Notifier renders and sends the verification and admin-alert emails.
type Notifier struct {
	mailer      smtp.Mailer
	baseURL     string
	adminEmail  string
	companyName string
}

func New(cfg *config.Config, mailer smtp.Mailer) *Notifier {
	return &Notifier{
		mailer:      mailer,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		adminEmail:  cfg.AdminEmail,
		companyName: cfg.CompanyName,
	}
}

type verificationData struct {
	Name            string
	Address         string
	VerificationURL string
	AdminEmail      string
	CompanyName     string
}

// SendVerification emails one client their unique verification link, using
// the template variant selected by the record's template group.
func (n *Notifier) SendVerification(rec *domain.ClientRecord) error {
	group := ""
	if rec.TemplateGroup != nil {
		group = *rec.TemplateGroup
	}
	v, ok := variants[group]
	if !ok {
		// Unmapped groups used to go out with an empty subject and body;
		// default to the general template instead.
		slog.Warn("unknown template group, using general template", "group", group, "email", rec.Email)
		v = variants[GroupGeneral]
	}

	tok := ""
	if rec.VerificationToken != nil {
		tok = *rec.VerificationToken
	}
	data := verificationData{
		Name:            rec.FirstName,
		Address:         rec.Address,
		VerificationURL: fmt.Sprintf("%s/verify/%s", n.baseURL, tok),
		AdminEmail:      n.adminEmail,
		CompanyName:     n.companyName,
	}

	htmlBody, textBody, err := n.render(v.name, data)
	if err != nil {
		return err
	}
	if err := n.mailer.Send(rec.Email, v.subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send verification email to %s: %w", rec.Email, err)
	}
	return nil
}

type alertData struct {
	Name         string
	Email        string
	When         string
	Changes      []domain.FieldChange
	DashboardURL string
}

// SendAdminAlert emails the changed-field report to the administrative
// address after a client submits corrections. Unlike verification sends,
// a failure here propagates to the caller.
func (n *Notifier) SendAdminAlert(rec *domain.ClientRecord, changes []domain.FieldChange) error {
	data := alertData{
		Name:         rec.FullName(),
		Email:        rec.Email,
		When:         time.Now().UTC().Format(time.RFC1123),
		Changes:      changes,
		DashboardURL: n.baseURL + "/dashboard",
	}
	htmlBody, textBody, err := n.render("alert", data)
	if err != nil {
		return err
	}
	subject := "Address update alert - " + rec.FullName()
	if err := n.mailer.Send(n.adminEmail, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send admin alert for %s: %w", rec.Email, err)
	}
	return nil
}

// Verify checks the SMTP configuration without sending anything.
func (n *Notifier) Verify() error {
	return n.mailer.Verify()
}

func (n *Notifier) render(name string, data interface{}) (htmlBody, textBody string, err error) {
	var hb, tb strings.Builder
	if err := htmlTemplates.ExecuteTemplate(&hb, name+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s.html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&tb, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("render %s.txt: %w", name, err)
	}
	return hb.String(), tb.String(), nil
}
