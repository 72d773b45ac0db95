package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/storefront/identity-service/internal/core/domain"
)

// TemplateOptions configures the branding of outgoing emails.
type TemplateOptions struct {
	AppName      string
	FrontendURL  string
	SupportEmail string
}

// Templates renders the notification emails.
type Templates struct {
	opts  TemplateOptions
	pages map[string]*template.Template
}

const layout = `{{define "layout"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<div style="background: #667eea; padding: 30px; color: white; text-align: center;"><h1 style="margin: 0;">{{.Heading}}</h1></div>
<div style="padding: 30px; background-color: #f9f9f9;">{{template "body" .}}
<p style="color: #666; font-size: 14px;">Need help? Contact {{.SupportEmail}}.<br>{{.AppName}} Team</p>
</div></div>{{end}}`

var bodies = map[string]string{
	"challenge": `{{define "body"}}<h2>Hello {{.Name}},</h2>
<p>Use the code below to complete your {{.Purpose}}. It expires in {{.TTL}}.</p>
<p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center;">{{.Code}}</p>
<p>If you did not request this, you can ignore this email.</p>{{end}}`,
	"approved": `{{define "body"}}<h2>Hello {{.Name}},</h2>
<p>Your seller account has been <strong>approved</strong>. You can now log in and start listing your products.</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><a href="{{.LoginURL}}">Login to Seller Dashboard</a></p>{{end}}`,
	"rejected": `{{define "body"}}<h2>Hello {{.Name}},</h2>
<p>After review, your seller application for {{.Email}} was not approved.</p>{{end}}`,
	"created": `{{define "body"}}<h2>Your Seller Account is Ready</h2>
<p>An admin has created a seller account for you. Here are your login credentials:</p>
<p><strong>Email:</strong> {{.Email}}<br>{{if .Password}}<strong>Temporary Password:</strong> {{.Password}}{{end}}</p>
<p>Please change your password after your first login.</p>
<p><a href="{{.LoginURL}}">Login Now</a></p>{{end}}`,
}

type templateData struct {
	AppName      string
	SupportEmail string
	Heading      string
	Name         string
	Email        string
	Purpose      string
	Code         string
	TTL          string
	Password     string
	LoginURL     string
}

// NewTemplates parses every email template once.
func NewTemplates(opts TemplateOptions) (*Templates, error) {
	if opts.AppName == "" {
		opts.AppName = "Storefront"
	}
	if opts.FrontendURL == "" {
		opts.FrontendURL = "http://localhost:3000"
	}
	if opts.SupportEmail == "" {
		opts.SupportEmail = "support@example.com"
	}

	root, err := template.New("layout").Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		clone, err := root.Clone()
		if err != nil {
			return nil, err
		}
		if pages[name], err = clone.Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}
	return &Templates{opts: opts, pages: pages}, nil
}

// Challenge renders the one-time code email for purpose.
func (t *Templates) Challenge(acc *domain.Account, purpose domain.OTPPurpose, code string, ttl time.Duration) (domain.Message, error) {
	label := PurposeLabel(purpose)
	return t.render("challenge", fmt.Sprintf("%s Code - %s", label, t.opts.AppName), acc.Email, templateData{
		Heading: label,
		Name:    displayName(acc),
		Email:   acc.Email,
		Purpose: strings.ToLower(label),
		Code:    code,
		TTL:     ttl.String(),
	})
}

// SellerApproved renders the approval notice.
func (t *Templates) SellerApproved(acc *domain.Account) (domain.Message, error) {
	return t.render("approved", "Seller Account Approved - "+t.opts.AppName, acc.Email, templateData{
		Heading: "Account Approved!",
		Name:    displayName(acc),
		Email:   acc.Email,
	})
}

// SellerRejected renders the rejection notice.
func (t *Templates) SellerRejected(acc *domain.Account) (domain.Message, error) {
	return t.render("rejected", "Seller Application Update - "+t.opts.AppName, acc.Email, templateData{
		Heading: "Application Reviewed",
		Name:    displayName(acc),
		Email:   acc.Email,
	})
}

// SellerCreated renders the welcome email of an admin-provisioned seller.
// password is empty when the admin chose it.
func (t *Templates) SellerCreated(acc *domain.Account, password string) (domain.Message, error) {
	return t.render("created", "Welcome! Your Seller Account - "+t.opts.AppName, acc.Email, templateData{
		Heading:  "Welcome " + displayName(acc) + "!",
		Name:     displayName(acc),
		Email:    acc.Email,
		Password: password,
	})
}

func (t *Templates) render(name, subject, to string, data templateData) (domain.Message, error) {
	data.AppName = t.opts.AppName
	data.SupportEmail = t.opts.SupportEmail
	data.LoginURL = strings.TrimRight(t.opts.FrontendURL, "/") + "/login"

	var buf bytes.Buffer
	if err := t.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return domain.Message{}, fmt.Errorf("render %s email: %w", name, err)
	}
	return domain.Message{To: to, Subject: subject, Body: buf.String()}, nil
}

// PurposeLabel turns a purpose into a human label, e.g. "Reset Password".
func PurposeLabel(purpose domain.OTPPurpose) string {
	if purpose == domain.PurposeSignup {
		return "Email Verification"
	}
	p := strings.ReplaceAll(string(purpose), "_", " ")
	return cases.Title(language.English).String(p)
}

func displayName(acc *domain.Account) string {
	if acc.Name != "" {
		return acc.Name
	}
	return acc.Email
}
