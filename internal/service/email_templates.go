package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/noah-isme/academy-portal-api/internal/models"
)

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family:Arial,Helvetica,sans-serif;background:#f5f6f8;margin:0;padding:24px">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px">
{{.Body}}
<p style="color:#8a8f98;font-size:12px;margin-top:32px">{{.Organization}}</p>
</div></body></html>{{end}}

{{define "status"}}<h2>Hello {{.Name}},</h2>
{{if eq .Status "APPROVED"}}<p>Congratulations! Your bootcamp application has been <strong>approved</strong>.</p>
{{if .Course}}<p>You have been placed in the <strong>{{.Course}}</strong> track.</p>{{end}}
{{else if eq .Status "REJECTED"}}<p>Thank you for applying. After careful review we are unable to offer you a place in this cohort.</p>
{{else if eq .Status "WAITLISTED"}}<p>Your application has been placed on the <strong>waitlist</strong>. We will contact you if a seat opens up.</p>
{{else}}<p>Your application is currently <strong>under review</strong>.</p>{{end}}
{{if .Notes}}<p><em>{{.Notes}}</em></p>{{end}}{{end}}

{{define "invite"}}<h2>Hello {{.Name}},</h2>
<p>Attendance is open for <strong>{{.Title}}</strong> ({{.Course}}).</p>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p>Please submit before {{.Deadline}}.</p>
<p><a href="{{.Link}}" style="display:inline-block;background:#2563eb;color:#ffffff;padding:12px 20px;border-radius:6px;text-decoration:none">Mark my attendance</a></p>
<p style="font-size:12px">Or open {{.Link}}</p>{{end}}

{{define "marketing"}}{{.Content}}{{end}}
`))

type emailPage struct {
	Subject      string
	Organization string
	Body         template.HTML
}

type statusEmailData struct {
	Name   string
	Status string
	Course string
	Notes  string
}

type inviteEmailData struct {
	Name        string
	Title       string
	Course      string
	Description string
	Deadline    string
	Link        string
}

// marketingEmailData carries markdown already rendered to sanitised HTML.
type marketingEmailData struct {
	Content template.HTML
}

func renderEmail(name, subject, organization string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	var page bytes.Buffer
	payload := emailPage{Subject: subject, Organization: organization, Body: template.HTML(body.String())}
	if err := emailTemplates.ExecuteTemplate(&page, "layout", payload); err != nil {
		return "", fmt.Errorf("render %s layout: %w", name, err)
	}
	return page.String(), nil
}

func statusEmailSubject(status models.EnrollmentStatus) string {
	switch status {
	case models.EnrollmentStatusApproved:
		return "Your bootcamp application was approved"
	case models.EnrollmentStatusRejected:
		return "Update on your bootcamp application"
	case models.EnrollmentStatusWaitlisted:
		return "You are on the bootcamp waitlist"
	default:
		return "Your bootcamp application is under review"
	}
}

func statusEmailText(e *models.Enrollment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYour bootcamp application status is now %s.", e.Name, e.Status)
	if e.AssignedCourse != nil && *e.AssignedCourse != "" {
		fmt.Fprintf(&b, "\nAssigned course: %s.", *e.AssignedCourse)
	}
	return b.String()
}
