package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/mailer"
	"github.com/noah-isme/academy-portal-api/pkg/markdown"
)

// Audience sources for marketing suggestions.
const (
	AudienceEnrollments = "enrollments"
	AudienceVolunteers  = "volunteers"
	AudienceSponsors    = "sponsors"
)

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	angleAddress      = regexp.MustCompile(`<([^<>]+)>`)
	recipientSplitter = regexp.MustCompile(`[,;\r\n]+`)
)

type emailLister interface {
	ListEmails(ctx context.Context) ([]string, error)
}

type approvedEmailLister interface {
	ListApprovedEmails(ctx context.Context) ([]string, error)
}

// SenderConfig overrides the default From header.
type SenderConfig struct {
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail" validate:"omitempty,email"`
}

// SendCampaignRequest is the marketing send payload. Recipients may be a JSON array of strings or
// a single string delimited by commas, semicolons or newlines.
type SendCampaignRequest struct {
	Subject      string          `json:"subject" validate:"required"`
	Content      string          `json:"content" validate:"required"`
	Recipients   json.RawMessage `json:"recipients" swaggertype:"string"`
	SenderConfig SenderConfig    `json:"senderConfig"`
}

// CampaignResult reports a marketing send.
type CampaignResult struct {
	Recipients int `json:"recipients"`
	mailer.Summary
}

// CampaignPreview is the exact HTML a send would deliver.
type CampaignPreview struct {
	HTML string `json:"html"`
}

// CampaignServiceParams groups constructor dependencies.
type CampaignServiceParams struct {
	Mailer       bulkSender
	Enrollments  approvedEmailLister
	Volunteers   emailLister
	Sponsors     emailLister
	Audit        auditLogger
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	Organization string
}

// CampaignService sends markdown marketing emails to ad-hoc recipient lists.
type CampaignService struct {
	mailer       bulkSender
	enrollments  approvedEmailLister
	volunteers   emailLister
	sponsors     emailLister
	audit        auditLogger
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	organization string
}

// NewCampaignService constructs the service.
func NewCampaignService(params CampaignServiceParams) *CampaignService {
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	org := params.Organization
	if org == "" {
		org = "Academy"
	}
	return &CampaignService{
		mailer:       params.Mailer,
		enrollments:  params.Enrollments,
		volunteers:   params.Volunteers,
		sponsors:     params.Sponsors,
		audit:        params.Audit,
		metrics:      params.Metrics,
		validator:    validate,
		logger:       logger,
		organization: org,
	}
}

// ParseRecipients extracts unique lower-cased addresses in first-seen order. Entries may be bare
// addresses or "Name <address>"; anything not shaped like an email is ignored.
func ParseRecipients(raw json.RawMessage) []string {
	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			single = string(raw)
		}
		entries = []string{single}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, entry := range entries {
		for _, token := range recipientSplitter.Split(entry, -1) {
			token = strings.TrimSpace(token)
			if m := angleAddress.FindStringSubmatch(token); m != nil {
				token = strings.TrimSpace(m[1])
			}
			token = strings.ToLower(token)
			if !emailPattern.MatchString(token) {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}

// Preview renders content exactly as Send would.
func (s *CampaignService) Preview(subject, content string) (*CampaignPreview, error) {
	if strings.TrimSpace(content) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content is required")
	}
	html, err := s.render(subject, content)
	if err != nil {
		return nil, err
	}
	return &CampaignPreview{HTML: html}, nil
}

func (s *CampaignService) render(subject, content string) (string, error) {
	body, err := markdown.Render(content)
	if err != nil {
		return "", internalError(err, "failed to render content")
	}
	// goldmark runs without the unsafe renderer, so raw HTML in content is already dropped.
	html, err := renderEmail("marketing", subject, s.organization, marketingEmailData{Content: template.HTML(body)})
	if err != nil {
		return "", internalError(err, "failed to render email")
	}
	return html, nil
}

// Send delivers a campaign. Only ADMIN and SUPERADMIN callers may send; anyone else gets 401.
func (s *CampaignService) Send(ctx context.Context, actor *models.JWTClaims, req SendCampaignRequest) (*CampaignResult, error) {
	if actor == nil || !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "admin role required to send marketing emails")
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid campaign")
	}
	recipients := ParseRecipients(req.Recipients)
	if len(recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoRecipients, "no valid recipient emails")
	}

	html, err := s.render(req.Subject, req.Content)
	if err != nil {
		return nil, err
	}
	text := req.Content

	summary := s.mailer.SendBulk(ctx, recipients, func(recipient string) mailer.Message {
		return mailer.Message{
			To:        recipient,
			Subject:   req.Subject,
			HTML:      html,
			Text:      text,
			FromName:  req.SenderConfig.FromName,
			FromEmail: req.SenderConfig.FromEmail,
		}
	})
	s.metrics.RecordEmails("marketing", summary.SuccessCount, summary.ErrorCount)
	s.logger.Info("marketing campaign sent",
		zap.String("subject", req.Subject),
		zap.Int("recipients", len(recipients)),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failed", summary.ErrorCount))

	if s.audit != nil {
		values := fmt.Sprintf(`{"subject":%q,"recipients":%d,"success":%d,"failed":%d}`, req.Subject, len(recipients), summary.SuccessCount, summary.ErrorCount)
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{UserID: &actor.UserID, Action: models.AuditActionCampaignSend, Resource: "emails", NewValues: []byte(values)}); err != nil {
			s.logger.Warn("failed to record audit log", zap.Error(err))
		}
	}
	return &CampaignResult{Recipients: len(recipients), Summary: summary}, nil
}

// ListAudience suggests recipient addresses from an existing audience.
func (s *CampaignService) ListAudience(ctx context.Context, source string) ([]string, error) {
	var (
		emails []string
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(source)) {
	case AudienceEnrollments, "":
		emails, err = s.enrollments.ListApprovedEmails(ctx)
	case AudienceVolunteers:
		emails, err = s.volunteers.ListEmails(ctx)
	case AudienceSponsors:
		emails, err = s.sponsors.ListEmails(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "source must be one of enrollments, volunteers, sponsors")
	}
	if err != nil {
		return nil, internalError(err, "failed to load audience")
	}
	if emails == nil {
		emails = []string{}
	}
	return emails, nil
}
