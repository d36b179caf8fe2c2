package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type stubEmailLister struct {
	emails []string
}

func (s stubEmailLister) ListEmails(ctx context.Context) ([]string, error) {
	return s.emails, nil
}

func (s stubEmailLister) ListApprovedEmails(ctx context.Context) ([]string, error) {
	return s.emails, nil
}

func newTestCampaignService(bulk *mockBulkSender, audit auditLogger) *CampaignService {
	return NewCampaignService(CampaignServiceParams{
		Mailer:       bulk,
		Enrollments:  stubEmailLister{emails: []string{"student@example.com"}},
		Volunteers:   stubEmailLister{emails: []string{"mentor@example.com"}},
		Sponsors:     stubEmailLister{},
		Audit:        audit,
		Organization: "Code Academy",
	})
}

func TestParseRecipients(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "delimited string", raw: `"a@x.com, Bob <b@x.com>\nc@x.com, c@x.com"`, want: []string{"a@x.com", "b@x.com", "c@x.com"}},
		{name: "array with mixed entries", raw: `["A@X.com", "not-an-email", "d@x.com; e@x.com"]`, want: []string{"a@x.com", "d@x.com", "e@x.com"}},
		{name: "dedupes across case", raw: `["a@x.com", "A@x.COM"]`, want: []string{"a@x.com"}},
		{name: "only invalid", raw: `"not-an-email"`, want: []string{}},
		{name: "empty", raw: ``, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRecipients(json.RawMessage(tc.raw)))
		})
	}
}

func TestCampaignServiceSendRequiresAdmin(t *testing.T) {
	bulk := &mockBulkSender{}
	svc := newTestCampaignService(bulk, &mockAudit{})
	req := SendCampaignRequest{Subject: "Hello", Content: "Hi", Recipients: json.RawMessage(`"a@x.com"`)}

	for _, actor := range []*models.JWTClaims{nil, {UserID: "e1", Role: models.RoleEditor}} {
		_, err := svc.Send(context.Background(), actor, req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, 401, appErr.Status)
	}
	assert.Empty(t, bulk.recipients)

	_, err := svc.Send(context.Background(), &models.JWTClaims{UserID: "s1", Role: models.RoleSuperAdmin}, req)
	require.NoError(t, err)
}

func TestCampaignServiceSendWithoutRecipients(t *testing.T) {
	svc := newTestCampaignService(&mockBulkSender{}, &mockAudit{})

	_, err := svc.Send(context.Background(), adminClaims(), SendCampaignRequest{Subject: "Hello", Content: "Hi", Recipients: json.RawMessage(`"nobody, nowhere"`)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoRecipients.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestCampaignServiceSendReportsPartialFailure(t *testing.T) {
	bulk := &mockBulkSender{failFor: map[string]bool{"b@x.com": true}}
	audit := &mockAudit{}
	svc := newTestCampaignService(bulk, audit)

	result, err := svc.Send(context.Background(), adminClaims(), SendCampaignRequest{
		Subject:      "Demo day",
		Content:      "# Join us\n\nBring a **friend**.",
		Recipients:   json.RawMessage(`["a@x.com", "b@x.com", "a@x.com"]`),
		SenderConfig: SenderConfig{FromName: "Events", FromEmail: "events@academy.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b@x.com", result.Errors[0].Email)

	require.Len(t, bulk.messages, 1)
	msg := bulk.messages[0]
	assert.Equal(t, "Events", msg.FromName)
	assert.Equal(t, "events@academy.example", msg.FromEmail)
	assert.Contains(t, msg.HTML, "<strong>friend</strong>")

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCampaignSend, audit.logs[0].Action)
}

func TestCampaignServicePreviewMatchesSend(t *testing.T) {
	bulk := &mockBulkSender{}
	svc := newTestCampaignService(bulk, nil)
	content := "Hello <script>alert(1)</script> **team**"

	preview, err := svc.Preview("News", content)
	require.NoError(t, err)
	assert.NotContains(t, preview.HTML, "<script>")

	_, err = svc.Send(context.Background(), adminClaims(), SendCampaignRequest{Subject: "News", Content: content, Recipients: json.RawMessage(`"a@x.com"`)})
	require.NoError(t, err)
	require.Len(t, bulk.messages, 1)
	assert.Equal(t, preview.HTML, bulk.messages[0].HTML)

	_, err = svc.Preview("News", "  ")
	require.Error(t, err)
}

func TestCampaignServiceListAudience(t *testing.T) {
	svc := newTestCampaignService(&mockBulkSender{}, nil)

	emails, err := svc.ListAudience(context.Background(), "volunteers")
	require.NoError(t, err)
	assert.Equal(t, []string{"mentor@example.com"}, emails)

	emails, err = svc.ListAudience(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"student@example.com"}, emails)

	emails, err = svc.ListAudience(context.Background(), "sponsors")
	require.NoError(t, err)
	assert.Empty(t, emails)

	_, err = svc.ListAudience(context.Background(), "everyone")
	require.Error(t, err)
}
