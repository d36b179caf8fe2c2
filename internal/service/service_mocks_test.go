package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/jobs"
	"github.com/noah-isme/academy-portal-api/pkg/mailer"
)

const (
	sessionOneID     = "6f1c2a8e-3b4d-4e5f-8a6b-7c8d9e0f1a01"
	openSessionID    = "6f1c2a8e-3b4d-4e5f-8a6b-7c8d9e0f1a02"
	expiredSessionID = "6f1c2a8e-3b4d-4e5f-8a6b-7c8d9e0f1a03"
	newSessionID     = "6f1c2a8e-3b4d-4e5f-8a6b-7c8d9e0f1a04"
	enrollmentOneID  = "0b7e9a52-1d2c-4f3e-9a8b-5c6d7e8f9a01"
	enrollmentTwoID  = "0b7e9a52-1d2c-4f3e-9a8b-5c6d7e8f9a02"
	newEnrollmentID  = "0b7e9a52-1d2c-4f3e-9a8b-5c6d7e8f9a03"
	sponsorID        = "9d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b01"
	volunteerID      = "9d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b02"
	commentID        = "9d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b03"
	missingID        = "ffffffff-ffff-4fff-bfff-ffffffffffff"
)

// memoryCache stores JSON payloads the way the redis repository does.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

type mockSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	failFor  map[string]bool
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("smtp: mailbox unavailable")
	}
	m.messages = append(m.messages, msg)
	return nil
}

type mockBulkSender struct {
	recipients []string
	messages   []mailer.Message
	failFor    map[string]bool
}

func (m *mockBulkSender) SendBulk(ctx context.Context, recipients []string, build func(string) mailer.Message) mailer.Summary {
	m.recipients = append(m.recipients, recipients...)
	summary := mailer.Summary{Total: len(recipients)}
	for _, r := range recipients {
		msg := build(r)
		if m.failFor[r] {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, mailer.RecipientError{Email: r, Error: "rejected"})
			continue
		}
		m.messages = append(m.messages, msg)
		summary.SuccessCount++
	}
	return summary
}

type mockQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type mockDocumentStorage struct {
	files map[string][]byte
}

func (m *mockDocumentStorage) Save(relPath string, data []byte) (string, error) {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[relPath] = data
	return "/documents/" + relPath, nil
}

func (m *mockDocumentStorage) Read(relPath string) ([]byte, error) {
	data, ok := m.files[relPath]
	if !ok {
		return nil, errors.New("file does not exist")
	}
	return data, nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@example.com"}
}

func strPtr(v string) *string {
	return &v
}
