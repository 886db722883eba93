package api

import (
	"context"

	"divorce-wizard/internal/contact"
	"divorce-wizard/internal/content"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/sessions"
)

type MockSessions struct {
	CreateFunc        func(ctx context.Context, req sessions.CreateRequest) (*models.WizardSession, error)
	GetFunc           func(ctx context.Context, id string) (*models.WizardSession, error)
	PatchFunc         func(ctx context.Context, id string, patch models.SessionPatch) (*models.WizardSession, error)
	UpdateWizardFunc  func(ctx context.Context, id string, data models.WizardState) (*models.WizardSession, error)
	UpdatePaymentFunc func(ctx context.Context, id string, status models.PaymentStatus) (*models.WizardSession, error)
}

func (m *MockSessions) Create(ctx context.Context, req sessions.CreateRequest) (*models.WizardSession, error) {
	return m.CreateFunc(ctx, req)
}

func (m *MockSessions) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockSessions) Patch(ctx context.Context, id string, patch models.SessionPatch) (*models.WizardSession, error) {
	return m.PatchFunc(ctx, id, patch)
}

func (m *MockSessions) UpdateWizardData(ctx context.Context, id string, data models.WizardState) (*models.WizardSession, error) {
	return m.UpdateWizardFunc(ctx, id, data)
}

func (m *MockSessions) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.WizardSession, error) {
	return m.UpdatePaymentFunc(ctx, id, status)
}

type MockReminders struct {
	RunFunc func(ctx context.Context) (*sessions.ReminderReport, error)
}

func (m *MockReminders) Run(ctx context.Context) (*sessions.ReminderReport, error) {
	return m.RunFunc(ctx)
}

type MockDocuments struct {
	GenerateFunc   func(ctx context.Context, name string, data models.DocumentData) (*models.GeneratedDocument, error)
	WriteAllFunc   func(ctx context.Context, data models.DocumentData) (map[string]string, error)
	RenderFormFunc func(ctx context.Context, form string, data models.DocumentData) (*models.GeneratedDocument, error)
	SweepFunc      func(ctx context.Context) (int, error)
}

func (m *MockDocuments) Generate(ctx context.Context, name string, data models.DocumentData) (*models.GeneratedDocument, error) {
	return m.GenerateFunc(ctx, name, data)
}

func (m *MockDocuments) WriteAll(ctx context.Context, data models.DocumentData) (map[string]string, error) {
	return m.WriteAllFunc(ctx, data)
}

func (m *MockDocuments) RenderForm(ctx context.Context, form string, data models.DocumentData) (*models.GeneratedDocument, error) {
	return m.RenderFormFunc(ctx, form, data)
}

func (m *MockDocuments) SweepOutput(ctx context.Context) (int, error) {
	if m.SweepFunc == nil {
		return 0, nil
	}
	return m.SweepFunc(ctx)
}

type MockSubmission struct {
	SubmitFunc func(ctx context.Context, req *models.SubmissionRequest) (*models.SubmissionResult, error)
}

func (m *MockSubmission) Submit(ctx context.Context, req *models.SubmissionRequest) (*models.SubmissionResult, error) {
	return m.SubmitFunc(ctx, req)
}

type MockContact struct {
	SubmitFunc func(ctx context.Context, req models.ContactRequest) (*contact.Result, error)
}

func (m *MockContact) Submit(ctx context.Context, req models.ContactRequest) (*contact.Result, error) {
	return m.SubmitFunc(ctx, req)
}

type MockBlog struct {
	LatestFunc func(ctx context.Context, n int) ([]models.BlogPost, error)
	ListFunc   func(ctx context.Context, page, size int) (*content.Page, error)
	PostFunc   func(ctx context.Context, slug string) (*models.BlogPost, error)
	SearchFunc func(ctx context.Context, query string) ([]models.BlogPost, error)
}

func (m *MockBlog) Latest(ctx context.Context, n int) ([]models.BlogPost, error) {
	return m.LatestFunc(ctx, n)
}

func (m *MockBlog) List(ctx context.Context, page, size int) (*content.Page, error) {
	return m.ListFunc(ctx, page, size)
}

func (m *MockBlog) Post(ctx context.Context, slug string) (*models.BlogPost, error) {
	return m.PostFunc(ctx, slug)
}

func (m *MockBlog) Search(ctx context.Context, query string) ([]models.BlogPost, error) {
	return m.SearchFunc(ctx, query)
}

type MockPinger struct {
	Err error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Err
}
