// Package submission packages a completed wizard into a storage folder:
// a JSON snapshot, the signature, generated documents and attachments.
package submission

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"divorce-wizard/internal/common/i18n"
	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/metrics"
	"divorce-wizard/internal/common/observability"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/wizard/validation"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Failure policies for item uploads after the snapshot.
const (
	PolicyContinue = "continue"
	PolicyFailFast = "fail_fast"
)

const snapshotFile = "submission.json"

var ErrSnapshotUploadFailed = errors.New("SNAPSHOT_UPLOAD_FAILED")

type DocumentGenerator interface {
	GenerateAll(ctx context.Context, data models.DocumentData) (map[string]*models.GeneratedDocument, error)
}

type SessionUpdater interface {
	UpdateSubmissionStatus(ctx context.Context, id string, status models.SubmissionStatus, folderID string) (*models.WizardSession, error)
}

type Notifier interface {
	Email(ctx context.Context, kind, to, template string, data map[string]interface{}) error
}

type Config struct {
	Prefix        string
	FailurePolicy string
	OfficeEmail   string
	Locale        string
}

type Service struct {
	config    Config
	validator *validation.Validator
	generator DocumentGenerator
	storage   Storage
	sessions  SessionUpdater
	notifier  Notifier
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the pipeline. sessions and notifier may be nil.
func NewService(cfg Config, v *validation.Validator, gen DocumentGenerator, storage Storage,
	sessions SessionUpdater, notifier Notifier, obs *observability.Observability, log logger.Logger) *Service {
	if cfg.FailurePolicy != PolicyFailFast {
		cfg.FailurePolicy = PolicyContinue
	}
	if cfg.Locale == "" {
		cfg.Locale = i18n.BaseLocale
	}
	return &Service{
		config:    cfg,
		validator: v,
		generator: gen,
		storage:   storage,
		sessions:  sessions,
		notifier:  notifier,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "submission"}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot is the JSON record stored alongside the documents.
type Snapshot struct {
	FolderID       string                `json:"folderId"`
	FolderName     string                `json:"folderName"`
	SubmittedAt    time.Time             `json:"submittedAt"`
	SessionID      string                `json:"sessionId,omitempty"`
	BasicInfo      models.BasicInfo      `json:"basicInfo"`
	SelectedClaims []models.ClaimType    `json:"selectedClaims"`
	ClaimAnswers   models.ClaimAnswers   `json:"claimAnswers"`
	Children       []models.Child        `json:"children,omitempty"`
	Payment        *models.PaymentRecord `json:"payment,omitempty"`
	Documents      []string              `json:"documents"`
	Attachments    []string              `json:"attachments,omitempty"`
}

type uploadItem struct {
	kind        string
	key         string
	document    string
	body        []byte
	contentType string
}

// Submit validates, generates, uploads and confirms. Items after the
// snapshot follow the failure policy; a failed snapshot always aborts.
func (s *Service) Submit(ctx context.Context, req *models.SubmissionRequest) (*models.SubmissionResult, error) {
	start := s.now()
	claims := len(req.SelectedClaims)

	ctx, span := s.obs.StartSpan(ctx, "submission.submit", attribute.Int("claims", claims))
	defer span.End()

	locale := req.Locale
	if locale == "" {
		locale = s.config.Locale
	}

	res := validation.Combine(
		s.validator.BasicInfo(req.BasicInfo, locale),
		s.validator.Claims(req.SelectedClaims, locale),
		s.validator.AllClaimAnswers(req.SelectedClaims, req.ClaimAnswers, locale),
		s.validator.Signature(req.Signature, locale),
		s.validator.Attachments(req.Attachments, locale),
	)
	if err := res.Err(models.StepReview); err != nil {
		s.obs.RecordSubmission(ctx, "invalid", claims)
		return nil, err
	}

	signature, err := req.Signature.PNG()
	if err != nil {
		return nil, err
	}

	docs, err := s.generator.GenerateAll(ctx, documentData(req))
	if err != nil {
		s.obs.RecordSubmission(ctx, "generation_failed", claims)
		return nil, err
	}

	folderID := uuid.New().String()
	folderName := FolderName(req.BasicInfo.FullName, req.BasicInfo.IDNumber, start)
	base := path.Join(s.config.Prefix, folderName)
	log := s.logger.WithFields(map[string]interface{}{"folderId": folderID, "folderName": folderName})
	span.SetAttributes(attribute.String("submission.folder_id", folderID))

	items := s.items(base, signature, docs, req.Attachments)
	meta := map[string]string{"folder-id": folderID}

	snapshot, err := json.MarshalIndent(s.snapshot(req, folderID, folderName, start, docs), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrSnapshotUploadFailed, err)
	}
	if err := s.storage.Upload(ctx, path.Join(base, snapshotFile), snapshot, models.ContentTypeJSON, meta); err != nil {
		metrics.UploadsTotal.WithLabelValues("snapshot", "failed").Inc()
		s.finish(ctx, start, "failed", claims, 1)
		log.Error("snapshot upload failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUploadFailed, err)
	}
	metrics.UploadsTotal.WithLabelValues("snapshot", "ok").Inc()

	result := &models.SubmissionResult{
		Success:    true,
		FolderID:   folderID,
		FolderName: folderName,
		Documents:  map[string]string{},
	}

	for _, item := range items {
		err := s.storage.Upload(ctx, item.key, item.body, item.contentType, meta)
		if err != nil {
			metrics.UploadsTotal.WithLabelValues(item.kind, "failed").Inc()
			log.Warn("upload failed", map[string]interface{}{"key": item.key, "error": err.Error()})
			result.FailedUploads = append(result.FailedUploads, models.FailedUpload{Key: item.key, Error: err.Error()})

			if s.config.FailurePolicy == PolicyFailFast {
				s.finish(ctx, start, "failed", claims, len(result.FailedUploads))
				return nil, fmt.Errorf("%w: %s", ErrStorageUploadFailed, item.key)
			}
			continue
		}
		metrics.UploadsTotal.WithLabelValues(item.kind, "ok").Inc()
		if item.document != "" {
			result.Documents[item.document] = item.key
		}
	}

	if req.SessionID != "" && s.sessions != nil {
		if _, err := s.sessions.UpdateSubmissionStatus(ctx, req.SessionID, models.SubmissionSubmitted, folderID); err != nil {
			log.Warn("failed to mark session submitted", map[string]interface{}{
				"sessionId": req.SessionID,
				"error":     err.Error(),
			})
		}
	}

	s.confirm(ctx, req, result, log)

	status := "success"
	if len(result.FailedUploads) > 0 {
		status = "partial"
	}
	s.finish(ctx, start, status, claims, len(result.FailedUploads))

	log.Info("submission stored", map[string]interface{}{
		"documents":     len(result.Documents),
		"failedUploads": len(result.FailedUploads),
	})
	return result, nil
}

func (s *Service) finish(ctx context.Context, start time.Time, status string, claims, failures int) {
	s.obs.RecordSubmission(ctx, status, claims)
	s.obs.RecordSubmissionDuration(ctx, s.now().Sub(start), status)
	s.obs.RecordUploadFailures(ctx, failures)
}

// items lists uploads in order: signature, documents by name, attachments.
func (s *Service) items(base string, signature []byte, docs map[string]*models.GeneratedDocument, atts []models.Attachment) []uploadItem {
	items := []uploadItem{{
		kind:        "signature",
		key:         path.Join(base, "signature.png"),
		body:        signature,
		contentType: models.ContentTypePNG,
	}}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc := docs[name]
		items = append(items, uploadItem{
			kind:        "document",
			key:         path.Join(base, name, doc.FileName),
			document:    name,
			body:        doc.Data,
			contentType: doc.ContentType,
		})
	}

	seen := map[string]bool{}
	for _, a := range atts {
		// Already validated as base64.
		body, _ := base64.StdEncoding.DecodeString(a.Data)
		dir := path.Join(base, "attachments")
		if a.ClaimType != "" {
			dir = path.Join(dir, string(a.ClaimType))
		}
		key := uniqueKey(path.Join(dir, fileName(a.Name)), seen)
		seen[key] = true

		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		items = append(items, uploadItem{kind: "attachment", key: key, body: body, contentType: contentType})
	}
	return items
}

func (s *Service) snapshot(req *models.SubmissionRequest, folderID, folderName string, at time.Time, docs map[string]*models.GeneratedDocument) Snapshot {
	snap := Snapshot{
		FolderID:       folderID,
		FolderName:     folderName,
		SubmittedAt:    at,
		SessionID:      req.SessionID,
		BasicInfo:      req.BasicInfo,
		SelectedClaims: req.SelectedClaims,
		ClaimAnswers:   req.ClaimAnswers,
		Children:       req.Children,
		Payment:        req.Payment,
	}
	for name := range docs {
		snap.Documents = append(snap.Documents, name)
	}
	sort.Strings(snap.Documents)
	for _, a := range req.Attachments {
		snap.Attachments = append(snap.Attachments, a.Name)
	}
	return snap
}

func (s *Service) confirm(ctx context.Context, req *models.SubmissionRequest, result *models.SubmissionResult, log logger.Logger) {
	if s.notifier == nil {
		return
	}

	labels := make([]string, 0, len(req.SelectedClaims))
	for _, c := range req.SelectedClaims {
		labels = append(labels, c.Label())
	}
	data := map[string]interface{}{
		"fullName":    req.BasicInfo.FullName,
		"idNumber":    req.BasicInfo.IDNumber,
		"phone":       req.BasicInfo.Phone,
		"email":       req.BasicInfo.Email,
		"claims":      strings.Join(labels, ", "),
		"folderId":    result.FolderID,
		"folderName":  result.FolderName,
		"failedCount": len(result.FailedUploads),
	}

	if s.config.OfficeEmail != "" {
		if err := s.notifier.Email(ctx, "submission_office", s.config.OfficeEmail, notify.TemplateSubmissionOffice, data); err != nil {
			log.Warn("failed to notify office", map[string]interface{}{"error": err.Error()})
		}
	}
	if req.BasicInfo.Email != "" {
		if err := s.notifier.Email(ctx, "submission_client", req.BasicInfo.Email, notify.TemplateSubmissionClient, data); err != nil {
			log.Warn("failed to send client confirmation", map[string]interface{}{"error": err.Error()})
		}
	}
}

// documentData keys claim answers by claim so each document reads its own.
func documentData(req *models.SubmissionRequest) models.DocumentData {
	formData := make(map[string]interface{}, len(req.ClaimAnswers))
	for claim, answers := range req.ClaimAnswers {
		formData[string(claim)] = answers
	}
	return models.DocumentData{
		BasicInfo:      req.BasicInfo,
		FormData:       formData,
		SelectedClaims: req.SelectedClaims,
		Children:       req.Children,
	}
}

// uniqueKey suffixes key with -2, -3, ... until it is not in seen.
func uniqueKey(key string, seen map[string]bool) string {
	if !seen[key] {
		return key
	}
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !seen[candidate] {
			return candidate
		}
	}
}
