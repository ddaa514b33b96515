package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/contract"
	"surakshanet/internal/history"
	"surakshanet/internal/inference"
	"surakshanet/internal/media"
	"surakshanet/internal/models"
)

// Archive stores finished reports
type Archive interface {
	SaveReport(ctx context.Context, rec *models.ReportRecord) error
}

// Notifier receives alerts for high-severity reports; it must not block
type Notifier interface {
	Notify(alert models.Alert)
}

// module names a pipeline for logs and user-facing messages
type module struct {
	key   string
	label string
}

var (
	fraudModule        = module{models.ModuleFraud, "Fraud analysis"}
	deepfakeModule     = module{models.ModuleDeepfake, "Deepfake analysis"}
	facialModule       = module{models.ModuleFacial, "Facial search"}
	surveillanceModule = module{models.ModuleSurveillance, "Surveillance analysis"}
	voiceModule        = module{models.ModuleVoice, "Voice scam analysis"}
	phishingModule     = module{models.ModulePhishing, "Phishing analysis"}
)

// Service runs the analysis modules
type Service struct {
	generator inference.Generator
	policies  media.Policies
	archive   Archive
	notifier  Notifier
	phishing  *history.Log[models.PhishingHistoryEntry]
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service
type Option func(*Service)

func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithPhishingHistory sets how many phishing checks are remembered
func WithPhishingHistory(size int) Option {
	return func(s *Service) { s.phishing = history.New[models.PhishingHistoryEntry](size) }
}

// New creates the service; generator is nil when no credential is configured
func New(generator inference.Generator, policies media.Policies, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		generator: generator,
		policies:  policies,
		phishing:  history.New[models.PhishingHistoryEntry](5),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether the remote credential is present
func (s *Service) Configured() bool {
	return s.generator != nil
}

// Policies returns the upload policies
func (s *Service) Policies() media.Policies {
	return s.policies
}

// infer makes the single remote round trip for m
func (s *Service) infer(ctx context.Context, m module, req inference.Request) (string, error) {
	if s.generator == nil {
		return "", apperror.NotConfigured(m.key, m.label)
	}
	req.Module = m.key

	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Error("Inference call failed", zap.String("module", m.key), zap.Error(err))
		return "", apperror.FromTransport(m.key, m.label, err)
	}
	return raw, nil
}

func (s *Service) contractError(m module, raw string, err error) error {
	s.logger.Error("AI response violated contract",
		zap.String("module", m.key),
		zap.String("raw_response", contract.Preview(raw, 2000)),
		zap.Error(err))
	return apperror.Contract(m.key, m.label, err)
}

// checkUpload validates media before any network call
func (s *Service) checkUpload(m module, kind media.Kind, up models.MediaUpload) (*inference.Media, error) {
	if s.generator == nil {
		return nil, apperror.NotConfigured(m.key, m.label)
	}
	mimeType, err := s.policies.For(kind).Validate(up)
	if err != nil {
		s.logger.Warn("Upload rejected",
			zap.String("module", m.key),
			zap.String("file_name", up.FileName),
			zap.String("mime_type", up.MIMEType),
			zap.Int("bytes", len(up.Data)),
			zap.Error(err))
		return nil, apperror.Invalid(m.key, m.label, err)
	}
	return &inference.Media{MIMEType: mimeType, Data: up.Data}, nil
}

// record archives a report and raises an alert when needed; neither can fail the action
func (s *Service) record(ctx context.Context, m module, id, assessment string, confidence float64, subject string, report any, alert bool) {
	createdAt := s.now()

	if s.archive != nil {
		payload, err := json.Marshal(report)
		if err != nil {
			s.logger.Error("Failed to encode report", zap.String("module", m.key), zap.Error(err))
		} else {
			rec := &models.ReportRecord{
				ID:         id,
				Module:     m.key,
				Assessment: assessment,
				Confidence: confidence,
				Subject:    contract.Preview(subject, 120),
				Payload:    string(payload),
				CreatedAt:  createdAt,
			}
			if err := s.archive.SaveReport(context.WithoutCancel(ctx), rec); err != nil {
				s.logger.Error("Failed to archive report",
					zap.String("module", m.key),
					zap.String("id", id),
					zap.Error(err))
			}
		}
	}

	if alert && s.notifier != nil {
		s.notifier.Notify(models.Alert{
			Module:     m.key,
			ReportID:   id,
			Assessment: assessment,
			Confidence: confidence,
			Subject:    contract.Preview(subject, 120),
			RaisedAt:   createdAt,
		})
	}

	s.logger.Info("Report produced",
		zap.String("module", m.key),
		zap.String("id", id),
		zap.String("assessment", assessment),
		zap.Float64("confidence", confidence))
}
