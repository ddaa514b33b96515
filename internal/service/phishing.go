package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/contract"
	"surakshanet/internal/inference"
	"surakshanet/internal/models"
	"surakshanet/internal/prompts"
)

var (
	ErrEmptyContent       = errors.New("content must not be empty")
	ErrUnknownContentType = errors.New("content type must be one of url, email, sms, text")
	ErrUnknownVerdict     = errors.New("verdict must be correct or incorrect")
	ErrReportNotFound     = errors.New("no phishing check with that id in recent history")
)

// AnalyzePhishing checks a URL, email or SMS and remembers the result
func (s *Service) AnalyzePhishing(ctx context.Context, req models.PhishingAnalysisRequest) (*models.PhishingAnalysisReport, error) {
	m := phishingModule
	if s.generator == nil {
		return nil, apperror.NotConfigured(m.key, m.label)
	}

	req.Content = strings.TrimSpace(req.Content)
	req.ContentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if req.ContentType == "" {
		req.ContentType = models.ContentText
	}
	if req.Content == "" {
		return nil, apperror.Invalid(m.key, m.label, ErrEmptyContent)
	}
	if !slices.Contains(models.PhishingContentTypes, req.ContentType) {
		return nil, apperror.Invalid(m.key, m.label, fmt.Errorf("%w: %q", ErrUnknownContentType, req.ContentType))
	}

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.PhishingInstruction,
		Prompt:            prompts.Phishing(req),
	})
	if err != nil {
		return nil, err
	}

	rec, err := contract.ParseObject(raw, phishingSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	report := &models.PhishingAnalysisReport{
		ID:                 s.newID(),
		ContentType:        req.ContentType,
		Assessment:         rec.String("assessment"),
		Confidence:         rec.Number("confidence"),
		Explanation:        rec.String("explanation"),
		Indicators:         rec.Strings("indicators"),
		RecommendedActions: rec.Strings("recommendedActions"),
		AnalyzedAt:         s.now(),
	}

	s.phishing.Append(models.PhishingHistoryEntry{Content: req.Content, Report: report})
	s.record(ctx, m, report.ID, report.Assessment, report.Confidence, req.Content, report,
		report.Assessment == models.PhishingPhishing)
	return report, nil
}

// PhishingHistory returns recent checks, oldest first
func (s *Service) PhishingHistory() []models.PhishingHistoryEntry {
	return s.phishing.Items()
}

// RecordPhishingFeedback marks a remembered check as correct or incorrect
func (s *Service) RecordPhishingFeedback(id, verdict string) error {
	m := phishingModule
	verdict = strings.ToLower(strings.TrimSpace(verdict))
	if verdict != models.FeedbackCorrect && verdict != models.FeedbackIncorrect {
		return apperror.Invalid(m.key, m.label, ErrUnknownVerdict)
	}

	found := s.phishing.Update(
		func(e models.PhishingHistoryEntry) bool { return e.Report != nil && e.Report.ID == id },
		func(e *models.PhishingHistoryEntry) { e.Feedback = verdict },
	)
	if !found {
		return apperror.Invalid(m.key, m.label, ErrReportNotFound)
	}

	s.logger.Info("Phishing feedback recorded", zap.String("id", id), zap.String("verdict", verdict))
	return nil
}
