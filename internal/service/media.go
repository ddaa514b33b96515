package service

import (
	"context"
	"fmt"

	"surakshanet/internal/contract"
	"surakshanet/internal/inference"
	"surakshanet/internal/media"
	"surakshanet/internal/models"
	"surakshanet/internal/prompts"
)

// facialAlertThreshold is the match confidence that raises an alert
const facialAlertThreshold = 0.9

// AnalyzeDeepfake checks an image for signs of manipulation
func (s *Service) AnalyzeDeepfake(ctx context.Context, up models.MediaUpload) (*models.DeepfakeAnalysisReport, error) {
	m := deepfakeModule
	blob, err := s.checkUpload(m, media.Image, up)
	if err != nil {
		return nil, err
	}

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.DeepfakeInstruction,
		Prompt:            prompts.Deepfake(up.FileName),
		Media:             blob,
	})
	if err != nil {
		return nil, err
	}

	rec, err := contract.ParseObject(raw, deepfakeSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	report := &models.DeepfakeAnalysisReport{
		ID:                     s.newID(),
		FileName:               up.FileName,
		Assessment:             rec.String("assessment"),
		Confidence:             rec.Number("confidence"),
		Explanation:            rec.String("explanation"),
		ManipulationIndicators: rec.Strings("manipulationIndicators"),
		AnalyzedAt:             s.now(),
	}

	s.record(ctx, m, report.ID, report.Assessment, report.Confidence, up.FileName, report,
		report.Assessment == models.DeepfakeLikely)
	return report, nil
}

// SearchFaces returns simulated case matches for a photo; an empty list is a valid result
func (s *Service) SearchFaces(ctx context.Context, up models.MediaUpload) (*models.FacialSearchResult, error) {
	m := facialModule
	blob, err := s.checkUpload(m, media.Image, up)
	if err != nil {
		return nil, err
	}

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.FacialInstruction,
		Prompt:            prompts.Facial(up.FileName),
		Media:             blob,
	})
	if err != nil {
		return nil, err
	}

	recs, err := contract.ParseArray(raw, matchSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	result := &models.FacialSearchResult{
		SearchID:   s.newID(),
		FileName:   up.FileName,
		Matches:    make([]models.PotentialMatch, 0, len(recs)),
		AnalyzedAt: s.now(),
	}
	best := 0.0
	for i, rec := range recs {
		match := models.PotentialMatch{
			ID:                fmt.Sprintf("%s-%d", rec.String("caseId"), i),
			CaseID:            rec.String("caseId"),
			Name:              rec.String("name"),
			MatchConfidence:   rec.Number("matchConfidence"),
			LastKnownLocation: rec.String("lastKnownLocation"),
			Details:           rec.String("details"),
		}
		best = max(best, match.MatchConfidence)
		result.Matches = append(result.Matches, match)
	}

	s.record(ctx, m, result.SearchID, fmt.Sprintf("%d matches", len(result.Matches)), best,
		up.FileName, result, best >= facialAlertThreshold)
	return result, nil
}

// AnalyzeSurveillance lists notable events in a video; an empty list is a valid result
func (s *Service) AnalyzeSurveillance(ctx context.Context, up models.MediaUpload) (*models.SurveillanceReport, error) {
	m := surveillanceModule
	blob, err := s.checkUpload(m, media.Video, up)
	if err != nil {
		return nil, err
	}

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.SurveillanceInstruction,
		Prompt:            prompts.Surveillance(up.FileName),
		Media:             blob,
	})
	if err != nil {
		return nil, err
	}

	recs, err := contract.ParseArray(raw, eventSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	report := &models.SurveillanceReport{
		AnalysisID: s.newID(),
		FileName:   up.FileName,
		Events:     make([]models.DetectedEvent, 0, len(recs)),
		AnalyzedAt: s.now(),
	}
	critical := false
	highest := ""
	best := 0.0
	for i, rec := range recs {
		event := models.DetectedEvent{
			ID:          fmt.Sprintf("%s-%d", report.AnalysisID, i),
			Timestamp:   rec.String("timestamp"),
			EventType:   rec.String("eventType"),
			Description: rec.String("description"),
			AlertLevel:  rec.String("alertLevel"),
			Confidence:  rec.Number("confidence"),
		}
		if levelRank(event.AlertLevel) > levelRank(highest) {
			highest = event.AlertLevel
		}
		critical = critical || event.AlertLevel == models.AlertCritical
		best = max(best, event.Confidence)
		report.Events = append(report.Events, event)
	}
	if highest == "" {
		highest = "No Events"
	}

	s.record(ctx, m, report.AnalysisID, highest, best, up.FileName, report, critical)
	return report, nil
}

func levelRank(level string) int {
	for i, l := range models.AlertLevels {
		if l == level {
			return i + 1
		}
	}
	return 0
}

// AnalyzeVoiceScam checks a call recording for scam behaviour
func (s *Service) AnalyzeVoiceScam(ctx context.Context, up models.MediaUpload) (*models.VoIPScamAnalysisReport, error) {
	m := voiceModule
	blob, err := s.checkUpload(m, media.Audio, up)
	if err != nil {
		return nil, err
	}

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.VoiceInstruction,
		Prompt:            prompts.Voice(up.FileName),
		Media:             blob,
	})
	if err != nil {
		return nil, err
	}

	rec, err := contract.ParseObject(raw, voiceSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	report := &models.VoIPScamAnalysisReport{
		ID:                s.newID(),
		FileName:          up.FileName,
		Assessment:        rec.String("assessment"),
		Confidence:        rec.Number("confidence"),
		Explanation:       rec.String("explanation"),
		ScamIndicators:    rec.Strings("scamIndicators"),
		Recommendation:    rec.String("recommendation"),
		TranscriptSummary: rec.String("transcriptSummary"),
		AnalyzedAt:        s.now(),
	}

	s.record(ctx, m, report.ID, report.Assessment, report.Confidence, up.FileName, report,
		report.Assessment == models.VoiceLikelyScam)
	return report, nil
}
