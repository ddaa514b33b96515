package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/contract"
	"surakshanet/internal/inference"
	"surakshanet/internal/models"
	"surakshanet/internal/prompts"
)

var (
	ErrMissingParty  = errors.New("sender and receiver are required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
)

func validateTransaction(req *models.FraudAnalysisRequest) error {
	req.SenderID = strings.TrimSpace(req.SenderID)
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	if req.SenderID == "" || req.ReceiverID == "" {
		return ErrMissingParty
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// AnalyzeFraud assesses a single transaction
func (s *Service) AnalyzeFraud(ctx context.Context, req models.FraudAnalysisRequest) (*models.FraudAnalysisReport, error) {
	m := fraudModule
	if s.generator == nil {
		return nil, apperror.NotConfigured(m.key, m.label)
	}
	if err := validateTransaction(&req); err != nil {
		return nil, apperror.Invalid(m.key, m.label, err)
	}

	s.logger.Info("Analyzing transaction",
		zap.String("sender", req.SenderID),
		zap.String("receiver", req.ReceiverID),
		zap.Float64("amount", req.Amount))

	raw, err := s.infer(ctx, m, inference.Request{
		SystemInstruction: prompts.FraudInstruction,
		Prompt:            prompts.Fraud(req),
	})
	if err != nil {
		return nil, err
	}

	rec, err := contract.ParseObject(raw, fraudSchema)
	if err != nil {
		return nil, s.contractError(m, raw, err)
	}

	report := &models.FraudAnalysisReport{
		TransactionID:        s.newID(),
		Assessment:           rec.String("assessment"),
		Explanation:          rec.String("explanation"),
		Confidence:           rec.Number("confidence"),
		PotentialRiskFactors: rec.Strings("potentialRiskFactors"),
		Transaction:          req,
		AnalyzedAt:           s.now(),
	}

	s.record(ctx, m, report.TransactionID, report.Assessment, report.Confidence,
		req.SenderID+" -> "+req.ReceiverID, report,
		report.Assessment == models.FraudHighRisk)
	return report, nil
}
