package service

import (
	"surakshanet/internal/contract"
	"surakshanet/internal/models"
)

var fraudSchema = contract.Schema{
	Name: "fraud report",
	Fields: []contract.Field{
		{Name: "assessment", Kind: contract.String, Enum: models.FraudAssessments},
		{Name: "explanation", Kind: contract.String},
		{Name: "confidence", Kind: contract.Number, Clamp: true},
		{Name: "potentialRiskFactors", Kind: contract.StringList},
	},
}

var deepfakeSchema = contract.Schema{
	Name: "deepfake report",
	Fields: []contract.Field{
		{Name: "assessment", Kind: contract.String, Enum: models.DeepfakeAssessments},
		{Name: "confidence", Kind: contract.Number, Clamp: true},
		{Name: "explanation", Kind: contract.String},
		{Name: "manipulationIndicators", Kind: contract.StringList},
	},
}

var matchSchema = contract.Schema{
	Name: "facial matches",
	Fields: []contract.Field{
		{Name: "caseId", Kind: contract.String},
		{Name: "name", Kind: contract.String},
		{Name: "matchConfidence", Kind: contract.Number, Clamp: true},
		{Name: "lastKnownLocation", Kind: contract.String},
		{Name: "details", Kind: contract.String},
	},
}

var eventSchema = contract.Schema{
	Name: "surveillance events",
	Fields: []contract.Field{
		{Name: "timestamp", Kind: contract.String},
		{Name: "eventType", Kind: contract.String},
		{Name: "description", Kind: contract.String},
		{Name: "alertLevel", Kind: contract.String, Enum: models.AlertLevels},
		{Name: "confidence", Kind: contract.Number, Clamp: true},
	},
}

var voiceSchema = contract.Schema{
	Name: "voice scam report",
	Fields: []contract.Field{
		{Name: "assessment", Kind: contract.String, Enum: models.VoiceAssessments},
		{Name: "confidence", Kind: contract.Number, Clamp: true},
		{Name: "explanation", Kind: contract.String},
		{Name: "scamIndicators", Kind: contract.StringList},
		{Name: "recommendation", Kind: contract.String, Enum: models.VoiceRecommendations},
		{Name: "transcriptSummary", Kind: contract.String},
	},
}

var phishingSchema = contract.Schema{
	Name: "phishing report",
	Fields: []contract.Field{
		{Name: "assessment", Kind: contract.String, Enum: models.PhishingAssessments},
		{Name: "confidence", Kind: contract.Number, Clamp: true},
		{Name: "explanation", Kind: contract.String},
		{Name: "indicators", Kind: contract.StringList},
		{Name: "recommendedActions", Kind: contract.StringList},
	},
}
