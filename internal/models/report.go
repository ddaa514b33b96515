package models

import "time"

// Module keys identify the analysis tools exposed by the service
const (
	ModuleFraud        = "fraud"
	ModuleDeepfake     = "deepfake"
	ModuleFacial       = "facial"
	ModuleChat         = "chat"
	ModuleSurveillance = "surveillance"
	ModuleVoice        = "voice"
	ModulePhishing     = "phishing"
)

// Fraud (DhanRakshak) assessments
const (
	FraudLowRisk    = "Low Risk"
	FraudMediumRisk = "Medium Risk"
	FraudHighRisk   = "High Risk"
	FraudUnknown    = "Unknown"
)

var FraudAssessments = []string{FraudLowRisk, FraudMediumRisk, FraudHighRisk, FraudUnknown}

// Deepfake (SatyaDarpan) assessments
const (
	DeepfakeAuthentic   = "Likely Authentic"
	DeepfakeManipulated = "Potentially Manipulated"
	DeepfakeLikely      = "Likely Deepfake"
	DeepfakeUncertain   = "Uncertain"
)

var DeepfakeAssessments = []string{DeepfakeAuthentic, DeepfakeManipulated, DeepfakeLikely, DeepfakeUncertain}

// Surveillance alert levels
const (
	AlertLow      = "Low"
	AlertMedium   = "Medium"
	AlertHigh     = "High"
	AlertCritical = "Critical"
)

var AlertLevels = []string{AlertLow, AlertMedium, AlertHigh, AlertCritical}

// VoIP scam assessments and recommendations
const (
	VoiceLikelyScam  = "Likely Scam"
	VoiceSuspicious  = "Potentially Suspicious"
	VoiceLikelySafe  = "Likely Safe"
	VoiceUncertain   = "Uncertain"
	VoiceBlockCaller = "Block Caller"
	VoiceReport      = "Report to Authorities"
	VoiceCaution     = "Proceed with Caution"
	VoiceNoAction    = "No Action Needed"
)

var (
	VoiceAssessments     = []string{VoiceLikelyScam, VoiceSuspicious, VoiceLikelySafe, VoiceUncertain}
	VoiceRecommendations = []string{VoiceBlockCaller, VoiceReport, VoiceCaution, VoiceNoAction}
)

// Phishing assessments
const (
	PhishingPhishing   = "Phishing"
	PhishingSuspicious = "Suspicious"
	PhishingSafe       = "Safe"
	PhishingUnknown    = "Unknown"
)

var PhishingAssessments = []string{PhishingPhishing, PhishingSuspicious, PhishingSafe, PhishingUnknown}

// FraudAnalysisReport is the validated result of a transaction check
type FraudAnalysisReport struct {
	TransactionID        string               `json:"transactionId"`
	Assessment           string               `json:"assessment"`
	Explanation          string               `json:"explanation"`
	Confidence           float64              `json:"confidence"`
	PotentialRiskFactors []string             `json:"potentialRiskFactors"`
	Transaction          FraudAnalysisRequest `json:"transaction"`
	AnalyzedAt           time.Time            `json:"analyzedAt"`
}

// DeepfakeAnalysisReport is the validated result of an image authenticity check
type DeepfakeAnalysisReport struct {
	ID                     string    `json:"id"`
	FileName               string    `json:"fileName"`
	Assessment             string    `json:"assessment"`
	Confidence             float64   `json:"confidence"`
	Explanation            string    `json:"explanation"`
	ManipulationIndicators []string  `json:"manipulationIndicators"`
	AnalyzedAt             time.Time `json:"analyzedAt"`
}

// PotentialMatch is one simulated facial search hit
type PotentialMatch struct {
	ID                string  `json:"id"` // caseId-index, unique within a result
	CaseID            string  `json:"caseId"`
	Name              string  `json:"name"`
	MatchConfidence   float64 `json:"matchConfidence"`
	LastKnownLocation string  `json:"lastKnownLocation"`
	Details           string  `json:"details"`
}

// FacialSearchResult wraps the matches returned for one uploaded image
type FacialSearchResult struct {
	SearchID   string           `json:"searchId"`
	FileName   string           `json:"fileName"`
	Matches    []PotentialMatch `json:"matches"`
	AnalyzedAt time.Time        `json:"analyzedAt"`
}

// DetectedEvent is one event found in surveillance footage
type DetectedEvent struct {
	ID          string  `json:"id"` // analysisId-index
	Timestamp   string  `json:"timestamp"`
	EventType   string  `json:"eventType"`
	Description string  `json:"description"`
	AlertLevel  string  `json:"alertLevel"`
	Confidence  float64 `json:"confidence"`
}

// SurveillanceReport wraps the events detected in one video
type SurveillanceReport struct {
	AnalysisID string          `json:"analysisId"`
	FileName   string          `json:"fileName"`
	Events     []DetectedEvent `json:"events"`
	AnalyzedAt time.Time       `json:"analyzedAt"`
}

// VoIPScamAnalysisReport is the validated result of a call recording check
type VoIPScamAnalysisReport struct {
	ID                string    `json:"id"`
	FileName          string    `json:"fileName"`
	Assessment        string    `json:"assessment"`
	Confidence        float64   `json:"confidence"`
	Explanation       string    `json:"explanation"`
	ScamIndicators    []string  `json:"scamIndicators"`
	Recommendation    string    `json:"recommendation"`
	TranscriptSummary string    `json:"transcriptSummary"`
	AnalyzedAt        time.Time `json:"analyzedAt"`
}

// PhishingAnalysisReport is the validated result of a URL or message check
type PhishingAnalysisReport struct {
	ID                 string    `json:"id"`
	ContentType        string    `json:"contentType"`
	Assessment         string    `json:"assessment"`
	Confidence         float64   `json:"confidence"`
	Explanation        string    `json:"explanation"`
	Indicators         []string  `json:"indicators"`
	RecommendedActions []string  `json:"recommendedActions"`
	AnalyzedAt         time.Time `json:"analyzedAt"`
}

// Feedback verdicts for phishing history entries
const (
	FeedbackCorrect   = "correct"
	FeedbackIncorrect = "incorrect"
)

// PhishingHistoryEntry pairs an analyzed input with its report
type PhishingHistoryEntry struct {
	Content  string                  `json:"content"`
	Report   *PhishingAnalysisReport `json:"report"`
	Feedback string                  `json:"feedback,omitempty"`
}

// ChatTurn is one side of a chat exchange
type ChatTurn struct {
	Role string    `json:"role"` // "user" or "model"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ChatReply is returned for every successful chat send
type ChatReply struct {
	SessionID string    `json:"sessionId"`
	Reply     string    `json:"reply"`
	Turns     int       `json:"turns"`
	RepliedAt time.Time `json:"repliedAt"`
}

// ReportRecord is the archived form of any module report
type ReportRecord struct {
	ID         string    `json:"id" db:"id"`
	Module     string    `json:"module" db:"module"`
	Assessment string    `json:"assessment" db:"assessment"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Subject    string    `json:"subject" db:"subject"` // file name, payee or content excerpt
	Payload    string    `json:"payload" db:"payload"` // full report as JSON
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ReportStats summarizes the archive
type ReportStats struct {
	Total        int            `json:"total"`
	ByModule     map[string]int `json:"by_module"`
	ByAssessment map[string]int `json:"by_assessment"`
}

// Alert is raised for high-severity reports
type Alert struct {
	Module     string    `json:"module"`
	ReportID   string    `json:"report_id"`
	Assessment string    `json:"assessment"`
	Confidence float64   `json:"confidence"`
	Subject    string    `json:"subject"`
	RaisedAt   time.Time `json:"raised_at"`
}
