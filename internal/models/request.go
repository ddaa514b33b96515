package models

// FraudAnalysisRequest holds the transaction form fields
type FraudAnalysisRequest struct {
	SenderID   string  `json:"senderId"`
	ReceiverID string  `json:"receiverId"`
	Amount     float64 `json:"amount"`
	Remarks    string  `json:"remarks"`
}

// MediaUpload is an uploaded file after transport decoding
type MediaUpload struct {
	FileName string
	MIMEType string
	Data     []byte
}

// MediaUploadRequest is the JSON form of an upload, data is base64
type MediaUploadRequest struct {
	FileName string `json:"fileName" binding:"required"`
	MIMEType string `json:"mimeType" binding:"required"`
	Data     string `json:"data" binding:"required"`
}

// Phishing content types
const (
	ContentURL   = "url"
	ContentEmail = "email"
	ContentSMS   = "sms"
	ContentText  = "text"
)

var PhishingContentTypes = []string{ContentURL, ContentEmail, ContentSMS, ContentText}

// PhishingAnalysisRequest holds the content to check
type PhishingAnalysisRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"contentType"`
}

// PhishingFeedbackRequest records whether an assessment was right
type PhishingFeedbackRequest struct {
	Verdict string `json:"verdict" binding:"required"`
}

// ChatRequest is one user chat message
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}
