package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"surakshanet/internal/models"
)

const MiB = 1 << 20

// Kind groups uploads that share a policy
type Kind string

const (
	Image Kind = "image"
	Audio Kind = "audio"
	Video Kind = "video"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrContentMismatch = errors.New("file content does not match its declared type")
	ErrInvalidEncoding = errors.New("file data is not valid base64")
	ErrMissingFileName = errors.New("file name is required")
)

// Policy is the allow-list and size ceiling for one upload kind
type Policy struct {
	Kind         Kind
	AllowedTypes []string
	MaxBytes     int64
}

// Policies holds one policy per kind
type Policies struct {
	Image Policy
	Audio Policy
	Video Policy
}

// DefaultPolicies returns 5 MiB images, 10 MiB audio and 25 MiB video
func DefaultPolicies() Policies {
	return NewPolicies(5*MiB, 10*MiB, 25*MiB)
}

// NewPolicies builds the policies with the given byte ceilings
func NewPolicies(imageBytes, audioBytes, videoBytes int64) Policies {
	return Policies{
		Image: Policy{
			Kind:         Image,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
			MaxBytes:     imageBytes,
		},
		Audio: Policy{
			Kind: Audio,
			AllowedTypes: []string{
				"audio/mpeg", "audio/wav", "audio/x-wav", "audio/ogg", "audio/webm",
				"audio/mp4", "audio/x-m4a", "audio/aac",
			},
			MaxBytes: audioBytes,
		},
		Video: Policy{
			Kind:         Video,
			AllowedTypes: []string{"video/mp4", "video/webm", "video/quicktime"},
			MaxBytes:     videoBytes,
		},
	}
}

// For returns the policy of kind k
func (p Policies) For(k Kind) Policy {
	switch k {
	case Audio:
		return p.Audio
	case Video:
		return p.Video
	default:
		return p.Image
	}
}

// Validate checks an upload before any network call and returns the normalized MIME type
func (p Policy) Validate(up models.MediaUpload) (string, error) {
	if strings.TrimSpace(up.FileName) == "" {
		return "", ErrMissingFileName
	}
	if len(up.Data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(up.Data)) > p.MaxBytes {
		return "", fmt.Errorf("%w: %s exceeds the %s limit for %s files",
			ErrFileTooLarge, FormatSize(int64(len(up.Data))), FormatSize(p.MaxBytes), p.Kind)
	}

	declared := NormalizeType(up.MIMEType)
	if !slices.Contains(p.AllowedTypes, declared) {
		return "", fmt.Errorf("%w %q: %s uploads must be one of %s",
			ErrUnsupportedType, up.MIMEType, p.Kind, strings.Join(p.AllowedTypes, ", "))
	}

	if !p.contentAgrees(declared, up.Data) {
		return "", fmt.Errorf("%w (declared %s, detected %s)",
			ErrContentMismatch, declared, mimetype.Detect(up.Data).String())
	}
	return declared, nil
}

// containers maps types sniffed from a shared container format to that
// format; sniffing cannot tell an audio-only MP4, WebM or Ogg from video.
var containers = map[string]string{
	"video/mp4":       "mp4",
	"audio/mp4":       "mp4",
	"audio/x-m4a":     "mp4",
	"video/webm":      "webm",
	"audio/webm":      "webm",
	"application/ogg": "ogg",
	"audio/ogg":       "ogg",
	"video/ogg":       "ogg",
}

// contentAgrees accepts unknown binary content, a match on the declared
// type, any detected type (or parent) that is itself allowed, or one from
// the same container format as the declared type.
func (p Policy) contentAgrees(declared string, data []byte) bool {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") || detected.Is(declared) {
		return true
	}
	family := containers[declared]
	for m := detected; m != nil; m = m.Parent() {
		t := NormalizeType(m.String())
		if slices.Contains(p.AllowedTypes, t) {
			return true
		}
		if family != "" && containers[t] == family {
			return true
		}
	}
	return false
}

// NormalizeType lowercases a MIME type and drops its parameters
func NormalizeType(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// DecodeBase64 decodes upload data, accepting a data URL prefix
func DecodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	out, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(data); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return out, nil
}

// FromRequest converts the JSON upload form into a MediaUpload
func FromRequest(req models.MediaUploadRequest) (models.MediaUpload, error) {
	data, err := DecodeBase64(req.Data)
	if err != nil {
		return models.MediaUpload{}, err
	}
	return models.MediaUpload{FileName: req.FileName, MIMEType: req.MIMEType, Data: data}, nil
}

// FormatSize renders a byte count for messages
func FormatSize(n int64) string {
	switch {
	case n >= MiB:
		return fmt.Sprintf("%.1f MB", float64(n)/MiB)
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
