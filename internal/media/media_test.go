package media

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surakshanet/internal/models"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func TestValidateAcceptsAllowedImage(t *testing.T) {
	policy := DefaultPolicies().For(Image)

	mt, err := policy.Validate(models.MediaUpload{FileName: "face.png", MIMEType: "image/PNG", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
}

func TestValidateRejections(t *testing.T) {
	small := NewPolicies(16, 16, 16)

	tests := []struct {
		name   string
		policy Policy
		upload models.MediaUpload
		want   error
	}{
		{"no name", small.Image, models.MediaUpload{MIMEType: "image/png", Data: pngBytes[:8]}, ErrMissingFileName},
		{"empty", small.Image, models.MediaUpload{FileName: "a.png", MIMEType: "image/png"}, ErrEmptyFile},
		{"too large", small.Image, models.MediaUpload{FileName: "a.png", MIMEType: "image/png", Data: pngBytes}, ErrFileTooLarge},
		{"gif not allowed", small.Image, models.MediaUpload{FileName: "a.gif", MIMEType: "image/gif", Data: []byte("GIF89a")}, ErrUnsupportedType},
		{"image as audio", small.Audio, models.MediaUpload{FileName: "a.png", MIMEType: "image/png", Data: pngBytes[:8]}, ErrUnsupportedType},
		{"text posing as png", small.Image, models.MediaUpload{FileName: "a.png", MIMEType: "image/png", Data: []byte("hello there")}, ErrContentMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.policy.Validate(tt.upload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateSizeMessage(t *testing.T) {
	policy := NewPolicies(5*MiB, 10*MiB, 25*MiB).Video
	data := make([]byte, 25*MiB+1)

	_, err := policy.Validate(models.MediaUpload{FileName: "cam.mp4", MIMEType: "video/mp4", Data: data})
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "25.0 MB limit for video files")
}

// ftypHeader builds an ISO-BMFF header with the given major brand
func ftypHeader(brand string) []byte {
	box := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'}
	box = append(box, brand...)
	box = append(box, 0, 0, 0, 0)
	box = append(box, brand...)
	box = append(box, "mp41"...)
	return append(box, make([]byte, 16)...)
}

func TestValidateAcceptsSharedContainers(t *testing.T) {
	audio := DefaultPolicies().Audio

	tests := []struct {
		name     string
		mimeType string
		data     []byte
	}{
		{"isom brand as audio/mp4", "audio/mp4", ftypHeader("isom")},
		{"mp42 brand as audio/x-m4a", "audio/x-m4a", ftypHeader("mp42")},
		{"ogg as audio/ogg", "audio/ogg", append([]byte("OggS\x00\x02"), make([]byte, 32)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := audio.Validate(models.MediaUpload{FileName: "call.m4a", MIMEType: tt.mimeType, Data: tt.data})
			require.NoError(t, err)
			assert.Equal(t, tt.mimeType, mt)
		})
	}

	_, err := audio.Validate(models.MediaUpload{FileName: "call.mp3", MIMEType: "audio/mpeg", Data: ftypHeader("isom")})
	assert.ErrorIs(t, err, ErrContentMismatch)
}

func TestValidateAcceptsUnknownBinary(t *testing.T) {
	_, err := DefaultPolicies().Video.Validate(models.MediaUpload{
		FileName: "cam.mp4",
		MIMEType: "video/mp4",
		Data:     []byte{0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x42},
	})
	assert.NoError(t, err)
}

func TestDecodeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	out, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, out)

	out, err = DecodeBase64("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, out)

	out, err = DecodeBase64(base64.RawStdEncoding.EncodeToString([]byte("ab")))
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), out)

	_, err = DecodeBase64("%%not base64%%")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestFromRequest(t *testing.T) {
	up, err := FromRequest(models.MediaUploadRequest{
		FileName: "call.wav",
		MIMEType: "audio/wav",
		Data:     base64.StdEncoding.EncodeToString([]byte("RIFF")),
	})
	require.NoError(t, err)
	assert.Equal(t, "call.wav", up.FileName)
	assert.Equal(t, []byte("RIFF"), up.Data)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "12 bytes", FormatSize(12))
	assert.Equal(t, "2.0 KB", FormatSize(2048))
	assert.Equal(t, "5.0 MB", FormatSize(5*MiB))
}
