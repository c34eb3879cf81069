package service

import (
	"context"
	"errors"
	"testing"

	"carousel-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 48)...)

var testJPEG = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 48)...)

type stubImageClient struct {
	res ImageResult
	err error
	req ImageRequest
}

func (c *stubImageClient) Generate(_ context.Context, req ImageRequest) (ImageResult, error) {
	c.req = req
	return c.res, c.err
}

func TestSelectImageModel(t *testing.T) {
	m := ImageModels{Default: "base", Text: "typo"}
	tests := []struct {
		name         string
		models       ImageModels
		containsText bool
		override     string
		want         string
	}{
		{name: "text goes to text tier", models: m, containsText: true, want: "typo"},
		{name: "text ignores override", models: m, containsText: true, override: "custom", want: "typo"},
		{name: "override without text", models: m, override: "custom", want: "custom"},
		{name: "default", models: m, want: "base"},
		{name: "text tier unset falls back", models: ImageModels{Default: "base"}, containsText: true, want: "base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.models.SelectImageModel(tt.containsText, tt.override))
		})
	}
}

func TestImageAdapter_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		res      ImageResult
		err      error
		wantMIME string
		wantKind models.AssetErrorKind
	}{
		{name: "png", res: ImageResult{Bytes: testPNG, MIMEType: "image/png"}, wantMIME: "image/png"},
		{name: "jpg alias", res: ImageResult{Bytes: testJPEG, MIMEType: "image/jpg"}, wantMIME: "image/jpeg"},
		{name: "empty claim adopts sniffed", res: ImageResult{Bytes: testJPEG}, wantMIME: "image/jpeg"},
		{name: "too small", res: ImageResult{Bytes: testPNG[:10], MIMEType: "image/png"}, wantKind: models.AssetErrorValidation},
		{name: "claimed differs from bytes", res: ImageResult{Bytes: testJPEG, MIMEType: "image/png"}, wantKind: models.AssetErrorValidation},
		{name: "not an image", res: ImageResult{Bytes: []byte(`{"error":"quota exceeded","code":429,"retry":true}`), MIMEType: "image/png"}, wantKind: models.AssetErrorValidation},
		{name: "unsupported claim", res: ImageResult{Bytes: testPNG, MIMEType: "image/tiff"}, wantKind: models.AssetErrorValidation},
		{name: "model error", err: errors.New("boom"), wantKind: models.AssetErrorModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewImageAdapter(&stubImageClient{res: tt.res, err: tt.err}, ImageModels{Default: "m"}, 32, zap.NewNop())
			res, err := a.Generate(ctx, ImageRequest{Model: "m", Prompt: "p"})
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMIME, res.MIMEType)
				return
			}
			var ae *models.AssetError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.ErrorIs(t, err, models.ErrAsset)
		})
	}
}

func TestMIMEHelpers(t *testing.T) {
	assert.Equal(t, "image/jpeg", NormalizeMIME(" Image/JPG; charset=binary"))
	assert.Equal(t, "image/png", SniffMIME(testPNG))
	assert.Equal(t, "", SniffMIME([]byte("plain text")))
	assert.Equal(t, "image/png", ResolveMIME("application/octet-stream", testPNG))
	assert.Equal(t, "image/webp", ResolveMIME("image/webp", testPNG))
	assert.True(t, IsAllowedImage("image/gif"))
	assert.False(t, IsAllowedImage("image/svg+xml"))
	assert.Equal(t, "jpg", extensionFor("image/jpeg"))
	assert.Equal(t, "bin", extensionFor("application/pdf"))
}
