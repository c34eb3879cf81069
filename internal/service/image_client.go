package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"carousel-server/internal/config"
	"carousel-server/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ImageRequest один вызов модели изображений.
type ImageRequest struct {
	Prompt      string
	Model       string
	Width       int
	Height      int
	AspectRatio string
	References  []models.ReferenceImage
}

// ImageResult байты изображения и заявленный моделью формат.
type ImageResult struct {
	Bytes    []byte
	MIMEType string
}

// ImageClient провайдер модели изображений.
type ImageClient interface {
	Generate(ctx context.Context, req ImageRequest) (ImageResult, error)
}

// NewImageClient создает клиента в зависимости от IMAGE_PROVIDER.
func NewImageClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ImageClient, error) {
	switch strings.ToLower(cfg.ImageProvider) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.ImageAPIKey)
		openaiConfig.BaseURL = cfg.ImageBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.ImageTimeout}
		logger.Info("OpenAI image client created", zap.String("base_url", cfg.ImageBaseURL), zap.Duration("timeout", cfg.ImageTimeout))
		return &openAIImageClient{
			client:    openaigo.NewClientWithConfig(openaiConfig),
			apiKeySet: strings.TrimSpace(cfg.ImageAPIKey) != "",
			logger:    logger.Named("OpenAIImageClient"),
		}, nil
	case "gemini":
		if strings.TrimSpace(cfg.ImageAPIKey) == "" {
			return &unconfiguredImageClient{provider: "gemini"}, nil
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.ImageAPIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: &http.Client{Timeout: cfg.ImageTimeout},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		logger.Info("Gemini image client created", zap.Duration("timeout", cfg.ImageTimeout))
		return &geminiImageClient{client: client, logger: logger.Named("GeminiImageClient")}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный тип клиента изображений: '%s'", models.ErrConfiguration, cfg.ImageProvider)
	}
}

// --- OpenAI Images ---

type openAIImageClient struct {
	client    *openaigo.Client
	apiKeySet bool
	logger    *zap.Logger
}

func (c *openAIImageClient) Generate(ctx context.Context, req ImageRequest) (ImageResult, error) {
	if !c.apiKeySet {
		return ImageResult{}, fmt.Errorf("%w: image model api key is not set", models.ErrConfiguration)
	}
	imageReq := openaigo.ImageRequest{
		Prompt: req.Prompt,
		Model:  req.Model,
		N:      1,
		Size:   openAIImageSize(req.Model, aspectOf(req)),
	}
	// gpt-image-* всегда отдает base64 и не принимает response_format
	if strings.HasPrefix(req.Model, "dall-e") {
		imageReq.ResponseFormat = openaigo.CreateImageResponseFormatB64JSON
	}
	resp, err := c.client.CreateImage(ctx, imageReq)
	if err != nil {
		return ImageResult{}, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return ImageResult{}, errors.New("image model returned no image data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return ImageResult{}, fmt.Errorf("decode image payload: %w", err)
	}
	return ImageResult{Bytes: data, MIMEType: "image/png"}, nil
}

// openAIImageSize ближайший поддерживаемый моделью размер.
func openAIImageSize(model string, aspect float64) string {
	portrait, landscape := "1024x1536", "1536x1024"
	if strings.HasPrefix(model, "dall-e") {
		portrait, landscape = "1024x1792", "1792x1024"
	}
	switch {
	case aspect > 0 && aspect < 0.85:
		return portrait
	case aspect > 1.18:
		return landscape
	default:
		return "1024x1024"
	}
}

// --- Gemini ---

type geminiImageClient struct {
	client *genai.Client
	logger *zap.Logger
}

func (c *geminiImageClient) Generate(ctx context.Context, req ImageRequest) (ImageResult, error) {
	prompt := req.Prompt
	if ratio := ratioString(req); ratio != "" {
		prompt += " Output aspect ratio " + ratio + "."
	}
	parts := []*genai.Part{{Text: prompt}}
	for _, ref := range req.References {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: ref.MIMEType, Data: ref.Data}})
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	)
	if err != nil {
		return ImageResult{}, err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return ImageResult{Bytes: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return ImageResult{}, errors.New("gemini returned no inline image")
}

type unconfiguredImageClient struct {
	provider string
}

func (c *unconfiguredImageClient) Generate(context.Context, ImageRequest) (ImageResult, error) {
	return ImageResult{}, fmt.Errorf("%w: %s image api key is not set", models.ErrConfiguration, c.provider)
}

// aspectOf отношение ширины к высоте по размеру слота или по строке вида 4:5.
func aspectOf(req ImageRequest) float64 {
	if req.Width > 0 && req.Height > 0 {
		return float64(req.Width) / float64(req.Height)
	}
	w, h, ok := parseRatio(req.AspectRatio)
	if !ok {
		return 0
	}
	return w / h
}

func ratioString(req ImageRequest) string {
	if req.AspectRatio != "" {
		return req.AspectRatio
	}
	if req.Width > 0 && req.Height > 0 {
		return strconv.Itoa(req.Width) + ":" + strconv.Itoa(req.Height)
	}
	return ""
}

func parseRatio(s string) (float64, float64, bool) {
	a, b, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	w, err1 := strconv.ParseFloat(strings.TrimSpace(a), 64)
	h, err2 := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
