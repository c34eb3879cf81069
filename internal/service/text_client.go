package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carousel-server/internal/config"
	"carousel-server/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// TextRequest запрос к текстовой модели. Images передаются вложениями, а не текстом.
type TextRequest struct {
	System string
	User   string
	Images []models.ReferenceImage
	Model  string
}

// UsageInfo содержит информацию об использовании токенов.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// TextClient провайдер текстовой модели. Возвращает сырой текст ответа, ничего не проверяя.
type TextClient interface {
	Generate(ctx context.Context, req TextRequest) (string, UsageInfo, error)
	// DefaultModel модель, которая используется при пустом req.Model.
	DefaultModel() string
}

// NewTextClient создает клиента в зависимости от TEXT_PROVIDER.
func NewTextClient(cfg *config.Config, logger *zap.Logger) (TextClient, error) {
	switch strings.ToLower(cfg.TextProvider) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.TextAPIKey)
		openaiConfig.BaseURL = cfg.TextBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.TextTimeout}
		logger.Info("OpenAI text client created",
			zap.String("base_url", cfg.TextBaseURL), zap.String("model", cfg.TextModel), zap.Duration("timeout", cfg.TextTimeout))
		return &openAITextClient{
			client:      openaigo.NewClientWithConfig(openaiConfig),
			model:       cfg.TextModel,
			apiKeySet:   strings.TrimSpace(cfg.TextAPIKey) != "",
			temperature: float32(cfg.TextTemperature),
			maxTokens:   cfg.TextMaxTokens,
			logger:      logger.Named("OpenAITextClient"),
		}, nil
	case "ollama":
		// api.NewClient требует URL без суффикса /v1
		baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.TextBaseURL, "/"), "/v1")
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
		}
		logger.Info("Ollama text client created",
			zap.String("base_url", baseURL), zap.String("model", cfg.TextModel), zap.Duration("timeout", cfg.TextTimeout))
		return &ollamaTextClient{
			client:      api.NewClient(parsedURL, &http.Client{Timeout: cfg.TextTimeout}),
			model:       cfg.TextModel,
			timeout:     cfg.TextTimeout,
			temperature: cfg.TextTemperature,
			maxTokens:   cfg.TextMaxTokens,
			logger:      logger.Named("OllamaTextClient"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный тип текстового клиента: '%s'", models.ErrConfiguration, cfg.TextProvider)
	}
}

// --- OpenAI ---

type openAITextClient struct {
	client      *openaigo.Client
	model       string
	apiKeySet   bool
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

func (c *openAITextClient) DefaultModel() string { return c.model }

func (c *openAITextClient) Generate(ctx context.Context, req TextRequest) (string, UsageInfo, error) {
	var usage UsageInfo
	model := firstNonEmpty(req.Model, c.model)
	if !c.apiKeySet {
		return "", usage, fmt.Errorf("%w: text model api key is not set", models.ErrConfiguration)
	}

	user := openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser}
	if len(req.Images) == 0 {
		user.Content = req.User
	} else {
		user.MultiContent = []openaigo.ChatMessagePart{{Type: openaigo.ChatMessagePartTypeText, Text: req.User}}
		for _, img := range req.Images {
			user.MultiContent = append(user.MultiContent, openaigo.ChatMessagePart{
				Type: openaigo.ChatMessagePartTypeImageURL,
				ImageURL: &openaigo.ChatMessageImageURL{
					URL:    "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
					Detail: openaigo.ImageURLDetailLow,
				},
			})
		}
	}

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: req.System},
			user,
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject},
	})
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("Text model request failed", zap.String("model", model), zap.Duration("duration", duration), zap.Error(err))
		textRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", usage, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		textRequestsTotal.WithLabelValues(model, "error_empty_response").Inc()
		return "", usage, errors.New("text model returned an empty response")
	}

	textRequestsTotal.WithLabelValues(model, "success").Inc()
	textRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	text := resp.Choices[0].Message.Content

	if resp.Usage.TotalTokens > 0 {
		usage = UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	} else {
		usage = estimateUsage(model, req.System+"\n"+req.User, text)
	}
	observeUsage(model, usage)
	c.logger.Debug("Text model response received",
		zap.String("model", model), zap.Duration("duration", duration), zap.Int("length", len(text)),
		zap.Int("prompt_tokens", usage.PromptTokens), zap.Int("completion_tokens", usage.CompletionTokens))
	return text, usage, nil
}

// --- Ollama ---

type ollamaTextClient struct {
	client      *api.Client
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

func (c *ollamaTextClient) DefaultModel() string { return c.model }

func (c *ollamaTextClient) Generate(ctx context.Context, req TextRequest) (string, UsageInfo, error) {
	var usage UsageInfo
	model := firstNonEmpty(req.Model, c.model)

	user := api.Message{Role: "user", Content: req.User}
	for _, img := range req.Images {
		user.Images = append(user.Images, api.ImageData(img.Data))
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "system", Content: req.System}, user},
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("Ollama request failed", zap.String("model", model), zap.Duration("duration", duration), zap.Error(err))
		textRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", usage, err
	}
	if resp.Message.Content == "" {
		textRequestsTotal.WithLabelValues(model, "error_empty_response").Inc()
		return "", usage, errors.New("ollama returned an empty response")
	}

	textRequestsTotal.WithLabelValues(model, "success").Inc()
	textRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	usage = UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(model, req.System+"\n"+req.User, resp.Message.Content)
	}
	observeUsage(model, usage)
	return resp.Message.Content, usage, nil
}

// estimateUsage грубая оценка токенов через tiktoken, когда провайдер не вернул usage.
func estimateUsage(model, prompt, completion string) UsageInfo {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return UsageInfo{}
		}
	}
	p := len(enc.Encode(prompt, nil, nil))
	c := len(enc.Encode(completion, nil, nil))
	return UsageInfo{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c, Estimated: true}
}

func observeUsage(model string, usage UsageInfo) {
	if usage.TotalTokens == 0 {
		return
	}
	textPromptTokens.WithLabelValues(model).Observe(float64(usage.PromptTokens))
	textCompletionTokens.WithLabelValues(model).Observe(float64(usage.CompletionTokens))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
