package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"carousel-server/internal/models"
	"carousel-server/internal/prompt"
	"carousel-server/internal/schemas"

	"go.uber.org/zap"
)

// TextAdapter вызывает текстовую модель, вынимает JSON из ответа и проверяет его по контракту.
// Повторов внутри нет: политику повторов определяет вызывающий сервис.
type TextAdapter struct {
	client     TextClient
	jsonRepair bool
	logger     *zap.Logger
}

func NewTextAdapter(client TextClient, jsonRepair bool, logger *zap.Logger) *TextAdapter {
	return &TextAdapter{client: client, jsonRepair: jsonRepair, logger: logger.Named("TextAdapter")}
}

// DefaultModel модель провайдера по умолчанию.
func (a *TextAdapter) DefaultModel() string { return a.client.DefaultModel() }

// GeneratePlan возвращает проверенный план и сырой ответ модели.
// Ошибка всегда *models.TextGenError, кроме ErrConfiguration, которая возвращается как есть.
func (a *TextAdapter) GeneratePlan(ctx context.Context, p prompt.Prompt, images []models.ReferenceImage, model string) (*models.PlannerOutput, string, error) {
	var plan *models.PlannerOutput
	raw, err := a.generate(ctx, p, images, model, func(body string) error {
		var perr error
		plan, perr = schemas.ParsePlannerOutput([]byte(body))
		return perr
	})
	if err != nil {
		return nil, raw, err
	}
	return plan, raw, nil
}

// GeneratePatch то же для правки документа.
func (a *TextAdapter) GeneratePatch(ctx context.Context, p prompt.Prompt, model string) (*models.EditPatch, string, error) {
	var patch *models.EditPatch
	raw, err := a.generate(ctx, p, nil, model, func(body string) error {
		var perr error
		patch, perr = schemas.ParseEditPatch([]byte(body))
		return perr
	})
	if err != nil {
		return nil, raw, err
	}
	return patch, raw, nil
}

func (a *TextAdapter) generate(ctx context.Context, p prompt.Prompt, images []models.ReferenceImage, model string, parse func(string) error) (string, error) {
	model = firstNonEmpty(model, a.client.DefaultModel())
	log := a.logger.With(zap.String("model", model), zap.Int("attachments", len(images)))

	raw, _, err := a.client.Generate(ctx, TextRequest{System: p.System, User: p.User, Images: images, Model: model})
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			return "", err
		}
		log.Warn("Text model transport failure", zap.Error(err))
		return "", &models.TextGenError{Kind: models.TextErrorTransport, Model: model, Detail: err.Error(), Err: err}
	}

	body, err := schemas.ExtractJSONObject(raw, a.jsonRepair)
	if err != nil {
		log.Warn("Text model response contains no json object", zap.Int("raw_length", len(raw)))
		return raw, &models.TextGenError{Kind: models.TextErrorNonJSON, Model: model, Detail: err.Error(), Raw: raw, Err: err}
	}

	if err := parse(body); err != nil {
		var ce *models.ContractError
		detail := err.Error()
		if errors.As(err, &ce) {
			detail = strings.Join(ce.Violations, "; ")
		}
		log.Warn("Text model response violates the contract", zap.String("violations", detail))
		return raw, &models.TextGenError{Kind: models.TextErrorSchemaMismatch, Model: model, Detail: detail, Raw: raw, Err: err}
	}
	return raw, nil
}

// RankFallbackModels упорядочивает запасные модели по грубой оценке возможностей, исключая основную.
// Более крупные модели идут первыми, порядок из конфигурации сохраняется при равенстве.
func RankFallbackModels(primary string, candidates []string) []string {
	type ranked struct {
		name  string
		score int
	}
	var list []ranked
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(primary)): true}
	for _, c := range candidates {
		name := strings.TrimSpace(c)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, ranked{name: name, score: capabilityScore(key)})
	}
	// При равной оценке сохраняется порядок из конфигурации
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.name)
	}
	return out
}

func capabilityScore(name string) int {
	score := 0
	for _, marker := range []string{"pro", "large", "opus", "70b", "72b", "405b", "gpt-4o", "gpt-4.1", "gpt-5", "o3"} {
		if strings.Contains(name, marker) {
			score += 2
		}
	}
	for _, marker := range []string{"vision", "vl", "llava"} {
		if strings.Contains(name, marker) {
			score++
		}
	}
	for _, marker := range []string{"mini", "nano", "small", "tiny", "lite", "7b", "8b", "3b", "1b"} {
		if strings.Contains(name, marker) {
			score -= 2
		}
	}
	return score
}

// withTransportFallback вызывает call с основной моделью и один раз повторяет с запасной,
// если ошибка транспортная. Ошибки схемы и конфигурации не повторяются.
func withTransportFallback(ctx context.Context, log *zap.Logger, primary string, fallbacks []string, call func(ctx context.Context, model string) error) (string, error) {
	err := call(ctx, primary)
	if err == nil || !errors.Is(err, models.ErrTransport) {
		return primary, err
	}
	ranked := RankFallbackModels(primary, fallbacks)
	if len(ranked) == 0 {
		return primary, err
	}
	fallback := ranked[0]
	log.Warn("Retrying text generation with fallback model", zap.String("primary", primary), zap.String("fallback", fallback), zap.Error(err))
	if retryErr := call(ctx, fallback); retryErr != nil {
		return fallback, retryErr
	}
	return fallback, nil
}
