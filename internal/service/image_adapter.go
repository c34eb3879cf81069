package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carousel-server/internal/models"

	"go.uber.org/zap"
)

// ErrImageValidation байты от модели не похожи на изображение заявленного формата.
var ErrImageValidation = errors.New("image validation failed")

// ImageModels два уровня моделей изображений: обычный и умеющий рисовать читаемый текст.
type ImageModels struct {
	Default string
	Text    string
}

// SelectImageModel запрос с текстом на изображении всегда идет в модель с текстом,
// иначе используется override запуска, если он задан.
func (m ImageModels) SelectImageModel(containsText bool, override string) string {
	if containsText {
		return firstNonEmpty(m.Text, override, m.Default)
	}
	return firstNonEmpty(override, m.Default)
}

// ImageAdapter вызывает модель изображений и проверяет результат.
type ImageAdapter struct {
	client   ImageClient
	models   ImageModels
	minBytes int
	logger   *zap.Logger
}

func NewImageAdapter(client ImageClient, imageModels ImageModels, minBytes int, logger *zap.Logger) *ImageAdapter {
	return &ImageAdapter{client: client, models: imageModels, minBytes: minBytes, logger: logger.Named("ImageAdapter")}
}

// Models настроенные уровни моделей.
func (a *ImageAdapter) Models() ImageModels { return a.models }

// Generate возвращает проверенное изображение или *models.AssetError.
func (a *ImageAdapter) Generate(ctx context.Context, req ImageRequest) (ImageResult, error) {
	start := time.Now()
	res, err := a.client.Generate(ctx, req)
	imageRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		imageResultsTotal.WithLabelValues(req.Model, "error", string(models.AssetErrorModel)).Inc()
		return ImageResult{}, models.NewAssetError(models.AssetErrorModel, err)
	}

	if err := a.validate(&res); err != nil {
		a.logger.Warn("Image payload rejected",
			zap.String("model", req.Model), zap.String("claimed_mime", res.MIMEType), zap.Int("size_bytes", len(res.Bytes)), zap.Error(err))
		imageResultsTotal.WithLabelValues(req.Model, "error", string(models.AssetErrorValidation)).Inc()
		return ImageResult{}, models.NewAssetError(models.AssetErrorValidation, err)
	}
	imageResultsTotal.WithLabelValues(req.Model, "success", "").Inc()
	return res, nil
}

// validate проверяет минимальный размер и совпадение сигнатуры с заявленным форматом.
// Пустой заявленный формат заменяется определенным по сигнатуре.
func (a *ImageAdapter) validate(res *ImageResult) error {
	if len(res.Bytes) < a.minBytes {
		return fmt.Errorf("%w: %d bytes is below the %d byte minimum", ErrImageValidation, len(res.Bytes), a.minBytes)
	}
	detected := SniffMIME(res.Bytes)
	if detected == "" {
		return fmt.Errorf("%w: payload is not a supported image", ErrImageValidation)
	}
	claimed := NormalizeMIME(res.MIMEType)
	if claimed == "" {
		res.MIMEType = detected
		return nil
	}
	if !IsAllowedImage(claimed) {
		return fmt.Errorf("%w: unsupported claimed type %q", ErrImageValidation, claimed)
	}
	if claimed != detected {
		return fmt.Errorf("%w: claimed %s but bytes look like %s", ErrImageValidation, claimed, detected)
	}
	res.MIMEType = claimed
	return nil
}
