package models

import (
	"errors"
	"fmt"
)

// Стандартные ошибки сервиса. Конкретные ошибки оборачивают их через %w.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration нет учетных данных модели или провайдер не настроен. Повтор бессмыслен.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport сетевая или HTTP ошибка при обращении к внешней модели.
	ErrTransport = errors.New("transport error")
	// ErrNonJSON модель ответила, но в ответе нет JSON объекта.
	ErrNonJSON = errors.New("model response is not json")
	// ErrContractViolation JSON не прошел проверку схемы.
	ErrContractViolation = errors.New("contract violation")
	// ErrAsset отдельное изображение не удалось сгенерировать, проверить или сохранить.
	ErrAsset = errors.New("asset error")
	// ErrGenerationInProgress для документа уже выполняется генерация.
	ErrGenerationInProgress = errors.New("generation already running")
	// ErrTextGenerationFailed фаза text завершилась неудачей, задача переведена в failed.
	ErrTextGenerationFailed = errors.New("text generation failed")
)

// TextErrorKind вид ошибки текстового адаптера.
type TextErrorKind string

const (
	TextErrorTransport      TextErrorKind = "transport"
	TextErrorNonJSON        TextErrorKind = "non_json"
	TextErrorSchemaMismatch TextErrorKind = "schema_mismatch"
)

// TextGenError типизированная ошибка текстового адаптера. Raw хранит исходный ответ модели.
type TextGenError struct {
	Kind   TextErrorKind
	Model  string
	Detail string
	Raw    string
	Err    error
}

func (e *TextGenError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("text generation %s (model %s): %s", e.Kind, e.Model, e.Detail)
	}
	return fmt.Sprintf("text generation %s (model %s)", e.Kind, e.Model)
}

func (e *TextGenError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case TextErrorTransport:
		errs = append(errs, ErrTransport)
	case TextErrorNonJSON:
		errs = append(errs, ErrNonJSON)
	case TextErrorSchemaMismatch:
		errs = append(errs, ErrContractViolation)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ContractError ошибка проверки схемы. Содержит исходный текст для диагностики.
type ContractError struct {
	Raw        string
	Violations []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation: %v", e.Violations)
}

func (e *ContractError) Unwrap() error { return ErrContractViolation }

// AssetErrorKind на каком шаге сломалось изображение.
type AssetErrorKind string

const (
	AssetErrorModel      AssetErrorKind = "model"
	AssetErrorValidation AssetErrorKind = "validation"
	AssetErrorUpload     AssetErrorKind = "upload"
	AssetErrorRecord     AssetErrorKind = "record"
)

// AssetError ошибка одного изображения. Никогда не прерывает всю генерацию.
type AssetError struct {
	Kind AssetErrorKind
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s error: %v", e.Kind, e.Err)
}

func (e *AssetError) Unwrap() []error { return []error{ErrAsset, e.Err} }

// NewAssetError оборачивает err, сохраняя уже типизированную AssetError.
func NewAssetError(kind AssetErrorKind, err error) *AssetError {
	var ae *AssetError
	if errors.As(err, &ae) {
		return ae
	}
	return &AssetError{Kind: kind, Err: err}
}
