package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"carousel-server/internal/compositor"
	"carousel-server/internal/models"
	"carousel-server/internal/prompt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultAspectRatio формат изображения без слота, совпадает с холстом 1080x1350.
const defaultAspectRatio = "4:5"

// imageTarget куда ляжет результат одного запроса.
type imageTarget struct {
	object      *models.Object
	width       int
	height      int
	aspectRatio string
	safeZones   []models.Rect
}

// imagePhase генерирует изображения по слайдам и запросам строго последовательно.
// Ошибка отдельного изображения записывается в трассировку и не прерывает цикл.
// Возвращает ошибку только если не удалось сохранить прогресс.
func (s *generationServiceImpl) imagePhase(ctx context.Context, r *run, l models.Layout, doc *models.Document, plan *models.PlannerOutput, refs []models.ReferenceImage, override string) error {
	r.progress.SetStage(models.StageImages)
	r.progress.Images = models.ImageCounters{Total: plan.ImageRequestCount()}
	if err := s.saveProgress(ctx, r); err != nil {
		return err
	}

	for _, sp := range plan.Slides {
		for k, req := range sp.Images {
			entry := s.generateOne(ctx, r, l, doc, sp.Index, k+1, req, refs, override)
			r.progress.RecordImage(entry)
			if err := s.saveProgress(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *generationServiceImpl) generateOne(ctx context.Context, r *run, l models.Layout, doc *models.Document, slideIndex, requestIndex int, req models.ImageRequest, refs []models.ReferenceImage, override string) models.TraceEntry {
	start := s.now()
	model := s.images.Models().SelectImageModel(req.ContainsText, override)
	entry := models.TraceEntry{Phase: models.StageImages, SlideIndex: slideIndex, RequestIndex: requestIndex, SlotID: req.SlotID, Model: model}
	log := r.log.With(zap.Int("slide", slideIndex), zap.Int("request", requestIndex), zap.String("slot_id", req.SlotID), zap.String("model", model))

	fail := func(err error) models.TraceEntry {
		kind := models.AssetErrorRecord
		var ae *models.AssetError
		if errors.As(err, &ae) {
			kind = ae.Kind
		}
		entry.Status = models.TraceFailed
		entry.ErrorKind = string(kind)
		entry.Error = err.Error()
		entry.DurationMs = s.now().Sub(start).Milliseconds()
		entry.At = s.now()
		log.Warn("Image request failed", zap.String("kind", string(kind)), zap.Error(err))
		return entry
	}

	slide := doc.SlideAt(slideIndex)
	if slide == nil {
		return fail(models.NewAssetError(models.AssetErrorRecord, fmt.Errorf("slide %d is not in the document", slideIndex)))
	}
	target := bindImageTarget(slide, l, req)

	imagePrompt := prompt.ImagePrompt(prompt.ImagePromptInput{
		Request:     req,
		Width:       target.width,
		Height:      target.height,
		AspectRatio: target.aspectRatio,
		SafeZones:   target.safeZones,
		Palette:     doc.Global.Palette,
		Tone:        r.doc.Brief.Tone,
	})
	res, err := s.images.Generate(ctx, ImageRequest{
		Prompt:      imagePrompt,
		Model:       model,
		Width:       target.width,
		Height:      target.height,
		AspectRatio: target.aspectRatio,
		References:  refs,
	})
	if err != nil {
		return fail(err)
	}

	asset := &models.Asset{
		ID:         uuid.New(),
		DocumentID: r.doc.ID,
		Type:       models.AssetTypeGenerated,
		Role:       models.AssetRoleContent,
		Name:       firstNonEmpty(req.Purpose, req.SlotID, "image"),
		Bucket:     models.BucketGenerated,
		Path:       generatedPath(r.doc.ID, r.jobID, slideIndex, requestIndex, res.MIMEType),
		MIMEType:   res.MIMEType,
		SizeBytes:  int64(len(res.Bytes)),
	}
	if err := s.storage.Upload(ctx, asset.Bucket, asset.Path, res.Bytes, asset.MIMEType); err != nil {
		return fail(models.NewAssetError(models.AssetErrorUpload, err))
	}
	if err := s.assets.Create(ctx, s.db, asset); err != nil {
		return fail(models.NewAssetError(models.AssetErrorRecord, err))
	}

	obj := target.object
	if obj == nil {
		obj = appendImageObject(slide, target)
	}
	id := asset.ID.String()
	obj.AssetID = &id

	entry.Status = models.TraceOK
	entry.AssetID = id
	entry.DurationMs = s.now().Sub(start).Milliseconds()
	entry.At = s.now()
	log.Info("Image generated", zap.String("asset_id", id), zap.Int("size_bytes", len(res.Bytes)))
	return entry
}

// bindImageTarget объект для запроса: по слоту, иначе первый незаполненный объект изображения на слайде.
// Если такого нет, target.object пустой и объект создается после успешной генерации.
func bindImageTarget(slide *models.Slide, l models.Layout, req models.ImageRequest) imageTarget {
	target := imageTarget{aspectRatio: req.AspectRatio}

	if slot, ok := l.Slot(req.SlotID); ok {
		target.width, target.height = compositor.SlotSize(l, slot)
		target.safeZones = append(append([]models.Rect{}, slot.SafeZones...), req.SafeZones...)
		for j := range slide.Objects {
			obj := &slide.Objects[j]
			if obj.Type == models.ObjectImage && obj.SlotID == slot.ID {
				target.object = obj
				break
			}
		}
		return target
	}

	target.safeZones = req.SafeZones
	for j := range slide.Objects {
		obj := &slide.Objects[j]
		if obj.Type == models.ObjectImage && obj.AssetID == nil {
			target.object = obj
			target.width, target.height = int(obj.Width), int(obj.Height)
			return target
		}
	}
	if target.aspectRatio == "" {
		target.aspectRatio = defaultAspectRatio
	}
	return target
}

// appendImageObject добавляет объект изображения в самый нижний слой слайда.
// Ширина на весь слайд, высота по формату запроса.
func appendImageObject(slide *models.Slide, target imageTarget) *models.Object {
	w := float64(slide.Width)
	h := float64(slide.Height)
	if rw, rh, ok := parseRatio(target.aspectRatio); ok && w > 0 {
		h = w * rh / rw
	}
	id := models.ImageObjectID("extra")
	for n := 2; slide.Object(id) != nil; n++ {
		id = models.ImageObjectID("extra_" + strconv.Itoa(n))
	}
	obj := models.Object{
		Type:   models.ObjectImage,
		ID:     id,
		Y:      (float64(slide.Height) - h) / 2,
		Width:  w,
		Height: h,
	}
	slide.Objects = append([]models.Object{obj}, slide.Objects...)
	return &slide.Objects[0]
}

// generatedPath путь сгенерированного изображения в бакете generated.
func generatedPath(documentID, jobID uuid.UUID, slideIndex, requestIndex int, mimeType string) string {
	return fmt.Sprintf("%s/%s/slide_%d_%d.%s", documentID, jobID, slideIndex, requestIndex, extensionFor(mimeType))
}
