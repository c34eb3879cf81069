package layout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"carousel-server/internal/models"
	"carousel-server/internal/schemas"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store источник пользовательских шаблонов.
type Store interface {
	GetLayout(ctx context.Context, id uuid.UUID) (*models.StoredLayout, error)
}

// Причины отката на шаблон по умолчанию.
const (
	ReasonEmpty            = "empty"
	ReasonUnknownBuiltin   = "unknown_builtin"
	ReasonMalformed        = "malformed"
	ReasonNotFound         = "not_found"
	ReasonStoreError       = "store_error"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonUndecodable      = "undecodable"
	ReasonInvalid          = "invalid"
)

// Resolver превращает идентификатор шаблона в нормализованный шаблон.
// Никогда не возвращает ошибку: при любой проблеме отдает шаблон по умолчанию и логирует причину.
type Resolver struct {
	store  Store
	logger *zap.Logger
}

// NewResolver store может быть nil, тогда работают только встроенные шаблоны.
func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger.Named("LayoutResolver")}
}

func (r *Resolver) Resolve(ctx context.Context, layoutID string) models.ResolvedLayout {
	id := strings.TrimSpace(layoutID)
	switch {
	case id == "":
		return r.fallback(id, ReasonEmpty, nil)
	case strings.HasPrefix(id, BuiltinPrefix):
		l, ok := Builtin(id)
		if !ok {
			return r.fallback(id, ReasonUnknownBuiltin, nil)
		}
		return models.ResolvedLayout{Layout: l, Source: "builtin"}
	case strings.HasPrefix(id, CustomPrefix):
		return r.resolveStored(ctx, id)
	default:
		return r.fallback(id, ReasonMalformed, nil)
	}
}

func (r *Resolver) resolveStored(ctx context.Context, id string) models.ResolvedLayout {
	storedID, err := uuid.Parse(strings.TrimPrefix(id, CustomPrefix))
	if err != nil {
		return r.fallback(id, ReasonMalformed, err)
	}
	if r.store == nil {
		return r.fallback(id, ReasonStoreUnavailable, nil)
	}

	stored, err := r.store.GetLayout(ctx, storedID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return r.fallback(id, ReasonNotFound, nil)
		}
		return r.fallback(id, ReasonStoreError, err)
	}

	resolved, reason, err := DecodeStored(stored)
	if err != nil {
		return r.fallback(id, reason, err)
	}
	resolved.Layout.ID = id
	resolved.Source = "stored"
	return resolved
}

// DecodeStored разбирает и нормализует запись шаблона. При ошибке возвращает причину отката.
func DecodeStored(stored *models.StoredLayout) (models.ResolvedLayout, string, error) {
	var out models.ResolvedLayout
	switch stored.Kind {
	case models.LayoutKindLayout:
		if err := json.Unmarshal(stored.Payload, &out.Layout); err != nil {
			return out, ReasonUndecodable, err
		}
	case models.LayoutKindVisual:
		var payload models.VisualLayoutPayload
		if err := json.Unmarshal(stored.Payload, &payload); err != nil {
			return out, ReasonUndecodable, err
		}
		out.Layout = payload.Layout
		out.AuthoringInstructions = strings.TrimSpace(payload.Instructions)
		if payload.Skeleton != nil && len(payload.Skeleton.Slides) > 0 {
			out.VisualSkeleton = payload.Skeleton.Clone()
		}
	default:
		return out, ReasonUndecodable, errors.New("unknown stored layout kind: " + string(stored.Kind))
	}

	Normalize(&out.Layout)
	if violations := schemas.ValidateLayout(&out.Layout); len(violations) > 0 {
		return out, ReasonInvalid, errors.New(strings.Join(violations, "; "))
	}
	return out, "", nil
}

// Normalize дополняет шаблон значениями по умолчанию и обрезает прямоугольники до [0,1].
func Normalize(l *models.Layout) {
	def := builtins[DefaultLayoutID]
	if l.Canvas.Width <= 0 || l.Canvas.Height <= 0 {
		l.Canvas = def.Canvas
	}
	if l.Zones == nil {
		l.Zones = map[string]models.Rect{}
	}
	for name, z := range l.Zones {
		l.Zones[name] = clampRect(z)
	}
	for i := range l.ImageSlots {
		l.ImageSlots[i].Bounds = clampRect(l.ImageSlots[i].Bounds)
		for j := range l.ImageSlots[i].SafeZones {
			l.ImageSlots[i].SafeZones[j] = clampRect(l.ImageSlots[i].SafeZones[j])
		}
	}
	if l.Defaults.Typography == (models.Typography{}) {
		l.Defaults.Typography = def.Defaults.Typography
	}
	if l.Defaults.Spacing == (models.Spacing{}) {
		l.Defaults.Spacing = def.Defaults.Spacing
	}
}

func clampRect(r models.Rect) models.Rect {
	r.X = clamp01(r.X)
	r.Y = clamp01(r.Y)
	r.W = clamp01(r.W)
	r.H = clamp01(r.H)
	if r.X+r.W > 1 {
		r.W = 1 - r.X
	}
	if r.Y+r.H > 1 {
		r.H = 1 - r.Y
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (r *Resolver) fallback(id, reason string, err error) models.ResolvedLayout {
	fields := []zap.Field{zap.String("layout_id", id), zap.String("reason", reason), zap.String("fallback_id", DefaultLayoutID)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == ReasonEmpty {
		r.logger.Info("Layout id not set, using default layout", fields...)
	} else {
		r.logger.Warn("Layout could not be resolved, falling back to default layout", fields...)
	}
	layoutFallbackTotal.WithLabelValues(reason).Inc()
	return models.ResolvedLayout{
		Layout:         Default(),
		Source:         "fallback",
		Fallback:       true,
		FallbackReason: reason,
	}
}
