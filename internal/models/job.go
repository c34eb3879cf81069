package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

type JobStage string

const (
	StageText            JobStage = "text"
	StageAestheticReview JobStage = "aesthetic_review"
	StageImages          JobStage = "images"
	StageDone            JobStage = "done"
	StageFailedText      JobStage = "failed_text"
	StageFailed          JobStage = "failed"
)

type ImageCounters struct {
	Total  int `json:"total"`
	Done   int `json:"done"`
	Failed int `json:"failed"`
}

// TraceEntry одна запись трассировки: фаза или отдельный запрос изображения.
type TraceEntry struct {
	Phase        JobStage  `json:"phase"`
	Status       string    `json:"status"`
	SlideIndex   int       `json:"slideIndex,omitempty"`
	RequestIndex int       `json:"requestIndex,omitempty"`
	SlotID       string    `json:"slotId,omitempty"`
	Model        string    `json:"model,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	Error        string    `json:"error,omitempty"`
	AssetID      string    `json:"assetId,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	At           time.Time `json:"at"`
}

// Статус записи трассировки: каждый запрос либо выполнен, либо учтен как неудачный.
const (
	TraceOK     = "ok"
	TraceFailed = "failed"
)

// Progress прогресс одной задачи. Меняется только через методы ниже и сохраняется после каждого изменения.
type Progress struct {
	Stage        JobStage      `json:"stage"`
	Images       ImageCounters `json:"images"`
	Trace        []TraceEntry  `json:"trace"`
	ReviewPasses int           `json:"reviewPasses"`
	TextModel    string        `json:"textModel,omitempty"`
}

// NewProgress начальный прогресс задачи.
func NewProgress() Progress {
	return Progress{Stage: StageText, Trace: []TraceEntry{}}
}

func (p *Progress) SetStage(stage JobStage) { p.Stage = stage }

func (p *Progress) Append(e TraceEntry) { p.Trace = append(p.Trace, e) }

// RecordImage увеличивает счетчики и добавляет запись о запросе изображения.
func (p *Progress) RecordImage(e TraceEntry) {
	if e.Status == TraceOK {
		p.Images.Done++
	} else {
		p.Images.Failed++
	}
	p.Append(e)
}

// Clone копия для безопасной передачи наружу.
func (p Progress) Clone() Progress {
	p.Trace = append([]TraceEntry{}, p.Trace...)
	return p
}

// JobState состояние генерации документа.
type JobState struct {
	DocumentID uuid.UUID  `json:"documentId"`
	JobID      uuid.UUID  `json:"jobId"`
	Status     JobStatus  `json:"status"`
	Error      *string    `json:"error"`
	Progress   Progress   `json:"progress"`
	RawOutput  string     `json:"rawOutput,omitempty"`
	Title      string     `json:"title,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IdleJobState состояние документа, для которого генерация ни разу не запускалась.
func IdleJobState(documentID uuid.UUID) JobState {
	return JobState{DocumentID: documentID, Status: JobStatusIdle, Progress: Progress{Trace: []TraceEntry{}}}
}
