package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	textRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_text_requests_total",
			Help: "Total number of requests to the text model.",
		},
		[]string{"model", "status"},
	)
	textRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_text_request_duration_seconds",
			Help:    "Histogram of text model request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model"},
	)
	textPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_text_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(500, 500, 16),
		},
		[]string{"model"},
	)
	textCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_text_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 16),
		},
		[]string{"model"},
	)
	imageResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_image_results_total",
			Help: "Image generation results by model, status and failure kind.",
		},
		[]string{"model", "status", "kind"},
	)
	imageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_image_request_duration_seconds",
			Help:    "Histogram of image model request durations.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model"},
	)
	generationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_generation_runs_total",
			Help: "Generation runs by terminal status.",
		},
		[]string{"status"},
	)
	generationRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carousel_generation_rejected_total",
			Help: "Generation starts rejected because a run is already in progress.",
		},
	)
	editOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_edit_operations_total",
			Help: "Edit patch operations by outcome.",
		},
		[]string{"outcome"},
	)
)
