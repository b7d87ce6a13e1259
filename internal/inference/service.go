package inference

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/events"
	"github.com/sentiq-platform/sentiq/internal/metrics"
)

// persistTimeout bounds the background write of a completed inference.
const persistTimeout = 10 * time.Second

// EventPublisher receives completed-inference events. May be nil.
type EventPublisher interface {
	PublishInferenceCompleted(ctx context.Context, event events.InferenceEvent) error
}

// Service runs the classifier and persists results.
type Service struct {
	repo       *Repository
	classifier Classifier
	publisher  EventPublisher
	app        config.AppConfig
	cfg        config.InferenceConfig
}

// NewService creates a new inference Service. publisher may be nil.
func NewService(repo *Repository, classifier Classifier, publisher EventPublisher,
	app config.AppConfig, cfg config.InferenceConfig) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		publisher:  publisher,
		app:        app,
		cfg:        cfg,
	}
}

// Predict classifies the text and schedules persistence of the result. The
// caller gets the response as soon as the classifier returns; storage and
// event publishing happen in the background, like the original dashboard
// feed, and never fail the request.
func (s *Service) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	lang := req.Lang
	if lang == "" {
		lang = "en"
	}

	start := time.Now()
	label, score, err := s.classifier.Classify(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("classifying text: %w", err)
	}
	elapsed := time.Since(start)

	metrics.InferencesTotal.WithLabelValues(label).Inc()
	metrics.InferenceDuration.Observe(elapsed.Seconds())

	inf := &Inference{
		ID:              uuid.New(),
		Text:            req.Text,
		Lang:            lang,
		Label:           label,
		Score:           round(score, 5),
		InferenceTimeMS: round(float64(elapsed.Microseconds())/1000, 2),
		ModelVersion:    s.app.Model,
		CreatedAt:       time.Now().UTC(),
	}

	go s.persist(inf)

	return &PredictResponse{
		InferenceID:     inf.ID.String(),
		Label:           inf.Label,
		Score:           inf.Score,
		ModelVersion:    inf.ModelVersion,
		InferenceTimeMS: inf.InferenceTimeMS,
	}, nil
}

// persist runs detached from the request so a slow store never delays the
// caller.
func (s *Service) persist(inf *Inference) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if s.cfg.StoreEnabled && s.repo != nil {
		if err := s.repo.Insert(ctx, inf); err != nil {
			slog.Error("persisting inference", "error", err, "inference_id", inf.ID)
		}
	}

	if s.publisher != nil {
		err := s.publisher.PublishInferenceCompleted(ctx, events.InferenceEvent{
			InferenceID:  inf.ID.String(),
			Label:        inf.Label,
			Score:        inf.Score,
			ModelVersion: inf.ModelVersion,
			OccurredAt:   inf.CreatedAt,
		})
		if err != nil {
			slog.Warn("publishing inference event", "error", err)
		}
	}
}

// List returns the newest stored inferences for the dashboard.
func (s *Service) List(ctx context.Context, limit int) ([]Inference, error) {
	return s.repo.List(ctx, limit)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
