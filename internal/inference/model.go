package inference

import (
	"time"

	"github.com/google/uuid"
)

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	Text string `json:"text" validate:"required,min=1,max=5000"`
	Lang string `json:"lang" validate:"omitempty,max=16"`
}

// PredictResponse is returned to the caller.
type PredictResponse struct {
	InferenceID     string  `json:"inference_id"`
	Label           string  `json:"label"`
	Score           float64 `json:"score"`
	ModelVersion    string  `json:"model_version"`
	InferenceTimeMS float64 `json:"inference_time_ms"`
}

// Inference matches the inferences table schema.
type Inference struct {
	ID              uuid.UUID `json:"id"`
	Text            string    `json:"text"`
	Lang            string    `json:"lang"`
	Label           string    `json:"label"`
	Score           float64   `json:"score"`
	InferenceTimeMS float64   `json:"inference_time_ms"`
	ModelVersion    string    `json:"model_version"`
	CreatedAt       time.Time `json:"created_at"`
}
