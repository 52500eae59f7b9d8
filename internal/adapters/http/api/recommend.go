package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

var validate = validator.New()

// recommendRequest mirrors the OpenAPI schema for POST /recommend.
type recommendRequest struct {
	Favorites []string `json:"favorites" validate:"required,min=1"`
}

type recommendResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps         Dependencies
	logger       logger.Logger
	maxBodyBytes int64
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps Dependencies, l logger.Logger, maxBodyBytes int64) *RecommendHandler {
	return &RecommendHandler{deps: deps, logger: l, maxBodyBytes: maxBodyBytes}
}

// HandleRecommend handles POST /recommend requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}
	ctx := r.Context()
	start := time.Now()

	var req recommendRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		metrics.RecordRecommendRequest("invalid")
		h.logger.Debug(ctx, "undecodable recommend body",
			logger.String("request_id", RequestIDFrom(ctx)), logger.Error(err))
		writeError(w, http.StatusBadRequest, msgNoFavorites)
		return
	}
	if err := validate.Struct(req); err != nil {
		metrics.RecordRecommendRequest("invalid")
		writeError(w, http.StatusBadRequest, msgNoFavorites)
		return
	}

	recs, err := h.deps.Recommend(ctx, req.Favorites)
	metrics.RecordRecommendLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			metrics.RecordRecommendRequest("invalid")
			writeError(w, http.StatusBadRequest, msgNoFavorites)
			return
		}
		metrics.RecordRecommendRequest("error")
		h.logger.Error(ctx, "recommendation failed",
			logger.String("request_id", RequestIDFrom(ctx)), logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgRecommendFailed)
		return
	}

	metrics.RecordRecommendRequest("ok")
	metrics.RecordRecommendResults(len(recs))
	writeJSON(w, http.StatusOK, recommendResponse{Recommendations: recs})
}
