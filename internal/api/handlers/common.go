package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/logger"
	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/types"
)

// Limits bounds the query parameters accepted by the read endpoints
type Limits struct {
	DefaultTradeLimit int
	MaxTradeLimit     int
	DefaultDepth      int
	MaxDepth          int
	MaxBatchSize      int
}

// DefaultLimits matches the defaults of the config package
func DefaultLimits() Limits {
	return Limits{
		DefaultTradeLimit: 100,
		MaxTradeLimit:     1000,
		DefaultDepth:      10,
		MaxDepth:          50,
		MaxBatchSize:      1000,
	}
}

// EngineHolder wraps the matching engine for dependency injection
type EngineHolder struct {
	Engine    *matching.Engine
	Limits    Limits
	StoreName string
}

// NewEngineHolder creates a new engine holder
func NewEngineHolder(engine *matching.Engine, limits Limits, storeName string) *EngineHolder {
	return &EngineHolder{Engine: engine, Limits: limits, StoreName: storeName}
}

// writeJSON writes a successful response
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeErrorResponse writes an error response
func writeErrorResponse(w http.ResponseWriter, httpErr *models.HTTPError) {
	logger.Warn("Request failed", map[string]interface{}{
		"error_code": httpErr.Error.Code,
		"status":     httpErr.StatusCode,
	})

	response := models.BaseResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Message:   httpErr.Error.Message,
		Error:     &httpErr.Error,
	}
	writeJSON(w, httpErr.StatusCode, response)
}

// decodeJSON parses the request body into dst
func decodeJSON(r *http.Request, dst interface{}) *models.HTTPError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.ErrBadRequest("Invalid JSON format", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// errorFromEngine maps an engine error onto its HTTP response
func errorFromEngine(err error) *models.HTTPError {
	var (
		notFound   *types.NotFoundError
		validation *types.ValidationError
		contention *types.ContentionError
	)

	switch {
	case errors.As(err, &notFound):
		return models.ErrNotFoundError(notFound.Kind, notFound.ID)
	case errors.As(err, &validation):
		return models.ErrValidation(validation.Error(), map[string]interface{}{"field": validation.Field})
	case errors.Is(err, types.ErrValidation):
		return models.ErrValidation(err.Error(), nil)
	case errors.As(err, &contention):
		return models.ErrContentionError(contention.AssetID)
	case errors.Is(err, types.ErrInvariant):
		logger.Error("Invariant violation", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ErrInvariant("Matching pass aborted")
	default:
		logger.Error("Engine failure", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ErrInternal("Operation failed, nothing was applied")
	}
}

// parseBoundedInt reads a positive integer query parameter, falling back to
// def and capping at max
func parseBoundedInt(r *http.Request, name string, def, max int) int {
	value := def
	if raw := r.URL.Query().Get(name); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			value = parsed
		}
	}
	if value > max {
		value = max
	}
	return value
}
