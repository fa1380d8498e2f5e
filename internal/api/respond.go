package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondErr converts any error into its forecasterr wire form and picks
// the matching HTTP status. Non-forecasterr errors are coerced to
// INTERNAL_ERROR via forecasterr.From.
func respondErr(w http.ResponseWriter, logger *zap.Logger, err error) {
	fe := forecasterr.From(err)
	status := forecasterr.HTTPStatus(fe.Code)
	if status >= 500 {
		logger.Error("request failed", zap.String("code", fe.Code), zap.String("detail", fe.Detail))
	} else {
		logger.Warn("request rejected", zap.String("code", fe.Code), zap.String("detail", fe.Detail))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(fe)
}
