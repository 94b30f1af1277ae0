package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	pkgerrors "thoughtgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// base carries what every handler needs to answer a request
type base struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

func (b base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func (b base) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return pkgerrors.NewValidationError("body", "must be a valid JSON object: "+err.Error())
	}
	return nil
}

// pathParam returns a decoded URL parameter. chi matches on the raw path when
// the request carries escaped characters such as %2F, so those values arrive
// still escaped.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}
