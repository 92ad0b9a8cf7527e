package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 16 << 20

var idPattern = regexp.MustCompile(`^[a-f0-9-]{1,36}$`)

// Response is the envelope of every API response.
type Response struct {
	Success bool             `json:"success"`
	Data    any              `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Errors  ValidationErrors `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeValidation(w http.ResponseWriter, errs ValidationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "validation failed",
		Errors:  errs,
	})
}

// decodeJSON reads a single JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.New("invalid request")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid request")
	}
	return nil
}

// pathID reads an entity id from the URL. Ids are lowercase UUIDs.
func pathID(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
