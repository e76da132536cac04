package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	t "github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type envelope map[string]any

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}

	maps.Copy(w.Header(), headers)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
	return nil
}

// readJSON decodes exactly one JSON value of at most 1MB into dst. Unknown keys are rejected.
// The returned error is safe to show to the client.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
	case errors.As(err, &typeErr):
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
	}

	// encoding/json has no typed error for unknown fields
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return fmt.Errorf("body contains unknown key %s", field)
	}
	return err
}

// GetCode maps an error kind to an HTTP status.
func GetCode(err error) int {
	switch {
	case errors.Is(err, t.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, t.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, t.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, t.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads a uuid path parameter.
func parseID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format", name)
	}
	return id, nil
}

// queryFloat returns def when the parameter is absent.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be a number", name)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("query parameter %s must be a non-negative integer", name)
	}
	return v, nil
}
