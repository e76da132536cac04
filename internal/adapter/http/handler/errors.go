package handler

import "net/http"

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse returns 400 with a message per invalid field.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusBadRequest, errors)
}

// badRequestResponse is 400 for malformed input that never reached validation.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// internalErrorResponse returns 500 InternalServerError status.
// The message is not shown to the client; details go to the log.
func internalErrorResponse(w http.ResponseWriter) {
	errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// serviceErrorResponse writes a domain error with the status of its kind.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	code := GetCode(err)
	if code == http.StatusInternalServerError {
		internalErrorResponse(w)
		return
	}
	errorResponse(w, code, err.Error())
}
