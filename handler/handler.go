package handler

import (
	"encoding/json"
	"net/http"
)

func Index(w http.ResponseWriter) {
	Message(w, http.StatusOK, "tube visibility inspector: POST /check with videoIds and/or channelReference")
}

// envelope is the body of every non-result response.
type envelope struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func Message(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, envelope{Message: message})
}

func Error(w http.ResponseWriter, status int, message string, err error) {
	writeEnvelope(w, status, envelope{Message: message, Error: err.Error()})
}

// writeEnvelope ignores write errors, the client is gone by then.
func writeEnvelope(w http.ResponseWriter, status int, e envelope) {
	_ = JSON(w, status, e)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.WriteHeader(status)
	_, err = w.Write(body)

	return err
}
