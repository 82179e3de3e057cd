package httpapi

import (
	"encoding/json"
	"net/http"

	"jobtriage-engine/internal/config"
)

type SecretsHandler struct {
	Deps
}

type setScoringKeyReq struct {
	APIKey string `json:"api_key"`
}

func (h SecretsHandler) SetScoringKey(w http.ResponseWriter, r *http.Request) {
	var req setScoringKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "api_key required")
		return
	}
	if err := config.SetScoringAPIKey(req.APIKey); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteScoringKey(w http.ResponseWriter, r *http.Request) {
	if err := config.DeleteScoringAPIKey(); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to delete key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
