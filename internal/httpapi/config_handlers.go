package httpapi

import (
	"encoding/json"
	"net/http"

	"jobtriage-engine/internal/config"
)

type ConfigHandler struct {
	Deps
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	WriteJSON(w, http.StatusOK, cfg)
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"path": h.UserCfgPath})
}

// Put validates, persists and hot-swaps the running config. Validation
// warnings come back in the response; errors reject the write.
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	var next config.Config
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	normalized, res := config.NormalizeAndValidate(next)
	if !res.OK() {
		WriteJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	if err := config.SaveAtomic(h.UserCfgPath, normalized); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	h.CfgVal.Store(normalized)

	WriteJSON(w, http.StatusOK, map[string]any{
		"config":     normalized,
		"validation": res,
	})
}
