package httpapi

import (
	"encoding/json"
	"net/http"
)

type CompaniesHandler struct {
	Deps
}

func (h CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.DB.ListCompanies(r.Context(), h.Owner)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]companyView, 0, len(companies))
	for i := range companies {
		out = append(out, toCompanyView(&companies[i]))
	}
	WriteJSON(w, http.StatusOK, out)
}

// ByPath routes /companies/{id}/ban and /companies/{id}/unban.
func (h CompaniesHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/companies/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := parts[0]

	company, err := h.DB.GetCompany(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "company not found")
		return
	}

	switch parts[1] {
	case "ban":
		var req struct {
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := h.Lifecycle.BanCompany(r.Context(), &company, req.Reason); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "ban_failed", err.Error())
			return
		}
	case "unban":
		if err := h.Lifecycle.UnbanCompany(r.Context(), &company); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "unban_failed", err.Error())
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, toCompanyView(&company))
}
