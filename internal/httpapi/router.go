package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs
// srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	jh := JobsHandler{Deps: d}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", jh.ByPath)

	rh := RulesHandler{Deps: d}
	mux.HandleFunc("/rules", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  rh.List,
		http.MethodPost: rh.Create,
	}))
	mux.HandleFunc("/rules/apply", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.ApplyAll,
	}))
	mux.HandleFunc("/rules/", rh.ByPath)

	sh := SearchesHandler{Deps: d}
	mux.HandleFunc("/searches", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  sh.List,
		http.MethodPost: sh.Create,
	}))
	mux.HandleFunc("/searches/", sh.ByPath)

	coh := CompaniesHandler{Deps: d}
	mux.HandleFunc("/companies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: coh.List,
	}))
	mux.HandleFunc("/companies/", coh.ByPath)

	reh := ResumeHandler{Deps: d}
	mux.HandleFunc("/resume", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: reh.Get,
		http.MethodPut: reh.Put,
	}))

	ch := ConfigHandler{Deps: d}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	sec := SecretsHandler{Deps: d}
	mux.HandleFunc("/api/secrets/scoring", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sec.SetScoringKey,
		http.MethodDelete: sec.DeleteScoringKey,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
