// Package api exposes the customization engine over HTTP for the
// shell UI.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/pagecraft/advice"
	"github.com/hazyhaar/pagecraft/bridge"
	"github.com/hazyhaar/pagecraft/engine"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/preset"
	"github.com/hazyhaar/pagecraft/templates"
	"github.com/hazyhaar/pagecraft/transform"
)

// Server wires the engine surface to HTTP handlers.
type Server struct {
	engine    *engine.Engine
	advisor   *advice.Advisor // nil when unconfigured
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewServer creates a Server. advisor may be nil; the advice endpoint
// then reports 503.
func NewServer(eng *engine.Engine, advisor *advice.Advisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    eng,
		advisor:   advisor,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/mode", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]string{"mode": string(s.engine.Mode())})
		})
		r.Put("/mode", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Mode string `json:"mode"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.engine.SetMode(r.Context(), engine.Mode(req.Mode)); err != nil {
				writeError(w, 400, err)
				return
			}
			writeJSON(w, 200, map[string]string{"mode": req.Mode})
		})

		r.Get("/selection", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{
				"selection": s.engine.Selection(),
				"hover":     s.engine.Hover(),
			})
		})
		r.Delete("/selection", func(w http.ResponseWriter, _ *http.Request) {
			s.engine.ClearSelection()
			writeJSON(w, 200, map[string]string{"status": "cleared"})
		})

		r.Post("/transformations", s.handleTransform)

		r.Post("/presets/{name}", func(w http.ResponseWriter, r *http.Request) {
			rep, err := s.engine.ApplyPreset(r.Context(), preset.Name(chi.URLParam(r, "name")))
			if err != nil {
				if errors.Is(err, preset.ErrUnknown) {
					writeError(w, 404, err)
					return
				}
				s.writeEngineError(w, err)
				return
			}
			writeJSON(w, 200, rep)
		})
		r.Get("/presets", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"presets": preset.Names()})
		})

		r.Get("/analysis", func(w http.ResponseWriter, r *http.Request) {
			res, err := s.engine.Analyze(r.Context())
			if err != nil {
				s.writeEngineError(w, err)
				return
			}
			writeJSON(w, 200, res)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				list, err := s.engine.Templates().List(r.Context())
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]any{"templates": list})
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Name       string `json:"name"`
					URLPattern string `json:"urlPattern"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				t, err := s.engine.SaveTemplate(r.Context(), req.Name, req.URLPattern)
				if err != nil {
					writeError(w, 400, err)
					return
				}
				writeJSON(w, 201, t)
			})
			r.Get("/match", func(w http.ResponseWriter, r *http.Request) {
				matched, err := s.engine.Templates().Match(r.Context(), r.URL.Query().Get("url"))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]any{"templates": matched})
			})
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				t, err := s.engine.Templates().Get(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					s.writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, t)
			})
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				if err := s.engine.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
					s.writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "deleted"})
			})
			r.Post("/{id}/apply", func(w http.ResponseWriter, r *http.Request) {
				rep, err := s.engine.ApplyTemplate(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					if errors.Is(err, templates.ErrNotFound) {
						s.writeStoreError(w, err)
						return
					}
					s.writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, rep)
			})
			r.Post("/{id}/default", func(w http.ResponseWriter, r *http.Request) {
				if err := s.engine.Templates().SetDefault(r.Context(), chi.URLParam(r, "id")); err != nil {
					s.writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "default"})
			})
		})

		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			if err := s.engine.Reset(r.Context()); err != nil {
				s.writeEngineError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "reloaded"})
		})

		r.Get("/export/markdown", func(w http.ResponseWriter, r *http.Request) {
			md, err := s.engine.ExportMarkdown(r.Context())
			if err != nil {
				s.writeEngineError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Write([]byte(md))
		})

		r.Post("/advice", func(w http.ResponseWriter, r *http.Request) {
			if s.advisor == nil {
				writeJSON(w, 503, map[string]string{"error": "advice service not configured"})
				return
			}
			res, err := s.engine.Analyze(r.Context())
			if err != nil {
				s.writeEngineError(w, err)
				return
			}
			var req struct {
				URL string `json:"url"`
			}
			// Body is optional; default to nothing and let the advisor
			// work from the analysis alone.
			_ = json.NewDecoder(r.Body).Decode(&req)
			text, err := s.advisor.Advise(r.Context(), req.URL, res)
			if err != nil {
				writeError(w, 502, err)
				return
			}
			writeJSON(w, 200, map[string]string{"advice": text})
		})
	})

	return r
}

// handleTransform constructs and applies one rule. Markup replacements
// pass through bluemonday when the caller opts in; the engine itself
// takes content verbatim.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type       transform.Type   `json:"type"`
		Locator    locator.Locator  `json:"locator"`
		Parameters transform.Params `json:"parameters"`
		Sanitize   bool             `json:"sanitize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if req.Sanitize && req.Type == transform.TypeReplace && req.Parameters.Markup {
		req.Parameters.Content = s.sanitizer.Sanitize(req.Parameters.Content)
	}

	res, err := s.engine.ApplyRule(r.Context(), req.Type, req.Locator, req.Parameters)
	if err != nil {
		var verr *transform.ValidationError
		if errors.As(err, &verr) {
			writeError(w, 400, err)
			return
		}
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, 200, res)
}

// writeEngineError maps bridge failures: a vanished document is a
// conflict the UI should surface for a user-initiated retry, not a
// server fault.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, bridge.ErrDocumentGone) {
		writeError(w, 409, err)
		return
	}
	writeError(w, 500, err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, templates.ErrNotFound) {
		writeError(w, 404, err)
		return
	}
	writeError(w, 500, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
