package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"triagekit/internal/domain"
	"triagekit/internal/enrich"
	"triagekit/internal/predict"
	"triagekit/internal/similar"
	"triagekit/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store     store.Store
	Enricher  *enrich.Enricher
	Predictor *predict.Service
	BasePath  string
	Auth      AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"incident not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the TriageKit API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("TriageKit API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerPredict(group, cfg.Predictor)
	registerEnrich(group, cfg.Enricher, cfg.Store)
	registerIncidents(group, cfg.Store)
	registerStats(group, cfg.Store)
	registerRuns(group, cfg.Store)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerPredict(api huma.API, svc *predict.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "predict-team",
		Method:      http.MethodPost,
		Path:        "/predict",
		Summary:     "Predict owning team",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PredictRequest `json:"body"`
	}) (*struct {
		Body domain.Prediction `json:"body"`
	}, error) {
		if input.Body.Title == "" && input.Body.Description == "" && input.Body.Workload == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title, description, or workload is required", nil)
		}
		text := strings.TrimSpace(input.Body.Title + " " + input.Body.Description)
		p := svc.Predict(text, input.Body.Workload, input.Body.Monitor)
		return &struct {
			Body domain.Prediction `json:"body"`
		}{Body: p}, nil
	})
}

func registerEnrich(api huma.API, e *enrich.Enricher, s store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "enrich-incidents",
		Method:      http.MethodPost,
		Path:        "/enrich",
		Summary:     "Enrich a batch of incidents",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body EnrichRequest `json:"body"`
	}) (*struct {
		Body EnrichResponse `json:"body"`
	}, error) {
		if len(input.Body.Incidents) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "incidents is required", nil)
		}
		enriched, summary := e.EnrichBatch(input.Body.Incidents)
		resp := EnrichResponse{Incidents: enriched, Summary: summary}
		if input.Body.Persist {
			source := input.Body.Source
			if source == "" {
				source = "api"
			}
			run := store.NewRun(source, summary)
			if err := s.SaveRun(ctx, run, enriched); err != nil {
				return nil, handleError(err)
			}
			resp.RunID = run.ID
		}
		return &struct {
			Body EnrichResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerIncidents(api huma.API, s store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-incidents",
		Method:      http.MethodGet,
		Path:        "/incidents",
		Summary:     "List stored incidents",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status"`
		Priority string `query:"priority"`
		Category string `query:"category"`
		Team     string `query:"team"`
		Search   string `query:"search"`
		Limit    int    `query:"limit" default:"100"`
	}) (*struct {
		Body IncidentListResponse `json:"body"`
	}, error) {
		items, err := s.List(ctx, store.Filters{
			Status:   input.Status,
			Priority: input.Priority,
			Category: input.Category,
			Team:     input.Team,
			Search:   input.Search,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Incident{}
		}
		return &struct {
			Body IncidentListResponse `json:"body"`
		}{Body: IncidentListResponse{Items: items, Total: len(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-incident",
		Method:      http.MethodGet,
		Path:        "/incidents/{id}",
		Summary:     "Get incident",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		inc, err := s.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: inc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "similar-incidents",
		Method:      http.MethodGet,
		Path:        "/incidents/{id}/similar",
		Summary:     "Find similar incidents",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body SimilarResponse `json:"body"`
	}, error) {
		target, err := s.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		corpus, err := s.List(ctx, store.Filters{})
		if err != nil {
			return nil, handleError(err)
		}
		matches := similar.Find(target, corpus)
		return &struct {
			Body SimilarResponse `json:"body"`
		}{Body: SimilarResponse{Items: matches}}, nil
	})
}

func registerStats(api huma.API, s store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "incident-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Incident statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Stats `json:"body"`
	}, error) {
		stats, err := s.Stats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stats `json:"body"`
		}{Body: stats}, nil
	})
}

func registerRuns(api huma.API, s store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List enrichment runs",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RunListResponse `json:"body"`
	}, error) {
		runs, err := s.ListRuns(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if runs == nil {
			runs = []store.Run{}
		}
		return &struct {
			Body RunListResponse `json:"body"`
		}{Body: RunListResponse{Items: runs}}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>TriageKit API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}
