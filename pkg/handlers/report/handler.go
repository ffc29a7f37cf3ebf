package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/estate-tools/reportpipe/pkg/models/api"
	"github.com/estate-tools/reportpipe/pkg/models/domain"
	reportsvc "github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Service is the slice of the report catalog the HTTP surface needs.
type Service interface {
	ListReports(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (*domain.ReportSpec, error)
	Generate(ctx context.Context, name string, params map[string]any) (*reportsvc.Result, string, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names, err := h.svc.ListReports(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(ctx, w, http.StatusOK, names)
}

func (h *Handler) DescribeReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "report")

	spec, err := h.svc.Describe(ctx, name)
	if err != nil {
		if errors.Is(err, reportsvc.ErrSpecNotFound) {
			writeError(ctx, w, http.StatusNotFound, "report not found")
			return
		}
		writeError(ctx, w, http.StatusInternalServerError, "failed to load report spec")
		return
	}

	writeJSON(ctx, w, http.StatusOK, summarize(spec))
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "report")

	var req api.GenerateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	params := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		params[k] = v
	}

	res, path, err := h.svc.Generate(ctx, name, params)
	if err != nil {
		if errors.Is(err, reportsvc.ErrSpecNotFound) {
			writeError(ctx, w, http.StatusNotFound, "report not found")
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("report", name).Msg("report generation failed")
		writeError(ctx, w, http.StatusInternalServerError, "report generation failed")
		return
	}

	writeJSON(ctx, w, http.StatusOK, api.GenerateResponse{
		Report:        name,
		OutputPath:    path,
		Degraded:      res.Values.Degraded,
		FailedQueries: res.Values.FailedQueries,
		Warnings:      res.Values.Warnings,
		Values:        res.Values.Values,
	})
}

func summarize(spec *domain.ReportSpec) api.ReportSummary {
	summary := api.ReportSummary{
		Name:              spec.Name,
		Variables:         len(spec.Variables),
		RepeatingSections: len(spec.RepeatingSections),
		Queries:           []api.QuerySummary{},
	}
	for name, q := range spec.Queries {
		summary.Queries = append(summary.Queries, api.QuerySummary{
			Name:        name,
			Parameters:  q.Parameters,
			Description: q.Description,
		})
	}
	sort.Slice(summary.Queries, func(i, j int) bool {
		return summary.Queries[i].Name < summary.Queries[j].Name
	})
	return summary
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, api.Error{Message: msg})
}
