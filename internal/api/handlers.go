package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/httputil"
	"github.com/ignite/offer-diagnostics/internal/report"
	"github.com/ignite/offer-diagnostics/internal/service/diagnostics"
	"github.com/ignite/offer-diagnostics/internal/workbook"
)

// Handlers serves the report endpoints.
type Handlers struct {
	svc       *diagnostics.Service
	maxUpload int64
	validate  *validator.Validate
}

// NewHandlers creates the report handlers. maxUpload bounds multipart bodies in bytes.
func NewHandlers(svc *diagnostics.Service, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handlers{svc: svc, maxUpload: maxUpload, validate: validator.New()}
}

// runSummary is the creation response; the full report is one GET away.
type runSummary struct {
	ID        string    `json:"id"`
	DayNew    string    `json:"day_new"`
	DayOld    string    `json:"day_old"`
	Today     string    `json:"today"`
	Actions   int       `json:"actions"`
	Tier1     int       `json:"tier1"`
	Tier2     int       `json:"tier2"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func summarize(rep *report.Report) runSummary {
	return runSummary{
		ID:        rep.ID,
		DayNew:    rep.DayNew.Format(domain.DateLayout),
		DayOld:    rep.DayOld.Format(domain.DateLayout),
		Today:     rep.Today.Format(domain.DateLayout),
		Actions:   len(rep.Actions),
		Tier1:     len(rep.TierActions(domain.Tier1)),
		Tier2:     len(rep.TierActions(domain.Tier2)),
		Warnings:  rep.Warnings,
		CreatedAt: rep.GeneratedAt,
	}
}

// CreateReport runs a report over an uploaded workbook.
//
//	POST /api/reports  (multipart: file, optional today=YYYY-MM-DD)
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httputil.BadRequest(w, "invalid multipart body: "+err.Error())
		return
	}
	today, ok := parseToday(w, r.FormValue("today"))
	if !ok {
		return
	}

	req := diagnostics.Request{Today: today}
	file, _, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		req.Workbook = file
	case errors.Is(err, http.ErrMissingFile):
		// the service decides whether a metric source can stand in
	default:
		httputil.BadRequest(w, "reading upload: "+err.Error())
		return
	}

	rep, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, summarize(rep))
}

type createJSONRequest struct {
	Today string        `json:"today" validate:"omitempty,datetime=2006-01-02"`
	Input *domain.Input `json:"input" validate:"required"`
}

// CreateReportJSON runs a report over an already normalised input.
//
//	POST /api/reports/json
func (h *Handlers) CreateReportJSON(w http.ResponseWriter, r *http.Request) {
	var body createJSONRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_request", "request failed validation", err.Error())
		return
	}
	today, ok := parseToday(w, body.Today)
	if !ok {
		return
	}
	rep, err := h.svc.Generate(r.Context(), diagnostics.Request{Input: body.Input, Today: today})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, summarize(rep))
}

// ListReports lists recent runs from the run history.
//
//	GET /api/reports?limit=20
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	type item struct {
		ID          string     `json:"id"`
		Today       *time.Time `json:"today,omitempty"`
		GeneratedAt *time.Time `json:"generated_at,omitempty"`
		Actions     int        `json:"actions"`
	}
	out := make([]item, 0, len(runs))
	for _, run := range runs {
		it := item{ID: run.ID, Actions: run.Actions}
		if run.Today.Valid {
			it.Today = &run.Today.Time
		}
		if run.GeneratedAt.Valid {
			it.GeneratedAt = &run.GeneratedAt.Time
		}
		out = append(out, it)
	}
	httputil.OK(w, map[string]any{"runs": out})
}

// GetReport returns a stored report.
//
//	GET /api/reports/{id}
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.OK(w, rep)
}

// GetActions returns the action list of a report, optionally one tier.
//
//	GET /api/reports/{id}/actions?tier=tier1
func (h *Handlers) GetActions(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	tier := r.URL.Query().Get("tier")
	switch domain.Tier(tier) {
	case domain.Tier1, domain.Tier2:
		httputil.OK(w, map[string]any{"tier": tier, "actions": rep.TierActions(domain.Tier(tier))})
	default:
		if tier != "" {
			httputil.BadRequest(w, "tier must be tier1 or tier2")
			return
		}
		httputil.OK(w, map[string]any{"actions": rep.Actions})
	}
}

// DownloadWorkbook renders a stored report as the nine-sheet workbook.
//
//	GET /api/reports/{id}/workbook
func (h *Handlers) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	name := "offer-diagnostics-" + rep.Today.Format(domain.DateLayout) + ".xlsx"
	httputil.Attachment(w, httputil.XLSXContentType, name, func(out io.Writer) error {
		return workbook.Write(out, rep)
	})
}

func (h *Handlers) load(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	rep, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return rep, true
}

func parseToday(w http.ResponseWriter, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		httputil.BadRequest(w, "today must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *datanorm.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_workbook", err.Error(),
			map[string]string{"sheet": verr.Sheet, "column": verr.Column})
	case errors.Is(err, diagnostics.ErrBadWorkbook), errors.Is(err, diagnostics.ErrNoWorkbook):
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_workbook", err.Error(), nil)
	case errors.Is(err, report.ErrNoMetrics):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "no_metrics", err.Error(), nil)
	case errors.Is(err, diagnostics.ErrRunning):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, diagnostics.ErrNotFound):
		httputil.NotFound(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
