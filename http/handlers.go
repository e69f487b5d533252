package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/db"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

//go:embed templates/index.html
var indexHTML string

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

// genericFailure is shown instead of internal error detail.
const genericFailure = "prediction failed"

// PredictionHistory is the optional audit log behind /api/history.
type PredictionHistory interface {
	Append(ctx context.Context, p *ml.Prediction) error
	Recent(ctx context.Context, limit int) ([]db.HistoryEntry, error)
}

// PageConfig controls the page chrome.
type PageConfig struct {
	Title    string
	Subtitle string
	// Sidebar places the form in a sidebar instead of the main body.
	Sidebar bool
	Locale  string
}

// Deps are the collaborators the handlers need. Schema and Predictor are required.
type Deps struct {
	Schema         *ml.Schema
	Predictor      ml.ModelProvider
	Probabilities  bool
	History        PredictionHistory
	Observer       ml.PredictionObserver
	Metrics        http.Handler
	Page           PageConfig
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Handlers struct {
	deps     Deps
	renderer *Renderer
	logger   *zap.Logger
}

func NewHandlers(deps Deps) (*Handlers, error) {
	if deps.Schema == nil {
		return nil, errors.New("schema is required")
	}
	if deps.Predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handlers{
		deps:     deps,
		renderer: NewRenderer(deps.Page.Locale),
		logger:   deps.Logger,
	}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /{$}", h.handleSubmit)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/ws", h.handleWebSocket)
	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics)
	}
}

// predict runs validate → assemble → predict → record for one submission.
func (h *Handlers) predict(ctx context.Context, raw map[string]string) (*ml.Prediction, error) {
	values, err := ParseForm(h.deps.Schema, raw)
	if err != nil {
		h.observeError("form")
		return nil, err
	}
	record, err := ml.Assemble(h.deps.Schema, values)
	if err != nil {
		h.observeError("assemble")
		return nil, err
	}
	prediction, err := h.deps.Predictor.Predict(ctx, record)
	if err != nil {
		return nil, err
	}
	if h.deps.History != nil {
		if err := h.deps.History.Append(ctx, prediction); err != nil {
			h.logger.Warn("failed to record prediction", zap.Error(err))
		}
	}
	return prediction, nil
}

func (h *Handlers) observeError(stage string) {
	if h.deps.Observer != nil {
		h.deps.Observer.ObserveError(stage)
	}
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, h.newPage(nil, nil))
}

func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := h.newPage(nil, nil)
		page.Error = "could not read the submitted form"
		h.renderPage(w, http.StatusBadRequest, page)
		return
	}
	raw := make(map[string]string, len(h.deps.Schema.Fields))
	for _, field := range h.deps.Schema.Fields {
		if vs, ok := r.PostForm[field.Key]; ok && len(vs) > 0 {
			raw[field.Key] = vs[0]
		}
	}

	prediction, err := h.predict(r.Context(), raw)
	var fe *FormError
	switch {
	case errors.As(err, &fe):
		h.renderPage(w, http.StatusUnprocessableEntity, h.newPage(raw, fe))
		return
	case err != nil:
		h.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		page := h.newPage(raw, nil)
		page.Error = genericFailure
		h.renderPage(w, http.StatusInternalServerError, page)
		return
	}

	page := h.newPage(raw, nil)
	page.Result = h.renderer.RenderResult(prediction, h.deps.Schema)
	h.renderPage(w, http.StatusOK, page)
}

func (h *Handlers) renderPage(w http.ResponseWriter, status int, page *pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, page); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
	}
}

type predictRequest struct {
	Values map[string]any `json:"values"`
}

type featureJSON struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type predictResponse struct {
	Label      string        `json:"label"`
	LabelID    int           `json:"label_id"`
	Confidence *float64      `json:"confidence,omitempty"`
	Features   []featureJSON `json:"features"`
	Cached     bool          `json:"cached"`
}

func newPredictResponse(p *ml.Prediction) *predictResponse {
	resp := &predictResponse{
		Label:      p.Label,
		LabelID:    p.LabelID,
		Confidence: p.Confidence,
		Features:   make([]featureJSON, p.Record.Len()),
		Cached:     p.Cached,
	}
	for i, v := range p.Record.Values {
		resp.Features[i].Value = v
		if i < len(p.Record.Names) {
			resp.Features[i].Name = p.Record.Names[i]
		}
	}
	return resp
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Values == nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: `missing "values"`})
		return
	}

	prediction, err := h.predictJSON(r.Context(), req.Values)
	if err != nil {
		status, body := h.apiError(r.Context(), err)
		respondJSON(w, status, body)
		return
	}
	respondJSON(w, http.StatusOK, newPredictResponse(prediction))
}

func (h *Handlers) predictJSON(ctx context.Context, values map[string]any) (*ml.Prediction, error) {
	raw, err := rawFromJSON(values)
	if err != nil {
		h.observeError("form")
		return nil, err
	}
	return h.predict(ctx, raw)
}

// apiError maps a predict error to a status and a client-safe body.
func (h *Handlers) apiError(ctx context.Context, err error) (int, errorResponse) {
	var fe *FormError
	if errors.As(err, &fe) {
		return http.StatusUnprocessableEntity, errorResponse{Error: fe.Error(), Fields: fe.Map()}
	}
	h.logger.Error("prediction failed", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
	return http.StatusInternalServerError, errorResponse{Error: genericFailure}
}

type fieldJSON struct {
	ml.Field
	Kind string `json:"kind"`
	Step string `json:"step"`
}

type schemaResponse struct {
	Variant ml.Variant  `json:"variant"`
	Fields  []fieldJSON `json:"fields"`
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	resp := schemaResponse{Variant: h.deps.Schema.Variant}
	for _, f := range h.deps.Schema.Fields {
		resp.Fields = append(resp.Fields, fieldJSON{Field: f, Kind: f.Kind.String(), Step: f.Step()})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"probabilities": h.deps.Probabilities,
	})
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "prediction history is disabled"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = l
	}

	entries, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read history", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read history"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// respondJSON writes data as a JSON body with status.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type pageView struct {
	Title    string
	Subtitle string
	Sidebar  bool
	Fields   []fieldView
	Error    string
	Result   *ResultView
}

type fieldView struct {
	Key     string
	Label   string
	Select  bool
	Value   string
	Min     string
	Max     string
	Step    string
	Options []optionView
	Error   string
}

type optionView struct {
	Label    string
	Selected bool
}

// newPage echoes submitted values back into the widgets so they persist
// across submits; fields without a submitted value show their initial value.
func (h *Handlers) newPage(raw map[string]string, fe *FormError) *pageView {
	page := &pageView{
		Title:    h.deps.Page.Title,
		Subtitle: h.deps.Page.Subtitle,
		Sidebar:  h.deps.Page.Sidebar,
	}
	for _, field := range h.deps.Schema.Fields {
		value, ok := raw[field.Key]
		if !ok {
			value = field.Initial()
		}
		fv := fieldView{
			Key:    field.Key,
			Label:  field.Label,
			Select: field.Kind == ml.FieldEnum,
			Value:  value,
			Step:   field.Step(),
		}
		if field.Min != nil {
			fv.Min = field.Format(*field.Min)
		}
		if field.Max != nil {
			fv.Max = field.Format(*field.Max)
		}
		for _, opt := range field.Options {
			fv.Options = append(fv.Options, optionView{Label: opt.Label, Selected: opt.Label == value})
		}
		if fe != nil {
			fv.Error = fe.For(field.Key)
		}
		page.Fields = append(page.Fields, fv)
	}
	return page
}
