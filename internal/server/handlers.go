package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/insights"
	"github.com/sells-group/market-advisor/internal/market"
	"github.com/sells-group/market-advisor/internal/narrative"
	"github.com/sells-group/market-advisor/internal/table"
)

// Multipart fields of a business-insights upload.
const (
	uploadField = "kpi_file"
	// sheetField names the worksheet to read from an XLSX upload.
	sheetField = "sheet"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Advisor backend running"})
}

// MarketEntryResponse is the data of a market-entry response.
type MarketEntryResponse struct {
	*market.Evaluation
	ExplainableSummary string           `json:"explainable_summary"`
	NarrativeSource    narrative.Source `json:"narrative_source"`
}

func (s *Server) handleMarketEntry(w http.ResponseWriter, r *http.Request) {
	req, err := market.DecodeRequest(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, warning, err := s.MarketEntry(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, resp, "", warning)
}

// MarketEntry scores req against the current dataset and explains the
// ranking. The returned warning is non-empty when the explanation fell back
// to local text.
func (s *Server) MarketEntry(ctx context.Context, req market.Request) (*MarketEntryResponse, string, error) {
	ds, err := market.LoadDataset(s.datasetPath(), s.rules.Keys())
	if err != nil {
		return nil, "", err
	}
	eval, err := market.Evaluate(req, ds, s.rules)
	if err != nil {
		return nil, "", err
	}

	story := s.explainer.Explain(ctx, narrative.MarketInput{
		Profile:   req.Profile,
		Weights:   eval.Weights,
		Leaders:   eval.Leaders(),
		Breakdown: eval.Breakdown,
	})
	return &MarketEntryResponse{
		Evaluation:         eval,
		ExplainableSummary: story.Text,
		NarrativeSource:    story.Source,
	}, story.Warning(), nil
}

func (s *Server) datasetPath() string {
	if s.dataPath != "" {
		return s.dataPath
	}
	return market.ResolvePath(s.dataCSV)
}

func (s *Server) handleBusinessInsights(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "multipart/form-data") {
		writeError(w, r, apperr.Validation("Content-Type must be multipart/form-data."))
		return
	}

	t, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := insights.Analyze(t, insights.Options{Now: s.now})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, report, "KPI analysis complete.", "")
}

// readUpload reads the kpi_file part as CSV, or as XLSX when the filename
// says so. An optional sheet field picks the worksheet.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*table.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validationf("Uploaded file exceeds the %d MB limit.", s.cfg.MaxUploadMB)
		}
		return nil, apperr.ValidationWrap(err, "No file uploaded. Please attach a CSV file.")
	}
	defer file.Close() //nolint:errcheck
	if header.Filename == "" {
		return nil, apperr.Validation("No file uploaded. Please attach a CSV file.")
	}

	t, err := parseUpload(header, file, strings.TrimSpace(r.FormValue(sheetField)))
	if err != nil {
		return nil, apperr.ValidationWrap(err, "Unable to parse uploaded CSV file.")
	}
	if t.Len() == 0 {
		return nil, apperr.Validation("Uploaded CSV is empty.")
	}
	return t, nil
}

func parseUpload(header *multipart.FileHeader, file multipart.File, sheet string) (*table.Table, error) {
	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, eris.Wrap(err, "server: read upload")
		}
		return table.ReadXLSX(data, sheet)
	}
	return table.ReadCSV(file, table.CSVOptions{})
}

// advisorRequest holds the loosely typed advisor payload.
type advisorRequest struct {
	Question any
	Context  map[string]any
}

// AdvisorResponse is the data of an advisor response.
type AdvisorResponse struct {
	Answer string           `json:"answer"`
	Source narrative.Source `json:"source"`
}

func (s *Server) handleAdvisor(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&payload); err != nil {
		payload = nil
	}
	req := advisorRequest{Question: payload["question"]}
	if details, ok := payload["context"].(map[string]any); ok {
		req.Context = details
	}

	question, err := req.question()
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.advisor.Answer(r.Context(), question, req.Context)
	writeSuccess(w, AdvisorResponse{Answer: res.Text, Source: res.Source}, "Consulting recommendation generated.", res.Warning())
}

func (a advisorRequest) question() (string, error) {
	switch q := a.Question.(type) {
	case nil:
	case string:
		if q != "" {
			return q, nil
		}
	default:
		return "", apperr.Validation("Field 'question' must be a string.")
	}
	return "", apperr.Validation("Field 'question' is required.")
}
