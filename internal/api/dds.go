package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/dds"
	"github.com/sells-group/dds-finder/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTowns(w http.ResponseWriter, r *http.Request) {
	towns, err := s.roster.Towns(r.Context())
	if err != nil {
		zap.L().Error("api: load towns", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch towns.")
		return
	}
	if towns == nil {
		towns = []model.Town{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"towns": towns})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	town := r.URL.Query().Get("town")
	if town == "" {
		writeError(w, http.StatusBadRequest, "town is required")
		return
	}

	providers, err := s.roster.Providers(r.Context(), town)
	switch {
	case errors.Is(err, dds.ErrTownNotFound), err == nil && len(providers) == 0:
		zap.L().Warn("api: no providers for town", zap.String("town", town))
		writeError(w, http.StatusNotFound, "Town not found or no providers parsed.")
		return
	case err != nil:
		zap.L().Error("api: load providers", zap.String("town", town), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch providers.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"town": town, "providers": providers})
}

// pdfURLParam reads and length-checks the url query parameter.
func pdfURLParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("url")
	if len(u) < 10 {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	return u, true
}

func (s *Server) handleFetchPDF(w http.ResponseWriter, r *http.Request) {
	u, ok := pdfURLParam(w, r)
	if !ok {
		return
	}

	data, err := s.roster.FetchPDF(r.Context(), u)
	if errors.Is(err, dds.ErrURLNotAllowed) {
		writeError(w, http.StatusBadRequest, "URL not allowed")
		return
	}
	if err != nil {
		zap.L().Error("api: fetch pdf", zap.String("url", u), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch PDF.")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+attachmentName(r.URL.Query().Get("name"))+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type providerWithQuality struct {
	ProviderPDF  string  `json:"provider_pdf"`
	ProviderName string  `json:"provider_name"`
	QualityPDF   *string `json:"quality_pdf"`
	QualityURL   *string `json:"quality_url"`
	Error        *string `json:"error"`
}

func (s *Server) handleProviderWithQuality(w http.ResponseWriter, r *http.Request) {
	u, ok := pdfURLParam(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	profile, err := s.roster.FetchPDF(r.Context(), u)
	if errors.Is(err, dds.ErrURLNotAllowed) {
		writeError(w, http.StatusBadRequest, "URL not allowed")
		return
	}
	if err != nil {
		zap.L().Error("api: fetch provider pdf", zap.String("url", u), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch provider PDF")
		return
	}

	resp := providerWithQuality{
		ProviderPDF:  base64.StdEncoding.EncodeToString(profile),
		ProviderName: name,
	}

	qURL, quality, err := s.roster.FetchQuality(r.Context(), profile)
	if qURL != "" {
		resp.QualityURL = &qURL
	}
	if err != nil {
		msg := qualityMessage(err)
		resp.Error = &msg
	} else {
		enc := base64.StdEncoding.EncodeToString(quality)
		resp.QualityPDF = &enc
	}

	writeJSON(w, http.StatusOK, resp)
}

// qualityMessage describes a quality report failure for API clients.
func qualityMessage(err error) string {
	switch {
	case errors.Is(err, dds.ErrNoQualityURL):
		return "No quality report URL found in provider profile"
	case errors.Is(err, dds.ErrQualityBlocked):
		return "Quality report URL not from allowed domain"
	default:
		zap.L().Error("api: quality report", zap.Error(err))
		return "Quality report fetch error: " + strings.TrimSpace(err.Error())
	}
}
