// Package handlers contains the HTTP handlers for the import API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
)

// APIHandler handles API requests.
type APIHandler struct {
	importer *importer.Importer
	history  history.Store
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(imp *importer.Importer, hist history.Store) *APIHandler {
	return &APIHandler{importer: imp, history: hist}
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// statementRequest is the shared body for preview and import requests.
type statementRequest struct {
	FileContent    string `json:"fileContent"`
	FileName       string `json:"fileName"`
	AccountID      string `json:"accountId"`
	SkipDuplicates bool   `json:"skipDuplicates"`
}

// previewResponse pairs the parsed statement with a suggested target account.
type previewResponse struct {
	Result           *converter.ParseResult `json:"result"`
	SuggestedAccount *domain.Account        `json:"suggestedAccount,omitempty"`
}

// GetBanks handles GET /api/banks.
func (h *APIHandler) GetBanks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	banks := h.importer.Registry().SupportedBanks()
	writeJSON(w, http.StatusOK, banks)
}

// PreviewStatement handles POST /api/preview. It parses the statement without
// committing anything, so a client can show the user what an import would do.
func (h *APIHandler) PreviewStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileContent == "" {
		http.Error(w, "fileContent is required", http.StatusBadRequest)
		return
	}

	result, err := h.importer.PreviewImport(req.FileContent, req.FileName)
	if err != nil {
		if errors.Is(err, converter.ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Result:           result,
		SuggestedAccount: h.importer.SuggestAccount(result),
	})
}

// ImportStatement handles POST /api/import.
func (h *APIHandler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileContent == "" {
		http.Error(w, "fileContent is required", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" {
		http.Error(w, "accountId is required", http.StatusBadRequest)
		return
	}

	result, err := h.importer.ImportStatement(req.FileContent, req.FileName, importer.Options{
		AccountID:      req.AccountID,
		SkipDuplicates: req.SkipDuplicates,
	})
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrAccountNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, converter.ErrUnsupportedFormat):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		default:
			log.Printf("ERROR: Import failed for %s: %v", req.FileName, err)
			http.Error(w, "Import failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetHistory handles GET /api/history.
func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.history.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
