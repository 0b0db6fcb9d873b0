package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cinemax/models"
	"cinemax/services/catalog"
	"cinemax/services/metadata"
)

const maxActionBody = 32 << 20

// CatalogService is the catalog surface the action endpoint drives.
type CatalogService interface {
	GetAll(ctx context.Context) (*models.Catalog, error)
	AddManual(ctx context.Context, in models.ManualEntry) (models.ImportResult, error)
	ImportSingle(ctx context.Context, tmdbID int64, kind catalog.Kind) models.ImportResult
	ImportYear(ctx context.Context, kind catalog.Kind, year, page int, skipDuplicates bool) (catalog.YearResult, error)
	ImportTree(ctx context.Context, tree *models.Catalog) (catalog.TreeResult, error)
	Search(ctx context.Context, mediaType, query string) ([]metadata.SearchResult, error)
	DeleteItem(ctx context.Context, title, category string) (int64, error)
	ClearAll(ctx context.Context) error
	RemoveDuplicates(ctx context.Context) (int64, error)
	AutoEmbed(ctx context.Context, scope string, providers []string) (catalog.AutoEmbedResult, error)
}

// CatalogHandler serves the action-dispatched JSON endpoint used by the dashboard.
type CatalogHandler struct {
	Service CatalogService
	now     func() time.Time
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: svc, now: time.Now}
}

// actionRequest is the union of fields POSTed by the dashboard.
type actionRequest struct {
	Action         string            `json:"action"`
	Title          string            `json:"title"`
	Category       string            `json:"category"`
	Type           string            `json:"type"`
	Query          string            `json:"query"`
	TMDBID         models.FlexString `json:"tmdb_id"`
	Year           models.FlexString `json:"year"`
	Page           models.FlexString `json:"page"`
	SkipDuplicates *bool             `json:"skip_duplicates"`
	Data           *models.Catalog   `json:"data"`
	Scope          string            `json:"scope"`
	Providers      []string          `json:"providers"`
}

type actionFunc func(h *CatalogHandler, w http.ResponseWriter, r *http.Request, req *actionRequest, body []byte)

var mutatingActions = map[string]bool{
	"add_manual":         true,
	"delete_item":        true,
	"clear_all_data":     true,
	"bulk_generate_year": true,
	"import_data":        true,
	"remove_duplicates":  true,
	"auto_embed":         true,
}

var catalogActions = map[string]actionFunc{
	"get_all_data":       (*CatalogHandler).getAllData,
	"add_manual":         (*CatalogHandler).addManual,
	"generate_movie":     (*CatalogHandler).generateMovie,
	"generate_series":    (*CatalogHandler).generateSeries,
	"search_tmdb":        (*CatalogHandler).searchTMDB,
	"delete_item":        (*CatalogHandler).deleteItem,
	"clear_all_data":     (*CatalogHandler).clearAllData,
	"bulk_generate_year": (*CatalogHandler).bulkGenerateYear,
	"import_data":        (*CatalogHandler).importData,
	"export_data":        (*CatalogHandler).exportData,
	"remove_duplicates":  (*CatalogHandler).removeDuplicates,
	"auto_embed":         (*CatalogHandler).autoEmbed,
}

// ServeHTTP reads the action from the query string or, for POST, the JSON body.
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		req  actionRequest
		body []byte
	)
	if r.Method == http.MethodPost {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxActionBody))
		if err != nil {
			writeActionError(w, http.StatusBadRequest, "Invalid data received.")
			return
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeActionError(w, http.StatusBadRequest, "Invalid data received.")
				return
			}
		}
	}

	action := strings.TrimSpace(r.URL.Query().Get("action"))
	if action == "" {
		action = strings.TrimSpace(req.Action)
	}

	fn, ok := catalogActions[action]
	if !ok {
		writeActionError(w, http.StatusBadRequest, "Unknown action.")
		return
	}
	if mutatingActions[action] && r.Method != http.MethodPost {
		writeActionError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Action %s requires POST.", action))
		return
	}

	fn(h, w, r, &req, body)
}

func (h *CatalogHandler) getAllData(w http.ResponseWriter, r *http.Request, _ *actionRequest, _ []byte) {
	data, err := h.Service.GetAll(r.Context())
	if err != nil {
		log.Printf("[api] get_all_data: %v", err)
		writeActionError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "success": true, "data": data})
}

func (h *CatalogHandler) addManual(w http.ResponseWriter, r *http.Request, _ *actionRequest, body []byte) {
	var in models.ManualEntry
	if err := json.Unmarshal(body, &in); err != nil {
		writeActionError(w, http.StatusBadRequest, "Invalid data received.")
		return
	}
	res, err := h.Service.AddManual(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, "add_manual", err)
		return
	}
	writeResult(w, res)
}

func (h *CatalogHandler) generateMovie(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	h.generate(w, r, req, catalog.KindMovie)
}

func (h *CatalogHandler) generateSeries(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	h.generate(w, r, req, catalog.KindSeries)
}

func (h *CatalogHandler) generate(w http.ResponseWriter, r *http.Request, req *actionRequest, kind catalog.Kind) {
	raw := firstNonEmpty(r.URL.Query().Get("tmdb_id"), string(req.TMDBID))
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		writeActionError(w, http.StatusBadRequest, "TMDB ID is required.")
		return
	}
	writeResult(w, h.Service.ImportSingle(r.Context(), id, kind))
}

func (h *CatalogHandler) searchTMDB(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	q := r.URL.Query()
	query := strings.TrimSpace(firstNonEmpty(q.Get("query"), req.Query))
	mediaType := strings.TrimSpace(firstNonEmpty(q.Get("type"), req.Type))
	if query == "" {
		writeActionError(w, http.StatusBadRequest, "Search query is required.")
		return
	}
	results, err := h.Service.Search(r.Context(), mediaType, query)
	if err != nil {
		if catalog.IsValidation(err) {
			writeActionError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[api] search_tmdb %q: %v", query, err)
		writeActionError(w, http.StatusBadGateway, "Failed to fetch search results from TMDB.")
		return
	}
	if results == nil {
		results = []metadata.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "success": true, "data": results})
}

func (h *CatalogHandler) deleteItem(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	removed, err := h.Service.DeleteItem(r.Context(), req.Title, req.Category)
	if err != nil {
		h.writeServiceError(w, "delete_item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "success": true, "removed": removed})
}

func (h *CatalogHandler) clearAllData(w http.ResponseWriter, r *http.Request, _ *actionRequest, _ []byte) {
	if err := h.Service.ClearAll(r.Context()); err != nil {
		h.writeServiceError(w, "clear_all_data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "success": true})
}

func (h *CatalogHandler) bulkGenerateYear(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	kind, err := catalog.ParseKind(firstNonEmpty(req.Type, "movie"))
	if err != nil {
		writeActionError(w, http.StatusBadRequest, err.Error())
		return
	}

	year := h.now().Year()
	if raw := strings.TrimSpace(string(req.Year)); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil || year <= 0 {
			writeActionError(w, http.StatusBadRequest, "Invalid data for bulk import.")
			return
		}
	}
	page := 1
	if raw := strings.TrimSpace(string(req.Page)); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page <= 0 {
			writeActionError(w, http.StatusBadRequest, "Invalid data for bulk import.")
			return
		}
	}
	skip := true
	if req.SkipDuplicates != nil {
		skip = *req.SkipDuplicates
	}

	res, err := h.Service.ImportYear(r.Context(), kind, year, page, skip)
	if err != nil {
		if catalog.IsValidation(err) {
			writeActionError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[api] bulk_generate_year %s %d page %d: %v", kind, year, page, err)
		writeActionError(w, http.StatusBadGateway, "Failed to fetch data from TMDB.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"success":   true,
		"generated": res.Generated,
		"skipped":   res.Skipped,
		"results":   res.Results,
	})
}

func (h *CatalogHandler) importData(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	res, err := h.Service.ImportTree(r.Context(), req.Data)
	if err != nil {
		h.writeServiceError(w, "import_data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"success":  true,
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"errors":   res.Errors,
	})
}

func (h *CatalogHandler) exportData(w http.ResponseWriter, r *http.Request, _ *actionRequest, _ []byte) {
	data, err := h.Service.GetAll(r.Context())
	if err != nil {
		log.Printf("[api] export_data: %v", err)
		writeActionError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist_export.json"`)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		log.Printf("[api] export_data encode: %v", err)
	}
}

func (h *CatalogHandler) removeDuplicates(w http.ResponseWriter, r *http.Request, _ *actionRequest, _ []byte) {
	removed, err := h.Service.RemoveDuplicates(r.Context())
	if err != nil {
		h.writeServiceError(w, "remove_duplicates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "success": true, "removed": removed})
}

func (h *CatalogHandler) autoEmbed(w http.ResponseWriter, r *http.Request, req *actionRequest, _ []byte) {
	res, err := h.Service.AutoEmbed(r.Context(), req.Scope, req.Providers)
	if err != nil {
		h.writeServiceError(w, "auto_embed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"success":  true,
		"movies":   res.Movies,
		"episodes": res.Episodes,
	})
}

func (h *CatalogHandler) writeServiceError(w http.ResponseWriter, action string, err error) {
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		writeActionError(w, http.StatusBadRequest, ve.Message)
		return
	}
	log.Printf("[api] %s: %v", action, err)
	writeActionError(w, http.StatusInternalServerError, err.Error())
}

// writeResult reports an import outcome; warnings and errors are still HTTP 200.
func writeResult(w http.ResponseWriter, res models.ImportResult) {
	payload := map[string]interface{}{
		"status":  res.Status,
		"success": res.OK(),
		"message": res.Message,
	}
	if res.EntryID != 0 {
		payload["entryId"] = res.EntryID
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeActionError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"status": "error", "success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
