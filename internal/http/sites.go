package http

import (
	"net/http"
	"time"

	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/permissions"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/internal/websites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// SiteAPI serves the sites contract backed by a websites.Service.
type SiteAPI struct {
	websites websites.Service
	auth     Authenticator
	logger   interfaces.Logger
}

// SiteOption mutates the SiteAPI configuration.
type SiteOption func(*SiteAPI)

// WithAuthenticator enables bearer authentication and permission checks.
func WithAuthenticator(auth Authenticator) SiteOption {
	return func(api *SiteAPI) {
		api.auth = auth
	}
}

func WithLogger(logger interfaces.Logger) SiteOption {
	return func(api *SiteAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// NewSiteAPI constructs the API over service.
func NewSiteAPI(service websites.Service, opts ...SiteOption) *SiteAPI {
	api := &SiteAPI{websites: service, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// Register mounts the routes on mux without authentication.
func (api *SiteAPI) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("GET /sections/definitions", api.handleDefinitions)
	mux.HandleFunc("GET /websites/{podcastId}", api.handleWebsiteGet)
	mux.HandleFunc("POST /websites/{podcastId}", api.handleGenerate)
	mux.HandleFunc("GET /websites/{podcastId}/sections", api.handleSectionsGet)
	mux.HandleFunc("PATCH /websites/{podcastId}/sections", api.handleSectionsPatch)
	mux.HandleFunc("PATCH /websites/{podcastId}/sections/order", api.handleOrderPatch)
	mux.HandleFunc("PATCH /websites/{podcastId}/sections/{sectionId}/toggle", api.handleToggle)
	mux.HandleFunc("PATCH /websites/{podcastId}/sections/{sectionId}/config", api.handleConfigPatch)
	mux.HandleFunc("PATCH /websites/{podcastId}/css", api.handleCSS)
	mux.HandleFunc("POST /websites/{podcastId}/publish", api.handlePublish)
	mux.HandleFunc("POST /websites/{podcastId}/reset", api.handleReset)
	mux.HandleFunc("GET /sites/{subdomain}/preview", api.handlePreview)
}

// Handler returns the routes wrapped with authentication and request logging.
func (api *SiteAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	api.Register(mux)
	return api.logRequests(authMiddleware(api.auth, mux))
}

func (api *SiteAPI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		api.logger.Debug("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started),
		)
	})
}

func (api *SiteAPI) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, permissions.SectionsRead, "") {
		return
	}
	raw, err := sections.EncodeCatalog(api.websites.Definitions(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (api *SiteAPI) handleWebsiteGet(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesRead, podcastID) {
		return
	}
	payload, err := api.websites.Website(r.Context(), podcastID)
	respond(w, payload, err)
}

func (api *SiteAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var req sites.GenerateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.Generate(r.Context(), podcastID, req.Regenerate)
	respond(w, payload, err)
}

func (api *SiteAPI) handleSectionsGet(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesRead, podcastID) {
		return
	}
	payload, err := api.websites.Sections(r.Context(), podcastID)
	respond(w, payload, err)
}

func (api *SiteAPI) handleSectionsPatch(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var state sites.SectionState
	if err := decodeJSON(r, &state, false); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.PatchSections(r.Context(), podcastID, state)
	respond(w, payload, err)
}

func (api *SiteAPI) handleOrderPatch(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var req sites.OrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.PatchOrder(r.Context(), podcastID, req.Order)
	respond(w, payload, err)
}

func (api *SiteAPI) handleToggle(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var req sites.ToggleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.Toggle(r.Context(), podcastID, r.PathValue("sectionId"), req.Enabled)
	respond(w, payload, err)
}

func (api *SiteAPI) handleConfigPatch(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var req sites.ConfigRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.PatchConfig(r.Context(), podcastID, r.PathValue("sectionId"), req.Config)
	respond(w, payload, err)
}

func (api *SiteAPI) handleCSS(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesUpdate, podcastID) {
		return
	}
	var req sites.CSSRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.UpdateCSS(r.Context(), podcastID, req)
	respond(w, payload, err)
}

func (api *SiteAPI) handlePublish(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesPublish, podcastID) {
		return
	}
	var req sites.PublishRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	payload, err := api.websites.Publish(r.Context(), podcastID, req.Unpublish)
	respond(w, payload, err)
}

func (api *SiteAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	podcastID := r.PathValue("podcastId")
	if !requirePermission(w, r, permissions.WebsitesReset, podcastID) {
		return
	}
	var req sites.ResetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	bundle, err := api.websites.Reset(r.Context(), podcastID, req.ConfirmationPhrase)
	if err == nil {
		api.logger.Info("http.website.reset", "podcast_id", podcastID, "website_id", bundle.Website.ID)
	}
	respond(w, bundle, err)
}

func (api *SiteAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, permissions.PreviewsRead, "") {
		return
	}
	payload, err := api.websites.Preview(r.Context(), r.PathValue("subdomain"))
	respond(w, payload, err)
}

// respond writes payload as 200 OK, or the mapped error.
func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
