package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/netx"
	"github.com/dmitrijs2005/shlink/internal/server/services"
	"github.com/dmitrijs2005/shlink/internal/shlink"
	"github.com/go-chi/chi/v5"
)

const maxManifestBody = 64 << 10

func accessInfo(r *http.Request, recipient string) services.AccessInfo {
	return services.AccessInfo{
		Recipient: recipient,
		IPAddress: netx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// handleManifest serves POST /api/shl/manifest/{manifestID}.
func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	body, err := netx.ReadLimited(r.Body, maxManifestBody)
	if err != nil {
		h.respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req shlink.ManifestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.manifests.Manifest(r.Context(), services.ManifestRequest{
		ManifestID:        chi.URLParam(r, "manifestID"),
		Passcode:          req.Passcode,
		EmbeddedLengthMax: req.EmbeddedLengthMax,
		Access:            accessInfo(r, req.Recipient),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if res.Status == shlink.StatusCanChange {
		w.Header().Set("Retry-After", strconv.Itoa(common.RetryAfterSeconds))
	}
	h.respondWithJSON(w, http.StatusOK, res.Wire())
}

// handleDirect serves GET /api/shl/manifest/{manifestID}?recipient=...
// The first file is returned as application/jose unless the caller only
// accepts JSON, in which case the whole manifest is returned embedded.
func (h *Handler) handleDirect(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		h.respondWithError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	res, err := h.manifests.Direct(r.Context(), chi.URLParam(r, "manifestID"), accessInfo(r, recipient))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if res.Status == shlink.StatusNoLongerValid || netx.AcceptsOnly(r, common.ContentTypeJSON) {
		h.respondWithJSON(w, http.StatusOK, res.Wire())
		return
	}
	h.respondWithJOSE(w, res.Files[0].JWE)
}

// handleFile serves GET /api/shl/file/{token}.
func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.manifests.File(r.Context(), chi.URLParam(r, "token"), accessInfo(r, r.URL.Query().Get("recipient")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJOSE(w, f.JWE)
}
