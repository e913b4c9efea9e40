package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shlink/internal/netx"
	"github.com/dmitrijs2005/shlink/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBody   = 16 << 20
	maxUploadSize = 32 << 20
)

// LinkOptions are the issuance settings shared by the JSON and multipart
// create endpoints.
type LinkOptions struct {
	ContentType      string `json:"contentType,omitempty" validate:"omitempty,max=255"`
	FileName         string `json:"filename,omitempty" validate:"omitempty,max=255"`
	Label            string `json:"label,omitempty" validate:"max=80"`
	Passcode         string `json:"passcode,omitempty" validate:"omitempty,min=4,max=72"`
	ExpiresInSeconds *int64 `json:"expiresInSeconds,omitempty" validate:"omitempty,gt=0"`
	SingleUse        bool   `json:"singleUse,omitempty"`
	LongTerm         bool   `json:"longTerm,omitempty"`
	DirectAccess     bool   `json:"directAccess,omitempty"`
}

func (o LinkOptions) input(data []byte) services.CreateLinkInput {
	in := services.CreateLinkInput{
		Content:      services.ContentInput{Data: data, ContentType: o.ContentType, FileName: o.FileName},
		Label:        o.Label,
		Passcode:     o.Passcode,
		SingleUse:    o.SingleUse,
		LongTerm:     o.LongTerm,
		DirectAccess: o.DirectAccess,
	}
	if o.ExpiresInSeconds != nil {
		in.ExpiresIn = time.Duration(*o.ExpiresInSeconds) * time.Second
	}
	return in
}

type createLinkRequest struct {
	Content json.RawMessage `json:"content" validate:"required"`
	LinkOptions
}

type addContentRequest struct {
	Content     json.RawMessage `json:"content" validate:"required"`
	ContentType string          `json:"contentType,omitempty" validate:"omitempty,max=255"`
	FileName    string          `json:"filename,omitempty" validate:"omitempty,max=255"`
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := netx.ReadLimited(r.Body, maxJSONBody)
	if err != nil {
		h.respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func missingContent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// handleCreateJSON serves POST /api/shl.
func (h *Handler) handleCreateJSON(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if missingContent(req.Content) {
		h.respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	created, err := h.links.Create(r.Context(), req.LinkOptions.input(req.Content))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

// handleCreateFile serves POST /api/shl/file (multipart: file, options).
func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := netx.ReadLimited(file, maxUploadSize)
	if err != nil {
		h.respondWithError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	var opts LinkOptions
	if raw := r.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			h.respondWithError(w, http.StatusBadRequest, "invalid options JSON")
			return
		}
	}
	if err := h.validate.Struct(opts); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.ContentType == "" {
		opts.ContentType = header.Header.Get("Content-Type")
	}
	if opts.FileName == "" {
		opts.FileName = header.Filename
	}

	created, err := h.links.Create(r.Context(), opts.input(data))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

// pageParams parses page and size; absent values are zero and defaulted by
// the service.
func pageParams(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, size := 0, 0
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, err
		}
	}
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			return 0, 0, err
		}
	}
	return page, size, nil
}

// handleList serves GET /api/shl?active=&page=&size=.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	var active *bool
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		active = &b
	}

	out, err := h.links.List(r.Context(), active, page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.links.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	out, err := h.links.AccessLog(r.Context(), chi.URLParam(r, "id"), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAddContent(w http.ResponseWriter, r *http.Request) {
	var req addContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if missingContent(req.Content) {
		h.respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	cs, err := h.links.AddContent(r.Context(), chi.URLParam(r, "id"), services.ContentInput{
		Data:        req.Content,
		ContentType: req.ContentType,
		FileName:    req.FileName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, cs)
}

func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.links.QRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}

