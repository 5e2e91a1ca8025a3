package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"price-recon/internal/fileio"
	"price-recon/internal/ingest"
	"price-recon/internal/ledger"
	"price-recon/internal/reconcile/model"
	"price-recon/internal/reconcile/service"
)

// Handler exposes the comparator, the staging pipeline and the review
// surface of the ledger over HTTP.
type Handler struct {
	cmp       *service.Comparator
	pipeline  *ingest.Pipeline
	store     *ledger.Store
	maxMemory int64
}

func New(cmp *service.Comparator, pipeline *ingest.Pipeline, store *ledger.Store, maxUploadBytes int64) *Handler {
	return &Handler{cmp: cmp, pipeline: pipeline, store: store, maxMemory: maxUploadBytes}
}

// Compare takes two uploaded tables (fileA is the reference side) and
// returns matched pairs with price deltas. Column names come from
// a_name/a_price/a_brand/a_header_row and the b_ equivalents.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), fmt.Errorf("bad multipart form: %w", err))
		return
	}

	a, err := readSide(r, "A")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	b, err := readSide(r, "B")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	service.Prepare(a)
	service.Prepare(b)

	cmp := *h.cmp
	cmp.Threshold = atoi(r.FormValue("threshold"), h.cmp.Threshold)
	if cmp.Threshold < 0 || cmp.Threshold > 100 {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("threshold out of range: %d", cmp.Threshold))
		return
	}

	rep := cmp.Report(a, b)
	if toBool(r.FormValue("records_only"), false) {
		writeJSON(w, r, http.StatusOK, rep.Records)
	} else {
		writeJSON(w, r, http.StatusOK, rep)
	}

	log.Info().
		Int("rows_a", len(a)).
		Int("rows_b", len(b)).
		Int("matched", rep.Stats.Matched).
		Dur("elapsed", time.Since(start)).
		Msg("compare done")
}

// readSide reads file<side> with the mapping given by the lower-case prefixed fields.
func readSide(r *http.Request, side string) ([]model.Item, error) {
	f, hdr, err := r.FormFile("file" + side)
	if err != nil {
		return nil, fmt.Errorf("missing file%s: %w", side, err)
	}
	defer f.Close()

	p := map[string]string{"A": "a_", "B": "b_"}[side]
	m := model.Mapping{
		NameKey:   r.FormValue(p + "name"),
		PriceKey:  r.FormValue(p + "price"),
		BrandKey:  r.FormValue(p + "brand"),
		HeaderRow: atoi(r.FormValue(p+"header_row"), 1),
	}
	items, err := fileio.ReadItems(f, hdr.Filename, m, r.FormValue(p+"source"))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", side, err)
	}
	return items, nil
}

// Ingest stages a JSON array of raw listings as one run.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var batch []model.RawListing
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), fmt.Errorf("decode listings: %w", err))
		return
	}
	sum, err := h.pipeline.Run(r.Context(), batch)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, r, http.StatusOK, sum)
}

// Resolve re-runs resolution over every unresolved competitor listing.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	sum, err := h.pipeline.Reresolve(r.Context())
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, r, http.StatusOK, sum)
}

func (h *Handler) Canonical(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ListCanonical(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// CanonicalPrices lists matched pairs with the latest price on each side.
func (h *Handler) CanonicalPrices(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.LinkedPrices(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, service.LinkedReport(rows, h.pipeline.CanonicalSource()))
}

func (h *Handler) Unresolved(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.UnresolvedListings(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ListSuggestions(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := h.store.ApproveSuggestion(r.Context(), id)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, r, http.StatusOK, l)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.RejectSuggestion(r.Context(), id); err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	CanonicalID int64 `json:"canonical_id"`
}

// Link force-links a listing to the canonical product named in the body.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CanonicalID <= 0 {
		writeError(w, r, http.StatusBadRequest, errors.New(`body must be {"canonical_id": <id>}`))
		return
	}
	l, err := h.store.ForceLink(r.Context(), id, req.CanonicalID)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, r, http.StatusOK, l)
}

type pricesResponse struct {
	Listing model.SourceListing      `json:"listing"`
	Latest  *model.PriceObservation  `json:"latest"`
	History []model.PriceObservation `json:"history"`
}

func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := h.store.GetListing(r.Context(), id)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	hist, err := h.store.PriceHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	resp := pricesResponse{Listing: l, History: hist}
	if n := len(hist); n > 0 {
		resp.Latest = &hist[n-1]
	}
	writeJSON(w, r, http.StatusOK, resp)
}
