package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"vapefinder/internal/app"
	"vapefinder/internal/domain"
	"vapefinder/internal/listing"
	"vapefinder/internal/shared"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Q *app.QueryService
	A *app.AdminService
	// Health reports backing store readiness for /healthz; nil means always ok.
	Health      func(ctx context.Context) error
	// ReviewLimit throttles the public write routes, reviews and store submissions.
	ReviewLimit shared.RateLimit
	// Now stamps the admin activeNow/expired flags; nil means time.Now.
	Now domain.Clock
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/cities", h.listCities)
		r.Get("/cities/search", h.searchCities)
		r.Get("/cities/{city}", h.getCity)
		r.Get("/cities/{city}/stores", h.cityListing)
		r.Get("/cities/{city}/stores/{store}", h.getStore)
		r.Get("/brands", h.listBrands)
		r.Get("/social-groups", h.listSocialGroups)

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(h.ReviewLimit))
			r.Post("/stores/{id}/reviews", h.submitReview)
			r.Post("/stores/submissions", h.submitStore)
		})
		r.Post("/ads/{placement}/{id}/{event}", h.recordAdEvent)

		r.Route("/admin", h.mountAdmin)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses. Anything unexpected
// is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "Invalid "+verr.Field, verr.Error())
	case errors.Is(err, domain.ErrInvalid):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "request timed out")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached sends v with a weak ETag and answers 304 when the client
// already holds the same version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeBody reads a single JSON object into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "dependencies not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) listCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.Q.ListCities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, items(toCities(cities)))
}

func (h *Handlers) searchCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.Q.SearchCities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, items(toCities(cities)))
}

func (h *Handlers) getCity(w http.ResponseWriter, r *http.Request) {
	c, err := h.Q.GetCity(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toCity(c))
}

// cityListing serves one render of a city page. The draw parameter pins the
// featured sponsor across re-renders; the response always echoes it.
func (h *Handlers) cityListing(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q.CitySlug = chi.URLParam(r, "city")
	page, err := h.Q.CityListing(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toListing(page))
}

func parseListingQuery(r *http.Request) (app.ListingQuery, error) {
	v := r.URL.Query()
	q := app.ListingQuery{Unit: listing.ParseUnit(v.Get("unit"))}

	if raw := v.Get("openNow"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return q, domain.Invalid("openNow", "must be a boolean")
		}
		q.OpenNowOnly = on
	}
	for _, raw := range v["brand"] {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				q.Brands = append(q.Brands, b)
			}
		}
	}

	loc, err := parseLocation(v.Get("lat"), v.Get("lng"))
	if err != nil {
		return q, err
	}
	q.Location = loc

	if d, ok := listing.ParseDraw(v.Get("draw")); ok {
		q.Draw = &d
	}
	return q, nil
}

// parseLocation treats a missing, partial or unparsable location as no
// location, the same as a visitor who denied geolocation. Only numbers outside
// the valid range are rejected.
func parseLocation(lat, lng string) (*domain.Coords, error) {
	if lat == "" && lng == "" {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err1 != nil || err2 != nil {
		log.Debug().Str("lat", lat).Str("lng", lng).Msg("ignoring incomplete visitor location")
		return nil, nil
	}
	c := domain.Coords{Lat: la, Lng: lo}
	if !c.Valid() {
		return nil, domain.Invalid("location", "lat/lng out of range")
	}
	return &c, nil
}

func (h *Handlers) getStore(w http.ResponseWriter, r *http.Request) {
	page, err := h.Q.GetStore(r.Context(), chi.URLParam(r, "city"), chi.URLParam(r, "store"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toStorePage(page))
}

func (h *Handlers) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.Q.Brands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, items(brands))
}

func (h *Handlers) listSocialGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Q.ListSocialGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, items(toSocialGroups(groups)))
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var in app.ReviewInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.StoreID = chi.URLParam(r, "id")
	rev, err := h.A.SubmitReview(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toReview(rev))
}

func (h *Handlers) submitStore(w http.ResponseWriter, r *http.Request) {
	var in app.StoreSubmissionInput
	if !decodeBody(w, r, &in) {
		return
	}
	sub, err := h.A.SubmitStore(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toSubmission(sub))
}

func (h *Handlers) recordAdEvent(w http.ResponseWriter, r *http.Request) {
	p := app.Placement(chi.URLParam(r, "placement"))
	if p != app.PlacementBanner && p != app.PlacementSponsorship {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown placement "+string(p))
		return
	}
	id := chi.URLParam(r, "id")

	var err error
	switch domain.CounterKind(chi.URLParam(r, "event")) {
	case domain.Impression:
		err = h.A.RecordImpression(r.Context(), p, id)
	case domain.Click:
		err = h.A.RecordClick(r.Context(), p, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "event must be impression or click")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
