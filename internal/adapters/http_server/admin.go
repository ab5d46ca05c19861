package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vapefinder/internal/app"
	"vapefinder/internal/domain"
)

// Admin routes carry no authentication of their own; deployments put them
// behind the gateway.
func (h *Handlers) mountAdmin(r chi.Router) {
	r.Get("/dashboard", h.dashboard)

	r.Get("/cities", h.listCities)
	r.Post("/cities", h.createCity)
	r.Put("/cities/{slug}", h.updateCity)
	r.Delete("/cities/{slug}", h.deleteCity)

	r.Get("/stores", h.adminListStores)
	r.Post("/stores", h.createStore)
	r.Get("/stores/{id}", h.adminGetStore)
	r.Put("/stores/{id}", h.updateStore)
	r.Delete("/stores/{id}", h.deleteStore)

	r.Get("/reviews", h.adminListReviews)
	r.Post("/reviews/{id}/approve", h.approveReview)
	r.Post("/reviews/{id}/reject", h.rejectReview)
	r.Delete("/reviews/{id}", h.deleteReview)

	r.Get("/submissions", h.listSubmissions)
	r.Post("/submissions/{id}/approve", h.approveSubmission)
	r.Post("/submissions/{id}/reject", h.rejectSubmission)

	r.Get("/banners", h.listBanners)
	r.Post("/banners", h.createBanner)
	r.Put("/banners/{id}", h.updateBanner)
	r.Post("/banners/{id}/toggle", h.toggleBanner)
	r.Delete("/banners/{id}", h.deleteBanner)

	r.Get("/sponsorships", h.listSponsorships)
	r.Post("/sponsorships", h.createSponsorship)
	r.Put("/sponsorships/{id}", h.updateSponsorship)
	r.Post("/sponsorships/{id}/toggle", h.toggleSponsorship)
	r.Delete("/sponsorships/{id}", h.deleteSponsorship)

	r.Get("/social-groups", h.adminListSocialGroups)
	r.Post("/social-groups", h.createSocialGroup)
	r.Put("/social-groups/{id}", h.updateSocialGroup)
	r.Post("/social-groups/{id}/toggle", h.toggleSocialGroup)
	r.Delete("/social-groups/{id}", h.deleteSocialGroup)
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.A.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// respond writes v with status, or the mapped error.
func respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

func noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- cities ----------

func (h *Handlers) createCity(w http.ResponseWriter, r *http.Request) {
	var in app.CityInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := h.A.CreateCity(r.Context(), in)
	respond(w, r, http.StatusCreated, toCity(c), err)
}

func (h *Handlers) updateCity(w http.ResponseWriter, r *http.Request) {
	var in app.CityInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := h.A.UpdateCity(r.Context(), chi.URLParam(r, "slug"), in)
	respond(w, r, http.StatusOK, toCity(c), err)
}

func (h *Handlers) deleteCity(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteCity(r.Context(), chi.URLParam(r, "slug")))
}

// ---------- stores ----------

func (h *Handlers) adminListStores(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := domain.StoresQuery{City: v.Get("city"), Keyword: v.Get("q")}
	if ls := v.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
			return
		}
		q.Limit = l
	}
	stores, err := h.A.ListStores(r.Context(), q)
	respond(w, r, http.StatusOK, items(toStores(stores)), err)
}

func (h *Handlers) adminGetStore(w http.ResponseWriter, r *http.Request) {
	st, err := h.A.GetStore(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toStore(st), err)
}

func (h *Handlers) createStore(w http.ResponseWriter, r *http.Request) {
	var in app.StoreInput
	if !decodeBody(w, r, &in) {
		return
	}
	st, err := h.A.CreateStore(r.Context(), in)
	respond(w, r, http.StatusCreated, toStore(st), err)
}

func (h *Handlers) updateStore(w http.ResponseWriter, r *http.Request) {
	var in app.StoreInput
	if !decodeBody(w, r, &in) {
		return
	}
	st, err := h.A.UpdateStore(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, r, http.StatusOK, toStore(st), err)
}

func (h *Handlers) deleteStore(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteStore(r.Context(), chi.URLParam(r, "id")))
}

// ---------- reviews ----------

func (h *Handlers) adminListReviews(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := domain.ReviewsQuery{
		StoreID: v.Get("storeId"),
		Status:  domain.ReviewStatus(v.Get("status")),
		Search:  v.Get("q"),
	}
	reviews, err := h.A.ListReviews(r.Context(), q)
	respond(w, r, http.StatusOK, items(toModerationReviews(reviews)), err)
}

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	rev, err := h.A.ApproveReview(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toReview(rev), err)
}

func (h *Handlers) rejectReview(w http.ResponseWriter, r *http.Request) {
	rev, err := h.A.RejectReview(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toReview(rev), err)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteReview(r.Context(), chi.URLParam(r, "id")))
}

// ---------- store submissions ----------

func (h *Handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.A.ListSubmissions(r.Context(), domain.ReviewStatus(r.URL.Query().Get("status")))
	respond(w, r, http.StatusOK, items(toSubmissions(subs)), err)
}

// approveSubmission answers with the store it created.
func (h *Handlers) approveSubmission(w http.ResponseWriter, r *http.Request) {
	st, err := h.A.ApproveSubmission(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusCreated, toStore(st), err)
}

func (h *Handlers) rejectSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.A.RejectSubmission(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toSubmission(sub), err)
}

// ---------- banners ----------

func (h *Handlers) listBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.A.ListBanners(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.now()
	out := make([]bannerDTO, 0, len(banners))
	for _, b := range banners {
		out = append(out, toBanner(b, now))
	}
	writeJSON(w, http.StatusOK, items(out))
}

func (h *Handlers) createBanner(w http.ResponseWriter, r *http.Request) {
	var in app.BannerInput
	if !decodeBody(w, r, &in) {
		return
	}
	b, err := h.A.CreateBanner(r.Context(), in)
	respond(w, r, http.StatusCreated, toBanner(b, h.now()), err)
}

func (h *Handlers) updateBanner(w http.ResponseWriter, r *http.Request) {
	var in app.BannerInput
	if !decodeBody(w, r, &in) {
		return
	}
	b, err := h.A.UpdateBanner(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, r, http.StatusOK, toBanner(b, h.now()), err)
}

func (h *Handlers) toggleBanner(w http.ResponseWriter, r *http.Request) {
	b, err := h.A.ToggleBanner(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toBanner(b, h.now()), err)
}

func (h *Handlers) deleteBanner(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteBanner(r.Context(), chi.URLParam(r, "id")))
}

// ---------- sponsorships ----------

func (h *Handlers) listSponsorships(w http.ResponseWriter, r *http.Request) {
	sps, err := h.A.ListSponsorships(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.now()
	out := make([]sponsorshipDTO, 0, len(sps))
	for _, p := range sps {
		out = append(out, toSponsorship(p, now))
	}
	writeJSON(w, http.StatusOK, items(out))
}

func (h *Handlers) createSponsorship(w http.ResponseWriter, r *http.Request) {
	var in app.SponsorshipInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, err := h.A.CreateSponsorship(r.Context(), in)
	respond(w, r, http.StatusCreated, toSponsorship(p, h.now()), err)
}

func (h *Handlers) updateSponsorship(w http.ResponseWriter, r *http.Request) {
	var in app.SponsorshipInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, err := h.A.UpdateSponsorship(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, r, http.StatusOK, toSponsorship(p, h.now()), err)
}

func (h *Handlers) toggleSponsorship(w http.ResponseWriter, r *http.Request) {
	p, err := h.A.ToggleSponsorship(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toSponsorship(p, h.now()), err)
}

func (h *Handlers) deleteSponsorship(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteSponsorship(r.Context(), chi.URLParam(r, "id")))
}

// ---------- social groups ----------

func (h *Handlers) adminListSocialGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.A.ListSocialGroups(r.Context())
	respond(w, r, http.StatusOK, items(toSocialGroups(groups)), err)
}

func (h *Handlers) createSocialGroup(w http.ResponseWriter, r *http.Request) {
	var in app.SocialGroupInput
	if !decodeBody(w, r, &in) {
		return
	}
	g, err := h.A.CreateSocialGroup(r.Context(), in)
	respond(w, r, http.StatusCreated, toSocialGroup(g), err)
}

func (h *Handlers) updateSocialGroup(w http.ResponseWriter, r *http.Request) {
	var in app.SocialGroupInput
	if !decodeBody(w, r, &in) {
		return
	}
	g, err := h.A.UpdateSocialGroup(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, r, http.StatusOK, toSocialGroup(g), err)
}

func (h *Handlers) toggleSocialGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.A.ToggleSocialGroup(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, toSocialGroup(g), err)
}

func (h *Handlers) deleteSocialGroup(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.A.DeleteSocialGroup(r.Context(), chi.URLParam(r, "id")))
}
