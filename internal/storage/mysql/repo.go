package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"vapefinder/internal/domain"
)

const erDupEntry = 1062

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return string(b)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Ping lets the API health check cover the database.
func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// mapErr turns driver-level failures into domain errors.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *drv.MySQLError
	if errors.As(err, &me) && me.Number == erDupEntry {
		return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
	}
	return err
}

func (r *Repo) execDelete(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---------- cities ----------

func scanCity(sc scanner) (domain.City, error) {
	var c domain.City
	err := sc.Scan(&c.Slug, &c.Name, &c.State, &c.StoreCount, &c.AverageRating, &c.ImageURL, &c.TimeZone)
	return c, err
}

func (r *Repo) ListCities(ctx context.Context) ([]domain.City, error) {
	rows, err := r.db.QueryContext(ctx, listCitiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCity(ctx context.Context, slug string) (domain.City, error) {
	c, err := scanCity(r.db.QueryRowContext(ctx, getCitySQL, slug))
	if err != nil {
		return domain.City{}, mapErr(err)
	}
	return c, nil
}

func (r *Repo) UpsertCity(ctx context.Context, c domain.City) error {
	_, err := r.db.ExecContext(ctx, upsertCitySQL, c.Slug, c.Name, c.State, c.ImageURL, c.TimeZone)
	return mapErr(err)
}

func (r *Repo) DeleteCity(ctx context.Context, slug string) error {
	return r.execDelete(ctx, deleteCitySQL, slug)
}

func (r *Repo) RefreshCityAggregates(ctx context.Context, cityName string) error {
	_, err := r.db.ExecContext(ctx, refreshCityAggregatesSQL, cityName, cityName)
	return err
}

// ---------- stores ----------

func scanStore(sc scanner) (domain.Store, error) {
	var s domain.Store
	var lat, lng sql.NullFloat64
	var desc sql.NullString
	var hours, brands, products, photos []byte
	if err := sc.Scan(
		&s.ID, &s.Slug, &s.Name, &s.Address, &s.City, &s.State, &s.ZipCode, &s.Phone,
		&lat, &lng,
		&s.Rating, &s.SubRatings.Service, &s.SubRatings.Inventory, &s.SubRatings.Pricing, &s.ReviewCount,
		&s.IsOpen, &hours, &brands, &products, &photos,
		&s.ImageURL, &desc, &s.Facebook, &s.Website,
		&s.IsSponsored, &s.HasCoupons, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return domain.Store{}, err
	}
	if lat.Valid && lng.Valid {
		s.Coords = &domain.Coords{Lat: lat.Float64, Lng: lng.Float64}
	}
	s.Description = desc.String
	// malformed JSON degrades to an empty value rather than failing the listing
	if len(hours) > 0 {
		_ = json.Unmarshal(hours, &s.Hours)
	}
	if len(brands) > 0 {
		_ = json.Unmarshal(brands, &s.Brands)
	}
	if len(products) > 0 {
		_ = json.Unmarshal(products, &s.FeaturedProducts)
	}
	if len(photos) > 0 {
		_ = json.Unmarshal(photos, &s.Photos)
	}
	return s, nil
}

func (r *Repo) ListStores(ctx context.Context, q domain.StoresQuery) ([]domain.Store, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	like := "%" + q.Keyword + "%"
	rows, err := r.db.QueryContext(ctx, listStoresSQL, q.City, q.City, q.Keyword, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) GetStore(ctx context.Context, id string) (domain.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, getStoreSQL, id))
	if err != nil {
		return domain.Store{}, mapErr(err)
	}
	return s, nil
}

func (r *Repo) GetStoreBySlug(ctx context.Context, cityName, slug string) (domain.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, getStoreBySlugSQL, cityName, slug))
	if err != nil {
		return domain.Store{}, mapErr(err)
	}
	return s, nil
}

func (r *Repo) UpsertStore(ctx context.Context, s domain.Store) error {
	var lat, lng *float64
	if s.Coords != nil {
		lat, lng = &s.Coords.Lat, &s.Coords.Lng
	}
	_, err := r.db.ExecContext(ctx, upsertStoreSQL,
		s.ID, s.Slug, s.Name, s.Address, s.City, s.State, s.ZipCode, s.Phone,
		valF64(lat), valF64(lng),
		s.Rating, s.SubRatings.Service, s.SubRatings.Inventory, s.SubRatings.Pricing, s.ReviewCount,
		s.IsOpen, valJSON(s.Hours), valJSON(s.Brands), valJSON(s.FeaturedProducts), valJSON(s.Photos),
		s.ImageURL, s.Description, s.Facebook, s.Website,
		s.IsSponsored, s.HasCoupons,
	)
	return mapErr(err)
}

func (r *Repo) DeleteStore(ctx context.Context, id string) error {
	return r.execDelete(ctx, deleteStoreSQL, id)
}

func (r *Repo) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listBrandsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repo) RefreshStoreRating(ctx context.Context, storeID string) error {
	_, err := r.db.ExecContext(ctx, refreshStoreRatingSQL, storeID, storeID)
	return err
}

// ---------- reviews ----------

func scanReview(sc scanner, extra ...any) (domain.Review, error) {
	var rv domain.Review
	var status string
	dest := []any{
		&rv.ID, &rv.StoreID, &rv.UserName, &rv.UserAvatar,
		&rv.Rating, &rv.SubRatings.Service, &rv.SubRatings.Inventory, &rv.SubRatings.Pricing,
		&rv.Content, &rv.Date, &status,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return domain.Review{}, err
	}
	rv.Status = domain.ReviewStatus(status)
	return rv, nil
}

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.ReviewWithStore, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	like := "%" + q.Search + "%"
	rows, err := r.db.QueryContext(ctx, listReviewsSQL,
		q.StoreID, q.StoreID,
		string(q.Status), string(q.Status),
		q.Search, like, like, like,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewWithStore
	for rows.Next() {
		var storeName string
		rv, err := scanReview(rows, &storeName)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ReviewWithStore{Review: rv, StoreName: storeName})
	}
	return out, rows.Err()
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if err != nil {
		return domain.Review{}, mapErr(err)
	}
	return rv, nil
}

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID, rv.StoreID, rv.UserName, rv.UserAvatar,
		rv.Rating, rv.SubRatings.Service, rv.SubRatings.Inventory, rv.SubRatings.Pricing,
		rv.Content, rv.Date.UTC().Format(time.DateOnly), string(rv.Status),
	)
	return mapErr(err)
}

// SetReviewStatus does not report ErrNotFound: MySQL counts an unchanged
// row as unaffected, so callers look the review up first.
func (r *Repo) SetReviewStatus(ctx context.Context, id string, st domain.ReviewStatus) error {
	_, err := r.db.ExecContext(ctx, setReviewStatusSQL, string(st), id)
	return err
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	return r.execDelete(ctx, deleteReviewSQL, id)
}

// ---------- ads ----------

func scanBanner(sc scanner) (domain.BannerAd, error) {
	var b domain.BannerAd
	var typ string
	if err := sc.Scan(&b.ID, &b.Name, &typ, &b.ImageURL, &b.TargetURL,
		&b.IsActive, &b.StartDate, &b.EndDate, &b.Impressions, &b.Clicks); err != nil {
		return domain.BannerAd{}, err
	}
	b.Type = domain.AdType(typ)
	return b, nil
}

func (r *Repo) ListBanners(ctx context.Context) ([]domain.BannerAd, error) {
	rows, err := r.db.QueryContext(ctx, listBannersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BannerAd
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) GetBanner(ctx context.Context, id string) (domain.BannerAd, error) {
	b, err := scanBanner(r.db.QueryRowContext(ctx, getBannerSQL, id))
	if err != nil {
		return domain.BannerAd{}, mapErr(err)
	}
	return b, nil
}

func (r *Repo) UpsertBanner(ctx context.Context, b domain.BannerAd) error {
	_, err := r.db.ExecContext(ctx, upsertBannerSQL,
		b.ID, b.Name, string(b.Type), b.ImageURL, b.TargetURL,
		b.IsActive, b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly),
	)
	return mapErr(err)
}

func (r *Repo) DeleteBanner(ctx context.Context, id string) error {
	return r.execDelete(ctx, deleteBannerSQL, id)
}

func scanSponsorship(sc scanner) (domain.Sponsorship, error) {
	var p domain.Sponsorship
	err := sc.Scan(&p.ID, &p.StoreID, &p.StoreName, &p.StoreCity,
		&p.IsActive, &p.StartDate, &p.EndDate, &p.Impressions, &p.Clicks)
	return p, err
}

func (r *Repo) ListSponsorships(ctx context.Context) ([]domain.Sponsorship, error) {
	rows, err := r.db.QueryContext(ctx, listSponsorshipsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Sponsorship
	for rows.Next() {
		p, err := scanSponsorship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetSponsorship(ctx context.Context, id string) (domain.Sponsorship, error) {
	p, err := scanSponsorship(r.db.QueryRowContext(ctx, getSponsorshipSQL, id))
	if err != nil {
		return domain.Sponsorship{}, mapErr(err)
	}
	return p, nil
}

func (r *Repo) UpsertSponsorship(ctx context.Context, p domain.Sponsorship) error {
	_, err := r.db.ExecContext(ctx, upsertSponsorshipSQL,
		p.ID, p.StoreID, p.IsActive, p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly),
	)
	return mapErr(err)
}

func (r *Repo) DeleteSponsorship(ctx context.Context, id string) error {
	return r.execDelete(ctx, deleteSponsorshipSQL, id)
}

func counterColumn(kind domain.CounterKind) (string, error) {
	switch kind {
	case domain.Impression:
		return "impressions", nil
	case domain.Click:
		return "clicks", nil
	}
	return "", domain.Invalid("kind", "unknown counter "+string(kind))
}

func (r *Repo) increment(ctx context.Context, tmpl, id string, kind domain.CounterKind) error {
	col, err := counterColumn(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(tmpl, col), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) IncrementBanner(ctx context.Context, id string, kind domain.CounterKind) error {
	return r.increment(ctx, incrementBannerSQL, id, kind)
}

func (r *Repo) IncrementSponsorship(ctx context.Context, id string, kind domain.CounterKind) error {
	return r.increment(ctx, incrementSponsorshipSQL, id, kind)
}

// ---------- social groups ----------

func scanSocialGroup(sc scanner) (domain.SocialGroup, error) {
	var g domain.SocialGroup
	var platform string
	if err := sc.Scan(&g.ID, &g.Name, &platform, &g.URL, &g.MemberCount, &g.IsActive, &g.Description); err != nil {
		return domain.SocialGroup{}, err
	}
	g.Platform = domain.Platform(platform)
	return g, nil
}

func (r *Repo) ListSocialGroups(ctx context.Context) ([]domain.SocialGroup, error) {
	rows, err := r.db.QueryContext(ctx, listSocialGroupsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SocialGroup
	for rows.Next() {
		g, err := scanSocialGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) GetSocialGroup(ctx context.Context, id string) (domain.SocialGroup, error) {
	g, err := scanSocialGroup(r.db.QueryRowContext(ctx, getSocialGroupSQL, id))
	if err != nil {
		return domain.SocialGroup{}, mapErr(err)
	}
	return g, nil
}

func (r *Repo) UpsertSocialGroup(ctx context.Context, g domain.SocialGroup) error {
	_, err := r.db.ExecContext(ctx, upsertSocialGroupSQL,
		g.ID, g.Name, string(g.Platform), g.URL, g.MemberCount, g.IsActive, g.Description)
	return mapErr(err)
}

func (r *Repo) DeleteSocialGroup(ctx context.Context, id string) error {
	return r.execDelete(ctx, deleteSocialGroupSQL, id)
}

// ---------- store submissions ----------

func scanSubmission(sc scanner) (domain.StoreSubmission, error) {
	var s domain.StoreSubmission
	var status string
	var description, storeID sql.NullString
	if err := sc.Scan(
		&s.ID, &s.StoreName, &s.OwnerName, &s.Email, &s.Phone, &s.Address, &s.City, &s.State, &s.ZipCode,
		&description, &s.Website, &status, &storeID, &s.SubmittedAt,
	); err != nil {
		return domain.StoreSubmission{}, err
	}
	s.Description, s.StoreID = description.String, storeID.String
	s.Status = domain.ReviewStatus(status)
	return s, nil
}

func (r *Repo) ListSubmissions(ctx context.Context, status domain.ReviewStatus) ([]domain.StoreSubmission, error) {
	rows, err := r.db.QueryContext(ctx, listSubmissionsSQL, string(status), string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoreSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) GetSubmission(ctx context.Context, id string) (domain.StoreSubmission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, getSubmissionSQL, id))
	if err != nil {
		return domain.StoreSubmission{}, mapErr(err)
	}
	return s, nil
}

func (r *Repo) InsertSubmission(ctx context.Context, s domain.StoreSubmission) error {
	_, err := r.db.ExecContext(ctx, insertSubmissionSQL,
		s.ID, s.StoreName, s.OwnerName, s.Email, s.Phone, s.Address, s.City, s.State, s.ZipCode,
		s.Description, s.Website, string(s.Status), s.SubmittedAt.UTC(),
	)
	return mapErr(err)
}

// SetSubmissionStatus has the same unchanged-row caveat as SetReviewStatus.
func (r *Repo) SetSubmissionStatus(ctx context.Context, id string, st domain.ReviewStatus, storeID string) error {
	var sid any
	if storeID != "" {
		sid = storeID
	}
	_, err := r.db.ExecContext(ctx, setSubmissionStatusSQL, string(st), sid, id)
	return err
}
