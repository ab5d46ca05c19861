package mysql

// -----------------------------------------------------------------------------
// CITIES
// -----------------------------------------------------------------------------

const cityColumns = `slug, name, state, store_count, average_rating, image_url, time_zone`

const listCitiesSQL = `SELECT ` + cityColumns + ` FROM cities ORDER BY name`

const getCitySQL = `SELECT ` + cityColumns + ` FROM cities WHERE slug = ?`

// store_count and average_rating are derived; RefreshCityAggregates owns them.
const upsertCitySQL = `
INSERT INTO cities
  (slug, name, state, image_url, time_zone)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name      = VALUES(name),
  state     = VALUES(state),
  image_url = VALUES(image_url),
  time_zone = VALUES(time_zone)
`

const deleteCitySQL = `DELETE FROM cities WHERE slug = ?`

const refreshCityAggregatesSQL = `
UPDATE cities c
LEFT JOIN (
  SELECT city, COUNT(*) AS n, ROUND(AVG(rating), 1) AS avg_rating
  FROM stores
  WHERE city = ?
  GROUP BY city
) a ON a.city = c.name
SET
  c.store_count    = COALESCE(a.n, 0),
  c.average_rating = COALESCE(a.avg_rating, 0)
WHERE c.name = ?
`

// -----------------------------------------------------------------------------
// STORES
// -----------------------------------------------------------------------------

const storeColumns = `
  s.id, s.slug, s.name, s.address, s.city, s.state, s.zip_code, s.phone,
  s.lat, s.lng,
  s.rating, s.service_rating, s.inventory_rating, s.pricing_rating, s.review_count,
  s.is_open, s.hours, s.brands, s.featured_products, s.photos,
  s.image_url, s.description, s.facebook, s.website,
  s.is_sponsored, s.has_coupons, s.created_at, s.updated_at`

const listStoresSQL = `
SELECT` + storeColumns + `
FROM stores s
WHERE (? = '' OR s.city = ?)
  AND (? = '' OR s.name LIKE ? OR s.address LIKE ?)
ORDER BY s.name, s.id
LIMIT ?`

const getStoreSQL = `SELECT` + storeColumns + ` FROM stores s WHERE s.id = ?`

const getStoreBySlugSQL = `SELECT` + storeColumns + ` FROM stores s WHERE s.city = ? AND s.slug = ?`

// review_count and the ratings are kept on update; moderation recomputes them.
const upsertStoreSQL = `
INSERT INTO stores
  (id, slug, name, address, city, state, zip_code, phone, lat, lng,
   rating, service_rating, inventory_rating, pricing_rating, review_count,
   is_open, hours, brands, featured_products, photos,
   image_url, description, facebook, website, is_sponsored, has_coupons)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  slug              = VALUES(slug),
  name              = VALUES(name),
  address           = VALUES(address),
  city              = VALUES(city),
  state             = VALUES(state),
  zip_code          = VALUES(zip_code),
  phone             = VALUES(phone),
  lat               = VALUES(lat),
  lng               = VALUES(lng),
  is_open           = VALUES(is_open),
  hours             = VALUES(hours),
  brands            = VALUES(brands),
  featured_products = VALUES(featured_products),
  photos            = VALUES(photos),
  image_url         = VALUES(image_url),
  description       = VALUES(description),
  facebook          = VALUES(facebook),
  website           = VALUES(website),
  is_sponsored      = VALUES(is_sponsored),
  has_coupons       = VALUES(has_coupons),
  updated_at        = CURRENT_TIMESTAMP
`

const deleteStoreSQL = `DELETE FROM stores WHERE id = ?`

const listBrandsSQL = `
SELECT DISTINCT jt.name
FROM stores s,
  JSON_TABLE(s.brands, '$[*]' COLUMNS (name VARCHAR(200) PATH '$.name')) jt
WHERE jt.name IS NOT NULL AND jt.name <> ''
ORDER BY jt.name`

// Rating stays as seeded until a store has approved reviews.
const refreshStoreRatingSQL = `
UPDATE stores s
LEFT JOIN (
  SELECT store_id,
         COUNT(*)                        AS n,
         ROUND(AVG(rating), 1)           AS r,
         ROUND(AVG(service_rating), 1)   AS sv,
         ROUND(AVG(inventory_rating), 1) AS inv,
         ROUND(AVG(pricing_rating), 1)   AS pr
  FROM reviews
  WHERE store_id = ? AND status = 'approved'
  GROUP BY store_id
) a ON a.store_id = s.id
SET
  s.review_count     = COALESCE(a.n, 0),
  s.rating           = COALESCE(a.r, s.rating),
  s.service_rating   = COALESCE(a.sv, s.service_rating),
  s.inventory_rating = COALESCE(a.inv, s.inventory_rating),
  s.pricing_rating   = COALESCE(a.pr, s.pricing_rating)
WHERE s.id = ?
`

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

const reviewColumns = `
  r.id, r.store_id, r.user_name, r.user_avatar,
  r.rating, r.service_rating, r.inventory_rating, r.pricing_rating,
  r.content, r.published_at, r.status`

const listReviewsSQL = `
SELECT` + reviewColumns + `, s.name
FROM reviews r
JOIN stores s ON s.id = r.store_id
WHERE (? = '' OR r.store_id = ?)
  AND (? = '' OR r.status = ?)
  AND (? = '' OR r.user_name LIKE ? OR s.name LIKE ? OR r.content LIKE ?)
ORDER BY r.published_at DESC, r.id DESC
LIMIT ?`

const getReviewSQL = `SELECT` + reviewColumns + ` FROM reviews r WHERE r.id = ?`

const insertReviewSQL = `
INSERT INTO reviews
  (id, store_id, user_name, user_avatar, rating, service_rating, inventory_rating, pricing_rating, content, published_at, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const setReviewStatusSQL = `UPDATE reviews SET status = ? WHERE id = ?`

const deleteReviewSQL = `DELETE FROM reviews WHERE id = ?`

// -----------------------------------------------------------------------------
// ADS
// -----------------------------------------------------------------------------

const bannerColumns = `id, name, type, image_url, target_url, is_active, start_date, end_date, impressions, clicks`

const listBannersSQL = `SELECT ` + bannerColumns + ` FROM banner_ads ORDER BY start_date DESC, id`

const getBannerSQL = `SELECT ` + bannerColumns + ` FROM banner_ads WHERE id = ?`

// counters are never overwritten from admin input
const upsertBannerSQL = `
INSERT INTO banner_ads
  (id, name, type, image_url, target_url, is_active, start_date, end_date)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  type       = VALUES(type),
  image_url  = VALUES(image_url),
  target_url = VALUES(target_url),
  is_active  = VALUES(is_active),
  start_date = VALUES(start_date),
  end_date   = VALUES(end_date)
`

const deleteBannerSQL = `DELETE FROM banner_ads WHERE id = ?`

const sponsorshipColumns = `
  p.id, p.store_id, s.name, s.city, p.is_active, p.start_date, p.end_date, p.impressions, p.clicks`

const listSponsorshipsSQL = `
SELECT` + sponsorshipColumns + `
FROM sponsorships p
JOIN stores s ON s.id = p.store_id
ORDER BY p.start_date DESC, p.id`

const getSponsorshipSQL = `
SELECT` + sponsorshipColumns + `
FROM sponsorships p
JOIN stores s ON s.id = p.store_id
WHERE p.id = ?`

const upsertSponsorshipSQL = `
INSERT INTO sponsorships
  (id, store_id, is_active, start_date, end_date)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  store_id   = VALUES(store_id),
  is_active  = VALUES(is_active),
  start_date = VALUES(start_date),
  end_date   = VALUES(end_date)
`

const deleteSponsorshipSQL = `DELETE FROM sponsorships WHERE id = ?`

// %s is impressions or clicks, chosen from a closed set in counterColumn.
const incrementBannerSQL = `UPDATE banner_ads SET %[1]s = %[1]s + 1 WHERE id = ?`

const incrementSponsorshipSQL = `UPDATE sponsorships SET %[1]s = %[1]s + 1 WHERE id = ?`

// -----------------------------------------------------------------------------
// SOCIAL GROUPS
// -----------------------------------------------------------------------------

const socialColumns = `id, name, platform, url, member_count, is_active, description`

const listSocialGroupsSQL = `SELECT ` + socialColumns + ` FROM social_groups ORDER BY member_count DESC, name`

const getSocialGroupSQL = `SELECT ` + socialColumns + ` FROM social_groups WHERE id = ?`

const upsertSocialGroupSQL = `
INSERT INTO social_groups
  (id, name, platform, url, member_count, is_active, description)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  platform     = VALUES(platform),
  url          = VALUES(url),
  member_count = VALUES(member_count),
  is_active    = VALUES(is_active),
  description  = VALUES(description)
`

const deleteSocialGroupSQL = `DELETE FROM social_groups WHERE id = ?`

// -----------------------------------------------------------------------------
// STORE SUBMISSIONS
// -----------------------------------------------------------------------------

const submissionColumns = `
  id, store_name, owner_name, email, phone, address, city, state, zip_code,
  description, website, status, store_id, submitted_at`

const listSubmissionsSQL = `
SELECT` + submissionColumns + `
FROM store_submissions
WHERE (? = '' OR status = ?)
ORDER BY submitted_at DESC, id DESC`

const getSubmissionSQL = `SELECT` + submissionColumns + ` FROM store_submissions WHERE id = ?`

const insertSubmissionSQL = `
INSERT INTO store_submissions
  (id, store_name, owner_name, email, phone, address, city, state, zip_code, description, website, status, submitted_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const setSubmissionStatusSQL = `UPDATE store_submissions SET status = ?, store_id = ? WHERE id = ?`
