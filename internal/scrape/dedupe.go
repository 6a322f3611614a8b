package scrape

import "github.com/dealscope/listing-scraper/internal/models"

// Dedupe collapses rows that share a platform and product URL, keeping
// the first occurrence so list positions stay stable. Rows without a
// product URL cannot be identified and pass through untouched.
func Dedupe(rows []models.Row) []models.Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]models.Row, 0, len(rows))

	for _, r := range rows {
		if r.ProductURL == "" {
			out = append(out, r)
			continue
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
