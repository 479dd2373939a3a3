// Package views derives render-ready projections from a classified
// snapshot. Everything here is pure: the same inputs always produce the same
// outputs, and no function mutates the slice it is given.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/meatvault/stock-service/models"
)

// Bucket selects items by derived status. The synthetic ALL bucket means
// every status except OUT_OF_STOCK.
type Bucket string

const BucketAll Bucket = "ALL"

// ParseBucket accepts "ALL" (also as the empty default) or one of the four
// status names.
func ParseBucket(s string) (Bucket, bool) {
	if s == "" || s == string(BucketAll) {
		return BucketAll, true
	}
	if models.ValidStatus(models.ItemStatus(s)) {
		return Bucket(s), true
	}
	return "", false
}

// staleExpiryDays is how many calendar days past expiry an item stays
// visible outside the explicit EXPIRED bucket.
const staleExpiryDays = 5

// Visible applies the bucket filter and the stale-expired suppression rule:
// items expired more than five calendar days ago are hidden unless the
// EXPIRED bucket is explicitly selected, where they remain visible and
// counted.
func Visible(items []models.InventoryItemWithStatus, bucket Bucket, now time.Time) []models.InventoryItemWithStatus {
	out := make([]models.InventoryItemWithStatus, 0, len(items))
	for _, item := range items {
		if bucket == BucketAll {
			if item.Status == models.StatusOutOfStock {
				continue
			}
		} else if item.Status != models.ItemStatus(bucket) {
			continue
		}

		if item.Status == models.StatusExpired && bucket != Bucket(models.StatusExpired) {
			if item.ExpiryDate != nil && models.DaysBetween(*item.ExpiryDate, now) > staleExpiryDays {
				continue
			}
		}

		out = append(out, item)
	}
	return out
}

// Search keeps items whose name contains the query, case-insensitively.
// Applied after status filtering; an empty query keeps everything.
func Search(items []models.InventoryItemWithStatus, query string) []models.InventoryItemWithStatus {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}

	out := make([]models.InventoryItemWithStatus, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.ItemName), q) {
			out = append(out, item)
		}
	}
	return out
}

// CategoryTotal is the summed quantity for one category label.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
}

// CategoryTotals sums quantities by category over the given item set,
// descending by total. Ties break alphabetically so output is stable.
func CategoryTotals(items []models.InventoryItemWithStatus) []CategoryTotal {
	totals := make(map[string]int)
	for _, item := range items {
		totals[item.Category] += item.Quantity
	}

	out := make([]CategoryTotal, 0, len(totals))
	for category, total := range totals {
		out = append(out, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ExpiringSoon returns the items currently EXPIRING_SOON with the nearest
// expiry instants, ascending, capped at limit.
func ExpiringSoon(items []models.InventoryItemWithStatus, limit int) []models.InventoryItemWithStatus {
	out := make([]models.InventoryItemWithStatus, 0, limit)
	for _, item := range items {
		if item.Status == models.StatusExpiringSoon && item.ExpiryDate != nil {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Summary holds the dashboard tile values. TotalItems is the summed quantity
// of every non-OUT_OF_STOCK item; the per-status fields count items. All of
// it is computed over the full unfiltered set, so the tiles do not move when
// the list below them is bucket-filtered.
type Summary struct {
	TotalItems   int `json:"totalItems"`
	Good         int `json:"good"`
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
}

func Summarize(items []models.InventoryItemWithStatus) Summary {
	var s Summary
	for _, item := range items {
		switch item.Status {
		case models.StatusGood:
			s.Good++
		case models.StatusExpiringSoon:
			s.ExpiringSoon++
		case models.StatusExpired:
			s.Expired++
		}
		if item.Status != models.StatusOutOfStock {
			s.TotalItems += item.Quantity
		}
	}
	return s
}
