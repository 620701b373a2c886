package core

import "sort"

// PurchaseGroup is a set of purchases sharing a calendar date.
type PurchaseGroup struct {
	Date  string // YYYY-MM-DD
	Items []Purchase
}

// GroupByPurchaseDate groups purchases by the date-only portion of their
// purchase date, falling back to the creation timestamp when the
// purchase date is unset. Groups are ordered by date, newest first.
// Pure function: unlike List, it never touches storage.
func GroupByPurchaseDate(purchases []Purchase) []PurchaseGroup {
	byDate := make(map[string][]Purchase)
	for _, p := range purchases {
		date := DateOnly(p.PurchaseDate)
		if date == "" {
			date = Today(p.CreatedAt)
		}
		byDate[date] = append(byDate[date], p)
	}

	groups := make([]PurchaseGroup, 0, len(byDate))
	for date, items := range byDate {
		groups = append(groups, PurchaseGroup{Date: date, Items: items})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	return groups
}
