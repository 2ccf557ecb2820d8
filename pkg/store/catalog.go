package store

import (
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// SortKey selects the field a catalog listing is ordered by.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByCreatedAt SortKey = "createdAt"
	SortByUpdatedAt SortKey = "updatedAt"
)

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Query filters and orders saved forms. The zero value lists everything,
// most recently updated first.
type Query struct {
	Search string
	SortBy SortKey
	Order  Order
}

// Valid reports whether the sort key and order are known (or empty).
func (q Query) Valid() bool {
	switch q.SortBy {
	case "", SortByName, SortByCreatedAt, SortByUpdatedAt:
	default:
		return false
	}
	switch q.Order {
	case "", Ascending, Descending:
		return true
	default:
		return false
	}
}

// Filter returns the forms matching q.Search (case-insensitive substring of
// name or description), sorted per q. The input is not modified.
func Filter(forms []model.Form, q Query) []model.Form {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]model.Form, 0, len(forms))
	for _, form := range forms {
		if needle == "" ||
			strings.Contains(strings.ToLower(form.Name), needle) ||
			strings.Contains(strings.ToLower(form.Description), needle) {
			out = append(out, form)
		}
	}

	key := q.SortBy
	if key == "" {
		key = SortByUpdatedAt
	}
	order := q.Order
	if order == "" {
		order = Descending
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], key)
		if order == Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b model.Form, key SortKey) int {
	switch key {
	case SortByName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortByCreatedAt:
		return compareTimestamps(a.CreatedAt, b.CreatedAt)
	default:
		return compareTimestamps(a.UpdatedAt, b.UpdatedAt)
	}
}

func compareTimestamps(a, b string) int {
	ta, okA := model.ParseTimestamp(a)
	tb, okB := model.ParseTimestamp(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// Duplicate copies form under a new id with " (Copy)" appended to the name and
// both timestamps set to now. Field ids are kept.
func Duplicate(form model.Form, now time.Time) model.Form {
	out := form.Clone()
	out.ID = model.NewID()
	out.Name = form.Name + " (Copy)"
	ts := model.Timestamp(now)
	out.CreatedAt = ts
	out.UpdatedAt = ts
	return out
}
