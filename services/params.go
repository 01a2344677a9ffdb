package services

import (
	"strings"
	"time"
)

// PostKind names one variant of the post union.
type PostKind string

const (
	KindDonation PostKind = "donation"
	KindRequest  PostKind = "request"
	KindForum    PostKind = "forum"
	KindAffair   PostKind = "affair"
)

// KindAll selects every variant.
const KindAll = "all"

// AllKinds is the query order used when every variant is selected.
var AllKinds = []PostKind{KindDonation, KindRequest, KindForum, KindAffair}

// ParseKind maps a request value to a kind.
func ParseKind(s string) (PostKind, bool) {
	switch k := PostKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDonation, KindRequest, KindForum, KindAffair:
		return k, true
	}
	return "", false
}

// rank orders variants on equal (created_at, id).
func (k PostKind) rank() int {
	for i, v := range AllKinds {
		if v == k {
			return i
		}
	}
	return len(AllKinds)
}

// DateRange is a symbolic created_at window in the server calendar.
type DateRange string

const (
	DateAll   DateRange = "all"
	DateToday DateRange = "today"
	DateWeek  DateRange = "week"
	DateMonth DateRange = "month"
	DateYear  DateRange = "year"
)

// ParseDateRange falls back to DateAll for empty or unknown values.
func ParseDateRange(s string) DateRange {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case DateToday, DateWeek, DateMonth, DateYear:
		return r
	}
	return DateAll
}

// Window returns the half-open interval [start, end) covered by r at now, in loc.
// Weeks start on Monday. ok is false for DateAll.
func (r DateRange) Window(now time.Time, loc *time.Location) (start, end time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch r {
	case DateToday:
		return today, today.AddDate(0, 0, 1), true
	case DateWeek:
		start = today.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
		return start, start.AddDate(0, 0, 7), true
	case DateMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), true
	case DateYear:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// SearchParams are the normalized filters shared by search and per-user listings.
type SearchParams struct {
	Keyword  string
	Type     string // KindAll or a PostKind
	Category string // category name or "all"
	Urgency  string // low|medium|high or "all"; requests only
	Location string
	Date     DateRange
	// UserID restricts results to one author when set.
	UserID *uint
	// IDs restricts results to the given primary keys when non-nil.
	IDs []uint
}

// Filters is the echo of the effective filters returned with search results.
type Filters struct {
	Q        string `json:"q"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
	Location string `json:"location"`
	Date     string `json:"date"`
}

// NormalizeParams applies defaults and the permissive fallbacks: an unknown type
// means every type and an unknown date range means no date filter.
func NormalizeParams(q, typ, category, urgency, location, date string) SearchParams {
	p := SearchParams{
		Keyword:  strings.TrimSpace(q),
		Type:     KindAll,
		Category: strings.TrimSpace(category),
		Urgency:  strings.ToLower(strings.TrimSpace(urgency)),
		Location: strings.TrimSpace(location),
		Date:     ParseDateRange(date),
	}
	if k, ok := ParseKind(typ); ok {
		p.Type = string(k)
	}
	if p.Category == "" || strings.EqualFold(p.Category, "all") {
		p.Category = "all"
	}
	if p.Urgency == "" {
		p.Urgency = "all"
	}
	return p
}

// Kinds returns the variants selected by p.Type.
func (p SearchParams) Kinds() []PostKind {
	if k, ok := ParseKind(p.Type); ok {
		return []PostKind{k}
	}
	return AllKinds
}

// Filters echoes p.
func (p SearchParams) Filters() Filters {
	return Filters{
		Q:        p.Keyword,
		Type:     p.Type,
		Category: p.Category,
		Urgency:  p.Urgency,
		Location: p.Location,
		Date:     string(p.Date),
	}
}
