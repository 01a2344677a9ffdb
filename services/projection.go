package services

import (
	"time"

	"github.com/pedulirasa/backend/models"
)

// UncategorizedName is shown when a post has no category.
const UncategorizedName = "Uncategorized"

// TimestampLayout renders created_at/updated_at as ISO-8601 in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Post is the common shape every variant is projected into.
type Post struct {
	Type        PostKind `json:"type"`
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	// Donation and request fields
	Status      string  `json:"status,omitempty"`
	Urgency     *string `json:"urgency,omitempty"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	Address     string  `json:"address,omitempty"`
	// Affair fields
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
	// Image is the first donation image or the thumbnail, as a URL.
	Image         string          `json:"image,omitempty"`
	User          UserSummary     `json:"user"`
	Category      CategorySummary `json:"category"`
	CommentsCount int64           `json:"comments_count"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`

	createdAt time.Time
}

// UserSummary is the author block. Every field is empty when the author is gone.
type UserSummary struct {
	ID          *uint   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Image       *string `json:"image"`
	PhoneNumber *string `json:"phone_number"`
}

// CategorySummary is the category block; ID is null for uncategorized posts.
type CategorySummary struct {
	ID   *uint  `json:"id"`
	Name string `json:"name"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func summarizeUser(u *models.User) UserSummary {
	if u == nil || u.ID == 0 {
		return UserSummary{}
	}
	id := u.ID
	return UserSummary{ID: &id, Name: u.Name, Email: u.Email, Image: u.Image, PhoneNumber: u.PhoneNumber}
}

func summarizeCategory(id uint, name string, present bool) CategorySummary {
	if !present {
		return CategorySummary{Name: UncategorizedName}
	}
	return CategorySummary{ID: &id, Name: name}
}

func (s *Service) projectDonation(d models.Donation) Post {
	kind := KindDonation
	if d.Type == models.DonationTypeRequest {
		kind = KindRequest
	}
	p := Post{
		Type:          kind,
		ID:            d.ID,
		Title:         d.Title,
		Slug:          d.Slug,
		Description:   d.Description,
		Status:        d.Status,
		Urgency:       d.Urgency,
		PhoneNumber:   d.PhoneNumber,
		Address:       d.Address,
		User:          summarizeUser(d.User),
		CommentsCount: d.CommentsCount,
		CreatedAt:     formatTimestamp(d.CreatedAt),
		UpdatedAt:     formatTimestamp(d.UpdatedAt),
		createdAt:     d.CreatedAt,
	}
	if d.Category != nil {
		p.Category = summarizeCategory(d.Category.ID, d.Category.Name, true)
	} else {
		p.Category = summarizeCategory(0, "", false)
	}
	if len(d.Images) > 0 {
		p.Image = s.resolve(d.Images[0].Image)
	}
	return p
}

func (s *Service) projectForum(f models.Forum) Post {
	p := Post{
		Type:          KindForum,
		ID:            f.ID,
		Title:         f.Title,
		Slug:          f.Slug,
		Description:   f.Description,
		Image:         s.resolve(f.Thumbnail),
		User:          summarizeUser(f.User),
		CommentsCount: f.CommentsCount,
		CreatedAt:     formatTimestamp(f.CreatedAt),
		UpdatedAt:     formatTimestamp(f.UpdatedAt),
		createdAt:     f.CreatedAt,
	}
	if f.Category != nil {
		p.Category = summarizeCategory(f.Category.ID, f.Category.Name, true)
	} else {
		p.Category = summarizeCategory(0, "", false)
	}
	return p
}

func (s *Service) projectAffair(a models.Affair) Post {
	p := Post{
		Type:          KindAffair,
		ID:            a.ID,
		Title:         a.Title,
		Slug:          a.Slug,
		Description:   a.Description,
		Date:          time.Time(a.Date).Format("2006-01-02"),
		Time:          a.Time.String(),
		Location:      a.Location,
		Image:         s.resolve(a.Thumbnail),
		User:          summarizeUser(a.User),
		CommentsCount: a.CommentsCount,
		CreatedAt:     formatTimestamp(a.CreatedAt),
		UpdatedAt:     formatTimestamp(a.UpdatedAt),
		createdAt:     a.CreatedAt,
	}
	if a.Category != nil {
		p.Category = summarizeCategory(a.Category.ID, a.Category.Name, true)
	} else {
		p.Category = summarizeCategory(0, "", false)
	}
	return p
}
