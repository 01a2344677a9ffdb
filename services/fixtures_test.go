package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pedulirasa/backend/models"
)

// fixedNow is a Wednesday.
var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := newTestDB(t)
	return New(db, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC)), db
}

func ago(d time.Duration) time.Time { return fixedNow.Add(-d) }

func mkUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

type donationOpt func(*models.Donation)

func withCategory(id uint) donationOpt {
	return func(d *models.Donation) { d.DonationCategoryID = &id }
}

func withUrgency(u string) donationOpt {
	return func(d *models.Donation) { d.Urgency = &u }
}

func withAddress(a string) donationOpt {
	return func(d *models.Donation) { d.Address = a }
}

func mkDonation(t *testing.T, db *gorm.DB, user models.User, kind, title string, created time.Time, opts ...donationOpt) models.Donation {
	t.Helper()
	d := models.Donation{
		UserID:      user.ID,
		Type:        kind,
		Title:       title,
		Slug:        slugFor(title, created),
		Description: "description of " + title,
		Status:      "available",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, o := range opts {
		o(&d)
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

func mkForum(t *testing.T, db *gorm.DB, user models.User, title string, created time.Time) models.Forum {
	t.Helper()
	f := models.Forum{
		UserID:      user.ID,
		Title:       title,
		Slug:        slugFor(title, created),
		Description: "about " + title,
		Thumbnail:   "forums/thumb.jpg",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

func mkAffair(t *testing.T, db *gorm.DB, user models.User, title string, date time.Time, created time.Time) models.Affair {
	t.Helper()
	a := models.Affair{
		UserID:      user.ID,
		Title:       title,
		Slug:        slugFor(title, created),
		Description: "event " + title,
		Date:        datatypes.Date(date),
		Time:        datatypes.NewTime(9, 30, 0, 0),
		Location:    "Balai Warga",
		Thumbnail:   "affairs/t.jpg",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func slugFor(title string, created time.Time) string {
	return title + "-" + created.Format("20060102150405.000000000")
}

func postTitles(posts []Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}
