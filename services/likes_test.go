package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedulirasa/backend/models"
)

func TestToggleForumLike(t *testing.T) {
	svc, db := newTestService(t)
	u := mkUser(t, db, "liker")
	f := mkForum(t, db, u, "topic", ago(time.Hour))
	ctx := context.Background()

	liked, count, err := svc.ToggleForumLike(ctx, f.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	has, err := svc.HasLikedForum(ctx, f.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, has)

	liked, count, err = svc.ToggleForumLike(ctx, f.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, liked, "second like removes the first")
	assert.Equal(t, int64(0), count)
}

func TestLikedPosts(t *testing.T) {
	svc, db := newTestService(t)
	u := mkUser(t, db, "fan")
	d := mkDonation(t, db, u, models.DonationTypeDonation, "Donasi", ago(3*time.Hour))
	r := mkDonation(t, db, u, models.DonationTypeRequest, "Permintaan", ago(time.Hour))
	f := mkForum(t, db, u, "Forum", ago(2*time.Hour))
	mkForum(t, db, u, "Not liked", ago(30*time.Minute))
	ctx := context.Background()

	for _, l := range []struct {
		typ string
		id  uint
	}{{LikeableDonation, d.ID}, {LikeableDonation, r.ID}, {LikeableForum, f.ID}} {
		liked, err := svc.TogglePostLike(ctx, u.ID, l.typ, l.id)
		require.NoError(t, err)
		assert.True(t, liked)
	}

	posts, err := svc.LikedPosts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Permintaan", "Forum", "Donasi"}, postTitles(posts))

	liked, err := svc.TogglePostLike(ctx, u.ID, LikeableForum, f.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	posts, err = svc.LikedPosts(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	_, err = svc.TogglePostLike(ctx, u.ID, "affair", 1)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUniqueSlug(t *testing.T) {
	_, db := newTestService(t)
	u := mkUser(t, db, "slugger")
	ctx := context.Background()

	s1, err := UniqueSlug(ctx, db, &models.Donation{}, "Nasi Kotak Gratis!", 0)
	require.NoError(t, err)
	assert.Equal(t, "nasi-kotak-gratis", s1)
	d := models.Donation{UserID: u.ID, Type: "donation", Title: "x", Slug: s1, Description: "x"}
	require.NoError(t, db.Create(&d).Error)

	s2, err := UniqueSlug(ctx, db, &models.Donation{}, "Nasi kotak gratis", 0)
	require.NoError(t, err)
	assert.Equal(t, "nasi-kotak-gratis-2", s2)

	// The row being updated keeps its own slug
	s3, err := UniqueSlug(ctx, db, &models.Donation{}, "Nasi kotak gratis", d.ID)
	require.NoError(t, err)
	assert.Equal(t, "nasi-kotak-gratis", s3)

	// Soft-deleted rows still reserve their slug
	require.NoError(t, db.Delete(&d).Error)
	s4, err := UniqueSlug(ctx, db, &models.Donation{}, "Nasi kotak gratis", 0)
	require.NoError(t, err)
	assert.Equal(t, "nasi-kotak-gratis-2", s4)

	s5, err := UniqueSlug(ctx, db, &models.Forum{}, "!!!", 0)
	require.NoError(t, err)
	assert.Equal(t, "post", s5)
}
