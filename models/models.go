package models

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&DonationCategory{}, &ForumCategory{}, &AffairCategory{},
		&Donation{}, &DonationImage{},
		&Forum{}, &ForumLike{},
		&Affair{},
		&Comment{}, &LikedPost{}, &ChatMessage{},
		&UploadedFile{}, &PageView{},
	}
}
