package content

import "strings"

// CreateRequest is the body of a create call. Title, Slug and Content are
// required; the rest fall back to defaults.
type CreateRequest struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Content         string `json:"content"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	MetaKeywords    string `json:"metaKeywords"`
	FeaturedImage   string `json:"featuredImage"`
	Status          Status `json:"status"`
}

// Validate checks required fields and formats.
func (r CreateRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Slug) == "" {
		missing = append(missing, "slug")
	}
	if r.Content == "" {
		missing = append(missing, "content")
	}
	if err := missingFields(missing...); err != nil {
		return err
	}
	if !ValidSlug(r.Slug) {
		return &ValidationError{Field: "slug", Reason: "must be lowercase letters, digits and single hyphens"}
	}
	if r.Status != "" && !r.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be draft or published"}
	}
	return nil
}

// UpdateRequest is the body of an update call. Only ID is required; nil
// fields keep their stored value.
type UpdateRequest struct {
	ID              string  `json:"id"`
	Title           *string `json:"title,omitempty"`
	Slug            *string `json:"slug,omitempty"`
	Content         *string `json:"content,omitempty"`
	MetaTitle       *string `json:"metaTitle,omitempty"`
	MetaDescription *string `json:"metaDescription,omitempty"`
	MetaKeywords    *string `json:"metaKeywords,omitempty"`
	FeaturedImage   *string `json:"featuredImage,omitempty"`
	Status          *Status `json:"status,omitempty"`
}

// Validate checks the id and any provided field that has a format.
func (r UpdateRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return missingFields("id")
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if r.Slug != nil && !ValidSlug(*r.Slug) {
		return &ValidationError{Field: "slug", Reason: "must be lowercase letters, digits and single hyphens"}
	}
	if r.Status != nil && !r.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be draft or published"}
	}
	return nil
}

// apply copies the provided fields onto p.
func (r UpdateRequest) apply(p *Post) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Title, r.Title)
	set(&p.Slug, r.Slug)
	set(&p.Content, r.Content)
	set(&p.MetaTitle, r.MetaTitle)
	set(&p.MetaDescription, r.MetaDescription)
	set(&p.MetaKeywords, r.MetaKeywords)
	set(&p.FeaturedImage, r.FeaturedImage)
	if r.Status != nil {
		p.Status = *r.Status
	}
}

// UpdateFrom builds an UpdateRequest that replaces every field of the
// post with id p.ID.
func UpdateFrom(p Post) UpdateRequest {
	status := p.Status
	return UpdateRequest{
		ID:              p.ID,
		Title:           &p.Title,
		Slug:            &p.Slug,
		Content:         &p.Content,
		MetaTitle:       &p.MetaTitle,
		MetaDescription: &p.MetaDescription,
		MetaKeywords:    &p.MetaKeywords,
		FeaturedImage:   &p.FeaturedImage,
		Status:          &status,
	}
}

// CreateFrom builds a CreateRequest from a post that has no id yet.
func CreateFrom(p Post) CreateRequest {
	return CreateRequest{
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		FeaturedImage:   p.FeaturedImage,
		Status:          p.Status,
	}
}
