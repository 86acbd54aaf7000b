package collection

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

// Collection types
const (
	TypePhotos = "photos"
	TypeVideos = "videos"
	TypeMixed  = "mixed"
)

// Item media types
const (
	MediaImage = "image"
	MediaVideo = "video"
)

type Collection struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CoverImageURL string    `json:"cover_image_url"`
	Type          string    `json:"type"`
	IsActive      bool      `json:"is_active"`
	OrderIndex    int       `json:"order_index"`
	Items         []Item    `json:"items"`
	CreatedBy     *string   `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Accepts reports whether an item of the given media type fits in the collection.
func (c Collection) Accepts(mediaType string) bool {
	switch c.Type {
	case TypePhotos:
		return mediaType == MediaImage
	case TypeVideos:
		return mediaType == MediaVideo
	}
	return true
}

type Item struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Title        string    `json:"title"`
	MediaURL     string    `json:"media_url"`
	MediaType    string    `json:"media_type"`
	OrderIndex   int       `json:"order_index"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewCollection struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	CoverImageURL string `json:"cover_image_url" validate:"omitempty,link"`
	Type          string `json:"type" validate:"omitempty,oneof=photos videos mixed"`
	IsActive      *bool  `json:"is_active"`
	OrderIndex    int    `json:"order_index" validate:"min=0"`
}

func (nc *NewCollection) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.CoverImageURL = core.CleanString(nc.CoverImageURL)
	if nc.Type == "" {
		nc.Type = TypeMixed
	}
	return validate.Struct(nc)
}

type UpdateCollection struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"cover_image_url" validate:"omitempty,link"`
	Type          *string `json:"type" validate:"omitempty,oneof=photos videos mixed"`
	IsActive      *bool   `json:"is_active"`
	OrderIndex    *int    `json:"order_index" validate:"omitempty,min=0"`
}

func (uc *UpdateCollection) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	return validate.Struct(uc)
}

type NewItem struct {
	Title      string `json:"title" validate:"max=200"`
	MediaURL   string `json:"media_url" validate:"required,link"`
	MediaType  string `json:"media_type" validate:"required,oneof=image video"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.MediaURL = core.CleanString(ni.MediaURL)
	return validate.Struct(ni)
}

type UpdateItem struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	MediaURL   *string `json:"media_url" validate:"omitempty,link"`
	MediaType  *string `json:"media_type" validate:"omitempty,oneof=image video"`
	OrderIndex *int    `json:"order_index" validate:"omitempty,min=0"`
}

func (ui *UpdateItem) Validate(validate *validator.Validate) error { return validate.Struct(ui) }

type QueryFilter struct {
	ActiveOnly bool
}

type Repository interface {
	CreateCollection(ctx context.Context, c Collection) (Collection, error)
	// QueryCollections returns collections with their items, ordered by order_index then title.
	QueryCollections(ctx context.Context, filter *QueryFilter) ([]Collection, error)
	GetCollection(ctx context.Context, id string) (Collection, error)
	UpdateCollection(ctx context.Context, c Collection) (Collection, error)
	DeleteCollection(ctx context.Context, id string) error

	// MaxItemOrderIndex returns the highest item order_index of the collection, or -1 when it is empty.
	MaxItemOrderIndex(ctx context.Context, collectionID string) (int, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	GetItem(ctx context.Context, collectionID, id string) (Item, error)
	UpdateItem(ctx context.Context, it Item) (Item, error)
	DeleteItem(ctx context.Context, collectionID, id string) error
}
