package video

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

// Video is a dashboard video, either uploaded to the media storage or hosted elsewhere.
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	VideoURL      string    `json:"video_url"`
	StoragePath   string    `json:"storage_path"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	ThumbnailPath string    `json:"thumbnail_path"`
	ThumbnailAt   *float64  `json:"thumbnail_at"` // seconds into the video the frame was captured at
	OrderIndex    int       `json:"order_index"`
	IsActive      bool      `json:"is_active"`
	CreatedBy     *string   `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StoredPaths lists the media objects owned by the video.
func (v Video) StoredPaths() []string {
	paths := make([]string, 0, 2)
	if v.StoragePath != "" {
		paths = append(paths, v.StoragePath)
	}
	if v.ThumbnailPath != "" {
		paths = append(paths, v.ThumbnailPath)
	}
	return paths
}

// Upload is a file received from a client.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

type NewVideo struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"max=2000"`
	VideoURL    string `json:"video_url" form:"video_url" validate:"omitempty,link"`
	OrderIndex  *int   `json:"order_index" form:"order_index" validate:"omitempty,min=0"`
	IsActive    *bool  `json:"is_active" form:"is_active"`
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanString(nv.Title)
	nv.Description = core.CleanString(nv.Description)
	nv.VideoURL = core.CleanString(nv.VideoURL)
	return validate.Struct(nv)
}

type UpdateVideo struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	VideoURL    *string `json:"video_url" validate:"omitempty,link"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

func (uv *UpdateVideo) Validate(validate *validator.Validate) error {
	if uv.Title != nil {
		title := core.CleanString(*uv.Title)
		uv.Title = &title
	}
	return validate.Struct(uv)
}

type QueryFilter struct {
	IsActive *bool `query:"is_active"`
}

type Repository interface {
	core.OrderIndexStore

	CreateVideo(ctx context.Context, v Video) (Video, error)
	// QueryVideos returns videos ordered by order_index.
	QueryVideos(ctx context.Context, filter *QueryFilter) ([]Video, error)
	GetVideo(ctx context.Context, id string) (Video, error)
	UpdateVideo(ctx context.Context, v Video) (Video, error)
	DeleteVideo(ctx context.Context, id string) error
}
