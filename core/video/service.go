package video

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	allowedExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".m4v": true, ".ogv": true}

	// errors
	ErrNotFound         = errors.New("video not found")
	ErrSourceRequired   = errors.New("either a file or a video_url is required")
	ErrInvalidExtension = errors.New("unsupported video format")
)

type (
	Service interface {
		Create(ctx context.Context, actor user.User, nv NewVideo, file *Upload) (Video, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Video, error)
		GetByID(ctx context.Context, id string) (Video, error)
		Update(ctx context.Context, actor user.User, v Video, uv UpdateVideo) (Video, error)
		// SetThumbnail normalizes the uploaded image into a thumbnail and replaces the previous one.
		SetThumbnail(ctx context.Context, actor user.User, v Video, img *Upload, at *float64) (Video, error)
		// Delete removes the stored objects first, then the row. A storage failure leaves the row untouched.
		Delete(ctx context.Context, actor user.User, v Video) error
	}

	service struct {
		repo   Repository
		store  core.FileStore
		logger core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, store core.FileStore, logger core.Logger) Service {
	return &service{repo: repo, store: store, logger: logger}
}

func (svc *service) Create(ctx context.Context, actor user.User, nv NewVideo, file *Upload) (Video, error) {
	if !actor.IsAdmin() {
		return Video{}, core.ErrForbidden
	}
	if file == nil && nv.VideoURL == "" {
		return Video{}, core.NewValidationError(ErrSourceRequired, core.FieldError{Field: "file", Error: ErrSourceRequired.Error()})
	}

	now := nowFunc().UTC()
	v := Video{
		Title:       nv.Title,
		Description: nv.Description,
		VideoURL:    nv.VideoURL,
		IsActive:    nv.IsActive == nil || *nv.IsActive,
		CreatedBy:   core.StringPtr(actor.ID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if file != nil {
		ext := strings.ToLower(path.Ext(file.Name))
		if !allowedExtensions[ext] {
			return Video{}, core.NewValidationError(ErrInvalidExtension, core.FieldError{Field: "file", Error: ErrInvalidExtension.Error()})
		}
		v.StoragePath = path.Join("videos", uuid.New().String()+ext)
		if err := svc.store.Put(ctx, v.StoragePath, file.Content); err != nil {
			return Video{}, errors.Wrap(err, "storing video")
		}
		v.VideoURL = svc.store.URL(v.StoragePath)
	}

	var saved Video
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, nv.OrderIndex, func(idx int) error {
		v.OrderIndex = idx
		var err error
		saved, err = svc.repo.CreateVideo(ctx, v)
		return err
	})
	if err != nil {
		svc.removeObjects(ctx, v.StoredPaths()...)
		return Video{}, errors.Wrap(err, "creating video")
	}
	return saved, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Video, error) {
	return svc.repo.QueryVideos(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideo(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, v Video, uv UpdateVideo) (Video, error) {
	if !actor.IsAdmin() {
		return Video{}, core.ErrForbidden
	}
	if uv.Title != nil {
		v.Title = *uv.Title
	}
	if uv.Description != nil {
		v.Description = *uv.Description
	}
	// uploaded videos keep serving their stored object
	if uv.VideoURL != nil && v.StoragePath == "" {
		v.VideoURL = *uv.VideoURL
	}
	if uv.IsActive != nil {
		v.IsActive = *uv.IsActive
	}
	v.UpdatedAt = nowFunc().UTC()

	idx := v.OrderIndex
	if uv.OrderIndex != nil {
		idx = *uv.OrderIndex
	}
	var saved Video
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, &idx, func(idx int) error {
		v.OrderIndex = idx
		var err error
		saved, err = svc.repo.UpdateVideo(ctx, v)
		return err
	})
	if err != nil {
		return Video{}, errors.Wrap(err, "updating video")
	}
	return saved, nil
}

func (svc *service) SetThumbnail(ctx context.Context, actor user.User, v Video, img *Upload, at *float64) (Video, error) {
	if !actor.IsAdmin() {
		return Video{}, core.ErrForbidden
	}
	if img == nil {
		return Video{}, core.NewFieldValidationError("file", ErrInvalidImage.Error())
	}
	data, err := EncodeThumbnail(img.Content)
	if err != nil {
		if err == ErrInvalidImage {
			return Video{}, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
		}
		return Video{}, err
	}

	oldPath := v.ThumbnailPath
	newPath := path.Join("thumbnails", fmt.Sprintf("%s-%d.jpg", v.ID, nowFunc().UnixNano()))
	if err = svc.store.Put(ctx, newPath, bytes.NewReader(data)); err != nil {
		return Video{}, errors.Wrap(err, "storing thumbnail")
	}

	v.ThumbnailPath = newPath
	v.ThumbnailURL = svc.store.URL(newPath)
	v.ThumbnailAt = at
	v.UpdatedAt = nowFunc().UTC()
	saved, err := svc.repo.UpdateVideo(ctx, v)
	if err != nil {
		svc.removeObjects(ctx, newPath)
		return Video{}, errors.Wrap(err, "updating video")
	}
	if oldPath != "" && oldPath != newPath {
		svc.removeObjects(ctx, oldPath)
	}
	return saved, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, v Video) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	if paths := v.StoredPaths(); len(paths) > 0 {
		if err := svc.store.Delete(ctx, paths...); err != nil {
			return errors.Wrap(err, "removing video files")
		}
	}
	if err := svc.repo.DeleteVideo(ctx, v.ID); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return nil
}

// removeObjects drops objects that are no longer referenced. Failures only leave orphan files, so they are logged.
func (svc *service) removeObjects(ctx context.Context, paths ...string) {
	if len(paths) == 0 {
		return
	}
	if err := svc.store.Delete(ctx, paths...); err != nil {
		svc.logger.Warn("removing orphan media objects", err, map[string]interface{}{"paths": paths})
	}
}
