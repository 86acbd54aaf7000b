package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core/video"
)

const (
	videoColumns = `id, title, description, video_url, storage_path, thumbnail_url, thumbnail_path, thumbnail_at,
	order_index, is_active, created_by, created_at, updated_at`
	videoOrderConstraint = "dashboard_videos_order_index_key"
)

type videoRow struct {
	ID            string       `db:"id"`
	Title         string       `db:"title"`
	Description   string       `db:"description"`
	VideoURL      string       `db:"video_url"`
	StoragePath   null.String  `db:"storage_path"`
	ThumbnailURL  null.String  `db:"thumbnail_url"`
	ThumbnailPath null.String  `db:"thumbnail_path"`
	ThumbnailAt   null.Float64 `db:"thumbnail_at"`
	OrderIndex    int          `db:"order_index"`
	IsActive      bool         `db:"is_active"`
	CreatedBy     null.String  `db:"created_by"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func toVideoRow(v video.Video) videoRow {
	return videoRow{
		ID:            v.ID,
		Title:         v.Title,
		Description:   v.Description,
		VideoURL:      v.VideoURL,
		StoragePath:   null.NewString(v.StoragePath, v.StoragePath != ""),
		ThumbnailURL:  null.NewString(v.ThumbnailURL, v.ThumbnailURL != ""),
		ThumbnailPath: null.NewString(v.ThumbnailPath, v.ThumbnailPath != ""),
		ThumbnailAt:   null.Float64FromPtr(v.ThumbnailAt),
		OrderIndex:    v.OrderIndex,
		IsActive:      v.IsActive,
		CreatedBy:     null.StringFromPtr(v.CreatedBy),
		CreatedAt:     v.CreatedAt.UTC(),
		UpdatedAt:     v.UpdatedAt.UTC(),
	}
}

func (r videoRow) toVideo() video.Video {
	return video.Video{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		VideoURL:      r.VideoURL,
		StoragePath:   r.StoragePath.String,
		ThumbnailURL:  r.ThumbnailURL.String,
		ThumbnailPath: r.ThumbnailPath.String,
		ThumbnailAt:   r.ThumbnailAt.Ptr(),
		OrderIndex:    r.OrderIndex,
		IsActive:      r.IsActive,
		CreatedBy:     r.CreatedBy.Ptr(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type videoRepository struct {
	db *sqlx.DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *sqlx.DB) *videoRepository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) MaxOrderIndex(ctx context.Context) (int, error) {
	var max int
	if err := repo.db.GetContext(ctx, &max, "SELECT COALESCE(MAX(order_index), -1) FROM dashboard_videos"); err != nil {
		return 0, dbError(err, "getting max video order_index")
	}
	return max, nil
}

func (repo *videoRepository) CreateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	v.ID = newID()
	row := toVideoRow(v)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO dashboard_videos (`+videoColumns+`) VALUES (
		:id, :title, :description, :video_url, :storage_path, :thumbnail_url, :thumbnail_path, :thumbnail_at,
		:order_index, :is_active, :created_by, :created_at, :updated_at)`, row)
	if err != nil {
		return video.Video{}, orderIndexErr(err, videoOrderConstraint, "inserting video")
	}
	return row.toVideo(), nil
}

func (repo *videoRepository) QueryVideos(ctx context.Context, filter *video.QueryFilter) ([]video.Video, error) {
	var w where
	if filter != nil && filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	var rows []videoRow
	q := repo.db.Rebind("SELECT " + videoColumns + " FROM dashboard_videos" + w.String() + " ORDER BY order_index")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying videos")
	}
	videos := make([]video.Video, 0, len(rows))
	for _, r := range rows {
		videos = append(videos, r.toVideo())
	}
	return videos, nil
}

func (repo *videoRepository) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if !isValidID(id) {
		return video.Video{}, video.ErrNotFound
	}
	var row videoRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+videoColumns+" FROM dashboard_videos WHERE id = $1", id); err != nil {
		return video.Video{}, trapNoRowsErr(err, video.ErrNotFound, "finding video")
	}
	return row.toVideo(), nil
}

func (repo *videoRepository) UpdateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	row := toVideoRow(v)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE dashboard_videos SET
		title = :title, description = :description, video_url = :video_url, storage_path = :storage_path,
		thumbnail_url = :thumbnail_url, thumbnail_path = :thumbnail_path, thumbnail_at = :thumbnail_at,
		order_index = :order_index, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return video.Video{}, orderIndexErr(err, videoOrderConstraint, "updating video")
	}
	if err = checkAffected(res, video.ErrNotFound); err != nil {
		return video.Video{}, err
	}
	return row.toVideo(), nil
}

func (repo *videoRepository) DeleteVideo(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM dashboard_videos WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting video")
	}
	return checkAffected(res, video.ErrNotFound)
}
