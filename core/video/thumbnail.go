package video

import (
	"bytes"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	ThumbnailWidth   = 640
	ThumbnailHeight  = 360
	ThumbnailQuality = 85
)

var ErrInvalidImage = errors.New("the file is not a valid image")

// EncodeThumbnail decodes an image (a captured frame or a custom picture), fits it into
// ThumbnailWidth x ThumbnailHeight keeping its aspect ratio, and encodes it as JPEG.
func EncodeThumbnail(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImage
	}
	thumb := imaging.Fit(img, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err = imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailQuality)); err != nil {
		return nil, errors.Wrap(err, "encoding thumbnail")
	}
	return buf.Bytes(), nil
}
