package video

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncodeThumbnail(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"hd frame", 1280, 720, 640, 360},
		{"full hd frame", 1920, 1080, 640, 360},
		{"portrait", 720, 1440, 180, 360},
		{"ultra wide", 2560, 800, 640, 200},
		{"small pictures are not upscaled", 320, 180, 320, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeThumbnail(bytes.NewReader(encodePNG(t, tt.width, tt.height)))
			require.NoError(t, err)

			img, format, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestEncodeThumbnail_invalid(t *testing.T) {
	_, err := EncodeThumbnail(strings.NewReader("definitely not an image"))
	assert.Equal(t, ErrInvalidImage, err)
}
