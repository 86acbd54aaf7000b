package echoapi_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/core/video"
)

// newMultipartRequest builds a multipart request holding the given fields and, when fileName is set, a file part.
func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, fileName string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func Test_videoApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	anaToken := getToken(t, env.conf, ana)

	stored := func(p string) bool {
		ok, err := env.store.Exists(context.Background(), p)
		require.NoError(t, err)
		return ok
	}

	// external video
	req, rec := newAuthRequest(http.MethodPost, "/v1/videos", adminToken, marchallObj(t, video.NewVideo{
		Title:    "Boas-vindas",
		VideoURL: "https://videos.cresol.test/welcome.mp4",
		IsActive: core.BoolPtr(false),
	}))
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var external video.Video
	unmarshal(t, rec, &external)
	assert.Equal(t, 0, external.OrderIndex)
	assert.Empty(t, external.StoragePath)

	// uploaded video, with the title as its only form field
	req, rec = newMultipartRequest(t, "/v1/videos", adminToken, map[string]string{"title": "Treinamento"}, "treino.MP4", []byte("not really a video"))
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded video.Video
	unmarshal(t, rec, &uploaded)
	assert.Equal(t, 1, uploaded.OrderIndex)
	assert.True(t, uploaded.IsActive)
	require.True(t, strings.HasPrefix(uploaded.StoragePath, "videos/"))
	assert.True(t, strings.HasSuffix(uploaded.StoragePath, ".mp4"))
	assert.Equal(t, "/media/"+uploaded.StoragePath, uploaded.VideoURL)
	assert.True(t, stored(uploaded.StoragePath))

	tests := []httpTest{
		{name: "list: admin", method: http.MethodGet, path: "/v1/videos", token: adminToken, wantData: marchallList(t, external, uploaded)},
		{name: "list: users see active videos", method: http.MethodGet, path: "/v1/videos", token: anaToken, wantData: marchallList(t, uploaded)},
		{name: "list: admin filter", method: http.MethodGet, path: "/v1/videos?is_active=false", token: adminToken, wantData: marchallList(t, external)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/videos/" + uploaded.ID, token: anaToken, wantData: marchallObj(t, uploaded)},
		{
			name: "create: admin required", method: http.MethodPost, path: "/v1/videos", token: anaToken,
			body:     marchallObj(t, video.NewVideo{Title: "lol", VideoURL: "https://lol.test/a.mp4"}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "create: source required", method: http.MethodPost, path: "/v1/videos", token: adminToken,
			body:     marchallObj(t, video.NewVideo{Title: "lol"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": video.ErrSourceRequired.Error()}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/videos/" + external.ID, token: adminToken,
			body: marchallObj(t, map[string]interface{}{"is_active": true, "description": "Vídeo institucional"}),
		},
	}
	runTests(t, env, tests)

	t.Run("create: unsupported format", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/videos", adminToken, map[string]string{"title": "lol"}, "lol.exe", []byte("MZ"))
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file":"unsupported video format"}`, rec.Body.String())
	})

	t.Run("thumbnail: invalid at", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/videos/"+uploaded.ID+"/thumbnail", adminToken, map[string]string{"at": "-1"}, "frame.png", pngImage(t, 16, 9))
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"at":"must be a positive number of seconds"}`, rec.Body.String())
	})

	t.Run("thumbnail: not an image", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/videos/"+uploaded.ID+"/thumbnail", adminToken, nil, "frame.png", []byte("lol"))
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file":"the file is not a valid image"}`, rec.Body.String())
	})

	var first video.Video
	t.Run("thumbnail", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/videos/"+uploaded.ID+"/thumbnail", adminToken, map[string]string{"at": "12.5"}, "frame.png", pngImage(t, 1280, 720))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &first)
		require.NotNil(t, first.ThumbnailAt)
		assert.Equal(t, 12.5, *first.ThumbnailAt)
		assert.Equal(t, "/media/"+first.ThumbnailPath, first.ThumbnailURL)

		img, err := imaging.Open(filepath.Join(env.store.Root(), filepath.FromSlash(first.ThumbnailPath)))
		require.NoError(t, err)
		assert.Equal(t, video.ThumbnailWidth, img.Bounds().Dx())
		assert.Equal(t, video.ThumbnailHeight, img.Bounds().Dy())
	})

	t.Run("thumbnail replaces the previous one", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/videos/"+uploaded.ID+"/thumbnail", adminToken, nil, "custom.png", pngImage(t, 320, 240))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var v video.Video
		unmarshal(t, rec, &v)
		assert.Nil(t, v.ThumbnailAt)
		assert.NotEqual(t, first.ThumbnailPath, v.ThumbnailPath)
		assert.False(t, stored(first.ThumbnailPath))
		assert.True(t, stored(v.ThumbnailPath))
		first = v
	})

	t.Run("delete removes the stored files", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/videos/"+uploaded.ID, anaToken)
		env.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/videos/"+uploaded.ID, adminToken)
		env.serve(req, rec)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, stored(uploaded.StoragePath))
		assert.False(t, stored(first.ThumbnailPath))

		_, err := os.Stat(filepath.Join(env.store.Root(), "videos"))
		assert.NoError(t, err, "the folder itself stays")

		req, rec = newAuthRequest(http.MethodGet, "/v1/videos/"+uploaded.ID, adminToken)
		env.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
