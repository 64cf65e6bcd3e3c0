package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podbrah/podbrah-backend/models"
)

func profileRouter(env *testEnv, userID string) *gin.Engine {
	r := gin.New()
	g := r.Group("/api", asUser(userID, userID+"@example.com"))
	g.POST("/auth/callback", env.ctl.AuthCallback)
	g.GET("/profile", env.ctl.GetProfile)
	g.PUT("/profile", env.ctl.CompleteProfile)
	g.POST("/profile/twin", env.ctl.UpdateTwin)
	g.GET("/profile/ideas", env.ctl.ListIdeas)
	return r
}

func TestAuthCallbackThenCompleteProfile(t *testing.T) {
	env := newTestEnv(t)
	r := profileRouter(env, "u-9")

	w := doJSON(t, r, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/callback", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/complete-profile"`)

	w = doJSON(t, r, http.MethodPut, "/api/profile", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/profile", `{"name":"Sam","bio":"Listener"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/callback", nil)
	assert.Contains(t, w.Body.String(), `"redirect":"/profile"`)

	var p models.Profile
	require.NoError(t, env.db.First(&p, "id = ?", "u-9").Error)
	assert.True(t, p.ProfileCompleted)
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, "u-9@example.com", p.Email)
}

func twinRequest(t *testing.T, twinName string, avatar []byte, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("twin_name", twinName))
	if avatar != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(avatar)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile/twin", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpdateTwinUploadsAndReplacesAvatar(t *testing.T) {
	env := newTestEnv(t)
	r := profileRouter(env, "u-1")
	require.NoError(t, env.db.Create(&models.Profile{ID: "u-1"}).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "Echo", []byte("png-bytes"), "image/png"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.avatars.uploaded, 1)
	assert.Empty(t, env.avatars.deleted)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "Echo 2", []byte("png-bytes-2"), "image/png"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.avatars.uploaded, 2)
	assert.Equal(t, []string{env.avatars.uploaded[0]}, env.avatars.deleted)

	var p models.Profile
	require.NoError(t, env.db.First(&p, "id = ?", "u-1").Error)
	assert.Equal(t, "Echo 2", p.TwinName)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, env.avatars.uploaded[1], *p.AvatarURL)
	assert.True(t, p.ProfileCompleted)
}

func TestUpdateTwinRemovesAvatarWhenProfileWriteFails(t *testing.T) {
	env := newTestEnv(t)
	r := profileRouter(env, "u-1")
	require.NoError(t, env.db.Create(&models.Profile{ID: "u-1"}).Error)
	env.avatars.afterUpload = func() {
		require.NoError(t, env.db.Delete(&models.Profile{}, "id = ?", "u-1").Error)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "Echo", []byte("png-bytes"), "image/png"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, env.avatars.uploaded, 1)
	assert.Equal(t, env.avatars.uploaded, env.avatars.deleted)
}

func TestUpdateTwinRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	r := profileRouter(env, "u-1")
	require.NoError(t, env.db.Create(&models.Profile{ID: "u-1"}).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "", nil, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "Echo", []byte("webp"), "image/webp"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.avatars.uploaded)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, twinRequest(t, "Echo", nil, ""))
	assert.Equal(t, http.StatusOK, w.Code)
}
