package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"videotube/internal/apperrors"
	"videotube/internal/domain"
	apphttp "videotube/internal/http"
	"videotube/internal/mocks"
	"videotube/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, users service.UserService) (*gin.Engine, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tempDir := t.TempDir()
	router := gin.New()
	apphttp.NewHandler(users, apphttp.Options{TempDir: tempDir}, logger).RegisterRoutes(router)
	return router, tempDir
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"fullname": "Jane Doe",
		"email":    "jane@x.com",
		"username": "JaneD",
		"password": "longpass1",
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apphttp.APIError {
	t.Helper()
	var resp apphttp.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterUser_Success(t *testing.T) {
	users := mocks.NewMockUserService()
	router, tempDir := setupRouter(t, users)

	var avatarPath, coverPath string
	users.On("Register", mock.Anything, mock.MatchedBy(func(in domain.RegistrationInput) bool {
		return in.Fullname == "Jane Doe" &&
			in.Email == "jane@x.com" &&
			in.Username == "JaneD" &&
			in.Password == "longpass1" &&
			in.AvatarPath != "" &&
			in.CoverImagePath != ""
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(domain.RegistrationInput)
		avatarPath, coverPath = in.AvatarPath, in.CoverImagePath

		data, err := os.ReadFile(in.AvatarPath)
		require.NoError(t, err)
		assert.Equal(t, "avatar-bytes", string(data))
		assert.Equal(t, tempDir, filepath.Dir(in.AvatarPath))
		assert.Equal(t, ".png", filepath.Ext(in.AvatarPath))
	}).Return(&domain.PublicUser{
		ID:        "user-1",
		Fullname:  "Jane Doe",
		Username:  "janed",
		Email:     "jane@x.com",
		AvatarURL: "https://cdn/a.png",
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, validFields(),
		formFile{"avatar", "me.png", []byte("avatar-bytes")},
		formFile{"coverImage", "cover.jpg", []byte("cover-bytes")},
	))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		StatusCode int            `json:"statusCode"`
		Data       map[string]any `json:"data"`
		Message    string         `json:"message"`
		Success    bool           `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.Success)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "janed", resp.Data["username"])
	assert.Equal(t, "https://cdn/a.png", resp.Data["avatarUrl"])
	assert.Equal(t, "", resp.Data["coverImageUrl"])
	assert.NotContains(t, resp.Data, "password")
	assert.NotContains(t, resp.Data, "refreshToken")

	_, err := os.Stat(avatarPath)
	assert.True(t, os.IsNotExist(err), "temp avatar removed")
	_, err = os.Stat(coverPath)
	assert.True(t, os.IsNotExist(err), "temp cover removed")
	users.AssertExpectations(t)
}

func TestRegisterUser_WithoutFiles(t *testing.T) {
	users := mocks.NewMockUserService()
	router, _ := setupRouter(t, users)

	users.On("Register", mock.Anything, mock.MatchedBy(func(in domain.RegistrationInput) bool {
		return in.AvatarPath == "" && in.CoverImagePath == ""
	})).Return(nil, apperrors.NewValidationError(service.MsgAvatarRequired))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, validFields()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, service.MsgAvatarRequired, resp.Message)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Errors)
}

func TestRegisterUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperrors.NewValidationError(service.MsgFieldsRequired), http.StatusBadRequest, service.MsgFieldsRequired},
		{"conflict", apperrors.NewConflictError(nil, service.MsgUserExists), http.StatusConflict, service.MsgUserExists},
		{"upload", apperrors.NewUploadError(errors.New("s3 down"), service.MsgAvatarRequired), http.StatusBadRequest, service.MsgAvatarRequired},
		{"internal", apperrors.NewInternalError(errors.New("gone"), service.MsgRegistrationFailed), http.StatusInternalServerError, service.MsgRegistrationFailed},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := mocks.NewMockUserService()
			router, _ := setupRouter(t, users)
			users.On("Register", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, validFields(),
				formFile{"avatar", "a.png", []byte("x")},
			))

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, resp.Message)
			assert.NotContains(t, rec.Body.String(), "s3 down")
		})
	}
}

func TestRegisterUser_ClientCancelled(t *testing.T) {
	users := mocks.NewMockUserService()
	router, _ := setupRouter(t, users)
	users.On("Register", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("find existing user: %w", context.Canceled))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, validFields(),
		formFile{"avatar", "a.png", []byte("x")},
	))

	assert.Equal(t, 499, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRegisterUser_URLEncodedBody(t *testing.T) {
	users := mocks.NewMockUserService()
	router, _ := setupRouter(t, users)

	users.On("Register", mock.Anything, mock.MatchedBy(func(in domain.RegistrationInput) bool {
		return in.Username == "JaneD" && in.AvatarPath == ""
	})).Return(nil, apperrors.NewValidationError(service.MsgAvatarRequired))

	form := "fullname=Jane&email=jane%40x.com&username=JaneD&password=longpass1"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertExpectations(t)
}

func TestRequestID_Propagated(t *testing.T) {
	router, _ := setupRouter(t, mocks.NewMockUserService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	router, _ := setupRouter(t, mocks.NewMockUserService())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
