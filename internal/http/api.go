package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videotube/internal/apperrors"
	"videotube/internal/domain"
	"videotube/internal/service"
)

const msgRegistered = "User registered successfully"

// Options configures the HTTP adapter.
type Options struct {
	// TempDir receives uploaded files until the request finishes.
	TempDir       string
	AllowedOrigin string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	tempDir string
	origin  string
	logger  logrus.FieldLogger
}

func NewHandler(users service.UserService, opts Options, logger logrus.FieldLogger) *Handler {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   users,
		tempDir: opts.TempDir,
		origin:  opts.AllowedOrigin,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware(h.origin))

	api := router.Group("/api/v1")
	{
		api.POST("/users/register", h.registerUser)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

type registerRequest struct {
	Fullname string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.writeError(c, apperrors.NewValidationError("Invalid registration payload"))
		return
	}

	avatarPath, err := h.saveUpload(c, "avatar")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer h.removeUpload(c, avatarPath)

	coverPath, err := h.saveUpload(c, "coverImage")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer h.removeUpload(c, coverPath)

	user, err := h.users.Register(c.Request.Context(), domain.RegistrationInput{
		Fullname:       req.Fullname,
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	writeSuccess(c, http.StatusCreated, user, msgRegistered)
}

// saveUpload stores the first file of the given form field in the temp dir and
// returns its path. A missing file yields an empty path and no error.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperrors.NewValidationError(fmt.Sprintf("Invalid %s upload", field))
	}
	if file.Size == 0 {
		return "", nil
	}

	dst := filepath.Join(h.tempDir, uuid.NewString()+uploadExt(file))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("save %s: %w", field, err), service.MsgRegistrationFailed)
	}
	return dst, nil
}

func (h *Handler) removeUpload(c *gin.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		loggerFrom(c, h.logger).WithError(err).WithField("path", path).Warn("remove temp upload")
	}
}

func uploadExt(file *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(file.Filename)))
	if len(ext) > 10 {
		return ""
	}
	return ext
}
