package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"videotube/internal/apperrors"
	"videotube/internal/domain"
	"videotube/internal/repository"
	"videotube/internal/storage"
)

const (
	MsgFieldsRequired     = "All fields are required"
	MsgPasswordTooShort   = "Password must be longer than 8 characters"
	MsgUserExists         = "User with email or username already exists"
	MsgAvatarRequired     = "Avatar file is required"
	MsgRegistrationFailed = "Something went wrong while registering the user"

	minPasswordLength = 8

	defaultUploadTimeout = 30 * time.Second
	cleanupTimeout       = 10 * time.Second
)

var errNoUploadResult = errors.New("upload returned no result")

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, input domain.RegistrationInput) (*domain.PublicUser, error)
}

// Config tunes the registration workflow.
type Config struct {
	UploadTimeout time.Duration
	BcryptCost    int
}

type userService struct {
	users         repository.UserRepository
	media         storage.Uploader
	uploadTimeout time.Duration
	bcryptCost    int
	logger        logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, media storage.Uploader, cfg Config, logger logrus.FieldLogger) UserService {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &userService{
		users:         users,
		media:         media,
		uploadTimeout: cfg.UploadTimeout,
		bcryptCost:    cfg.BcryptCost,
		logger:        logger.WithField("component", "user_service"),
	}
}

// Register runs one registration attempt. Each step only runs when every
// previous step succeeded; failures are returned as *apperrors.Error, except a
// cancelled ctx which is passed through unclassified.
func (s *userService) Register(ctx context.Context, input domain.RegistrationInput) (*domain.PublicUser, error) {
	for _, field := range []string{input.Fullname, input.Email, input.Username, input.Password} {
		if strings.TrimSpace(field) == "" {
			return nil, apperrors.NewValidationError(MsgFieldsRequired)
		}
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError(MsgPasswordTooShort)
	}

	email := strings.TrimSpace(input.Email)
	username := strings.ToLower(strings.TrimSpace(input.Username))

	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, apperrors.NewConflictError(repository.ErrUserExists, MsgUserExists)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, storeError(fmt.Errorf("find existing user: %w", err))
	}

	if strings.TrimSpace(input.AvatarPath) == "" {
		return nil, apperrors.NewValidationError(MsgAvatarRequired)
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err), MsgRegistrationFailed)
	}

	avatar, cover, err := s.uploadMedia(ctx, input.AvatarPath, input.CoverImagePath)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Fullname:     input.Fullname,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    avatar.URL,
	}
	if cover != nil {
		user.CoverImageURL = cover.URL
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		s.discardMedia(ctx, avatar, cover)
		if errors.Is(err, repository.ErrUserExists) {
			return nil, apperrors.NewConflictError(err, MsgUserExists)
		}
		return nil, storeError(fmt.Errorf("create user: %w", err))
	}

	created, err := s.users.GetPublicByID(ctx, id)
	if err != nil {
		// the record exists but cannot be returned; it is not rolled back
		err = fmt.Errorf("read back user %s: %w", id, err)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.WithError(err).WithField("user_id", id).Error("read back registered user")
		return nil, apperrors.NewInternalError(err, MsgRegistrationFailed)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  created.ID,
		"username": created.Username,
	}).Info("user registered")

	return created, nil
}

// uploadMedia uploads the avatar and the optional cover image concurrently and
// waits for both. Only the avatar is mandatory.
func (s *userService) uploadMedia(ctx context.Context, avatarPath, coverPath string) (*domain.UploadResult, *domain.UploadResult, error) {
	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	// avatarStray and coverStray hold objects stored without a usable URL.
	var avatar, cover, avatarStray, coverStray *domain.UploadResult
	g, gctx := errgroup.WithContext(uploadCtx)

	g.Go(func() error {
		res, err := s.media.Upload(gctx, avatarPath)
		if err != nil {
			return err
		}
		if res == nil || res.URL == "" {
			avatarStray = res
			return errNoUploadResult
		}
		avatar = res
		return nil
	})

	if strings.TrimSpace(coverPath) != "" {
		g.Go(func() error {
			res, err := s.media.Upload(gctx, coverPath)
			if err != nil {
				s.logger.WithError(err).Warn("cover image upload failed, continuing without it")
				return nil
			}
			if res != nil && res.URL == "" {
				coverStray = res
				return nil
			}
			cover = res
			return nil
		})
	}

	err := g.Wait()
	s.discardMedia(ctx, avatarStray, coverStray)
	if err != nil {
		s.discardMedia(ctx, cover)
		return nil, nil, apperrors.NewUploadError(fmt.Errorf("upload avatar: %w", err), MsgAvatarRequired)
	}
	return avatar, cover, nil
}

// storeError classifies a store failure. A request cancelled by the client is
// returned as is so it is not reported as a storage fault.
func storeError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewInternalError(err, MsgRegistrationFailed)
}

// discardMedia removes objects that were uploaded for an attempt that failed later.
// Removal is best effort.
func (s *userService) discardMedia(ctx context.Context, results ...*domain.UploadResult) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, res := range results {
		if res == nil || res.Key == "" {
			continue
		}
		if err := s.media.Delete(cleanupCtx, res.Key); err != nil {
			s.logger.WithError(err).WithField("key", res.Key).Warn("discard uploaded media")
		}
	}
}
