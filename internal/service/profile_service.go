package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"blog-service/internal/events"
	"blog-service/internal/models"
	"blog-service/internal/repository/postgres"
	"blog-service/internal/util"
)

const profileImagePrefix = "profile"

// ProfileUpdate carries the editable profile fields. Image is optional.
type ProfileUpdate struct {
	Username string
	Email    string
	Image    *Upload
}

type ProfileService struct {
	users     UserStore
	objects   ObjectStore
	publisher events.Publisher
	logger    *zap.Logger
}

func NewProfileService(users UserStore, objects ObjectStore, publisher events.Publisher, logger *zap.Logger) *ProfileService {
	return &ProfileService{users: users, objects: objects, publisher: publisher, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, external(err, "failed to load user")
	}
	if user == nil || user.DeleteStatus {
		return nil, ErrUserNotFound
	}
	p := user.Profile()
	return &p, nil
}

// Update rewrites the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, callerID, userID string, req ProfileUpdate) (*models.Profile, error) {
	if callerID != userID {
		return nil, ErrNotOwner
	}

	username := strings.TrimSpace(req.Username)
	email := util.NormalizeEmail(req.Email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	username = strings.ToLower(username)

	var contentType string
	if req.Image != nil {
		ct, err := imageContentType(req.Image.Filename)
		if err != nil {
			return nil, err
		}
		contentType = ct
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, external(err, "failed to load user")
	}
	if user == nil || user.DeleteStatus {
		return nil, ErrUserNotFound
	}

	if email != user.Email {
		taken, err := s.users.EmailTaken(ctx, email, userID)
		if err != nil {
			return nil, external(err, "failed to check email")
		}
		if taken {
			return nil, ErrEmailRegistered
		}
	}
	if username != user.Username {
		taken, err := s.users.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, external(err, "failed to check username")
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	var image string
	if req.Image != nil {
		image, err = s.objects.Put(ctx, profileImagePrefix, req.Image.Filename, contentType, req.Image.Body, req.Image.Size)
		if err != nil {
			return nil, external(err, "failed to upload image")
		}
	}

	ok, err := s.users.UpdateProfile(ctx, userID, username, email, image)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrDuplicateEmail):
			return nil, ErrEmailRegistered
		case errors.Is(err, postgres.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, external(err, "failed to update profile")
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	s.logger.Info("Profile updated", util.String("user_id", userID))
	evt := events.New(models.EventUserUpdated, userID, userID, map[string]string{"username": username})
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish event", util.String("type", evt.Type), util.ErrorField(err))
	}

	if image == "" {
		image = user.Image
	}
	return &models.Profile{UserID: userID, Username: username, Email: email, Image: image}, nil
}
