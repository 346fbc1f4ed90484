package service

import (
	"go.uber.org/zap"

	"blog-service/internal/audit"
	"blog-service/internal/config"
	"blog-service/internal/events"
)

// Dependencies are the ports every service is built from.
type Dependencies struct {
	Users     UserStore
	Blogs     BlogStore
	OTP       OTPRegistry
	Passwords Credentials
	Tokens    TokenIssuer
	Objects   ObjectStore
	Index     SearchIndex
	Publisher events.Publisher
	Audit     audit.Recorder

	// IndexViaEvents is set when a Kafka consumer maintains the index.
	IndexViaEvents bool
}

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	deps   Dependencies
	cfg    *config.Config
	logger *zap.Logger

	authService    *AuthService
	profileService *ProfileService
	blogService    *BlogService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(deps Dependencies, cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.LogRecorder{}
	}
	return &ServiceFactory{deps: deps, cfg: cfg, logger: logger}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.deps.Users,
			f.deps.OTP,
			f.deps.Passwords,
			f.deps.Tokens,
			f.deps.Publisher,
			f.deps.Audit,
			f.cfg.Admin,
			f.cfg.OTP.RequireVerified,
			f.logger.Named("auth"),
		)
	}
	return f.authService
}

// ProfileService returns the profile service instance (singleton)
func (f *ServiceFactory) ProfileService() *ProfileService {
	if f.profileService == nil {
		f.profileService = NewProfileService(f.deps.Users, f.deps.Objects, f.deps.Publisher, f.logger.Named("profile"))
	}
	return f.profileService
}

// BlogService returns the blog service instance (singleton)
func (f *ServiceFactory) BlogService() *BlogService {
	if f.blogService == nil {
		f.blogService = NewBlogService(
			f.deps.Blogs,
			f.deps.Users,
			f.deps.Objects,
			f.deps.Index,
			f.deps.Publisher,
			f.deps.IndexViaEvents,
			f.logger.Named("blog"),
		)
	}
	return f.blogService
}
