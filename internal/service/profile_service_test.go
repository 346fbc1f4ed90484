package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blog-service/internal/apperrors"
	"blog-service/internal/models"
)

func newProfileFixture(users ...*models.User) (*ProfileService, *fakeUsers, *fakeObjects, *fakePublisher) {
	u := newFakeUsers(users...)
	o := &fakeObjects{}
	p := &fakePublisher{}
	return NewProfileService(u, o, p, zap.NewNop()), u, o, p
}

func TestProfileGet(t *testing.T) {
	svc, _, _, _ := newProfileFixture(existingUser())

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", p.Email)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfileUpdate(t *testing.T) {
	svc, users, objects, pub := newProfileFixture(existingUser())

	p, err := svc.Update(context.Background(), "u1", "u1", ProfileUpdate{
		Username: "Jane Smith",
		Email:    "Jane.Smith@Example.com",
		Image:    upload("me.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "jane smith", p.Username)
	assert.Equal(t, "jane.smith@example.com", p.Email)
	assert.Equal(t, "https://cdn.example.com/profile/me.png", p.Image)
	assert.Equal(t, []string{"profile/me.png"}, objects.puts)
	assert.Equal(t, "jane smith", users.byID["u1"].Username)
	assert.Equal(t, []string{models.EventUserUpdated}, pub.types())
}

func TestProfileUpdate_KeepsImageWhenNoneUploaded(t *testing.T) {
	u := existingUser()
	u.Image = "https://cdn.example.com/profile/old.png"
	svc, _, objects, _ := newProfileFixture(u)

	p, err := svc.Update(context.Background(), "u1", "u1", ProfileUpdate{Username: "jane doe", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/profile/old.png", p.Image)
	assert.Empty(t, objects.puts)
}

func TestProfileUpdate_Failures(t *testing.T) {
	other := &models.User{UserID: "u2", Username: "bob", Email: "bob@example.com"}

	tests := []struct {
		name   string
		caller string
		req    ProfileUpdate
		want   error
	}{
		{"not owner", "u2", ProfileUpdate{Username: "jane", Email: "jane@example.com"}, ErrNotOwner},
		{"bad username", "u1", ProfileUpdate{Username: "j4ne", Email: "jane@example.com"}, apperrors.ErrInvalidInput},
		{"bad email", "u1", ProfileUpdate{Username: "jane", Email: "jane"}, apperrors.ErrInvalidInput},
		{"bad image", "u1", ProfileUpdate{Username: "jane", Email: "jane@example.com", Image: upload("me.bmp")}, apperrors.ErrInvalidInput},
		{"email taken", "u1", ProfileUpdate{Username: "jane", Email: "bob@example.com"}, ErrEmailRegistered},
		{"username taken", "u1", ProfileUpdate{Username: "Bob", Email: "jane@example.com"}, ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, objects, _ := newProfileFixture(existingUser(), other)
			_, err := svc.Update(context.Background(), tt.caller, "u1", tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, objects.puts)
		})
	}
}
