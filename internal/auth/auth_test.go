package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/blog"
	"blog/internal/db/memory"
	"blog/internal/models"
)

func TestRegisterValidation(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := Register(ctx, s.Users(), "  ", "pw")
	assert.Equal(t, "Username is required.", blog.Message(err))
	_, err = Register(ctx, s.Users(), "a", "")
	assert.Equal(t, "Password is required.", blog.Message(err))

	_, err = Register(ctx, s.Users(), "a", "pw")
	require.NoError(t, err)
	_, err = Register(ctx, s.Users(), "a", "pw")
	assert.ErrorIs(t, err, blog.ErrUsernameTaken)
	assert.Equal(t, "User a is already registered.", blog.Message(err))
}

func TestLoginAndSession(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	uid, err := Register(ctx, s.Users(), "test", "test")
	require.NoError(t, err)

	_, _, err = Login(ctx, s, "test", "wrong", time.Hour)
	assert.ErrorIs(t, err, blog.ErrInvalidLogin)
	_, _, err = Login(ctx, s, "nobody", "test", time.Hour)
	assert.ErrorIs(t, err, blog.ErrInvalidLogin)

	first, id, err := Login(ctx, s, "test", "test", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
	assert.Equal(t, "test", id.Username)

	got, err := UserFromSession(ctx, s, first, time.Now())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = UserFromSession(ctx, s, first, time.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNoSession)

	// a second login drops the first session
	second, _, err := Login(ctx, s, "test", "test", time.Hour)
	require.NoError(t, err)
	_, err = UserFromSession(ctx, s, first, time.Now())
	assert.True(t, errors.Is(err, ErrNoSession))

	require.NoError(t, Logout(ctx, s.Sessions(), second))
	_, err = UserFromSession(ctx, s, second, time.Now())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, IdentityFrom(ctx))

	want := models.Identity{UserID: 3, Username: "x"}
	ctx = WithIdentity(ctx, want)
	got := IdentityFrom(ctx)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	assert.Nil(t, IdentityFrom(WithIdentity(context.Background(), models.Identity{})))
}
