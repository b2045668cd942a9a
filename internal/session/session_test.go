package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/requestcontext"
)

func loginResponse(role BackendRole) LoginResponse {
	return LoginResponse{
		User:         LoginUser{ID: "user-7", Email: "tendai.moyo@insurer.example", Role: role},
		AccessToken:  "backend-access",
		RefreshToken: "backend-refresh",
	}
}

func TestEstablish(t *testing.T) {
	t.Run("defaults name and avatar from email", func(t *testing.T) {
		sess, err := Establish(loginResponse(BackendStaff))
		require.NoError(t, err)

		assert.False(t, sess.ID.IsNil())
		assert.Equal(t, "user-7", sess.UserID.String())
		assert.Equal(t, RoleAgent, sess.Role)
		assert.Equal(t, "tendai.moyo", sess.Name)
		assert.Equal(t, AvatarPlaceholder("tendai.moyo"), sess.AvatarURL)
		assert.Equal(t, "backend-access", sess.AccessToken)
		assert.Equal(t, "backend-refresh", sess.RefreshToken)
	})

	t.Run("keeps backend display fields", func(t *testing.T) {
		resp := loginResponse(BackendAdmin)
		resp.User.Name = "Tendai Moyo"
		resp.User.AvatarURL = "https://cdn.example/t.png"

		sess, err := Establish(resp)
		require.NoError(t, err)

		assert.Equal(t, "Tendai Moyo", sess.Name)
		assert.Equal(t, "https://cdn.example/t.png", sess.AvatarURL)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := Establish(loginResponse("AUDITOR"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects missing identity", func(t *testing.T) {
		resp := loginResponse(BackendAdmin)
		resp.User.ID = ""
		_, err := Establish(resp)
		assert.Error(t, err)

		resp = loginResponse(BackendAdmin)
		resp.User.Email = " "
		_, err = Establish(resp)
		assert.Error(t, err)
	})
}

func TestAvatarPlaceholder(t *testing.T) {
	assert.Equal(t, "https://ui-avatars.com/api/?background=random&name=Tendai+Moyo", AvatarPlaceholder("Tendai Moyo"))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, BackendToken(context.Background()))

	sess, err := Establish(loginResponse(BackendMember))
	require.NoError(t, err)
	ctx := WithContext(context.Background(), sess)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, sess.UserID, requestcontext.UserID(ctx))
	assert.Equal(t, "backend-access", BackendToken(ctx))

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok)
}
