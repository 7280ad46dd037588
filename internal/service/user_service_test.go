package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nanum/internal/logging"
	"nanum/internal/model"
)

func TestUserService_GetUserCaches(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, "u1").Return(&model.User{ID: "u1", Role: model.RoleMember}, nil).Once()

	kv := newMapStore()
	svc := NewUserService(repo, kv, logging.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := svc.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, u.Role)
	}
	repo.AssertNumberOfCalls(t, "FindByID", 1)
	assert.Contains(t, kv.data, "user:u1")

	svc.Invalidate(ctx, "u1")
	assert.NotContains(t, kv.data, "user:u1")
}

func TestUserService_CacheFailureFallsBackToRepository(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, "u1").Return(&model.User{ID: "u1"}, nil).Twice()

	kv := newMapStore()
	kv.err = errors.New("redis down")
	svc := NewUserService(repo, kv, logging.Nop())

	for i := 0; i < 2; i++ {
		_, err := svc.GetUser(context.Background(), "u1")
		require.NoError(t, err)
	}
	repo.AssertExpectations(t)
}
