package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/larkin-dev/chatline/internal/models"
)

// MockStore implements store.Store for handler tests
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	args := m.Called(username, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]*models.User, error) {
	args := m.Called(query, excludeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) UpdateAvatar(ctx context.Context, userID int64, path string) error {
	args := m.Called(userID, path)
	return args.Error(0)
}

func (m *MockStore) CreatePrivateChat(ctx context.Context, creatorID, targetID int64) (int64, bool, error) {
	args := m.Called(creatorID, targetID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockStore) CreateGroupChat(ctx context.Context, creatorID int64, name string, memberIDs []int64) (int64, error) {
	args := m.Called(creatorID, name, memberIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetParticipant(ctx context.Context, chatID, userID int64) (*models.ChatParticipant, error) {
	args := m.Called(chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatParticipant), args.Error(1)
}

func (m *MockStore) ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatSummary), args.Error(1)
}

func (m *MockStore) CreateMessage(ctx context.Context, chatID, senderID int64, content, filePath, fileType string) (*models.MessageResponse, error) {
	args := m.Called(chatID, senderID, content, filePath, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageResponse), args.Error(1)
}

func (m *MockStore) ListMessages(ctx context.Context, chatID, viewerID int64, offset, limit int, markRead bool) ([]*models.MessageResponse, error) {
	args := m.Called(chatID, viewerID, offset, limit, markRead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessageResponse), args.Error(1)
}

func (m *MockStore) CountUnread(ctx context.Context, chatID, userID int64) (int, error) {
	args := m.Called(chatID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
