// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/anonto42/nano-midea/functions/internal/models"
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) ClearToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserRepository) ClearTokensUpdatedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Int(0), args.Error(1)
}

func (m *UserRepository) IncrementMetric(ctx context.Context, id, field string, by int64, at time.Time) error {
	args := m.Called(ctx, id, field, by, at)
	return args.Error(0)
}

func (m *UserRepository) InitializeDefaults(ctx context.Context, id string, createdAt time.Time, at time.Time) error {
	args := m.Called(ctx, id, createdAt, at)
	return args.Error(0)
}

func (m *UserRepository) UpdateProfileMedia(ctx context.Context, id, photoURL, thumbnailURL string, at time.Time) error {
	args := m.Called(ctx, id, photoURL, thumbnailURL, at)
	return args.Error(0)
}

type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	args := m.Called(ctx, id)
	chat, _ := args.Get(0).(*models.Chat)
	return chat, args.Error(1)
}

func (m *ChatRepository) RecordMessage(ctx context.Context, chatID, recipientID, preview string, sentAt, at time.Time) error {
	args := m.Called(ctx, chatID, recipientID, preview, sentAt, at)
	return args.Error(0)
}

func (m *ChatRepository) FindMessageByImage(ctx context.Context, chatID, imagePath string) (string, error) {
	args := m.Called(ctx, chatID, imagePath)
	return args.String(0), args.Error(1)
}

func (m *ChatRepository) UpdateMessageMedia(ctx context.Context, chatID, messageID, imageURL, thumbnailURL string) error {
	args := m.Called(ctx, chatID, messageID, imageURL, thumbnailURL)
	return args.Error(0)
}

type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) FindStoryByMedia(ctx context.Context, ownerID, mediaPath string) (string, error) {
	args := m.Called(ctx, ownerID, mediaPath)
	return args.String(0), args.Error(1)
}

func (m *StoryRepository) UpdateStoryMedia(ctx context.Context, storyID, originalPath, mediaURL, thumbnailURL string, at time.Time) error {
	args := m.Called(ctx, storyID, originalPath, mediaURL, thumbnailURL, at)
	return args.Error(0)
}

func (m *StoryRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Story, error) {
	args := m.Called(ctx, cutoff, limit)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}

func (m *StoryRepository) DeleteWithCounters(ctx context.Context, storyIDs []string, decrements map[string]int64) error {
	args := m.Called(ctx, storyIDs, decrements)
	return args.Error(0)
}

type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

type FollowRepository struct {
	mock.Mock
}

func (m *FollowRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) (string, error) {
	args := m.Called(ctx, notification)
	return args.String(0), args.Error(1)
}

type DeliveryRepository struct {
	mock.Mock
}

func (m *DeliveryRepository) CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

type MediaAssetRepository struct {
	mock.Mock
}

func (m *MediaAssetRepository) UpsertAsset(ctx context.Context, asset *models.MediaAsset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

type MediaStorage struct {
	mock.Mock
}

func (m *MediaStorage) Download(ctx context.Context, objectPath, localPath string) error {
	args := m.Called(ctx, objectPath, localPath)
	return args.Error(0)
}

func (m *MediaStorage) Upload(ctx context.Context, localPath, objectPath, contentType string, metadata map[string]string) error {
	args := m.Called(ctx, localPath, objectPath, contentType, metadata)
	return args.Error(0)
}

func (m *MediaStorage) Delete(ctx context.Context, objectPath string) error {
	args := m.Called(ctx, objectPath)
	return args.Error(0)
}

func (m *MediaStorage) SignedURL(objectPath string) (string, error) {
	args := m.Called(objectPath)
	return args.String(0), args.Error(1)
}

func (m *MediaStorage) BucketName() string {
	args := m.Called()
	return args.String(0)
}
