package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homzy/server/internal/config"
	"homzy/server/internal/tasks"
)

// MockEmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	mockSender := new(MockEmailSender)
	cfg := &config.Config{SmtpFromAddress: "noreply@homzy.test", AppName: "Homzy"}
	p := tasks.NewTaskProcessor(cfg, mockSender, nil, nil)

	task, err := tasks.NewEmailDeliveryTask("user@example.com", "Visit approved", "Your visit request was approved.")
	require.NoError(t, err)

	mockSender.On("Send", mock.Anything, []string{"user@example.com"}, "Visit approved", mock.MatchedBy(func(raw []byte) bool {
		return len(raw) > 0
	})).Return(nil).Once()

	err = p.HandleEmailDeliveryTask(context.Background(), task)
	assert.NoError(t, err)
	mockSender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_SenderFailureRetries(t *testing.T) {
	mockSender := new(MockEmailSender)
	cfg := &config.Config{SmtpFromAddress: "noreply@homzy.test"}
	p := tasks.NewTaskProcessor(cfg, mockSender, nil, nil)

	task, err := tasks.NewEmailDeliveryTask("user@example.com", "Hello", "Body")
	require.NoError(t, err)

	sendErr := errors.New("smtp down")
	mockSender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sendErr).Once()

	err = p.HandleEmailDeliveryTask(context.Background(), task)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleEmailDeliveryTask_BadPayloadSkipsRetry(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, new(MockEmailSender), nil, nil)

	task := asynq.NewTask(tasks.TypeEmailDelivery, []byte("not-json"))
	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleImageProcessTask_InvalidPropertyIDSkipsRetry(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil)

	payload, err := json.Marshal(tasks.ImageTaskPayload{S3Key: "properties/x/img.jpg", PropertyID: "not-an-object-id"})
	require.NoError(t, err)

	task := asynq.NewTask(tasks.TypeImageProcess, payload)
	err = p.HandleImageProcessTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
}
