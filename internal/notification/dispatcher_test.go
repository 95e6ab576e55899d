package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/repositories/mocks"
	"github.com/anonto42/nano-midea/functions/pkg/logger"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    map[string]Payload
	failFor map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: map[string]Payload{}, failFor: map[string]error{}}
}

func (f *fakeTransport) Send(_ context.Context, token string, p Payload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[token]; err != nil {
		return "", err
	}
	f.sent[token] = p
	return "msg-" + token, nil
}

func userWithToken(token string) *models.User {
	return &models.User{FCMToken: token}
}

func newTestDispatcher(users *mocks.UserRepository, transport Transport, recorder DeliveryRecorder) *Dispatcher {
	log := logger.Discard()
	return NewDispatcher(NewTokenDirectory(users, 0, log), NewRenderer("en"), transport, recorder, 4, log)
}

func TestDispatcher_Dispatch(t *testing.T) {
	users := new(mocks.UserRepository)
	users.On("GetUserByID", mock.Anything, "ok").Return(userWithToken("t-ok"), nil)
	users.On("GetUserByID", mock.Anything, "notoken").Return(&models.User{}, nil)
	users.On("GetUserByID", mock.Anything, "missing").Return(nil, repositories.ErrNotFound)
	users.On("GetUserByID", mock.Anything, "broken").Return(nil, errors.New("deadline exceeded"))
	users.On("GetUserByID", mock.Anything, "bounce").Return(userWithToken("t-bounce"), nil)

	transport := newFakeTransport()
	transport.failFor["t-bounce"] = errors.New("quota exceeded")
	d := newTestDispatcher(users, transport, nil)

	tests := []struct {
		recipient string
		delivered bool
		reason    string
	}{
		{"ok", true, ""},
		{"notoken", false, ReasonNoToken},
		{"missing", false, ReasonNoToken},
		{"broken", false, ReasonStoreError},
		{"bounce", false, ReasonTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.recipient, func(t *testing.T) {
			res := d.Dispatch(context.Background(), DispatchInstruction{
				Kind:        KindNewFollower,
				RecipientID: tt.recipient,
				Context:     RenderContext{Actor: models.UserCompact{ID: "a", Name: "Ana"}},
			})
			assert.Equal(t, tt.delivered, res.Delivered)
			assert.Equal(t, tt.reason, res.Reason)
			if tt.delivered {
				assert.Equal(t, "msg-t-ok", res.MessageID)
			}
		})
	}
}

func TestDispatcher_ForgetsUnregisteredToken(t *testing.T) {
	users := new(mocks.UserRepository)
	users.On("GetUserByID", mock.Anything, "u1").Return(userWithToken("dead"), nil)
	users.On("ClearToken", mock.Anything, "u1").Return(nil)

	transport := newFakeTransport()
	transport.failFor["dead"] = fmt.Errorf("%w: registration-token-not-registered", ErrTokenUnregistered)

	res := newTestDispatcher(users, transport, nil).Dispatch(context.Background(), DispatchInstruction{
		Kind:        KindNewLike,
		RecipientID: "u1",
	})

	assert.False(t, res.Delivered)
	assert.Equal(t, ReasonTransportError, res.Reason)
	users.AssertCalled(t, "ClearToken", mock.Anything, "u1")
}

func TestDispatcher_DispatchAllIsolatesFailures(t *testing.T) {
	users := new(mocks.UserRepository)
	var ins []DispatchInstruction
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("f%d", i)
		switch {
		case i%5 == 0:
			users.On("GetUserByID", mock.Anything, id).Return(&models.User{}, nil)
		default:
			users.On("GetUserByID", mock.Anything, id).Return(userWithToken("tok-"+id), nil)
		}
		ins = append(ins, DispatchInstruction{Kind: KindNewStory, RecipientID: id})
	}

	transport := newFakeTransport()
	transport.failFor["tok-f3"] = errors.New("internal")

	tally := newTestDispatcher(users, transport, nil).DispatchAll(context.Background(), ins)

	assert.Equal(t, 10, tally.Total)
	assert.Equal(t, 7, tally.Sent)
	require.Len(t, tally.Results, 10)
	for i, r := range tally.Results {
		assert.Equal(t, ins[i].RecipientID, r.RecipientID)
	}
	assert.Equal(t, ReasonTransportError, tally.Results[3].Reason)
	assert.Equal(t, ReasonNoToken, tally.Results[5].Reason)
}

func TestDispatcher_RecordsReceipts(t *testing.T) {
	users := new(mocks.UserRepository)
	users.On("GetUserByID", mock.Anything, "u1").Return(userWithToken("t1"), nil)

	recorder := new(mocks.DeliveryRepository)
	recorder.On("CreateReceipt", mock.Anything, mock.MatchedBy(func(r *models.DeliveryReceipt) bool {
		return r.Kind == string(KindStoryLike) && r.RecipientID == "u1" && r.TargetID == "s1" && r.Delivered && r.MessageID == "msg-t1"
	})).Return(errors.New("db down"))

	res := newTestDispatcher(users, newFakeTransport(), recorder).Dispatch(context.Background(), DispatchInstruction{
		Kind:        KindStoryLike,
		RecipientID: "u1",
		Context:     RenderContext{StoryID: "s1", Actor: models.UserCompact{ID: "l"}},
	})

	assert.True(t, res.Delivered, "recorder failure must not change the result")
	recorder.AssertExpectations(t)
}

func TestDispatcher_RenderFailureIsNotATransportError(t *testing.T) {
	users := new(mocks.UserRepository)
	users.On("GetUserByID", mock.Anything, "u1").Return(userWithToken("t-1"), nil)
	recorder := new(mocks.DeliveryRepository)
	recorder.On("CreateReceipt", mock.Anything, mock.MatchedBy(func(r *models.DeliveryReceipt) bool {
		return !r.Delivered && r.Reason == ReasonRenderError
	})).Return(nil)
	transport := newFakeTransport()

	res := newTestDispatcher(users, transport, recorder).Dispatch(context.Background(), DispatchInstruction{
		Kind:        Kind("poke"),
		RecipientID: "u1",
	})

	assert.False(t, res.Delivered)
	assert.Equal(t, ReasonRenderError, res.Reason)
	assert.Error(t, res.Err)
	assert.Empty(t, transport.sent)
	recorder.AssertExpectations(t)
}
