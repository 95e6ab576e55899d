package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
)

// MediaPreview is stored as the chat's last message for non-text messages.
const MediaPreview = "[Media]"

// EventRouter maps document writes to dispatch instructions.
type EventRouter struct {
	users   repositories.UserRepository
	chats   repositories.ChatRepository
	stories repositories.StoryRepository
	posts   repositories.PostRepository
	follows repositories.FollowRepository
	now     func() time.Time
	log     *slog.Logger
}

// NewEventRouter creates an EventRouter.
func NewEventRouter(
	users repositories.UserRepository,
	chats repositories.ChatRepository,
	stories repositories.StoryRepository,
	posts repositories.PostRepository,
	follows repositories.FollowRepository,
	log *slog.Logger,
) *EventRouter {
	return &EventRouter{
		users:   users,
		chats:   chats,
		stories: stories,
		posts:   posts,
		follows: follows,
		now:     time.Now,
		log:     log,
	}
}

// Route resolves the recipients of ev. Missing documents and self-actions
// produce an empty Route with SkipReason set; an error means a store or
// decoding failure.
func (r *EventRouter) Route(ctx context.Context, ev Event) (Route, error) {
	if !ev.Kind.Valid() {
		return Route{}, fmt.Errorf("route: unknown kind %q", ev.Kind)
	}
	switch ev.Kind {
	case KindNewMessage:
		return r.routeMessage(ctx, ev)
	case KindStoryReply:
		return r.routeStoryReply(ctx, ev)
	case KindStoryLike:
		return r.routeStoryLike(ctx, ev)
	case KindNewLike:
		return r.routePostLike(ctx, ev)
	case KindNewFollower:
		return r.routeFollower(ctx, ev)
	case KindNewStory:
		return r.routeStoryBroadcast(ctx, ev)
	case KindProfileView:
		return r.routeProfileView(ctx, ev)
	}
	return Route{}, fmt.Errorf("route: no route for kind %q", ev.Kind)
}

func (r *EventRouter) routeMessage(ctx context.Context, ev Event) (Route, error) {
	var msg models.Message
	if err := decode(ev.After, &msg); err != nil {
		return Route{}, err
	}
	msg.ID = ev.Param("messageId")
	chatID := ev.Param("chatId")

	chat, err := r.chats.GetChatByID(ctx, chatID)
	if errors.Is(err, repositories.ErrNotFound) {
		return skip(SkipNotFound), nil
	}
	if err != nil {
		return Route{}, err
	}
	recipient, ok := chat.OtherParticipant(msg.SenderID)
	if !ok {
		return skip(SkipNoRecipient), nil
	}

	preview := msg.Text
	if preview == "" {
		preview = MediaPreview
	}
	now := r.now()
	sentAt := now
	if msg.Timestamp != nil {
		sentAt = *msg.Timestamp
	}

	var (
		g     errgroup.Group
		actor models.UserCompact
	)
	g.Go(func() error {
		if err := r.chats.RecordMessage(ctx, chatID, recipient, preview, sentAt, now); err != nil {
			r.log.Error("chat_metadata_update_failed", "chat_id", chatID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		actor = r.actor(ctx, msg.SenderID)
		return nil
	})
	_ = g.Wait()

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindNewMessage,
		RecipientID: recipient,
		Context: RenderContext{
			Actor:   actor,
			ChatID:  chatID,
			Message: &msg,
			Unread:  chat.Unread(recipient),
		},
	}}}, nil
}

func (r *EventRouter) routeStoryReply(ctx context.Context, ev Event) (Route, error) {
	var reply models.StoryReply
	if err := decode(ev.After, &reply); err != nil {
		return Route{}, err
	}
	storyID := ev.Param("storyId")

	story, err := r.stories.GetStoryByID(ctx, storyID)
	if errors.Is(err, repositories.ErrNotFound) {
		return skip(SkipNotFound), nil
	}
	if err != nil {
		return Route{}, err
	}
	if reply.SenderID == story.UserID {
		return skip(SkipSelfAction), nil
	}

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindStoryReply,
		RecipientID: story.UserID,
		Context: RenderContext{
			Actor:     r.actor(ctx, reply.SenderID),
			StoryID:   storyID,
			OwnerID:   story.UserID,
			ReplyText: reply.Text,
		},
	}}}, nil
}

func (r *EventRouter) routeStoryLike(ctx context.Context, ev Event) (Route, error) {
	var before, after models.Story
	if len(ev.Before) > 0 {
		if err := decode(ev.Before, &before); err != nil {
			return Route{}, err
		}
	}
	if err := decode(ev.After, &after); err != nil {
		return Route{}, err
	}

	liker, ok := models.FirstNewLiker(before.LikedBy, after.LikedBy)
	if !ok {
		return skip(SkipNoNewLiker), nil
	}
	if liker == after.UserID {
		return skip(SkipSelfAction), nil
	}

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindStoryLike,
		RecipientID: after.UserID,
		Context: RenderContext{
			Actor:   r.actor(ctx, liker),
			StoryID: ev.Param("storyId"),
			OwnerID: after.UserID,
		},
	}}}, nil
}

func (r *EventRouter) routePostLike(ctx context.Context, ev Event) (Route, error) {
	var like models.Like
	if err := decode(ev.After, &like); err != nil {
		return Route{}, err
	}

	post, err := r.posts.GetPostByID(ctx, like.PostID)
	if errors.Is(err, repositories.ErrNotFound) {
		return skip(SkipNotFound), nil
	}
	if err != nil {
		return Route{}, err
	}
	if like.UserID == post.UserID {
		return skip(SkipSelfAction), nil
	}

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindNewLike,
		RecipientID: post.UserID,
		Context: RenderContext{
			Actor:   r.actor(ctx, like.UserID),
			PostID:  like.PostID,
			OwnerID: post.UserID,
		},
	}}}, nil
}

func (r *EventRouter) routeFollower(ctx context.Context, ev Event) (Route, error) {
	var follow models.Follow
	if len(ev.After) > 0 {
		if err := decode(ev.After, &follow); err != nil {
			return Route{}, err
		}
	}
	userID := ev.Param("userId")
	followerID := follow.FollowerID
	if followerID == "" {
		followerID = ev.Param("followerId")
	}
	if userID == "" || followerID == "" {
		return skip(SkipNoRecipient), nil
	}
	if followerID == userID {
		return skip(SkipSelfAction), nil
	}

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindNewFollower,
		RecipientID: userID,
		Context: RenderContext{
			Actor:   r.actor(ctx, followerID),
			OwnerID: userID,
		},
	}}}, nil
}

func (r *EventRouter) routeStoryBroadcast(ctx context.Context, ev Event) (Route, error) {
	var story models.Story
	if err := decode(ev.After, &story); err != nil {
		return Route{}, err
	}
	storyID := ev.Param("storyId")

	var (
		g         errgroup.Group
		followers []string
		ferr      error
		owner     models.UserCompact
	)
	g.Go(func() error {
		followers, ferr = r.follows.GetFollowerIDs(ctx, story.UserID)
		return nil
	})
	g.Go(func() error {
		owner = r.actor(ctx, story.UserID)
		return nil
	})
	_ = g.Wait()
	if ferr != nil {
		return Route{}, ferr
	}

	route := Route{}
	for _, id := range followers {
		if id == story.UserID {
			continue
		}
		route.Instructions = append(route.Instructions, DispatchInstruction{
			Kind:        KindNewStory,
			RecipientID: id,
			Context: RenderContext{
				Actor:   owner,
				StoryID: storyID,
				OwnerID: story.UserID,
			},
		})
	}
	if len(route.Instructions) == 0 {
		return skip(SkipNoFollowers), nil
	}
	return route, nil
}

func (r *EventRouter) routeProfileView(ctx context.Context, ev Event) (Route, error) {
	var view models.ProfileView
	if err := decode(ev.After, &view); err != nil {
		return Route{}, err
	}
	if view.ViewerID == view.ProfileUserID {
		return skip(SkipSelfAction), nil
	}

	owner, err := r.users.GetUserByID(ctx, view.ProfileUserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return skip(SkipNotFound), nil
	}
	if err != nil {
		return Route{}, err
	}
	if !owner.Settings.NotifyOnProfileView {
		return skip(SkipPreferenceDisabled), nil
	}

	return Route{Instructions: []DispatchInstruction{{
		Kind:        KindProfileView,
		RecipientID: view.ProfileUserID,
		Context: RenderContext{
			Actor:   r.actor(ctx, view.ViewerID),
			OwnerID: view.ProfileUserID,
		},
	}}}, nil
}

// actor loads the acting user's summary. A lookup failure degrades to an
// id-only summary so the renderer falls back to the placeholder name.
func (r *EventRouter) actor(ctx context.Context, id string) models.UserCompact {
	user, err := r.users.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			r.log.Warn("actor_lookup_failed", "user_id", id, "error", err)
		}
		return models.UserCompact{ID: id}
	}
	c := user.ToCompact()
	c.ID = id
	return c
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("event has no document data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode event document: %w", err)
	}
	return nil
}
