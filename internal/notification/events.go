package notification

import (
	"encoding/json"

	"github.com/anonto42/nano-midea/functions/internal/models"
)

// Kind identifies the event type behind a notification. Its value is also
// sent to clients as data["type"].
type Kind string

const (
	KindNewMessage  Kind = "new_message"
	KindStoryReply  Kind = "story_reply"
	KindStoryLike   Kind = "story_like"
	KindNewLike     Kind = "new_like"
	KindNewFollower Kind = "new_follower"
	KindNewStory    Kind = "new_story"
	KindProfileView Kind = "profile_view"
)

// Kinds lists every supported kind.
var Kinds = []Kind{
	KindNewMessage, KindStoryReply, KindStoryLike, KindNewLike,
	KindNewFollower, KindNewStory, KindProfileView,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is a document write handed to the router. Before is empty for
// creations; Params holds the path parameters of the matched document.
type Event struct {
	Kind   Kind
	Params map[string]string
	Before json.RawMessage
	After  json.RawMessage
}

// Param returns the named path parameter.
func (e Event) Param(name string) string {
	if e.Params == nil {
		return ""
	}
	return e.Params[name]
}

// RenderContext carries the domain data a payload is rendered from.
type RenderContext struct {
	Actor     models.UserCompact
	ChatID    string
	StoryID   string
	PostID    string
	OwnerID   string
	Message   *models.Message
	ReplyText string
	// Unread is the recipient's unread counter as read before this event.
	Unread int64
}

// DispatchInstruction is a resolved (recipient, kind) pair ready for delivery.
type DispatchInstruction struct {
	Kind        Kind
	RecipientID string
	Context     RenderContext
}

// Skip reasons reported when an event intentionally produces no instruction.
const (
	SkipNotFound           = "not-found"
	SkipSelfAction         = "self-action"
	SkipNoNewLiker         = "no-new-liker"
	SkipPreferenceDisabled = "preference-disabled"
	SkipNoRecipient        = "no-recipient"
	SkipNoFollowers        = "no-followers"
)

// Route is the result of routing one event.
type Route struct {
	Instructions []DispatchInstruction
	// SkipReason is set when the event was deliberately ignored.
	SkipReason string
}

func skip(reason string) Route {
	return Route{SkipReason: reason}
}
