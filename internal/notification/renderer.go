package notification

import (
	"fmt"
	"slices"
	"strings"

	"github.com/anonto42/nano-midea/functions/internal/models"
)

const clickAction = "FLUTTER_NOTIFICATION_CLICK"

// Priority is the platform delivery priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Channel carries the platform-specific delivery hints of a payload.
type Channel struct {
	AndroidChannelID string
	Priority         Priority
	Sound            string
	Category         string
	// Badge is only set for kinds that maintain an unread counter.
	Badge *int
}

// Payload is a rendered notification.
type Payload struct {
	Title   string
	Body    string
	Data    map[string]string
	Channel Channel
}

type catalog struct {
	someone          string
	newMessage       string
	voiceMessage     string
	photo            string
	storyReplyTitle  string // %s replier
	storyReplyBody   string
	likeTitle        string
	postLikeBody     string // %s liker
	storyLikeBody    string // %s liker
	followerTitle    string
	followerBody     string // %s follower
	newStoryTitle    string
	newStoryBody     string // %s owner
	profileViewTitle string
	profileViewBody  string // %s viewer
}

var catalogs = map[string]catalog{
	"en": {
		someone:          "Someone",
		newMessage:       "New message",
		voiceMessage:     "🎤 Voice message",
		photo:            "📷 Photo",
		storyReplyTitle:  "%s replied to your story",
		storyReplyBody:   "New reply",
		likeTitle:        "❤️ New like",
		postLikeBody:     "%s liked your post",
		storyLikeBody:    "%s liked your story",
		followerTitle:    "New follower",
		followerBody:     "%s started following you",
		newStoryTitle:    "New story",
		newStoryBody:     "%s posted a new story",
		profileViewTitle: "👀 Profile visit",
		profileViewBody:  "%s viewed your profile",
	},
	"ar": {
		someone:          "شخص ما",
		newMessage:       "رسالة جديدة",
		voiceMessage:     "🎤 رسالة صوتية",
		photo:            "📷 صورة",
		storyReplyTitle:  "رد %s على قصتك",
		storyReplyBody:   "رد جديد",
		likeTitle:        "❤️ إعجاب جديد",
		postLikeBody:     "أعجب %s بمنشورك",
		storyLikeBody:    "أعجب %s بقصتك",
		followerTitle:    "متابع جديد",
		followerBody:     "بدأ %s بمتابعتك",
		newStoryTitle:    "قصة جديدة",
		newStoryBody:     "نشر %s قصة جديدة",
		profileViewTitle: "👀 زار ملفك الشخصي",
		profileViewBody:  "%s شاهد ملفك الشخصي",
	},
}

// Locales returns the supported locale tags.
func Locales() []string {
	return []string{"en", "ar"}
}

// Renderer builds payloads. It performs no I/O.
type Renderer struct {
	text catalog
}

// SupportedLocale reports whether locale, or its language part ("ar-SA"),
// has a catalog.
func SupportedLocale(locale string) bool {
	return slices.Contains(Locales(), baseLocale(locale))
}

func baseLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

// NewRenderer returns a renderer for locale, falling back to English.
func NewRenderer(locale string) *Renderer {
	c, ok := catalogs[baseLocale(locale)]
	if !ok {
		c = catalogs["en"]
	}
	return &Renderer{text: c}
}

// Render builds the payload for kind from rc.
func (r *Renderer) Render(kind Kind, rc RenderContext) (Payload, error) {
	name := rc.Actor.Name
	if name == "" {
		name = r.text.someone
	}

	p := Payload{
		Data: map[string]string{
			"type":         string(kind),
			"click_action": clickAction,
		},
	}

	switch kind {
	case KindNewMessage:
		title := rc.Actor.Name
		if title == "" {
			title = r.text.newMessage
		}
		p.Title = title
		p.Body = r.messageBody(rc.Message)
		p.Data["chatId"] = rc.ChatID
		p.Data["senderId"] = rc.Actor.ID
		p.Data["otherUserId"] = rc.Actor.ID
		p.Data["otherUserName"] = rc.Actor.Name
		p.Data["otherUserImageUrl"] = rc.Actor.ImageURL
		badge := int(rc.Unread) + 1
		p.Channel = Channel{
			AndroidChannelID: "messages",
			Priority:         PriorityHigh,
			Sound:            "default",
			Category:         "messages",
			Badge:            &badge,
		}

	case KindStoryReply:
		p.Title = fmt.Sprintf(r.text.storyReplyTitle, name)
		p.Body = rc.ReplyText
		if p.Body == "" {
			p.Body = r.text.storyReplyBody
		}
		p.Data["storyId"] = rc.StoryID
		p.Data["userId"] = rc.OwnerID
		p.Data["senderId"] = rc.Actor.ID
		p.Channel = storiesChannel()

	case KindStoryLike:
		p.Title = r.text.likeTitle
		p.Body = fmt.Sprintf(r.text.storyLikeBody, name)
		p.Data["storyId"] = rc.StoryID
		p.Data["likerId"] = rc.Actor.ID
		p.Channel = storiesChannel()

	case KindNewStory:
		p.Title = r.text.newStoryTitle
		p.Body = fmt.Sprintf(r.text.newStoryBody, name)
		p.Data["storyId"] = rc.StoryID
		p.Data["userId"] = rc.Actor.ID
		p.Channel = storiesChannel()

	case KindNewLike:
		p.Title = r.text.likeTitle
		p.Body = fmt.Sprintf(r.text.postLikeBody, name)
		p.Data["postId"] = rc.PostID
		p.Data["likerId"] = rc.Actor.ID
		p.Channel = Channel{AndroidChannelID: "likes", Priority: PriorityNormal, Category: "social"}

	case KindNewFollower:
		p.Title = r.text.followerTitle
		p.Body = fmt.Sprintf(r.text.followerBody, name)
		p.Data["followerId"] = rc.Actor.ID
		p.Channel = Channel{AndroidChannelID: "social", Priority: PriorityNormal, Category: "social"}

	case KindProfileView:
		p.Title = r.text.profileViewTitle
		p.Body = fmt.Sprintf(r.text.profileViewBody, name)
		p.Data["viewerId"] = rc.Actor.ID
		p.Channel = Channel{AndroidChannelID: "general", Priority: PriorityNormal, Category: "social"}

	default:
		return Payload{}, fmt.Errorf("render: unknown kind %q", kind)
	}
	return p, nil
}

func (r *Renderer) messageBody(m *models.Message) string {
	if m == nil {
		return r.text.newMessage
	}
	switch m.Type {
	case models.MessageTypeText:
		if m.Text != "" {
			return m.Text
		}
	case models.MessageTypeVoice:
		return r.text.voiceMessage
	case models.MessageTypeImage:
		return r.text.photo
	case "":
		if m.Text != "" {
			return m.Text
		}
		if m.ImageURL != "" {
			return r.text.photo
		}
	}
	return r.text.newMessage
}

func storiesChannel() Channel {
	return Channel{
		AndroidChannelID: "stories",
		Priority:         PriorityHigh,
		Sound:            "default",
		Category:         "stories",
	}
}
