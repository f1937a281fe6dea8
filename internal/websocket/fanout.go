package websocket

import (
	"context"
	"fmt"

	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/reactions"
	"go.uber.org/zap"
)

// Reactor is the reaction entry point shared with the HTTP handlers
type Reactor interface {
	React(ctx context.Context, actorID uint, kind reactions.Kind, targetID uint, reactionType string) (*reactions.Result, error)
}

// Commenter is the comment entry point shared with the HTTP handlers
type Commenter interface {
	Create(ctx context.Context, actorID, postID uint, text string, source comments.Source) (*models.Comment, error)
}

// Fanout connects the domain services to live connections. It receives
// reaction count changes, notification pushes, new comments and mentions
// and turns them into outbound events. It also owns the inbound event
// handlers registered on the hub.
type Fanout struct {
	hub      *Hub
	registry *Registry
	rooms    *RoomTracker
	reactor  Reactor
	comments Commenter
}

// NewFanout wires the realtime layer together
func NewFanout(hub *Hub, registry *Registry, rooms *RoomTracker, reactor Reactor, commenter Commenter) *Fanout {
	return &Fanout{
		hub:      hub,
		registry: registry,
		rooms:    rooms,
		reactor:  reactor,
		comments: commenter,
	}
}

// ReactionsChanged broadcasts the new counts to every connection
func (f *Fanout) ReactionsChanged(ctx context.Context, kind reactions.Kind, targetID uint, counts []reactions.TypeCount) {
	wire := make([]ReactionCount, len(counts))
	for i, c := range counts {
		wire[i] = ReactionCount{Type: c.Type, Count: c.Count}
	}

	switch kind {
	case reactions.KindPost:
		f.hub.Broadcast(NewMessage(MessageTypePostReactionUpdate, PostReactionUpdate{PostID: targetID, Reactions: wire}))
	case reactions.KindComment:
		f.hub.Broadcast(NewMessage(MessageTypeCommentReactionUpdate, CommentReactionUpdate{CommentID: targetID, Reactions: wire}))
	}
}

// Lookup resolves a user's notification target connection
func (f *Fanout) Lookup(userID uint) (string, bool) {
	return f.registry.Lookup(userID)
}

// PushNotification sends newNotification to a single connection
func (f *Fanout) PushNotification(connID string, n *models.Notification) error {
	return f.hub.SendToConn(connID, NewMessage(MessageTypeNewNotification, NewNotificationPayload(n)))
}

// CommentCreated sends receive_comment to everyone viewing the post
func (f *Fanout) CommentCreated(ctx context.Context, c *models.Comment) {
	members := f.rooms.Members(c.PostID)
	if len(members) == 0 {
		return
	}
	f.hub.SendToConns(members, NewMessage(MessageTypeReceiveComment, NewCommentPayload(c)))
}

// Mentioned sends the mention event to every connection of the user
func (f *Fanout) Mentioned(ctx context.Context, userID uint, message string, postID uint) {
	conns := f.registry.LookupAll(userID)
	if len(conns) == 0 {
		logger.FromContext(ctx).Debug("Mentioned user has no live connection", logger.WithUserID(userID))
		return
	}
	f.hub.SendToConns(conns, NewMessage(MessageTypeMention, MentionPayload{Message: message, PostID: postID}))
}

// RegisterHandlers installs a hub handler for every inbound event type
func (f *Fanout) RegisterHandlers() {
	for _, t := range InboundTypes {
		f.hub.RegisterHandler(t, f.handle)
	}
}

func (f *Fanout) handle(client *Client, msg *Message) error {
	ev, err := DecodeInbound(msg)
	if err != nil {
		return err
	}
	ctx := client.Context()

	switch e := ev.(type) {
	case UserOnline:
		if err := matchIdentity(client, e.UserID); err != nil {
			return err
		}
		f.registry.MarkOnline(client.UserID, client.ConnID)
	case Register:
		if err := matchIdentity(client, e.UserID); err != nil {
			return err
		}
		f.registry.Register(client.UserID, client.ConnID)
	case JoinPost:
		f.rooms.Join(client.ConnID, uint(e.PostID))
	case LeavePost:
		f.rooms.Leave(client.ConnID, uint(e.PostID))
	case NewComment:
		if _, err := f.comments.Create(ctx, client.UserID, uint(e.PostID), e.Comment.Text, comments.SourceWebSocket); err != nil {
			return fmt.Errorf("new_comment on post %d: %w", e.PostID, err)
		}
	case ReactToPost:
		return f.react(client, e.UserID, reactions.KindPost, uint(e.PostID), e.Type)
	case ReactToComment:
		return f.react(client, e.UserID, reactions.KindComment, uint(e.CommentID), e.Type)
	}
	return nil
}

func (f *Fanout) react(client *Client, claimed FlexibleID, kind reactions.Kind, targetID uint, reactionType string) error {
	if claimed != 0 {
		if err := matchIdentity(client, claimed); err != nil {
			return err
		}
	}
	res, err := f.reactor.React(client.Context(), client.UserID, kind, targetID, reactionType)
	if err != nil {
		return fmt.Errorf("react to %s %d: %w", kind, targetID, err)
	}
	client.log().Debug("Socket reaction applied",
		zap.String("kind", string(kind)),
		zap.Uint("target_id", targetID),
		zap.String("outcome", string(res.Outcome)))
	return nil
}

// matchIdentity rejects payloads naming a user other than the authenticated one
func matchIdentity(client *Client, claimed FlexibleID) error {
	if uint(claimed) != client.UserID {
		return fmt.Errorf("%w: claimed %d, connection %d", ErrIdentityMismatch, claimed, client.UserID)
	}
	return nil
}
