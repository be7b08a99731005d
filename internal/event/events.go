// Package event carries domain events from committed writes to the fan-out
// workers. PostCreated rides the transactional outbox so no handler can
// observe a post that might still roll back; the lighter triggers are
// published directly by callers that are post-commit by contract.
package event

// Event kinds.
const (
	KindPostCreated    = "post_created"
	KindCommentCreated = "comment_created"
	KindNudge          = "nudge"
	KindLevelUp        = "level_up"
	KindLogin          = "login"
)

type PostCreated struct {
	PostID string `json:"post_id"`
}

type CommentCreated struct {
	AuthorID string `json:"author_id"` // comment author
	PostID   string `json:"post_id"`
	OwnerID  string `json:"owner_id"` // post author
}

type Nudge struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
}

type LevelUp struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
	Level int    `json:"level"`
}

type Login struct {
	UserID string `json:"user_id"`
	First  bool   `json:"first"`
}
