package service

import "fmt"

// 通知类别
const (
	CategoryNewPost       = "NEW_POST"
	CategoryFriendVisited = "FRIEND_VISITED"
	CategoryPostTagged    = "POST_TAGGED"
	CategoryBadgeAcquired = "BADGE_ACQUIRED"
	CategoryLevelUp       = "LEVEL_UP"
	CategoryNudge         = "NUDGE"
	CategoryComment       = "COMMENT"
)

const defaultLocale = "en"

type templateKey struct {
	category string
	locale   string
}

type messageTemplate struct {
	title string
	body  string
}

// messageTemplates 启动即定型的只读模板表，参数按位置代入
var messageTemplates = map[templateKey]messageTemplate{
	{CategoryNewPost, "en"}:       {"New beacon", "%s left a post nearby."},
	{CategoryNewPost, "ko"}:       {"새로운 비콘", "%s님이 새 게시물을 남겼어요."},
	{CategoryFriendVisited, "en"}: {"A familiar place", "%s posted where you have been before."},
	{CategoryFriendVisited, "ko"}: {"익숙한 장소", "%s님이 당신이 다녀간 곳에 게시물을 남겼어요."},
	{CategoryPostTagged, "en"}:    {"Tagged together", "%s tagged you in a post."},
	{CategoryPostTagged, "ko"}:    {"함께 태그됨", "%s님이 게시물에 당신을 태그했어요."},
	{CategoryBadgeAcquired, "en"}: {"Badge unlocked", "You earned the %s badge."},
	{CategoryBadgeAcquired, "ko"}: {"배지 획득", "%s 배지를 획득했어요."},
	{CategoryLevelUp, "en"}:       {"Closer now", "You and %s reached intimacy level %s."},
	{CategoryLevelUp, "ko"}:       {"더 가까워졌어요", "%s님과의 친밀도가 %s레벨이 되었어요."},
	{CategoryNudge, "en"}:         {"Nudge", "%s nudged you."},
	{CategoryNudge, "ko"}:         {"콕 찌르기", "%s님이 당신을 콕 찔렀어요."},
	{CategoryComment, "en"}:       {"New comment", "%s commented on your post."},
	{CategoryComment, "ko"}:       {"새 댓글", "%s님이 게시물에 댓글을 남겼어요."},
}

const fallbackTitle = "Notification"
const fallbackBody = "You have a new notification."

// RenderMessage resolves the (category, locale) template with positional
// substitution, falling back to the default locale and then to a generic
// string. Never fails.
func RenderMessage(category, locale string, args ...string) (title, body string) {
	tpl, ok := messageTemplates[templateKey{category, locale}]
	if !ok {
		tpl, ok = messageTemplates[templateKey{category, defaultLocale}]
	}
	if !ok {
		return fallbackTitle, fallbackBody
	}
	iargs := make([]interface{}, len(args))
	for i, a := range args {
		iargs[i] = a
	}
	return tpl.title, fmt.Sprintf(tpl.body, iargs...)
}
