package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/service"
	"github.com/d60-Lab/beacon-feed/pkg/response"
)

type nudgeRequest struct {
	ActorID  string `json:"actor_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
}

// Nudge 发出一次戳一戳（提交后异步累计亲密度、发通知）
// @Summary 戳一戳
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body nudgeRequest true "戳一戳信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/nudges [post]
func (h *Handler) Nudge(c *gin.Context) {
	var req nudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.ActorID == req.TargetID {
		response.BadRequest(c, "cannot nudge yourself")
		return
	}
	for _, id := range []string{req.ActorID, req.TargetID} {
		u, err := h.users.Get(c.Request.Context(), id)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if u == nil || u.Status != model.UserStatusActive {
			response.BadRequest(c, "user not active: "+id)
			return
		}
	}
	h.publisher.Nudge(c.Request.Context(), req.ActorID, req.TargetID)
	response.Success(c, nil)
}

type commentRequest struct {
	AuthorID string `json:"author_id" binding:"required"`
	PostID   string `json:"post_id" binding:"required"`
}

// Comment 评论触发（评论正文由内容系统落库，这里只进扇出）
// @Summary 评论触发
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body commentRequest true "评论信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/comments [post]
func (h *Handler) Comment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.posts.Get(c.Request.Context(), req.PostID)
	if errors.Is(err, service.ErrPostNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.publisher.CommentCreated(c.Request.Context(), req.AuthorID, post.ID, post.AuthorID)
	response.Success(c, nil)
}

type loginRequest struct {
	UserID string `json:"user_id" binding:"required"`
	First  bool   `json:"first"`
}

// Login 登录触发（首次登录授予新人徽章）
// @Summary 登录触发
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response
// @Router /api/v1/logins [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.publisher.Login(c.Request.Context(), req.UserID, req.First)
	response.Success(c, nil)
}
