package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrNoPendingOffer = errors.New("no pending friend request")
)

// RelationService 好友申请写路径；每次状态变更同步失效双方缓存
type RelationService struct {
	friendships repository.FriendshipRepository
	users       repository.UserRepository
	graph       FriendGraph
}

func NewRelationService(friendships repository.FriendshipRepository, users repository.UserRepository, graph FriendGraph) *RelationService {
	return &RelationService{friendships: friendships, users: users, graph: graph}
}

// Request opens (or re-opens) a friend request. An already accepted pair is a
// no-op.
func (s *RelationService) Request(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return ErrSelfRelation
	}
	for _, id := range []string{fromID, toID} {
		u, err := s.users.Get(ctx, id)
		if err != nil {
			return err
		}
		if u == nil || u.Status != model.UserStatusActive {
			return ErrUserNotFound
		}
	}
	row, err := s.friendships.PairRow(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if row != nil && row.Status == model.FriendshipAccepted {
		return nil
	}
	if err := s.friendships.Upsert(ctx, fromID, toID, model.FriendshipPending); err != nil {
		return err
	}
	s.graph.Invalidate(ctx, fromID, toID)
	return nil
}

// Accept flips a pending request to FRIENDSHIP. Only the receiver can accept.
func (s *RelationService) Accept(ctx context.Context, accepterID, requesterID string) error {
	if accepterID == requesterID {
		return ErrSelfRelation
	}
	row, err := s.friendships.PairRow(ctx, accepterID, requesterID)
	if err != nil {
		return err
	}
	if row == nil || row.Status != model.FriendshipPending || row.ReceiverID != accepterID {
		return ErrNoPendingOffer
	}
	if err := s.friendships.Upsert(ctx, row.RequesterID, row.ReceiverID, model.FriendshipAccepted); err != nil {
		return err
	}
	s.graph.Invalidate(ctx, accepterID, requesterID)
	return nil
}
