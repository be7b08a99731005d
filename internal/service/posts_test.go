package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/beacon-feed/internal/geo"
	"github.com/d60-Lab/beacon-feed/internal/model"
)

func TestCreatePostWritesOutboxInSameTransaction(t *testing.T) {
	e := newEnv(t)
	e.addUser("author")
	ctx := context.Background()

	post, err := e.postSvc.Create(ctx, CreatePostInput{
		AuthorID: "author", Caption: "hi", Lat: 37.5665, Lng: 126.9780,
	})
	require.NoError(t, err)
	assert.Equal(t, mustCell(t, 37.5665, 126.9780), post.BeaconID)

	var rows []model.Outbox
	require.NoError(t, e.db.Where("status = ?", "pending").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Payload, post.ID)
}

func TestCreatePostRejectsInvalidCoordinate(t *testing.T) {
	e := newEnv(t)
	e.addUser("author")

	_, err := e.postSvc.Create(context.Background(), CreatePostInput{
		AuthorID: "author", Lat: 91, Lng: 0,
	})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	var cnt int64
	require.NoError(t, e.db.Model(&model.Outbox{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestCreatePostRejectsInactiveAuthor(t *testing.T) {
	e := newEnv(t)
	e.addUser("gone", withStatus(model.UserStatusWithdrawn))

	_, err := e.postSvc.Create(context.Background(), CreatePostInput{
		AuthorID: "gone", Lat: 37.5, Lng: 127.0,
	})
	assert.ErrorIs(t, err, ErrAuthorInactive)

	_, err = e.postSvc.Create(context.Background(), CreatePostInput{
		AuthorID: "missing", Lat: 37.5, Lng: 127.0,
	})
	assert.ErrorIs(t, err, ErrAuthorInactive)
}

func TestCreatePostDeduplicatesCollaborators(t *testing.T) {
	e := newEnv(t)
	e.addUser("author")

	post, err := e.postSvc.Create(context.Background(), CreatePostInput{
		AuthorID:      "author",
		Lat:           37.5,
		Lng:           127.0,
		Collaborators: []string{"c1", "author", "c1", "c2"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StringArray{"c1", "c2"}, post.Collaborators)
}

func TestNearbyFriendPostsFiltersAndSorts(t *testing.T) {
	e := newEnv(t)
	e.addUser("viewer")
	e.addUser("friend")
	e.addUser("stranger")
	e.befriend("viewer", "friend")
	ctx := context.Background()

	center := mustCell(t, 37.5665, 126.9780)
	ring, err := geo.Neighbors(center)
	require.NoError(t, err)
	var neighbor string
	for _, c := range ring {
		if c != center {
			neighbor = c
			break
		}
	}

	e.seedPost("in-center", "friend", center, e.now)
	e.seedPost("in-ring", "friend", neighbor, e.now)
	e.seedPost("stranger-post", "stranger", center, e.now)
	e.seedPost("far-away", "friend", "b9:999:999", e.now)

	posts, err := e.postSvc.NearbyFriendPosts(ctx, "viewer", 37.5665, 126.9780, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "in-center", posts[0].ID, "closest cell first")
	assert.Equal(t, "in-ring", posts[1].ID)
}
