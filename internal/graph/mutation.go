package graph

import (
	"context"
	"errors"

	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/failure"
)

var errInvalidUser = failure.Message(failure.ErrInvalidArgument, "There was a problem confirming if user is valid.")

type deletePayload struct {
	ClientMutationID any
	Deleted          bool
	Friendship       *entity.FriendshipRecord
}

// deleteFriendship checks the viewer, confirms both members exist through the
// request's member loader and then removes the friendship in a later stage
// of the same drain.
func (r *Runtime) deleteFriendship(ctx context.Context, s *factory.Session, _ any, args map[string]any) *deferred.Value[any] {
	input, _ := args["input"].(map[string]any)
	initiator, _ := input["initiatorId"].(int)
	friend, _ := input["friendId"].(int)

	viewer := Viewer(ctx)
	if viewer == 0 || (viewer != int64(initiator) && viewer != int64(friend)) {
		return deferred.Reject[any](failure.ErrPermissionDenied)
	}

	users := deferred.All([]*deferred.Value[entity.Entity]{
		s.ResolveNode(entity.Member, int64(initiator)),
		s.ResolveNode(entity.Member, int64(friend)),
	})
	return deferred.Then(users, func(found []entity.Entity) *deferred.Value[any] {
		for _, m := range found {
			if m == nil {
				return deferred.Reject[any](errInvalidUser)
			}
		}
		step := &deleteStep{
			store:     r.store,
			session:   s,
			viewer:    viewer,
			initiator: int64(initiator),
			friend:    int64(friend),
			payload:   &deletePayload{ClientMutationID: input["clientMutationId"]},
			value:     deferred.New[any](),
		}
		s.Queue().Enqueue(deferred.StageResolve, step)
		return step.value
	})
}

type deleteStep struct {
	store     FriendshipStore
	session   *factory.Session
	viewer    int64
	initiator int64
	friend    int64
	payload   *deletePayload
	value     *deferred.Value[any]
}

func (d *deleteStep) Flush(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		d.value.Settle(nil, err)
		return
	}
	f, err := d.store.FriendshipBetween(ctx, d.initiator, d.friend)
	if errors.Is(err, failure.ErrNotFound) {
		d.value.Settle(d.payload, nil)
		return
	}
	if err != nil {
		d.value.Settle(nil, failure.Backend("find friendship", err))
		return
	}

	err = d.store.DeleteFriendship(ctx, f.ID)
	if errors.Is(err, failure.ErrNotFound) {
		d.value.Settle(d.payload, nil)
		return
	}
	if err != nil {
		d.value.Settle(nil, failure.Backend("delete friendship", err))
		return
	}

	if l, err := d.session.Loader(entity.Friendship); err == nil {
		l.Clear(f.ID)
	}
	eventbus.Publish(ctx, events.MutationApplied{
		Name:     "deleteFriendship",
		Kind:     entity.Friendship.String(),
		ID:       f.ID,
		ViewerID: d.viewer,
	})
	d.payload.Deleted = true
	d.payload.Friendship = f
	d.value.Settle(d.payload, nil)
}
