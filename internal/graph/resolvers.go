package graph

import (
	"context"
	"strings"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/failure"
	"github.com/hanpama/socialgraph/internal/store/sqlite"
)

type asyncResolver func(ctx context.Context, s *factory.Session, source any, args map[string]any) *deferred.Value[any]

func (r *Runtime) asyncResolvers() map[string]asyncResolver {
	m := map[string]asyncResolver{
		"Query.node":         resolveGlobalNode,
		"Query.viewer":       resolveViewer,
		"Query.member":       byArgID(entity.Member),
		"Query.group":        byArgID(entity.Group),
		"Query.friendship":   byArgID(entity.Friendship),
		"Query.profileGroup": byArgID(entity.ProfileGroup),
		"Query.profileField": byArgID(entity.ProfileField),
		"Query.blog":         byArgID(entity.Blog),

		"Query.members":       rootConnection(entity.RootMembers),
		"Query.groups":        rootConnection(entity.RootGroups, sqlite.FilterStatus),
		"Query.profileGroups": rootConnection(entity.RootProfileGroups),
		"Query.blogs":         rootConnection(entity.RootBlogs),

		"Member.avatar":      byRef(entity.Attachment, func(m *entity.MemberRecord) int64 { return m.AvatarID }),
		"Member.cover":       byRef(entity.Attachment, func(m *entity.MemberRecord) int64 { return m.CoverID }),
		"Member.groups":      nestedConnection(entity.MemberGroups, func(m *entity.MemberRecord) int64 { return m.ID }, sqlite.FilterStatus),
		"Member.friendships": nestedConnection(entity.MemberFriendships, func(m *entity.MemberRecord) int64 { return m.ID }),

		"Group.creator": byRef(entity.Member, func(g *entity.GroupRecord) int64 { return g.CreatorID }),
		"Group.parent":  byRef(entity.Group, func(g *entity.GroupRecord) int64 { return g.ParentID }),
		"Group.avatar":  byRef(entity.Attachment, func(g *entity.GroupRecord) int64 { return g.AvatarID }),
		"Group.cover":   byRef(entity.Attachment, func(g *entity.GroupRecord) int64 { return g.CoverID }),
		"Group.members": nestedConnection(entity.GroupMembers, func(g *entity.GroupRecord) int64 { return g.ID }, sqlite.FilterRoles),

		"Friendship.initiator": byRef(entity.Member, func(f *entity.FriendshipRecord) int64 { return f.InitiatorID }),
		"Friendship.friend":    byRef(entity.Member, func(f *entity.FriendshipRecord) int64 { return f.FriendID }),

		"ProfileGroup.fields": profileGroupFields,

		"ProfileField.group":   byRef(entity.ProfileGroup, func(f *entity.ProfileFieldRecord) int64 { return f.GroupID }),
		"ProfileField.options": nestedConnection(entity.ProfileFieldOptions, func(f *entity.ProfileFieldRecord) int64 { return f.ID }),

		"Blog.admin":  byRef(entity.Member, func(b *entity.BlogRecord) int64 { return b.AdminID }),
		"Blog.avatar": byRef(entity.Attachment, func(b *entity.BlogRecord) int64 { return b.AvatarID }),

		"Mutation.deleteFriendship": r.deleteFriendship,
	}
	for _, conn := range []string{"Member", "Group", "Friendship", "ProfileGroup", "ProfileField", "Blog"} {
		m[conn+"Connection.nodes"] = pageNodes
		m[conn+"Edge.node"] = edgeNode
	}
	return m
}

func resolveGlobalNode(ctx context.Context, s *factory.Session, _ any, args map[string]any) *deferred.Value[any] {
	id, _ := args["id"].(string)
	kind, n, err := entity.ParseGlobalID(id)
	if err != nil {
		return deferred.Reject[any](failure.InvalidArgument("%v", err))
	}
	if _, ok := typeNames[kind]; !ok || kind == entity.Attachment {
		return deferred.Resolve[any](nil)
	}
	return deferred.Erase(s.ResolveNode(kind, n))
}

func resolveViewer(ctx context.Context, s *factory.Session, _ any, _ map[string]any) *deferred.Value[any] {
	return deferred.Erase(s.ResolveNode(entity.Member, Viewer(ctx)))
}

func byArgID(kind entity.Kind) asyncResolver {
	return func(_ context.Context, s *factory.Session, _ any, args map[string]any) *deferred.Value[any] {
		id, _ := args["id"].(int)
		return deferred.Erase(s.ResolveNode(kind, int64(id)))
	}
}

// byRef loads the entity whose id is stored on the source record.
func byRef[T entity.Entity](kind entity.Kind, ref func(T) int64) asyncResolver {
	return func(_ context.Context, s *factory.Session, source any, _ map[string]any) *deferred.Value[any] {
		return deferred.Erase(s.ResolveNode(kind, ref(source.(T))))
	}
}

func rootConnection(rel entity.Relation, enumFilters ...string) asyncResolver {
	return func(_ context.Context, s *factory.Session, _ any, args map[string]any) *deferred.Value[any] {
		return deferred.Erase(s.ResolveConnection(rel, 0, connectionArgs(args, enumFilters)))
	}
}

func nestedConnection[T entity.Entity](rel entity.Relation, sourceID func(T) int64, enumFilters ...string) asyncResolver {
	return func(_ context.Context, s *factory.Session, source any, args map[string]any) *deferred.Value[any] {
		return deferred.Erase(s.ResolveConnection(rel, sourceID(source.(T)), connectionArgs(args, enumFilters)))
	}
}

func profileGroupFields(ctx context.Context, s *factory.Session, source any, args map[string]any) *deferred.Value[any] {
	ca := connectionArgs(args, nil)
	if hide, _ := ca.Filters[sqlite.FilterHideEmptyFields].(bool); hide && ca.Filters[sqlite.FilterMember] == nil {
		if viewer := Viewer(ctx); viewer != 0 {
			ca.Filters[sqlite.FilterMember] = viewer
		}
	}
	g := source.(*entity.ProfileGroupRecord)
	return deferred.Erase(s.ResolveConnection(entity.ProfileGroupFields, g.ID, ca))
}

func pageNodes(_ context.Context, _ *factory.Session, source any, _ map[string]any) *deferred.Value[any] {
	return deferred.Erase(deferred.All(source.(*connection.Page).Nodes()))
}

func edgeNode(_ context.Context, _ *factory.Session, source any, _ map[string]any) *deferred.Value[any] {
	return deferred.Erase(source.(connection.Edge).Node)
}

// connectionArgs converts coerced field arguments. The where input becomes
// the filter map; values of enumFilters are lowercased to the stored form.
func connectionArgs(args map[string]any, enumFilters []string) connection.Args {
	var ca connection.Args
	if v, ok := args["first"].(int); ok {
		ca.First = &v
	}
	if v, ok := args["last"].(int); ok {
		ca.Last = &v
	}
	if v, ok := args["after"].(string); ok {
		ca.After = &v
	}
	if v, ok := args["before"].(string); ok {
		ca.Before = &v
	}
	where, _ := args["where"].(map[string]any)
	ca.Filters = make(map[string]any, len(where))
	for name, v := range where {
		ca.Filters[name] = v
	}
	for _, name := range enumFilters {
		items, ok := ca.Filters[name].([]any)
		if !ok {
			continue
		}
		lowered := make([]any, len(items))
		for i, item := range items {
			if s, ok := item.(string); ok {
				item = strings.ToLower(s)
			}
			lowered[i] = item
		}
		ca.Filters[name] = lowered
	}
	return ca
}
