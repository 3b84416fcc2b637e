package sqlite

import (
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/loader"
)

// Register adds every entity kind and connection served by the datastore to
// r.
func (s *Datastore) Register(r *factory.Registry) error {
	kinds := []struct {
		kind  entity.Kind
		fetch loader.FetchFunc
	}{
		{entity.Member, s.FetchMembers},
		{entity.Group, s.FetchGroups},
		{entity.Friendship, s.FetchFriendships},
		{entity.ProfileGroup, s.FetchProfileGroups},
		{entity.ProfileField, s.FetchProfileFields},
		{entity.Blog, s.FetchBlogs},
		{entity.Attachment, s.FetchAttachments},
	}
	for _, k := range kinds {
		if err := r.RegisterKind(k.kind, k.fetch); err != nil {
			return err
		}
	}

	relations := []factory.Relationship{
		{Relation: entity.RootMembers, Target: entity.Member, Filters: MemberFilters, Fetch: s.MembersPage(), SortKind: membersPage.sortKind},
		{Relation: entity.RootGroups, Target: entity.Group, Filters: GroupFilters, Fetch: s.GroupsPage(), SortKind: groupsPage.sortKind},
		{Relation: entity.RootProfileGroups, Target: entity.ProfileGroup, Filters: ProfileGroupFilters, Fetch: s.ProfileGroupsPage(), SortKind: profileGroupsPage.sortKind},
		{Relation: entity.RootBlogs, Target: entity.Blog, Filters: BlogFilters, Fetch: s.BlogsPage(), SortKind: blogsPage.sortKind},
		{Relation: entity.MemberGroups, Target: entity.Group, Filters: MemberGroupFilters, Fetch: s.MemberGroupsPage(), SortKind: memberGroupsPage.sortKind},
		{Relation: entity.MemberFriendships, Target: entity.Friendship, Filters: FriendshipFilters, Fetch: s.FriendshipsPage(), SortKind: friendshipsPage.sortKind},
		{Relation: entity.GroupMembers, Target: entity.Member, Filters: GroupMemberFilters, Fetch: s.GroupMembersPage(), SortKind: groupMembersPage.sortKind},
		{Relation: entity.ProfileGroupFields, Target: entity.ProfileField, Filters: ProfileFieldFilters, Fetch: s.ProfileFieldsPage(), SortKind: profileFieldsPage.sortKind},
		{Relation: entity.ProfileFieldOptions, Target: entity.ProfileField, Fetch: s.FieldOptionsPage(), SortKind: fieldOptionsPage.sortKind},
	}
	for _, rel := range relations {
		if err := r.RegisterRelation(rel); err != nil {
			return err
		}
	}
	return nil
}
