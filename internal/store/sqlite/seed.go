package sqlite

import (
	"context"
	"fmt"

	"github.com/hanpama/socialgraph/internal/entity"
)

// DemoData is a small community used by `socialgraph seed` and by tests.
type DemoData struct {
	Attachments   []*entity.AttachmentRecord
	Members       []*entity.MemberRecord
	Groups        []*entity.GroupRecord
	Memberships   []GroupMembership
	Friendships   []*entity.FriendshipRecord
	ProfileGroups []*entity.ProfileGroupRecord
	ProfileFields []*entity.ProfileFieldRecord
	ProfileData   []ProfileDatum
	Blogs         []*entity.BlogRecord
}

type ProfileDatum struct {
	FieldID  int64
	MemberID int64
	Value    string
}

func Demo() DemoData {
	return DemoData{
		Attachments: []*entity.AttachmentRecord{
			{ID: 1, Object: "member", ItemID: 1, Full: "https://cdn.example.org/avatars/1/full.jpg", Thumb: "https://cdn.example.org/avatars/1/thumb.jpg"},
			{ID: 2, Object: "member", ItemID: 1, Full: "https://cdn.example.org/covers/1.jpg"},
			{ID: 3, Object: "group", ItemID: 1, Full: "https://cdn.example.org/groups/1/full.jpg", Thumb: "https://cdn.example.org/groups/1/thumb.jpg"},
		},
		Members: []*entity.MemberRecord{
			{ID: 1, Name: "Alice Adams", Slug: "alice", MentionName: "alice", Link: "https://example.org/members/alice/", Registered: "2020-01-01 09:00:00", MemberTypes: []string{"student"}, AvatarID: 1, CoverID: 2},
			{ID: 2, Name: "Bob Brown", Slug: "bob", MentionName: "bob", Link: "https://example.org/members/bob/", Registered: "2020-02-01 09:00:00", MemberTypes: []string{"staff"}},
			{ID: 3, Name: "Carol Chen", Slug: "carol", MentionName: "carol", Link: "https://example.org/members/carol/", Registered: "2020-03-01 09:00:00"},
			{ID: 4, Name: "Dave Diaz", Slug: "dave", MentionName: "dave", Link: "https://example.org/members/dave/", Registered: "2020-04-01 09:00:00", MemberTypes: []string{"student"}},
			{ID: 5, Name: "Erin Evans", Slug: "erin", MentionName: "erin", Link: "https://example.org/members/erin/", Registered: "2020-05-01 09:00:00"},
		},
		Groups: []*entity.GroupRecord{
			{ID: 1, CreatorID: 1, Name: "Book Club", Slug: "book-club", Description: "Monthly reading", Status: "public", DateCreated: "2021-01-01 00:00:00", AvatarID: 3},
			{ID: 2, CreatorID: 2, Name: "Chess", Slug: "chess", Description: "Openings and endgames", Status: "private", DateCreated: "2021-02-01 00:00:00"},
			{ID: 3, CreatorID: 1, ParentID: 1, Name: "Secret Society", Slug: "secret-society", Status: "hidden", DateCreated: "2021-03-01 00:00:00"},
		},
		Memberships: []GroupMembership{
			{GroupID: 1, MemberID: 1, IsAdmin: true, IsConfirmed: true, DateModified: "2021-01-01 00:00:00"},
			{GroupID: 1, MemberID: 2, IsMod: true, IsConfirmed: true, DateModified: "2021-01-02 00:00:00"},
			{GroupID: 1, MemberID: 3, IsConfirmed: true, DateModified: "2021-01-03 00:00:00"},
			{GroupID: 1, MemberID: 4, IsConfirmed: false, DateModified: "2021-01-04 00:00:00"},
			{GroupID: 2, MemberID: 2, IsAdmin: true, IsConfirmed: true, DateModified: "2021-02-01 00:00:00"},
			{GroupID: 2, MemberID: 1, IsConfirmed: true, DateModified: "2021-02-02 00:00:00"},
			{GroupID: 3, MemberID: 1, IsAdmin: true, IsConfirmed: true, DateModified: "2021-03-01 00:00:00"},
		},
		Friendships: []*entity.FriendshipRecord{
			{ID: 1, InitiatorID: 1, FriendID: 2, IsConfirmed: true, DateCreated: "2022-01-01 00:00:00"},
			{ID: 2, InitiatorID: 3, FriendID: 1, IsConfirmed: true, DateCreated: "2022-01-02 00:00:00"},
			{ID: 3, InitiatorID: 1, FriendID: 4, IsConfirmed: false, DateCreated: "2022-01-03 00:00:00"},
			{ID: 4, InitiatorID: 2, FriendID: 3, IsConfirmed: true, DateCreated: "2022-01-04 00:00:00"},
		},
		ProfileGroups: []*entity.ProfileGroupRecord{
			{ID: 1, Name: "Base", Description: "Shown on registration", GroupOrder: 0},
			{ID: 2, Name: "Work", GroupOrder: 1, CanDelete: true},
		},
		ProfileFields: []*entity.ProfileFieldRecord{
			{ID: 1, GroupID: 1, Type: "textbox", Name: "Name", IsRequired: true, FieldOrder: 0},
			{ID: 2, GroupID: 1, Type: "selectbox", Name: "Pronouns", FieldOrder: 2, CanDelete: true},
			{ID: 3, GroupID: 1, ParentID: 2, Type: "option", Name: "she/her", OptionOrder: 1, CanDelete: true},
			{ID: 4, GroupID: 1, ParentID: 2, Type: "option", Name: "he/him", OptionOrder: 2, CanDelete: true},
			{ID: 5, GroupID: 1, ParentID: 2, Type: "option", Name: "they/them", OptionOrder: 3, IsDefaultOption: true, CanDelete: true},
			{ID: 6, GroupID: 2, Type: "textbox", Name: "Company", FieldOrder: 0, CanDelete: true},
			{ID: 7, GroupID: 1, Type: "textbox", Name: "Nickname", FieldOrder: 1, CanDelete: true},
		},
		ProfileData: []ProfileDatum{
			{FieldID: 1, MemberID: 1, Value: "Alice"},
			{FieldID: 6, MemberID: 1, Value: "ACME"},
			{FieldID: 1, MemberID: 2, Value: "Bob"},
			{FieldID: 2, MemberID: 2, Value: ""},
		},
		Blogs: []*entity.BlogRecord{
			{ID: 1, AdminID: 1, Name: "Alice Reads", Description: "Book notes", Domain: "example.org", Path: "/alice/", LastActivity: "2023-01-01 00:00:00"},
			{ID: 2, AdminID: 2, Name: "Bob Plays", Description: "Chess diary", Domain: "example.org", Path: "/bob/", LastActivity: "2023-02-01 00:00:00"},
			{ID: 3, AdminID: 1, Name: "Community News", Domain: "news.example.org", Path: "/", LastActivity: "2023-03-01 00:00:00"},
		},
	}
}

// Seed writes d. Records are inserted in dependency order.
func (s *Datastore) Seed(ctx context.Context, d DemoData) error {
	for _, a := range d.Attachments {
		if err := s.InsertAttachment(ctx, a); err != nil {
			return fmt.Errorf("attachment %d: %w", a.ID, err)
		}
	}
	for _, m := range d.Members {
		if err := s.InsertMember(ctx, m); err != nil {
			return fmt.Errorf("member %d: %w", m.ID, err)
		}
	}
	for _, g := range d.Groups {
		if err := s.InsertGroup(ctx, g); err != nil {
			return fmt.Errorf("group %d: %w", g.ID, err)
		}
	}
	for _, gm := range d.Memberships {
		if err := s.InsertGroupMembership(ctx, gm); err != nil {
			return fmt.Errorf("membership %d/%d: %w", gm.GroupID, gm.MemberID, err)
		}
	}
	for _, f := range d.Friendships {
		if err := s.InsertFriendship(ctx, f); err != nil {
			return fmt.Errorf("friendship %d: %w", f.ID, err)
		}
	}
	for _, g := range d.ProfileGroups {
		if err := s.InsertProfileGroup(ctx, g); err != nil {
			return fmt.Errorf("profile group %d: %w", g.ID, err)
		}
	}
	for _, f := range d.ProfileFields {
		if err := s.InsertProfileField(ctx, f); err != nil {
			return fmt.Errorf("profile field %d: %w", f.ID, err)
		}
	}
	for _, pd := range d.ProfileData {
		if err := s.SetProfileData(ctx, pd.FieldID, pd.MemberID, pd.Value); err != nil {
			return fmt.Errorf("profile data %d/%d: %w", pd.FieldID, pd.MemberID, err)
		}
	}
	for _, b := range d.Blogs {
		if err := s.InsertBlog(ctx, b); err != nil {
			return fmt.Errorf("blog %d: %w", b.ID, err)
		}
	}
	return nil
}
