package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/failure"
)

// GroupMembership is a row of group_members.
type GroupMembership struct {
	GroupID      int64
	MemberID     int64
	IsAdmin      bool
	IsMod        bool
	IsConfirmed  bool
	DateModified string
}

// FriendshipBetween returns the friendship linking the two members in either
// direction, or failure.ErrNotFound.
func (s *Datastore) FriendshipBetween(ctx context.Context, a, b int64) (*entity.FriendshipRecord, error) {
	ctx, span := startTrace(ctx, "FriendshipBetween")
	defer span.End()

	row := s.stbl.
		Select(friendshipColumns...).
		From("friendships").
		Where(sq.Or{
			sq.Eq{"initiator_id": a, "friend_id": b},
			sq.Eq{"initiator_id": b, "friend_id": a},
		}).
		Limit(1).
		QueryRowContext(ctx)
	f, err := scanFriendship(row)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return f, nil
}

// DeleteFriendship removes the friendship with id.
func (s *Datastore) DeleteFriendship(ctx context.Context, id int64) error {
	ctx, span := startTrace(ctx, "DeleteFriendship")
	defer span.End()

	res, err := s.stbl.Delete("friendships").Where(sq.Eq{"id": id}).ExecContext(ctx)
	if err != nil {
		return HandleSQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return HandleSQLError(err)
	}
	if n == 0 {
		return failure.ErrNotFound
	}
	return nil
}

func (s *Datastore) exec(ctx context.Context, op string, ib sq.InsertBuilder) error {
	ctx, span := startTrace(ctx, op)
	defer span.End()
	if _, err := ib.ExecContext(ctx); err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// InsertMember writes m and its member types in one transaction.
func (s *Datastore) InsertMember(ctx context.Context, m *entity.MemberRecord) (err error) {
	ctx, span := startTrace(ctx, "InsertMember")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return HandleSQLError(err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, rollback(tx))
		}
	}()

	_, err = sq.Insert("members").
		Columns(memberColumns...).
		Values(m.ID, m.Name, m.Slug, m.MentionName, m.Link, m.Registered, m.AvatarID, m.CoverID).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return HandleSQLError(err)
	}
	if len(m.MemberTypes) > 0 {
		ib := sq.Insert("member_types").Columns("member_id", "member_type")
		for _, t := range m.MemberTypes {
			ib = ib.Values(m.ID, t)
		}
		if _, err = ib.RunWith(tx).ExecContext(ctx); err != nil {
			return HandleSQLError(err)
		}
	}
	if err = tx.Commit(); err != nil {
		return HandleSQLError(err)
	}
	return nil
}

func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (s *Datastore) InsertGroup(ctx context.Context, g *entity.GroupRecord) error {
	return s.exec(ctx, "InsertGroup", s.stbl.Insert("groups").
		Columns(groupColumns...).
		Values(g.ID, g.CreatorID, g.ParentID, g.Name, g.Slug, g.Description, g.Status, g.DateCreated, g.AvatarID, g.CoverID))
}

func (s *Datastore) InsertGroupMembership(ctx context.Context, gm GroupMembership) error {
	return s.exec(ctx, "InsertGroupMembership", s.stbl.Insert("group_members").
		Columns("group_id", "member_id", "is_admin", "is_mod", "is_confirmed", "date_modified").
		Values(gm.GroupID, gm.MemberID, gm.IsAdmin, gm.IsMod, gm.IsConfirmed, gm.DateModified))
}

func (s *Datastore) InsertFriendship(ctx context.Context, f *entity.FriendshipRecord) error {
	return s.exec(ctx, "InsertFriendship", s.stbl.Insert("friendships").
		Columns(friendshipColumns...).
		Values(f.ID, f.InitiatorID, f.FriendID, f.IsConfirmed, f.DateCreated))
}

func (s *Datastore) InsertProfileGroup(ctx context.Context, g *entity.ProfileGroupRecord) error {
	return s.exec(ctx, "InsertProfileGroup", s.stbl.Insert("profile_groups").
		Columns(profileGroupColumns...).
		Values(g.ID, g.Name, g.Description, g.GroupOrder, g.CanDelete))
}

func (s *Datastore) InsertProfileField(ctx context.Context, f *entity.ProfileFieldRecord) error {
	return s.exec(ctx, "InsertProfileField", s.stbl.Insert("profile_fields").
		Columns(profileFieldColumns...).
		Values(f.ID, f.GroupID, f.ParentID, f.Type, f.Name, f.Description, f.IsRequired, f.IsDefaultOption, f.FieldOrder, f.OptionOrder, f.CanDelete))
}

// SetProfileData stores the value member entered for a profile field.
func (s *Datastore) SetProfileData(ctx context.Context, fieldID, memberID int64, value string) error {
	return s.exec(ctx, "SetProfileData", s.stbl.Insert("profile_data").
		Options("OR REPLACE").
		Columns("field_id", "member_id", "value").
		Values(fieldID, memberID, value))
}

func (s *Datastore) InsertBlog(ctx context.Context, b *entity.BlogRecord) error {
	return s.exec(ctx, "InsertBlog", s.stbl.Insert("blogs").
		Columns(blogColumns...).
		Values(b.ID, b.AdminID, b.Name, b.Description, b.Domain, b.Path, b.LastActivity, b.AvatarID))
}

func (s *Datastore) InsertAttachment(ctx context.Context, a *entity.AttachmentRecord) error {
	return s.exec(ctx, "InsertAttachment", s.stbl.Insert("attachments").
		Columns(attachmentColumns...).
		Values(a.ID, a.Object, a.ItemID, a.Full, a.Thumb))
}
