package sqlite

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/hanpama/socialgraph/internal/entity"
)

// scanner is implemented by *sql.Rows and *sql.Row.
type scanner interface {
	Scan(dest ...any) error
}

var (
	memberColumns       = []string{"id", "name", "slug", "mention_name", "link", "registered", "avatar_id", "cover_id"}
	groupColumns        = []string{"id", "creator_id", "parent_id", "name", "slug", "description", "status", "date_created", "avatar_id", "cover_id"}
	friendshipColumns   = []string{"id", "initiator_id", "friend_id", "is_confirmed", "date_created"}
	profileGroupColumns = []string{"id", "name", "description", "group_order", "can_delete"}
	profileFieldColumns = []string{"id", "group_id", "parent_id", "type", "name", "description", "is_required", "is_default_option", "field_order", "option_order", "can_delete"}
	blogColumns         = []string{"id", "admin_id", "name", "description", "domain", "path", "last_activity", "avatar_id"}
	attachmentColumns   = []string{"id", "object", "item_id", "full_url", "thumb_url"}
)

func scanMember(row scanner) (*entity.MemberRecord, error) {
	var m entity.MemberRecord
	err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.MentionName, &m.Link, &m.Registered, &m.AvatarID, &m.CoverID)
	return &m, err
}

func scanGroup(row scanner) (*entity.GroupRecord, error) {
	var g entity.GroupRecord
	err := row.Scan(&g.ID, &g.CreatorID, &g.ParentID, &g.Name, &g.Slug, &g.Description, &g.Status, &g.DateCreated, &g.AvatarID, &g.CoverID)
	return &g, err
}

func scanFriendship(row scanner) (*entity.FriendshipRecord, error) {
	var f entity.FriendshipRecord
	err := row.Scan(&f.ID, &f.InitiatorID, &f.FriendID, &f.IsConfirmed, &f.DateCreated)
	return &f, err
}

func scanProfileGroup(row scanner) (*entity.ProfileGroupRecord, error) {
	var g entity.ProfileGroupRecord
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.GroupOrder, &g.CanDelete)
	return &g, err
}

func scanProfileField(row scanner) (*entity.ProfileFieldRecord, error) {
	var f entity.ProfileFieldRecord
	err := row.Scan(&f.ID, &f.GroupID, &f.ParentID, &f.Type, &f.Name, &f.Description, &f.IsRequired, &f.IsDefaultOption, &f.FieldOrder, &f.OptionOrder, &f.CanDelete)
	return &f, err
}

func scanBlog(row scanner) (*entity.BlogRecord, error) {
	var b entity.BlogRecord
	err := row.Scan(&b.ID, &b.AdminID, &b.Name, &b.Description, &b.Domain, &b.Path, &b.LastActivity, &b.AvatarID)
	return &b, err
}

func scanAttachment(row scanner) (*entity.AttachmentRecord, error) {
	var a entity.AttachmentRecord
	err := row.Scan(&a.ID, &a.Object, &a.ItemID, &a.Full, &a.Thumb)
	return &a, err
}

// fetchByIDs runs one IN query against table and collects the scanned
// records by id. Ids without a row are absent from the result.
func fetchByIDs[T entity.Entity](
	ctx context.Context,
	s *Datastore,
	op, table string,
	columns []string,
	scan func(scanner) (T, error),
	ids []int64,
) (map[int64]entity.Entity, error) {
	ctx, span := startTrace(ctx, op)
	defer span.End()

	out := make(map[int64]entity.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.stbl.
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": ids}).
		QueryContext(ctx)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, HandleSQLError(err)
		}
		out[rec.EntityID()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, HandleSQLError(err)
	}
	return out, nil
}

// FetchMembers loads members with their member types.
func (s *Datastore) FetchMembers(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	out, err := fetchByIDs(ctx, s, "FetchMembers", "members", memberColumns, scanMember, ids)
	if err != nil || len(out) == 0 {
		return out, err
	}

	rows, err := s.stbl.
		Select("member_id", "member_type").
		From("member_types").
		Where(sq.Eq{"member_id": ids}).
		OrderBy("member_id", "member_type").
		QueryContext(ctx)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var typ string
		if err := rows.Scan(&id, &typ); err != nil {
			return nil, HandleSQLError(err)
		}
		if m, ok := out[id].(*entity.MemberRecord); ok {
			m.MemberTypes = append(m.MemberTypes, typ)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, HandleSQLError(err)
	}
	return out, nil
}

func (s *Datastore) FetchGroups(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchGroups", "groups", groupColumns, scanGroup, ids)
}

func (s *Datastore) FetchFriendships(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchFriendships", "friendships", friendshipColumns, scanFriendship, ids)
}

func (s *Datastore) FetchProfileGroups(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchProfileGroups", "profile_groups", profileGroupColumns, scanProfileGroup, ids)
}

func (s *Datastore) FetchProfileFields(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchProfileFields", "profile_fields", profileFieldColumns, scanProfileField, ids)
}

func (s *Datastore) FetchBlogs(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchBlogs", "blogs", blogColumns, scanBlog, ids)
}

func (s *Datastore) FetchAttachments(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	return fetchByIDs(ctx, s, "FetchAttachments", "attachments", attachmentColumns, scanAttachment, ids)
}
