package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/entity"
)

// ResolveSync projects a field of an already loaded value. A source of the
// wrong type is a schema/runtime mismatch and panics.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *entity.MemberRecord:
		return memberField(src, field), nil
	case *entity.GroupRecord:
		return groupField(src, field), nil
	case *entity.FriendshipRecord:
		return friendshipField(src, field), nil
	case *entity.ProfileGroupRecord:
		return profileGroupField(src, field), nil
	case *entity.ProfileFieldRecord:
		return profileFieldField(src, field), nil
	case *entity.BlogRecord:
		return blogField(src, field), nil
	case *entity.AttachmentRecord:
		switch field {
		case "full":
			return optional(src.Full), nil
		case "thumb":
			return optional(src.Thumb), nil
		}
	case *connection.Page:
		switch field {
		case "edges":
			return src.Edges, nil
		case "pageInfo":
			return src.PageInfo, nil
		}
	case connection.Edge:
		if field == "cursor" {
			return src.Cursor, nil
		}
	case connection.PageInfo:
		switch field {
		case "hasNextPage":
			return src.HasNextPage, nil
		case "hasPreviousPage":
			return src.HasPreviousPage, nil
		case "startCursor":
			return src.StartCursor, nil
		case "endCursor":
			return src.EndCursor, nil
		}
	case *deletePayload:
		switch field {
		case "clientMutationId":
			return src.ClientMutationID, nil
		case "deleted":
			return src.Deleted, nil
		case "friendship":
			return src.Friendship, nil
		}
	}
	panic(fmt.Sprintf("graph: unexpected field %s.%s on %T", objectType, field, source))
}

func memberField(m *entity.MemberRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.Member, m.ID)
	case "userId":
		return m.ID
	case "name":
		return m.Name
	case "slug":
		return m.Slug
	case "mentionName":
		return optional(m.MentionName)
	case "link":
		return optional(m.Link)
	case "registered":
		return m.Registered
	case "memberTypes":
		if m.MemberTypes == nil {
			return []string{}
		}
		return m.MemberTypes
	}
	panic("graph: unknown Member field " + field)
}

func groupField(g *entity.GroupRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.Group, g.ID)
	case "groupId":
		return g.ID
	case "name":
		return g.Name
	case "slug":
		return g.Slug
	case "description":
		return optional(g.Description)
	case "status":
		return strings.ToUpper(g.Status)
	case "dateCreated":
		return g.DateCreated
	}
	panic("graph: unknown Group field " + field)
}

func friendshipField(f *entity.FriendshipRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.Friendship, f.ID)
	case "friendshipId":
		return f.ID
	case "isConfirmed":
		return f.IsConfirmed
	case "dateCreated":
		return f.DateCreated
	}
	panic("graph: unknown Friendship field " + field)
}

func profileGroupField(g *entity.ProfileGroupRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.ProfileGroup, g.ID)
	case "groupId":
		return g.ID
	case "name":
		return g.Name
	case "description":
		return optional(g.Description)
	case "groupOrder":
		return g.GroupOrder
	case "canDelete":
		return g.CanDelete
	}
	panic("graph: unknown ProfileGroup field " + field)
}

func profileFieldField(f *entity.ProfileFieldRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.ProfileField, f.ID)
	case "fieldId":
		return f.ID
	case "type":
		return f.Type
	case "name":
		return f.Name
	case "description":
		return optional(f.Description)
	case "isRequired":
		return f.IsRequired
	case "isDefaultOption":
		return f.IsDefaultOption
	case "fieldOrder":
		return f.FieldOrder
	case "optionOrder":
		return f.OptionOrder
	case "canDelete":
		return f.CanDelete
	}
	panic("graph: unknown ProfileField field " + field)
}

func blogField(b *entity.BlogRecord, field string) any {
	switch field {
	case "id":
		return entity.GlobalID(entity.Blog, b.ID)
	case "blogId":
		return b.ID
	case "name":
		return b.Name
	case "description":
		return optional(b.Description)
	case "domain":
		return b.Domain
	case "path":
		return b.Path
	case "lastActivity":
		return optional(b.LastActivity)
	}
	panic("graph: unknown Blog field " + field)
}

// optional maps the empty string to null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
