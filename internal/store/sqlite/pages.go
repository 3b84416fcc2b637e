package sqlite

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/cursor"
	"github.com/hanpama/socialgraph/internal/failure"
)

// pageQuery describes the keyset page of one relation. Rows are ordered by
// (sort, id); id is also the node id of the row.
type pageQuery struct {
	op       string
	sort     string
	id       string
	sortKind cursor.ValueKind
	// from adds the tables, the source condition and the filters.
	from func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder
}

func (s *Datastore) fetchPage(ctx context.Context, q pageQuery, req connection.PageRequest) ([]connection.Row, error) {
	ctx, span := startTrace(ctx, q.op)
	defer span.End()

	for _, bound := range []*cursor.Key{req.After, req.Before} {
		if bound != nil && bound.Sort.Kind != q.sortKind {
			return nil, failure.InvalidCursor("cursor was not issued by %s", q.op)
		}
	}

	sb := q.from(s.stbl.Select(q.sort, q.id), req)
	keyset := "(" + q.sort + ", " + q.id + ")"
	if req.After != nil {
		sb = sb.Where(sq.Expr(keyset+" > (?, ?)", req.After.Sort.Any(), req.After.ID))
	}
	if req.Before != nil {
		sb = sb.Where(sq.Expr(keyset+" < (?, ?)", req.Before.Sort.Any(), req.Before.ID))
	}
	order := " ASC"
	if req.Direction == connection.Backward {
		order = " DESC"
	}
	sb = sb.OrderBy(q.sort+order, q.id+order).Limit(uint64(req.Limit))

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	defer rows.Close()

	out := make([]connection.Row, 0, req.Limit)
	for rows.Next() {
		var key cursor.Key
		switch q.sortKind {
		case cursor.KindInt:
			var n int64
			err = rows.Scan(&n, &key.ID)
			key.Sort = cursor.Int(n)
		default:
			var text string
			err = rows.Scan(&text, &key.ID)
			key.Sort = cursor.Text(text)
		}
		if err != nil {
			return nil, HandleSQLError(err)
		}
		out = append(out, connection.Row{Key: key, NodeID: key.ID})
	}
	if err := rows.Err(); err != nil {
		return nil, HandleSQLError(err)
	}
	return out, nil
}

func (s *Datastore) pager(q pageQuery) connection.FetchPageFunc {
	return func(ctx context.Context, req connection.PageRequest) ([]connection.Row, error) {
		return s.fetchPage(ctx, q, req)
	}
}

// Filter names accepted by the connections.
const (
	FilterInclude         = "include"
	FilterExclude         = "exclude"
	FilterSearch          = "search"
	FilterMemberType      = "memberType"
	FilterStatus          = "status"
	FilterParent          = "parent"
	FilterIsAdmin         = "isAdmin"
	FilterIsMod           = "isMod"
	FilterRoles           = "roles"
	FilterIsConfirmed     = "isConfirmed"
	FilterExcludeFields   = "excludeFields"
	FilterHideEmptyFields = "hideEmptyFields"
	FilterMember          = "member"
	FilterAdmin           = "admin"
)

// Group member roles accepted by the roles filter.
const (
	RoleAdmin  = "admin"
	RoleMod    = "mod"
	RoleMember = "member"
)

var (
	MemberFilters = connection.FilterSpec{
		FilterInclude:    connection.FilterIntList,
		FilterExclude:    connection.FilterIntList,
		FilterMemberType: connection.FilterStringList,
		FilterSearch:     connection.FilterString,
	}
	GroupFilters = connection.FilterSpec{
		FilterInclude: connection.FilterIntList,
		FilterExclude: connection.FilterIntList,
		FilterStatus:  connection.FilterStringList,
		FilterParent:  connection.FilterInt,
		FilterSearch:  connection.FilterString,
	}
	MemberGroupFilters = connection.FilterSpec{
		FilterStatus:  connection.FilterStringList,
		FilterIsAdmin: connection.FilterBool,
		FilterIsMod:   connection.FilterBool,
	}
	GroupMemberFilters = connection.FilterSpec{
		FilterRoles:   connection.FilterStringList,
		FilterExclude: connection.FilterIntList,
	}
	FriendshipFilters = connection.FilterSpec{
		FilterIsConfirmed: connection.FilterBool,
	}
	ProfileGroupFilters = connection.FilterSpec{
		FilterExclude: connection.FilterIntList,
	}
	ProfileFieldFilters = connection.FilterSpec{
		FilterExcludeFields:   connection.FilterIntList,
		FilterHideEmptyFields: connection.FilterBool,
		FilterMember:          connection.FilterInt,
	}
	BlogFilters = connection.FilterSpec{
		FilterInclude: connection.FilterIntList,
		FilterExclude: connection.FilterIntList,
		FilterSearch:  connection.FilterString,
		FilterAdmin:   connection.FilterInt,
	}
)

var (
	membersPage = pageQuery{
		op: "MembersPage", sort: "m.registered", id: "m.id", sortKind: cursor.KindText,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("members m")
			sb = include(sb, "m.id", req.Filters)
			sb = exclude(sb, "m.id", req.Filters[FilterExclude])
			if types, ok := req.Filters[FilterMemberType].([]string); ok && len(types) > 0 {
				sb = sb.Where(sq.Expr("m.id IN (SELECT member_id FROM member_types WHERE member_type IN ("+sq.Placeholders(len(types))+"))", anySlice(types)...))
			}
			return search(sb, req.Filters, "m.name", "m.slug", "m.mention_name")
		},
	}
	groupsPage = pageQuery{
		op: "GroupsPage", sort: "g.name", id: "g.id", sortKind: cursor.KindText,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("groups g")
			sb = include(sb, "g.id", req.Filters)
			sb = exclude(sb, "g.id", req.Filters[FilterExclude])
			sb = status(sb, "g.status", req.Filters)
			if parent, ok := req.Filters[FilterParent].(int64); ok {
				sb = sb.Where(sq.Eq{"g.parent_id": parent})
			}
			return search(sb, req.Filters, "g.name", "g.description")
		},
	}
	memberGroupsPage = pageQuery{
		op: "MemberGroupsPage", sort: "g.name", id: "g.id", sortKind: cursor.KindText,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("groups g").
				Join("group_members gm ON gm.group_id = g.id").
				Where(sq.Eq{"gm.member_id": req.SourceID, "gm.is_confirmed": true})
			sb = status(sb, "g.status", req.Filters)
			if admin, ok := req.Filters[FilterIsAdmin].(bool); ok {
				sb = sb.Where(sq.Eq{"gm.is_admin": admin})
			}
			if mod, ok := req.Filters[FilterIsMod].(bool); ok {
				sb = sb.Where(sq.Eq{"gm.is_mod": mod})
			}
			return sb
		},
	}
	groupMembersPage = pageQuery{
		op: "GroupMembersPage", sort: "gm.date_modified", id: "gm.member_id", sortKind: cursor.KindText,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("group_members gm").
				Where(sq.Eq{"gm.group_id": req.SourceID, "gm.is_confirmed": true})
			sb = exclude(sb, "gm.member_id", req.Filters[FilterExclude])
			if roles, ok := req.Filters[FilterRoles].([]string); ok && len(roles) > 0 {
				or := sq.Or{}
				for _, role := range roles {
					switch role {
					case RoleAdmin:
						or = append(or, sq.Eq{"gm.is_admin": true})
					case RoleMod:
						or = append(or, sq.Eq{"gm.is_mod": true})
					case RoleMember:
						or = append(or, sq.Eq{"gm.is_admin": false, "gm.is_mod": false})
					}
				}
				if len(or) == 0 {
					// only unknown roles
					return sb.Where("1 = 0")
				}
				sb = sb.Where(or)
			}
			return sb
		},
	}
	friendshipsPage = pageQuery{
		op: "FriendshipsPage", sort: "f.id", id: "f.id", sortKind: cursor.KindInt,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("friendships f").
				Where(sq.Or{sq.Eq{"f.initiator_id": req.SourceID}, sq.Eq{"f.friend_id": req.SourceID}})
			if confirmed, ok := req.Filters[FilterIsConfirmed].(bool); ok {
				sb = sb.Where(sq.Eq{"f.is_confirmed": confirmed})
			}
			return sb
		},
	}
	profileGroupsPage = pageQuery{
		op: "ProfileGroupsPage", sort: "pg.group_order", id: "pg.id", sortKind: cursor.KindInt,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			return exclude(sb.From("profile_groups pg"), "pg.id", req.Filters[FilterExclude])
		},
	}
	profileFieldsPage = pageQuery{
		op: "ProfileFieldsPage", sort: "pf.field_order", id: "pf.id", sortKind: cursor.KindInt,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("profile_fields pf").
				Where(sq.Eq{"pf.group_id": req.SourceID, "pf.parent_id": 0})
			sb = exclude(sb, "pf.id", req.Filters[FilterExcludeFields])
			hide, _ := req.Filters[FilterHideEmptyFields].(bool)
			member, _ := req.Filters[FilterMember].(int64)
			if hide && member > 0 {
				sb = sb.Where(sq.Expr("EXISTS (SELECT 1 FROM profile_data d WHERE d.field_id = pf.id AND d.member_id = ? AND d.value <> '')", member))
			}
			return sb
		},
	}
	fieldOptionsPage = pageQuery{
		op: "FieldOptionsPage", sort: "pf.option_order", id: "pf.id", sortKind: cursor.KindInt,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			return sb.From("profile_fields pf").Where(sq.Eq{"pf.parent_id": req.SourceID})
		},
	}
	blogsPage = pageQuery{
		op: "BlogsPage", sort: "b.name", id: "b.id", sortKind: cursor.KindText,
		from: func(sb sq.SelectBuilder, req connection.PageRequest) sq.SelectBuilder {
			sb = sb.From("blogs b")
			sb = include(sb, "b.id", req.Filters)
			sb = exclude(sb, "b.id", req.Filters[FilterExclude])
			if admin, ok := req.Filters[FilterAdmin].(int64); ok {
				sb = sb.Where(sq.Eq{"b.admin_id": admin})
			}
			return search(sb, req.Filters, "b.name", "b.description", "b.domain")
		},
	}
)

// include restricts to the listed ids. An empty list does not restrict.
func include(sb sq.SelectBuilder, column string, filters map[string]any) sq.SelectBuilder {
	if ids, ok := filters[FilterInclude].([]int64); ok && len(ids) > 0 {
		return sb.Where(sq.Eq{column: ids})
	}
	return sb
}

func exclude(sb sq.SelectBuilder, column string, raw any) sq.SelectBuilder {
	if ids, ok := raw.([]int64); ok && len(ids) > 0 {
		return sb.Where(sq.NotEq{column: ids})
	}
	return sb
}

func status(sb sq.SelectBuilder, column string, filters map[string]any) sq.SelectBuilder {
	if statuses, ok := filters[FilterStatus].([]string); ok && len(statuses) > 0 {
		return sb.Where(sq.Eq{column: statuses})
	}
	return sb
}

// search matches the term as a substring of any of columns.
func search(sb sq.SelectBuilder, filters map[string]any, columns ...string) sq.SelectBuilder {
	term, _ := filters[FilterSearch].(string)
	term = strings.TrimSpace(term)
	if term == "" {
		return sb
	}
	pattern := "%" + escapeLike(term) + "%"
	or := sq.Or{}
	for _, c := range columns {
		or = append(or, sq.Expr(c+` LIKE ? ESCAPE '\'`, pattern))
	}
	return sb.Where(or)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func (s *Datastore) MembersPage() connection.FetchPageFunc       { return s.pager(membersPage) }
func (s *Datastore) GroupsPage() connection.FetchPageFunc        { return s.pager(groupsPage) }
func (s *Datastore) MemberGroupsPage() connection.FetchPageFunc  { return s.pager(memberGroupsPage) }
func (s *Datastore) GroupMembersPage() connection.FetchPageFunc  { return s.pager(groupMembersPage) }
func (s *Datastore) FriendshipsPage() connection.FetchPageFunc   { return s.pager(friendshipsPage) }
func (s *Datastore) ProfileGroupsPage() connection.FetchPageFunc { return s.pager(profileGroupsPage) }
func (s *Datastore) ProfileFieldsPage() connection.FetchPageFunc { return s.pager(profileFieldsPage) }
func (s *Datastore) FieldOptionsPage() connection.FetchPageFunc  { return s.pager(fieldOptionsPage) }
func (s *Datastore) BlogsPage() connection.FetchPageFunc         { return s.pager(blogsPage) }
