// Package entity defines the community data model served by the graph: the
// closed set of entity kinds, their read-only records, and the relations that
// connect them.
package entity

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an entity type.
type Kind uint8

const (
	// Root is the pseudo-kind that owns top-level connections.
	Root Kind = iota
	Member
	Group
	Friendship
	ProfileGroup
	ProfileField
	Blog
	Attachment
)

var kindNames = [...]string{
	Root:         "root",
	Member:       "member",
	Group:        "group",
	Friendship:   "friendship",
	ProfileGroup: "profile_group",
	ProfileField: "profile_field",
	Blog:         "blog",
	Attachment:   "attachment",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds returns every loadable kind, Root excluded.
func Kinds() []Kind {
	return []Kind{Member, Group, Friendship, ProfileGroup, ProfileField, Blog, Attachment}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && Kind(k) != Root {
			return Kind(k), true
		}
	}
	return Root, false
}

// Entity is a record loaded from the datastore.
type Entity interface {
	Kind() Kind
	EntityID() int64
}

// Relation names a connection hanging off a kind.
type Relation struct {
	From Kind
	Name string
}

func (r Relation) String() string { return r.From.String() + "." + r.Name }

var (
	RootMembers       = Relation{From: Root, Name: "members"}
	RootGroups        = Relation{From: Root, Name: "groups"}
	RootProfileGroups = Relation{From: Root, Name: "profileGroups"}
	RootBlogs         = Relation{From: Root, Name: "blogs"}

	MemberGroups        = Relation{From: Member, Name: "groups"}
	MemberFriendships   = Relation{From: Member, Name: "friendships"}
	GroupMembers        = Relation{From: Group, Name: "members"}
	ProfileGroupFields  = Relation{From: ProfileGroup, Name: "fields"}
	ProfileFieldOptions = Relation{From: ProfileField, Name: "options"}
)

// GlobalID returns the opaque node id for an entity.
func GlobalID(k Kind, id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(k.String() + ":" + strconv.FormatInt(id, 10)))
}

// ParseGlobalID reverses GlobalID.
func ParseGlobalID(s string) (Kind, int64, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Root, 0, fmt.Errorf("global id %q is not base64", s)
	}
	name, num, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Root, 0, fmt.Errorf("global id %q is malformed", s)
	}
	k, ok := ParseKind(name)
	if !ok {
		return Root, 0, fmt.Errorf("global id %q has unknown kind %q", s, name)
	}
	id, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return Root, 0, fmt.Errorf("global id %q has a non-numeric id", s)
	}
	return k, id, nil
}
