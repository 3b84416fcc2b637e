package entity

// Timestamps are carried as text in the datastore layout
// ("2006-01-02 15:04:05", UTC).

type MemberRecord struct {
	ID          int64
	Name        string
	Slug        string
	MentionName string
	Link        string
	Registered  string
	MemberTypes []string
	AvatarID    int64
	CoverID     int64
}

func (*MemberRecord) Kind() Kind        { return Member }
func (m *MemberRecord) EntityID() int64 { return m.ID }

type GroupRecord struct {
	ID          int64
	CreatorID   int64
	ParentID    int64
	Name        string
	Slug        string
	Description string
	// Status is one of public, private, hidden.
	Status      string
	DateCreated string
	AvatarID    int64
	CoverID     int64
}

func (*GroupRecord) Kind() Kind        { return Group }
func (g *GroupRecord) EntityID() int64 { return g.ID }

type FriendshipRecord struct {
	ID          int64
	InitiatorID int64
	FriendID    int64
	IsConfirmed bool
	DateCreated string
}

func (*FriendshipRecord) Kind() Kind        { return Friendship }
func (f *FriendshipRecord) EntityID() int64 { return f.ID }

// Involves reports whether member is one side of the friendship.
func (f *FriendshipRecord) Involves(member int64) bool {
	return member != 0 && (f.InitiatorID == member || f.FriendID == member)
}

type ProfileGroupRecord struct {
	ID          int64
	Name        string
	Description string
	GroupOrder  int64
	CanDelete   bool
}

func (*ProfileGroupRecord) Kind() Kind        { return ProfileGroup }
func (g *ProfileGroupRecord) EntityID() int64 { return g.ID }

// ProfileFieldRecord is either a field (ParentID == 0) or one of the options
// of a selectable field.
type ProfileFieldRecord struct {
	ID              int64
	GroupID         int64
	ParentID        int64
	Type            string
	Name            string
	Description     string
	IsRequired      bool
	IsDefaultOption bool
	FieldOrder      int64
	OptionOrder     int64
	CanDelete       bool
}

func (*ProfileFieldRecord) Kind() Kind        { return ProfileField }
func (f *ProfileFieldRecord) EntityID() int64 { return f.ID }

type BlogRecord struct {
	ID           int64
	AdminID      int64
	Name         string
	Description  string
	Domain       string
	Path         string
	LastActivity string
	AvatarID     int64
}

func (*BlogRecord) Kind() Kind        { return Blog }
func (b *BlogRecord) EntityID() int64 { return b.ID }

// AttachmentRecord holds the urls of an uploaded avatar or cover image.
// Covers have no thumbnail.
type AttachmentRecord struct {
	ID     int64
	Object string
	ItemID int64
	Full   string
	Thumb  string
}

func (*AttachmentRecord) Kind() Kind        { return Attachment }
func (a *AttachmentRecord) EntityID() int64 { return a.ID }
