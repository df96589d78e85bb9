package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleBusiness UserRole = "business"
	RoleAdmin    UserRole = "admin"
)

type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// User mirrors the account record owned by the identity service.
// Only the columns the messaging and moderation core reads or writes are kept.
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Email         string     `gorm:"uniqueIndex;size:190;not null" json:"email"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	Role          UserRole   `gorm:"size:16;not null" json:"role"`
	Status        UserStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	AgreedToTerms bool       `gorm:"not null;default:false" json:"agreedToTerms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Student  *StudentProfile  `gorm:"foreignKey:UserID" json:"student,omitempty"`
	Business *BusinessProfile `gorm:"foreignKey:UserID" json:"business,omitempty"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// StudentProfile is the read-only summary of a student profile.
type StudentProfile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	FirstName string    `gorm:"size:100" json:"firstName"`
	LastName  string    `gorm:"size:100" json:"lastName"`
	Major     string    `gorm:"size:120" json:"major,omitempty"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (p *StudentProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BusinessProfile is the read-only summary of a business profile.
type BusinessProfile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	BusinessName string    `gorm:"size:160" json:"businessName"`
	Industry     string    `gorm:"size:120" json:"industry,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (p *BusinessProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Conversation is a thread identified by its exact participant set.
//
// ParticipantKey is the canonical fingerprint of the participant set
// (see conversation.Fingerprint). The unique index on it is what keeps
// concurrent find-or-create calls from producing two rows for one set.
type Conversation struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantKey   string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ParticipantCount int       `gorm:"not null" json:"participantCount"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"precision:6;index" json:"updatedAt"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	LastMessage  *Message                  `gorm:"-" json:"lastMessage,omitempty"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ParticipantIDs returns the user ids attached to the conversation.
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is the membership join row.
// Composite PK: (ConversationID, UserID).
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"-"`
	UserID         string    `gorm:"primaryKey;size:36;index" json:"userId"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Message is immutable once written.
//
// ID is a monotonic ULID so (CreatedAt, ID) is a strict total order even
// when two messages share a millisecond. ReceiverID is only set for
// two-party threads and the legacy direct path.
type Message struct {
	ID             string    `gorm:"primaryKey;size:26" json:"id"`
	ConversationID *string   `gorm:"size:36;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	SenderID       string    `gorm:"size:36;not null;index:idx_messages_pair,priority:1" json:"senderId"`
	ReceiverID     *string   `gorm:"size:36;index:idx_messages_pair,priority:2" json:"receiverId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"precision:6;not null;index:idx_messages_conversation_created,priority:2" json:"createdAt"`
}

// BlockedUser is a directed block: Blocker hides from Blocked.
type BlockedUser struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	BlockerID         string    `gorm:"size:36;not null;uniqueIndex:idx_blocker_blocked,priority:1" json:"blockerId"`
	BlockedUserID     string    `gorm:"size:36;not null;uniqueIndex:idx_blocker_blocked,priority:2;index" json:"blockedUserId"`
	DeveloperNotified bool      `gorm:"not null;default:false" json:"developerNotified"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`

	BlockedUser *User `gorm:"foreignKey:BlockedUserID" json:"blockedUser,omitempty"`
}

func (b *BlockedUser) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type ReportType string

const (
	ReportMessage     ReportType = "MESSAGE"
	ReportProfile     ReportType = "PROFILE"
	ReportProject     ReportType = "PROJECT"
	ReportAchievement ReportType = "ACHIEVEMENT"
	ReportJob         ReportType = "JOB"
	ReportUser        ReportType = "USER"
)

type ReportReason string

const (
	ReasonInappropriateContent  ReportReason = "INAPPROPRIATE_CONTENT"
	ReasonHarassment            ReportReason = "HARASSMENT"
	ReasonSpam                  ReportReason = "SPAM"
	ReasonFakeProfile           ReportReason = "FAKE_PROFILE"
	ReasonInappropriateBehavior ReportReason = "INAPPROPRIATE_BEHAVIOR"
	ReasonOther                 ReportReason = "OTHER"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportDismissed ReportStatus = "DISMISSED"
)

// ContentReport moves PENDING -> RESOLVED | DISMISSED exactly once.
type ContentReport struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	ReporterID     string       `gorm:"size:36;not null;index" json:"reporterId"`
	ReportedUserID *string      `gorm:"size:36;index" json:"reportedUserId"`
	Type           ReportType   `gorm:"size:16;not null" json:"type"`
	ContentID      *string      `gorm:"size:64" json:"contentId"`
	Reason         ReportReason `gorm:"size:32;not null" json:"reason"`
	Description    *string      `gorm:"type:text" json:"description"`
	Status         ReportStatus `gorm:"size:16;not null;default:PENDING;index:idx_reports_status_created,priority:1" json:"status"`
	ReviewedBy     *string      `gorm:"size:36" json:"reviewedBy"`
	ReviewedAt     *time.Time   `json:"reviewedAt"`
	ActionTaken    *string      `gorm:"type:text" json:"actionTaken"`
	CreatedAt      time.Time    `gorm:"precision:6;not null;index:idx_reports_status_created,priority:2" json:"createdAt"`

	Reporter     *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	ReportedUser *User `gorm:"foreignKey:ReportedUserID" json:"reportedUser,omitempty"`
}

// EulaVersion is immutable apart from the Active flag.
type EulaVersion struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Version   int       `gorm:"uniqueIndex;not null" json:"version"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Active    bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (e *EulaVersion) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// UserEulaAcceptance is written once per (user, version).
type UserEulaAcceptance struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_user_eula,priority:1" json:"userId"`
	EulaVersionID string    `gorm:"size:36;not null;uniqueIndex:idx_user_eula,priority:2" json:"eulaVersionId"`
	IPAddress     *string   `gorm:"size:64" json:"ipAddress"`
	AcceptedAt    time.Time `gorm:"autoCreateTime" json:"acceptedAt"`
}

func (a *UserEulaAcceptance) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Talent is the read model behind the public talent feed.
type Talent struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerUserID string    `gorm:"size:36;not null;index" json:"ownerUserId"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Category    string    `gorm:"size:80" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (t *Talent) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type ReactionKind string

const (
	ReactionLike ReactionKind = "like"
	ReactionSave ReactionKind = "save"
)

// TalentReaction replaces the liked/saved id arrays on the student row.
//
// Composite PK: (UserID, TalentID, Kind)
//   - toggles become insert-or-ignore / delete-by-key, no read-modify-write.
//
// Indexes:
//   - idx_talent_kind(talent_id, kind) for like counts.
//   - idx_user_kind_created(user_id, kind, created_at DESC) for "my likes" paging.
type TalentReaction struct {
	UserID    string       `gorm:"primaryKey;size:36;index:idx_user_kind_created,priority:1"`
	TalentID  string       `gorm:"primaryKey;size:36;index:idx_talent_kind,priority:1"`
	Kind      ReactionKind `gorm:"primaryKey;size:8;index:idx_talent_kind,priority:2;index:idx_user_kind_created,priority:2"`
	CreatedAt time.Time    `gorm:"precision:6;autoCreateTime;index:idx_user_kind_created,priority:3,sort:desc"`
}

// All lists every model managed by Migrate.
func All() []any {
	return []any{
		&User{}, &StudentProfile{}, &BusinessProfile{},
		&Conversation{}, &ConversationParticipant{}, &Message{},
		&BlockedUser{}, &ContentReport{},
		&EulaVersion{}, &UserEulaAcceptance{},
		&Talent{}, &TalentReaction{},
	}
}
