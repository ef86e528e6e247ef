package group

import (
	"time"

	"splitledger/internal/domain/user"
)

type Group struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedBy string    `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Member struct {
	GroupID  string    `gorm:"type:uuid;primaryKey"`
	UserID   string    `gorm:"type:uuid;primaryKey;index"`
	JoinedAt time.Time `gorm:"autoCreateTime"`

	Group Group `gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Member) TableName() string {
	return "group_members"
}

// Details is a group together with the profiles of its members.
type Details struct {
	Group
	Members []user.Profile
}

type CreateGroupInput struct {
	Name      string
	MemberIDs []string
}
