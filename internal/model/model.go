package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SettingTypeBoolean = "boolean"
	SettingTypeNumber  = "number"
	SettingTypeJSON    = "json"
	SettingTypeString  = "string"

	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

type Attendee struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string     `gorm:"not null;index" json:"name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	QRData      string     `gorm:"column:qr_data;type:text;not null;uniqueIndex" json:"qrData"`
	QRCode      string     `gorm:"column:qr_code;type:text" json:"qrCode"`
	CheckedIn   bool       `gorm:"not null;default:false;index" json:"checkedIn"`
	CheckedInAt *time.Time `json:"checkedInAt"`

	NameCol  *string `json:"nameCol"`
	EmailCol *string `json:"emailCol"`
	PhoneCol *string `json:"phoneCol"`

	AttendeeID             *string   `json:"attendeeId"`
	FullName               *string   `json:"fullName"`
	Column2                *string   `gorm:"column:column2" json:"column2"`
	Organization           *string   `json:"organization"`
	PreferredTitle         *string   `json:"preferredTitle"`
	PositionInOrganization *string   `json:"positionInOrganization"`
	RegionOfWork           *string   `json:"regionOfWork"`
	PhoneKorean            *string   `json:"phoneKorean"`
	KoreanText             *string   `json:"koreanText"`
	PositionKorean         *string   `json:"positionKorean"`
	EnglishText            *string   `json:"englishText"`
	PositionEnglish        *string   `json:"positionEnglish"`
	ExtraData              ExtraData `gorm:"type:text" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Attendee) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ExtraData holds spreadsheet columns that have no dedicated attendee field.
// It is persisted as a single JSON text value, NULL when empty.
type ExtraData map[string]string

func (e ExtraData) Value() (driver.Value, error) {
	if len(e) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]string(e))
	if err != nil {
		return nil, fmt.Errorf("marshal extra data: %w", err)
	}
	return string(b), nil
}

func (e ExtraData) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(e))
}

func (e *ExtraData) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported extra data type %T", src)
	}
	if len(raw) == 0 {
		*e = nil
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("unmarshal extra data: %w", err)
	}
	*e = m
	return nil
}

type Admin struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username       string    `gorm:"not null;uniqueIndex" json:"username"`
	Password       string    `gorm:"not null" json:"-"`
	Email          *string   `json:"email"`
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	ProfilePicture *string   `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (a *Admin) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Notification struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Type       string    `gorm:"not null;default:info" json:"type"`
	Read       bool      `gorm:"not null;default:false;index" json:"read"`
	AttendeeID *string   `gorm:"index" json:"attendeeId"`
	AdminID    *string   `gorm:"index" json:"adminId"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	return nil
}

type Setting struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Key       string    `gorm:"not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Type      string    `gorm:"not null;default:string" json:"type"`
	Category  string    `gorm:"not null;default:general;index" json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Setting) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// All lists the models managed by schema migration.
func All() []any {
	return []any{&Attendee{}, &Admin{}, &Notification{}, &Setting{}}
}
