package repository

import (
	"context"
	"time"

	"github.com/zapleads/zapleads/gateway"
	"github.com/zapleads/zapleads/pkg/crypto"
	"gorm.io/gorm"
)

type sessionModel struct {
	TenantID   string    `gorm:"primaryKey;column:tenant_id"`
	InstanceID string    `gorm:"column:instance_id;not null"`
	Token      string    `gorm:"column:token;not null"`
	Status     string    `gorm:"column:status;default:'disconnected';index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (sessionModel) TableName() string { return "tenant_sessions" }

const sessionStatusConnected = "connected"

// SessionGormRepository resolves provider sessions from the relational
// store. The provider sync webhook (outside this service) keeps the
// status column current.
type SessionGormRepository struct {
	db *gorm.DB
}

func NewSessionGormRepository(db *gorm.DB) *SessionGormRepository {
	return &SessionGormRepository{db: db}
}

func (r *SessionGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&sessionModel{})
}

func (r *SessionGormRepository) ActiveSession(ctx context.Context, tenantID string) (gateway.Session, error) {
	var m sessionModel
	err := r.db.WithContext(ctx).
		First(&m, "tenant_id = ? AND status = ?", tenantID, sessionStatusConnected).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return gateway.Session{}, gateway.ErrNoActiveSession
		}
		return gateway.Session{}, err
	}
	token, err := crypto.Decrypt(m.Token)
	if err != nil {
		return gateway.Session{}, err
	}
	return gateway.Session{TenantID: m.TenantID, InstanceID: m.InstanceID, Token: token}, nil
}

// Upsert registers or refreshes a tenant session row.
func (r *SessionGormRepository) Upsert(ctx context.Context, s gateway.Session, connected bool) error {
	status := "disconnected"
	if connected {
		status = sessionStatusConnected
	}
	// Provider tokens are sealed at rest.
	token, err := crypto.Encrypt(s.Token)
	if err != nil {
		return err
	}
	m := sessionModel{
		TenantID:   s.TenantID,
		InstanceID: s.InstanceID,
		Token:      token,
		Status:     status,
		UpdatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&m).Error
}
