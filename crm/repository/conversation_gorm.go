package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/zapleads/zapleads/crm/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type conversationModel struct {
	ID            string    `gorm:"primaryKey;column:id"`
	TenantID      string    `gorm:"column:tenant_id;not null;index"`
	Phone         string    `gorm:"column:phone;not null"`
	ContactName   string    `gorm:"column:contact_name"`
	BoardColumn   string    `gorm:"column:board_column;not null;index"`
	Trusted       bool      `gorm:"column:trusted;default:false"`
	LastMessageAt time.Time `gorm:"column:last_message_at"`
	Active        bool      `gorm:"column:active;default:true;index"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (conversationModel) TableName() string { return "conversations" }

type conversationTagModel struct {
	ConversationID string `gorm:"primaryKey;column:conversation_id"`
	TagID          string `gorm:"primaryKey;column:tag_id"`
}

func (conversationTagModel) TableName() string { return "conversation_tags" }

type messageModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	ConversationID    string         `gorm:"column:conversation_id;not null;index:idx_msg_conv_created"`
	TenantID          string         `gorm:"column:tenant_id;not null;index"`
	FromCustomer      bool           `gorm:"column:from_customer;not null"`
	Body              string         `gorm:"column:body"`
	ProviderMessageID sql.NullString `gorm:"column:provider_message_id"`
	Status            string         `gorm:"column:status;default:'pending';index"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null;index:idx_msg_conv_created"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;not null"`
}

func (messageModel) TableName() string { return "messages" }

// --- Mappers ---

func toConversationModel(c domain.Conversation) conversationModel {
	return conversationModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Phone:         c.Phone,
		ContactName:   c.ContactName,
		BoardColumn:   string(c.Column),
		Trusted:       c.Trusted,
		LastMessageAt: c.LastMessageAt,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromConversationModel(m conversationModel, tagIDs []string) domain.Conversation {
	return domain.Conversation{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Phone:         m.Phone,
		ContactName:   m.ContactName,
		Column:        domain.BoardColumn(m.BoardColumn),
		Trusted:       m.Trusted,
		TagIDs:        tagIDs,
		LastMessageAt: m.LastMessageAt,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toMessageModel(msg domain.Message) messageModel {
	return messageModel{
		ID:                msg.ID,
		ConversationID:    msg.ConversationID,
		TenantID:          msg.TenantID,
		FromCustomer:      msg.FromCustomer,
		Body:              msg.Body,
		ProviderMessageID: sql.NullString{String: msg.ProviderMessageID, Valid: msg.ProviderMessageID != ""},
		Status:            string(msg.Status),
		CreatedAt:         msg.CreatedAt,
		UpdatedAt:         msg.UpdatedAt,
	}
}

func fromMessageModel(m messageModel) domain.Message {
	return domain.Message{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		TenantID:          m.TenantID,
		FromCustomer:      m.FromCustomer,
		Body:              m.Body,
		ProviderMessageID: m.ProviderMessageID.String,
		Status:            domain.MessageStatus(m.Status),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// --- Repository Implementation ---

type CrmGormRepository struct {
	db *gorm.DB
}

func NewCrmGormRepository(db *gorm.DB) *CrmGormRepository {
	return &CrmGormRepository{db: db}
}

func (r *CrmGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&conversationModel{},
		&conversationTagModel{},
		&messageModel{},
	)
}

// Conversations

func (r *CrmGormRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	conv.UpdatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toConversationModel(*conv)
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&conversationTagModel{}, "conversation_id = ?", conv.ID).Error; err != nil {
			return err
		}
		for _, tagID := range conv.TagIDs {
			link := conversationTagModel{ConversationID: conv.ID, TagID: tagID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CrmGormRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	var m conversationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Conversation{}, domain.ErrConversationNotFound
		}
		return domain.Conversation{}, err
	}
	tags, err := r.tagsFor(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	return fromConversationModel(m, tags), nil
}

func (r *CrmGormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&conversationTagModel{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&conversationModel{}, "id = ?", id).Error
	})
}

func (r *CrmGormRepository) FindByColumn(ctx context.Context, tenantID string, column domain.BoardColumn) ([]domain.Conversation, error) {
	var models []conversationModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND board_column = ? AND active = ?", tenantID, string(column), true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, models)
}

func (r *CrmGormRepository) FindMonitored(ctx context.Context, tenantID string, columns []domain.BoardColumn) ([]domain.Conversation, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = string(c)
	}
	var models []conversationModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND board_column IN ? AND active = ?", tenantID, cols, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, models)
}

func (r *CrmGormRepository) FindTargets(ctx context.Context, tenantID string, tagIDs []string, allTrusted bool) ([]domain.Conversation, error) {
	var models []conversationModel
	q := r.db.WithContext(ctx).Where("tenant_id = ? AND active = ?", tenantID, true)
	if allTrusted {
		q = q.Where("trusted = ?", true)
	} else {
		if len(tagIDs) == 0 {
			return nil, nil
		}
		q = q.Where("id IN (?)", r.db.Model(&conversationTagModel{}).
			Select("conversation_id").Where("tag_id IN ?", tagIDs))
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.hydrate(ctx, models)
}

func (r *CrmGormRepository) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("active = ?", true).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

func (r *CrmGormRepository) tagsFor(ctx context.Context, conversationID string) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).Model(&conversationTagModel{}).
		Where("conversation_id = ?", conversationID).
		Pluck("tag_id", &tags).Error
	return tags, err
}

func (r *CrmGormRepository) hydrate(ctx context.Context, models []conversationModel) ([]domain.Conversation, error) {
	res := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		tags, err := r.tagsFor(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, fromConversationModel(m, tags))
	}
	return res, nil
}

// --- Messages ---

type MessageGormRepository struct {
	db *gorm.DB
}

func NewMessageGormRepository(db *gorm.DB) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

func (r *MessageGormRepository) Save(ctx context.Context, msg *domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.UpdatedAt = time.Now().UTC()
	model := toMessageModel(*msg)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *MessageGormRepository) LastMessage(ctx context.Context, conversationID string) (domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Message{}, domain.ErrMessageNotFound
		}
		return domain.Message{}, err
	}
	return fromMessageModel(m), nil
}

func (r *MessageGormRepository) LastMessageBy(ctx context.Context, conversationID string, fromCustomer bool) (domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND from_customer = ?", conversationID, fromCustomer).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Message{}, domain.ErrMessageNotFound
		}
		return domain.Message{}, err
	}
	return fromMessageModel(m), nil
}
