package repository

import (
	"context"
	"time"

	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/followup/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type routineDefinitionModel struct {
	ID         string    `gorm:"primaryKey;column:id"`
	TenantID   string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_tenant_sequence"`
	Sequence   int       `gorm:"column:sequence;not null;uniqueIndex:idx_tenant_sequence"`
	Text       string    `gorm:"column:text"`
	MediaURL   string    `gorm:"column:media_url"`
	HoursDelay int       `gorm:"column:hours_delay;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (routineDefinitionModel) TableName() string { return "routine_definitions" }

type routineStateModel struct {
	ID                  string     `gorm:"primaryKey;column:id"`
	ConversationID      string     `gorm:"column:conversation_id;not null;uniqueIndex"`
	TenantID            string     `gorm:"column:tenant_id;not null;index"`
	ScheduledSendAt     *time.Time `gorm:"column:scheduled_send_at"`
	PreviousColumn      string     `gorm:"column:previous_column"`
	LastRoutineSent     int        `gorm:"column:last_routine_sent;default:0"`
	LastAutomatedSentAt *time.Time `gorm:"column:last_automated_sent_at"`
	LastUserMessageAt   *time.Time `gorm:"column:last_user_message_at"`
	InFollowUp          bool       `gorm:"column:in_follow_up;default:false;index"`
	Completed           bool       `gorm:"column:completed;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;not null"`
}

func (routineStateModel) TableName() string { return "conversation_routine_states" }

// --- Mappers ---

func toDefinitionModel(d domain.RoutineDefinition) routineDefinitionModel {
	return routineDefinitionModel{
		ID:         d.ID,
		TenantID:   d.TenantID,
		Sequence:   d.Sequence,
		Text:       d.Text,
		MediaURL:   d.MediaURL,
		HoursDelay: d.HoursDelay,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func fromDefinitionModel(m routineDefinitionModel) domain.RoutineDefinition {
	return domain.RoutineDefinition{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Sequence:   m.Sequence,
		Text:       m.Text,
		MediaURL:   m.MediaURL,
		HoursDelay: m.HoursDelay,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toStateModel(s domain.RoutineState) routineStateModel {
	return routineStateModel{
		ID:                  s.ID,
		ConversationID:      s.ConversationID,
		TenantID:            s.TenantID,
		ScheduledSendAt:     s.ScheduledSendAt,
		PreviousColumn:      string(s.PreviousColumn),
		LastRoutineSent:     s.LastRoutineSent,
		LastAutomatedSentAt: s.LastAutomatedSentAt,
		LastUserMessageAt:   s.LastUserMessageAt,
		InFollowUp:          s.InFollowUp,
		Completed:           s.Completed,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromStateModel(m routineStateModel) domain.RoutineState {
	return domain.RoutineState{
		ID:                  m.ID,
		ConversationID:      m.ConversationID,
		TenantID:            m.TenantID,
		ScheduledSendAt:     m.ScheduledSendAt,
		PreviousColumn:      crm.BoardColumn(m.PreviousColumn),
		LastRoutineSent:     m.LastRoutineSent,
		LastAutomatedSentAt: m.LastAutomatedSentAt,
		LastUserMessageAt:   m.LastUserMessageAt,
		InFollowUp:          m.InFollowUp,
		Completed:           m.Completed,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// --- Repository Implementation ---

type RoutineGormRepository struct {
	db *gorm.DB
}

func NewRoutineGormRepository(db *gorm.DB) *RoutineGormRepository {
	return &RoutineGormRepository{db: db}
}

func (r *RoutineGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&routineDefinitionModel{},
		&routineStateModel{},
	)
}

// Definitions

func (r *RoutineGormRepository) FindAll(ctx context.Context, tenantID string) ([]domain.RoutineDefinition, error) {
	var models []routineDefinitionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("sequence ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.RoutineDefinition, len(models))
	for i, m := range models {
		res[i] = fromDefinitionModel(m)
	}
	return res, nil
}

func (r *RoutineGormRepository) Upsert(ctx context.Context, def *domain.RoutineDefinition) error {
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}
	def.UpdatedAt = time.Now().UTC()
	model := toDefinitionModel(*def)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "sequence"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "media_url", "hours_delay", "updated_at"}),
	}).Create(&model).Error
}

func (r *RoutineGormRepository) Delete(ctx context.Context, tenantID string, sequence int) error {
	return r.db.WithContext(ctx).
		Delete(&routineDefinitionModel{}, "tenant_id = ? AND sequence = ?", tenantID, sequence).Error
}

// --- States ---

type RoutineStateGormRepository struct {
	db *gorm.DB
}

func NewRoutineStateGormRepository(db *gorm.DB) *RoutineStateGormRepository {
	return &RoutineStateGormRepository{db: db}
}

func (r *RoutineStateGormRepository) FindByConversation(ctx context.Context, conversationID string) (domain.RoutineState, error) {
	var m routineStateModel
	err := r.db.WithContext(ctx).First(&m, "conversation_id = ?", conversationID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RoutineState{}, domain.ErrStateNotFound
		}
		return domain.RoutineState{}, err
	}
	return fromStateModel(m), nil
}

func (r *RoutineStateGormRepository) Save(ctx context.Context, state *domain.RoutineState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	state.UpdatedAt = time.Now().UTC()
	model := toStateModel(*state)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *RoutineStateGormRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).
		Delete(&routineStateModel{}, "conversation_id = ?", conversationID).Error
}
