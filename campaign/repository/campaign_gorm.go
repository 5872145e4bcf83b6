package repository

import (
	"context"
	"strings"
	"time"

	"github.com/zapleads/zapleads/campaign/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type campaignModel struct {
	ID               string     `gorm:"primaryKey;column:id"`
	TenantID         string     `gorm:"column:tenant_id;not null;index"`
	Name             string     `gorm:"column:name;not null"`
	MessageTemplate  string     `gorm:"column:message_template"`
	ChatsPerDispatch int        `gorm:"column:chats_per_dispatch;default:1"`
	IntervalMinutes  int        `gorm:"column:interval_minutes;default:1"`
	Status           string     `gorm:"column:status;default:'CREATED';index"`
	TotalTargets     int        `gorm:"column:total_targets;default:0"`
	NextDispatchAt   *time.Time `gorm:"column:next_dispatch_at;index"`
	SelectorTagIDs   string     `gorm:"column:selector_tag_ids"` // comma separated
	SelectorTrusted  bool       `gorm:"column:selector_all_trusted;default:false"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;not null"`
}

func (campaignModel) TableName() string { return "campaigns" }

// campaignTargetModel is the dispatched set. The count is never stored;
// it is derived from these rows on load.
type campaignTargetModel struct {
	CampaignID     string `gorm:"primaryKey;column:campaign_id"`
	ConversationID string `gorm:"primaryKey;column:conversation_id"`
}

func (campaignTargetModel) TableName() string { return "campaign_dispatched_targets" }

// --- Mappers ---

func toCampaignModel(c domain.Campaign) campaignModel {
	return campaignModel{
		ID:               c.ID,
		TenantID:         c.TenantID,
		Name:             c.Name,
		MessageTemplate:  c.MessageTemplate,
		ChatsPerDispatch: c.ChatsPerDispatch,
		IntervalMinutes:  c.IntervalMinutes,
		Status:           string(c.Status),
		TotalTargets:     c.TotalTargets,
		NextDispatchAt:   c.NextDispatchAt,
		SelectorTagIDs:   strings.Join(c.Selector.TagIDs, ","),
		SelectorTrusted:  c.Selector.AllTrusted,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func fromCampaignModel(m campaignModel, dispatched []string) domain.Campaign {
	var tagIDs []string
	if m.SelectorTagIDs != "" {
		tagIDs = strings.Split(m.SelectorTagIDs, ",")
	}
	c := domain.Campaign{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Name:             m.Name,
		MessageTemplate:  m.MessageTemplate,
		ChatsPerDispatch: m.ChatsPerDispatch,
		IntervalMinutes:  m.IntervalMinutes,
		Status:           domain.Status(m.Status),
		TotalTargets:     m.TotalTargets,
		NextDispatchAt:   m.NextDispatchAt,
		Selector:         domain.TargetSelector{TagIDs: tagIDs, AllTrusted: m.SelectorTrusted},
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	c.SetDispatchedIDs(dispatched)
	return c
}

// --- Repository Implementation ---

type CampaignGormRepository struct {
	db *gorm.DB
}

func NewCampaignGormRepository(db *gorm.DB) *CampaignGormRepository {
	return &CampaignGormRepository{db: db}
}

func (r *CampaignGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&campaignModel{},
		&campaignTargetModel{},
	)
}

// Save writes the campaign row and appends any newly dispatched targets
// in one transaction. Target rows are append-only; the unique composite
// key makes re-marking a target idempotent.
func (r *CampaignGormRepository) Save(ctx context.Context, c *domain.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toCampaignModel(*c)
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		for _, id := range c.DispatchedIDs() {
			link := campaignTargetModel{CampaignID: c.ID, ConversationID: id}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CampaignGormRepository) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	var m campaignModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Campaign{}, domain.ErrCampaignNotFound
		}
		return domain.Campaign{}, err
	}
	dispatched, err := r.dispatchedFor(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	return fromCampaignModel(m, dispatched), nil
}

func (r *CampaignGormRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Campaign, error) {
	var models []campaignModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, models)
}

func (r *CampaignGormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&campaignTargetModel{}, "campaign_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&campaignModel{}, "id = ?", id).Error
	})
}

func (r *CampaignGormRepository) FindDueForDispatch(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	var models []campaignModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_dispatch_at IS NOT NULL AND next_dispatch_at <= ?", string(domain.StatusRunning), now).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, models)
}

func (r *CampaignGormRepository) dispatchedFor(ctx context.Context, campaignID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&campaignTargetModel{}).
		Where("campaign_id = ?", campaignID).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *CampaignGormRepository) hydrate(ctx context.Context, models []campaignModel) ([]domain.Campaign, error) {
	res := make([]domain.Campaign, 0, len(models))
	for _, m := range models {
		dispatched, err := r.dispatchedFor(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, fromCampaignModel(m, dispatched))
	}
	return res, nil
}
