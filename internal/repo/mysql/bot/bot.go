/**
 * 助手仓库层:助手数据访问
 * @author: sun977
 * @date: 2026.03.13
 * @description: 助手数据访问层，专注于数据操作，不包含业务逻辑
 * @func: 单纯数据访问
 */
package bot

import (
	"context"
	"time"

	"gorm.io/gorm"

	"astronhub/internal/model"
	"astronhub/internal/pkg/logger"
)

// BotRepository 助手仓库接口定义
type BotRepository interface {
	GetByID(ctx context.Context, botID uint) (*model.Bot, error)
	GetByFlowID(ctx context.Context, flowID string) (*model.Bot, error)
	Create(ctx context.Context, bot *model.Bot) error
	MarkCanPublish(ctx context.Context, flowID string, canPublish bool) error
}

// botRepository 助手仓库实现
type botRepository struct {
	db *gorm.DB // 数据库连接
}

// NewBotRepository 创建助手仓库实例
func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{
		db: db,
	}
}

// GetByID 根据ID获取助手
// 返回nil表示未找到，不是错误
func (r *botRepository) GetByID(ctx context.Context, botID uint) (*model.Bot, error) {
	var bot model.Bot

	result := r.db.WithContext(ctx).Where("id = ?", botID).First(&bot)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", "", "", "repo.bot.GetByID", "", map[string]interface{}{
			"operation": "get_bot_by_id",
			"func_name": "repo.bot.GetByID",
			"bot_id":    botID,
		})
		return nil, result.Error
	}

	return &bot, nil
}

// GetByFlowID 根据绑定的工作流ID获取助手
// 返回nil表示未找到，不是错误
func (r *botRepository) GetByFlowID(ctx context.Context, flowID string) (*model.Bot, error) {
	var bot model.Bot

	result := r.db.WithContext(ctx).Where("flow_id = ?", flowID).First(&bot)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", "", "", "repo.bot.GetByFlowID", "", map[string]interface{}{
			"operation": "get_bot_by_flow_id",
			"func_name": "repo.bot.GetByFlowID",
			"flow_id":   flowID,
		})
		return nil, result.Error
	}

	return &bot, nil
}

// Create 创建助手
func (r *botRepository) Create(ctx context.Context, bot *model.Bot) error {
	result := r.db.WithContext(ctx).Create(bot)
	if result.Error != nil {
		logger.LogError(result.Error, "", bot.UID, "", "repo.bot.Create", "", map[string]interface{}{
			"operation": "create_bot",
			"func_name": "repo.bot.Create",
			"name":      bot.Name,
		})
		return result.Error
	}

	return nil
}

// MarkCanPublish 更新助手的调试通过标记
// 工作流调试跑通后打标记，助手才允许发布
func (r *botRepository) MarkCanPublish(ctx context.Context, flowID string, canPublish bool) error {
	result := r.db.WithContext(ctx).Model(&model.Bot{}).
		Where("flow_id = ?", flowID).
		Updates(map[string]interface{}{
			"can_publish": canPublish,
			"updated_at":  time.Now().Unix(),
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "", "repo.bot.MarkCanPublish", "", map[string]interface{}{
			"operation":   "mark_can_publish",
			"func_name":   "repo.bot.MarkCanPublish",
			"flow_id":     flowID,
			"can_publish": canPublish,
		})
		return result.Error
	}
	return nil
}
