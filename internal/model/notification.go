/**
 * 模型:通知模型
 * @author: sun977
 * @date: 2026.03.12
 * @description: 站内通知数据模型
 * @func: Notification 结构体及相关方法
 */
package model

import (
	"time"
)

// NotificationType 通知类型枚举
type NotificationType int

const (
	NotificationTypeSystem NotificationType = 1 // 系统通知
	NotificationTypeInvite NotificationType = 2 // 空间邀请通知
	NotificationTypeAudit  NotificationType = 3 // 审核结果通知
)

// Notification 站内通知实体
type Notification struct {
	ID         uint             `json:"id" gorm:"primaryKey;autoIncrement"`        // 通知ID
	ReceiverID string           `json:"receiver_id" gorm:"index;not null;size:64"` // 接收者用户ID
	Type       NotificationType `json:"type" gorm:"default:1;comment:通知类型"`        // 通知类型
	Title      string           `json:"title" gorm:"not null;size:200"`            // 通知标题
	Body       string           `json:"body" gorm:"type:text"`                     // 通知正文
	IsRead     bool             `json:"is_read" gorm:"default:false;index"`        // 是否已读
	ReadAt     *time.Time       `json:"read_at"`                                   // 阅读时间，可为空
	CreatedAt  time.Time        `json:"created_at"`                                // 创建时间
	DeletedAt  *time.Time       `json:"-" gorm:"index"`                            // 软删除时间
}

// TableName 指定通知表名
func (Notification) TableName() string {
	return "notifications"
}

// MarkReadRequest 标记已读请求 [ids为空表示全部标记]
type MarkReadRequest struct {
	IDs []uint `json:"ids"` // 待标记的通知ID列表
}

// DeleteNotificationRequest 删除通知请求
type DeleteNotificationRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"` // 待删除的通知ID列表
}
