/**
 * 模型:空间/团队模型
 * @author: sun977
 * @date: 2026.03.12
 * @description: 空间、空间成员、邀请记录与企业成员数据模型
 * @func: Space / SpaceUser / InviteRecord / EnterpriseUser 及状态枚举
 */
package model

import (
	"time"
)

// SpaceType 空间类型枚举
type SpaceType int

const (
	SpaceTypeFree SpaceType = 1 // 免费版空间
	SpaceTypePro  SpaceType = 2 // 专业版空间
	SpaceTypeTeam SpaceType = 3 // 企业团队空间
)

// SpaceRole 空间成员角色枚举
type SpaceRole int

const (
	SpaceRoleOwner  SpaceRole = 1 // 所有者
	SpaceRoleAdmin  SpaceRole = 2 // 管理员
	SpaceRoleMember SpaceRole = 3 // 普通成员
)

// InviteStatus 邀请记录状态枚举
type InviteStatus int

const (
	InviteStatusInit     InviteStatus = 0 // 待处理
	InviteStatusAccept   InviteStatus = 1 // 已接受
	InviteStatusRefuse   InviteStatus = 2 // 已拒绝
	InviteStatusWithdraw InviteStatus = 3 // 已撤回
	InviteStatusExpired  InviteStatus = 4 // 已过期
)

// IsHandled 判断邀请是否已处理(不可再接受/拒绝)
func (s InviteStatus) IsHandled() bool {
	return s != InviteStatusInit
}

// Space 空间实体
type Space struct {
	ID           uint       `json:"id" gorm:"primaryKey;autoIncrement"`                // 空间ID，主键自增
	Name         string     `json:"name" gorm:"not null;size:100"`                     // 空间名称
	Description  string     `json:"description" gorm:"size:500"`                       // 空间描述
	OwnerUID     string     `json:"owner_uid" gorm:"index;not null;size:64"`           // 所有者用户ID
	EnterpriseID uint       `json:"enterprise_id" gorm:"index;comment:所属企业ID,0为个人空间"`  // 所属企业
	Type         SpaceType  `json:"type" gorm:"default:1;comment:空间类型:1-免费,2-专业,3-团队"` // 空间类型
	CreatedAt    time.Time  `json:"created_at"`                                        // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                        // 更新时间
	DeletedAt    *time.Time `json:"-" gorm:"index"`                                    // 软删除时间
}

// TableName 指定空间表名
func (Space) TableName() string {
	return "spaces"
}

// SpaceUser 空间成员关联
type SpaceUser struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`                   // 记录ID
	SpaceID   uint      `json:"space_id" gorm:"uniqueIndex:uk_space_uid;not null"`    // 空间ID
	UID       string    `json:"uid" gorm:"uniqueIndex:uk_space_uid;not null;size:64"` // 成员用户ID
	Nickname  string    `json:"nickname" gorm:"size:50"`                              // 空间内昵称
	Role      SpaceRole `json:"role" gorm:"default:3;comment:角色:1-所有者,2-管理员,3-成员"`    // 成员角色
	CreatedAt time.Time `json:"created_at"`                                           // 加入时间
	UpdatedAt time.Time `json:"updated_at"`                                           // 更新时间
}

// TableName 指定空间成员表名
func (SpaceUser) TableName() string {
	return "space_users"
}

// InviteRecord 邀请记录实体
type InviteRecord struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`                           // 邀请记录ID
	SpaceID    uint         `json:"space_id" gorm:"index;not null"`                               // 目标空间ID
	InviterUID string       `json:"inviter_uid" gorm:"not null;size:64"`                          // 邀请人用户ID
	InviteeUID string       `json:"invitee_uid" gorm:"index;not null;size:64"`                    // 被邀请人用户ID
	Role       SpaceRole    `json:"role" gorm:"default:3;comment:受邀角色"`                           // 接受后的角色
	Status     InviteStatus `json:"status" gorm:"default:0;comment:状态:0-待处理,1-接受,2-拒绝,3-撤回,4-过期"` // 邀请状态
	ExpireAt   time.Time    `json:"expire_at" gorm:"index;comment:过期时间"`                          // 过期时间
	CreatedAt  time.Time    `json:"created_at"`                                                   // 发起时间
	UpdatedAt  time.Time    `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定邀请记录表名
func (InviteRecord) TableName() string {
	return "invite_records"
}

// IsExpired 判断邀请是否已超过有效期
func (r *InviteRecord) IsExpired(now time.Time) bool {
	return !r.ExpireAt.IsZero() && now.After(r.ExpireAt)
}

// EnterpriseUser 企业成员关联
type EnterpriseUser struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`                   // 记录ID
	EnterpriseID uint      `json:"enterprise_id" gorm:"uniqueIndex:uk_ent_uid;not null"` // 企业ID
	UID          string    `json:"uid" gorm:"uniqueIndex:uk_ent_uid;not null;size:64"`   // 成员用户ID
	Role         SpaceRole `json:"role" gorm:"default:3;comment:企业内角色"`                  // 企业内角色
	CreatedAt    time.Time `json:"created_at"`                                           // 加入时间
	UpdatedAt    time.Time `json:"updated_at"`                                           // 更新时间
}

// TableName 指定企业成员表名
func (EnterpriseUser) TableName() string {
	return "enterprise_users"
}

// SpaceMemberLimit 按空间类型返回成员上限
func SpaceMemberLimit(spaceType SpaceType, freeLimit, proLimit, teamLimit int) int {
	switch spaceType {
	case SpaceTypePro:
		return proLimit
	case SpaceTypeTeam:
		return teamLimit
	default:
		return freeLimit
	}
}

// CreateSpaceRequest 创建空间请求
type CreateSpaceRequest struct {
	Name        string    `json:"name" binding:"required,max=100"` // 空间名称
	Description string    `json:"description" binding:"max=500"`   // 空间描述
	Type        SpaceType `json:"type"`                            // 空间类型，默认免费版
}

// AcceptInviteRequest 接受邀请请求
type AcceptInviteRequest struct {
	InviteID uint   `json:"invite_id" binding:"required"` // 邀请记录ID
	Nickname string `json:"nickname"`                     // 空间内昵称(可选)
}

// RefuseInviteRequest 拒绝邀请请求
type RefuseInviteRequest struct {
	InviteID uint `json:"invite_id" binding:"required"` // 邀请记录ID
}

// CreateInviteRequest 发起邀请请求
type CreateInviteRequest struct {
	SpaceID    uint      `json:"space_id" binding:"required"`    // 目标空间ID
	InviteeUID string    `json:"invitee_uid" binding:"required"` // 被邀请人用户ID
	Role       SpaceRole `json:"role"`                           // 受邀角色，默认普通成员
}

// TransferOwnershipRequest 空间所有权转移请求
type TransferOwnershipRequest struct {
	SpaceID   uint   `json:"space_id" binding:"required"`   // 空间ID
	TargetUID string `json:"target_uid" binding:"required"` // 新所有者用户ID
}

// JoinEnterpriseRequest 加入企业请求
type JoinEnterpriseRequest struct {
	EnterpriseID uint `json:"enterprise_id" binding:"required"` // 企业ID
}
