package entity

import "time"

const (
	TenantStatusActive   int8 = 0
	TenantStatusDisabled int8 = 1
)

// Tenant 学校（租户）
type Tenant struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  string    `gorm:"column:tenant_id;type:char(36);uniqueIndex;not null"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	Status    int8      `gorm:"column:status;type:tinyint;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantContext 当前调用者所在学校，由服务端查询得到，不信任客户端传入
type TenantContext struct {
	TenantId    string `json:"tenant_id"`
	TenantName  string `json:"tenant_name"`
	AccountId   string `json:"account_id"`
	AccountRole string `json:"account_role"`
}

// Models 需要自动迁移的学校目录表
func Models() []interface{} {
	return []interface{}{
		&Tenant{},
		&Account{},
		&Student{},
		&StudentParent{},
		&SchoolClass{},
		&Subject{},
		&Exam{},
		&Homework{},
	}
}
