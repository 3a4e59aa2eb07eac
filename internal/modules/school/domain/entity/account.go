package entity

import "time"

// 账号角色
const (
	AccountRoleParent  = "parent"
	AccountRoleStudent = "student"
	AccountRoleTeacher = "teacher"
	AccountRoleAdmin   = "admin"
)

const (
	AccountStatusNormal   int8 = 0
	AccountStatusDisabled int8 = 1
)

// Account 登录账号。LinkedParentOf / LinkedStudentId 是挂在账号上的学生关联
type Account struct {
	Id              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid            string    `gorm:"column:uuid;type:char(36);uniqueIndex;not null"`
	TenantId        string    `gorm:"column:tenant_id;type:char(36);index;not null"`
	Role            string    `gorm:"column:role;type:varchar(20);index;not null"`
	FullName        string    `gorm:"column:full_name;type:varchar(100)"`
	Phone           string    `gorm:"column:phone;type:varchar(32)"`
	LinkedParentOf  string    `gorm:"column:linked_parent_of;type:char(36);index"`
	LinkedStudentId string    `gorm:"column:linked_student_id;type:char(36);index"`
	Status          int8      `gorm:"column:status;type:tinyint;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Account) TableName() string {
	return "school_accounts"
}

func (a *Account) IsStaff() bool {
	return a.Role == AccountRoleTeacher || a.Role == AccountRoleAdmin
}
