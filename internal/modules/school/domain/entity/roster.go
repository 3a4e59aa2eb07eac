package entity

import "time"

type Student struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	StudentId string    `gorm:"column:student_id;type:char(36);uniqueIndex;not null"`
	TenantId  string    `gorm:"column:tenant_id;type:char(36);index;not null"`
	ClassId   string    `gorm:"column:class_id;type:char(36);index"`
	FullName  string    `gorm:"column:full_name;type:varchar(100);not null"`
	Status    int8      `gorm:"column:status;type:tinyint;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Student) TableName() string {
	return "students"
}

// StudentParent 学生档案上登记的家长账号（直接关联）
type StudentParent struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  string    `gorm:"column:tenant_id;type:char(36);index;not null"`
	StudentId string    `gorm:"column:student_id;type:char(36);index;not null"`
	AccountId string    `gorm:"column:account_id;type:char(36);index;not null"`
	Relation  string    `gorm:"column:relation;type:varchar(20)"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (StudentParent) TableName() string {
	return "student_parents"
}

type SchoolClass struct {
	Id             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ClassId        string    `gorm:"column:class_id;type:char(36);uniqueIndex;not null"`
	TenantId       string    `gorm:"column:tenant_id;type:char(36);index;not null"`
	Name           string    `gorm:"column:name;type:varchar(50);not null"`
	Section        string    `gorm:"column:section;type:varchar(20)"`
	ClassTeacherId string    `gorm:"column:class_teacher_id;type:char(36)"`
	CreatedAt      time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (SchoolClass) TableName() string {
	return "school_classes"
}

type Subject struct {
	Id        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectId string `gorm:"column:subject_id;type:char(36);uniqueIndex;not null"`
	TenantId  string `gorm:"column:tenant_id;type:char(36);index;not null"`
	Name      string `gorm:"column:name;type:varchar(50);not null"`
}

func (Subject) TableName() string {
	return "subjects"
}

type Exam struct {
	Id       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ExamId   string `gorm:"column:exam_id;type:char(36);uniqueIndex;not null"`
	TenantId string `gorm:"column:tenant_id;type:char(36);index;not null"`
	Name     string `gorm:"column:name;type:varchar(100);not null"`
}

func (Exam) TableName() string {
	return "exams"
}

type Homework struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	HomeworkId string     `gorm:"column:homework_id;type:char(36);uniqueIndex;not null"`
	TenantId   string     `gorm:"column:tenant_id;type:char(36);index;not null"`
	ClassId    string     `gorm:"column:class_id;type:char(36);index"`
	SubjectId  string     `gorm:"column:subject_id;type:char(36)"`
	Title      string     `gorm:"column:title;type:varchar(200);not null"`
	DueDate    *time.Time `gorm:"column:due_date;type:datetime"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:datetime;not null"`
}

func (Homework) TableName() string {
	return "homeworks"
}
