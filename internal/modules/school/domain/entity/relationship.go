package entity

import "time"

// LinkKind 账号与学生的关联路径，数值越小优先级越高
type LinkKind int

const (
	LinkParentOf LinkKind = iota + 1 // 账号上的 linked_parent_of
	LinkDirect                       // student_parents 登记
	LinkStudentOf                    // 账号上的 linked_student_id
)

func (k LinkKind) String() string {
	switch k {
	case LinkParentOf:
		return "parent_of"
	case LinkDirect:
		return "direct"
	case LinkStudentOf:
		return "student_of"
	default:
		return "unknown"
	}
}

type LinkedAccount struct {
	AccountId string
	Link      LinkKind
}

// Relationships 某个学生在指定学校内可触达的账号
type Relationships struct {
	StudentId      string
	StudentName    string
	ParentAccounts []LinkedAccount
	StudentAccount *LinkedAccount
}

// EventCatalog 由学校目录查询得到的事件上下文
type EventCatalog struct {
	ClassName     string
	Section       string
	SubjectName   string
	ExamName      string
	HomeworkTitle string
	DueDate       *time.Time
	StudentNames  []string
	ActorName     string
}
