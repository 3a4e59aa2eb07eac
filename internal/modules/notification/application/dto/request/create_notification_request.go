package request

// EventContext 调用方随事件带来的冗余上下文，目录查询失败时用它拼消息
type EventContext struct {
	ClassName     string   `json:"class_name"`
	Section       string   `json:"section"`
	SubjectName   string   `json:"subject_name"`
	ExamName      string   `json:"exam_name"`
	HomeworkTitle string   `json:"homework_title"`
	DueDate       string   `json:"due_date"`
	StudentNames  []string `json:"student_names"`
	StudentName   string   `json:"student_name"`
	ActorName     string   `json:"actor_name"`
	Date          string   `json:"date"`
}

type CreateNotificationRequest struct {
	Type         string       `json:"type" binding:"required"`
	TenantId     string       `json:"tenant_id"`
	SenderId     string       `json:"sender_id"`
	Message      string       `json:"message"`
	DeliveryMode string       `json:"delivery_mode"`
	ClassId      string       `json:"class_id"`
	SubjectId    string       `json:"subject_id"`
	ExamId       string       `json:"exam_id"`
	HomeworkId   string       `json:"homework_id"`
	StudentIds   []string     `json:"student_ids"`
	Date         string       `json:"date"`
	Context      EventContext `json:"context"`
}
