package request

type AttendanceBulkRequest struct {
	SenderId   string   `json:"sender_id"`
	ClassId    string   `json:"class_id"`
	Date       string   `json:"date" binding:"required"`
	StudentIds []string `json:"student_ids" binding:"required,min=1"`
}
