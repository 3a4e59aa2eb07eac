package service

import (
	"fmt"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/pkg/util"
)

const (
	pushBodyMaxRunes = 100
	gradeNamesShown  = 3
	noDueDate        = "No due date"
	dueDateLayout    = "2006-01-02"
)

// MessageContext 拼消息所需的全部上下文，两种创建策略都先归一到这里
type MessageContext struct {
	ClassName     string
	Section       string
	SubjectName   string
	ExamName      string
	HomeworkTitle string
	DueDate       string
	StudentNames  []string
	ActorName     string
	Date          string
	Message       string
}

func contextFromCatalog(c *schoolEntity.EventCatalog, message, date string) MessageContext {
	mc := MessageContext{
		ClassName:     c.ClassName,
		Section:       c.Section,
		SubjectName:   c.SubjectName,
		ExamName:      c.ExamName,
		HomeworkTitle: c.HomeworkTitle,
		StudentNames:  c.StudentNames,
		ActorName:     c.ActorName,
		Date:          date,
		Message:       message,
	}
	if c.DueDate != nil {
		mc.DueDate = c.DueDate.Format(dueDateLayout)
	}
	return mc
}

func (mc MessageContext) classLabel(sep string) string {
	if mc.Section == "" {
		return mc.ClassName
	}
	return mc.ClassName + sep + mc.Section
}

func (mc MessageContext) firstStudent() string {
	if len(mc.StudentNames) == 0 {
		return ""
	}
	return mc.StudentNames[0]
}

func studentList(names []string) string {
	if len(names) <= gradeNamesShown {
		return strings.Join(names, ", ")
	}
	rest := len(names) - gradeNamesShown
	suffix := "others"
	if rest == 1 {
		suffix = "other"
	}
	return fmt.Sprintf("%s and %d %s", strings.Join(names[:gradeNamesShown], ", "), rest, suffix)
}

// ComposeMessage 通知正文，站内信和渠道投递都用它
func ComposeMessage(typ entity.NotificationType, mc MessageContext) string {
	switch typ {
	case entity.TypeGradeEntered:
		return fmt.Sprintf("New marks entered for %s - %s for %s in %s",
			mc.SubjectName, mc.ExamName, studentList(mc.StudentNames), mc.classLabel(" "))
	case entity.TypeHomeworkUploaded:
		due := mc.DueDate
		if due == "" {
			due = noDueDate
		}
		return fmt.Sprintf("New homework assigned: \"%s\" in %s for %s. Due: %s.",
			mc.HomeworkTitle, mc.SubjectName, mc.classLabel(" - "), due)
	case entity.TypeAttendanceAbsence:
		return fmt.Sprintf("Your child %s from %s was marked absent on %s.",
			mc.firstStudent(), mc.classLabel(" - "), mc.Date)
	default:
		return strings.TrimSpace(mc.Message)
	}
}

// PushContent 推送标题与正文
type PushContent struct {
	Title string
	Body  string
}

// ContentFor 按接收人角色给出推送内容，正文超过 100 个字符截断
func ContentFor(typ entity.NotificationType, role entity.RecipientRole, mc MessageContext) PushContent {
	var c PushContent
	switch typ {
	case entity.TypeGradeEntered:
		c.Title = "New Marks Entered"
		c.Body = fmt.Sprintf("%s - %s results are available", mc.SubjectName, mc.ExamName)
		if role == entity.RoleParent && mc.firstStudent() != "" {
			c.Body = fmt.Sprintf("%s: %s", mc.firstStudent(), c.Body)
		}
	case entity.TypeHomeworkUploaded:
		if role == entity.RoleStudent {
			c.Title = "New Homework"
			c.Body = fmt.Sprintf("%s: %s", mc.SubjectName, mc.HomeworkTitle)
		} else {
			c.Title = "New Homework Assigned"
			c.Body = fmt.Sprintf("%s homework for %s", mc.SubjectName, mc.ClassName)
		}
	case entity.TypeAttendanceAbsence:
		c.Title = "Absentee"
		if role == entity.RoleStudent {
			c.Body = fmt.Sprintf("You were marked absent on %s.", mc.Date)
		} else {
			c.Body = ComposeMessage(typ, mc)
		}
	case entity.TypeAnnouncement:
		c.Title = "School Announcement"
		c.Body = mc.Message
	case entity.TypeEventCreated:
		c.Title = "New Event"
		c.Body = mc.Message
	default:
		c.Title = "School Notification"
		c.Body = mc.Message
	}
	c.Body = util.TruncateRunes(strings.TrimSpace(c.Body), pushBodyMaxRunes)
	return c
}

// parseDate 接受 2006-01-02 或 RFC3339，统一输出日期部分
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(dueDateLayout, s); err == nil {
		return t.Format(dueDateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(dueDateLayout), true
	}
	return "", false
}
