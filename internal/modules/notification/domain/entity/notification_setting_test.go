package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationSetting_AllowsPush(t *testing.T) {
	var missing *NotificationSetting
	assert.True(t, missing.AllowsPush(TypeGradeEntered))

	s := &NotificationSetting{PushEnabled: true}
	s.SetDisabled([]NotificationType{TypeGradeEntered, TypeAnnouncement, TypeGradeEntered})
	assert.Equal(t, "announcement,grade_entered", s.DisabledTypes)
	assert.False(t, s.AllowsPush(TypeGradeEntered))
	assert.True(t, s.AllowsPush(TypeAttendanceAbsence))

	s.PushEnabled = false
	assert.False(t, s.AllowsPush(TypeAttendanceAbsence))
}
