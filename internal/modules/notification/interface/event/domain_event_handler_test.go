package event

import (
	"context"
	"errors"
	"testing"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/infrastructure/mq"
	"SchoolLink/pkg/xerr"

	"github.com/stretchr/testify/assert"
)

type fakeFactory struct {
	err      error
	created  []request.CreateNotificationRequest
	bulkRuns int
}

func (f *fakeFactory) CreateNotification(ctx context.Context, req request.CreateNotificationRequest) (*respond.CreateNotificationRespond, error) {
	f.created = append(f.created, req)
	if f.err != nil {
		return nil, f.err
	}
	return &respond.CreateNotificationRespond{NotificationId: "n1", RecipientCount: 1}, nil
}

func (f *fakeFactory) CreateBulkNotification(ctx context.Context, req request.CreateBulkNotificationRequest) (*respond.CreateNotificationRespond, error) {
	return nil, errors.New("not used")
}

func (f *fakeFactory) CreateAttendanceBulk(ctx context.Context, req request.AttendanceBulkRequest) (*respond.AttendanceBulkRespond, error) {
	f.bulkRuns++
	return &respond.AttendanceBulkRespond{Total: len(req.StudentIds)}, f.err
}

func TestDomainEventHandler(t *testing.T) {
	grade := mq.Message{Topic: "school.domain-events", Value: []byte(`{"type":"grade_entered","sender_id":"t1-teacher","class_id":"c","subject_id":"s","exam_id":"e","student_ids":["s1"]}`)}

	tests := []struct {
		name    string
		err     error
		msg     mq.Message
		wantErr bool
	}{
		{"created", nil, grade, false},
		{"no recipients is acknowledged", xerr.ErrNoRecipients, grade, false},
		{"validation error is acknowledged", xerr.New(xerr.BadRequest, "缺少考试"), grade, false},
		{"unknown sender is acknowledged", xerr.ErrNoTenantContext, grade, false},
		{"tenant lookup outage is retried", xerr.Wrap(xerr.InternalServerError, xerr.ErrServerError.Message, errors.New("sql: database is closed")), grade, true},
		{"server error is retried", xerr.ErrServerError, grade, true},
		{"unknown error is retried", errors.New("db gone"), grade, true},
		{"garbage is dropped", nil, mq.Message{Value: []byte("{")}, false},
		{"unknown kind is dropped", nil, mq.Message{Value: []byte("{}"), Headers: map[string]string{"kind": "fees"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDomainEventHandler(&fakeFactory{err: tt.err})
			err := h.Handle(context.Background(), tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDomainEventHandler_DecodesPayload(t *testing.T) {
	f := &fakeFactory{}
	h := NewDomainEventHandler(f)

	assert.NoError(t, h.Handle(context.Background(), mq.Message{Value: []byte(`{"type":"attendance_absence","sender_id":"t","student_ids":["s1"],"date":"2026-03-02","context":{"student_name":"Ben"}}`)}))
	if assert.Len(t, f.created, 1) {
		assert.Equal(t, "attendance_absence", f.created[0].Type)
		assert.Equal(t, "Ben", f.created[0].Context.StudentName)
	}

	assert.NoError(t, h.Handle(context.Background(), mq.Message{
		Value:   []byte(`{"sender_id":"t","date":"2026-03-02","student_ids":["s1","s2"]}`),
		Headers: map[string]string{"kind": "attendance_bulk"},
	}))
	assert.Equal(t, 1, f.bulkRuns)
}
