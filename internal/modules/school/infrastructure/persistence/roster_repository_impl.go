package persistence

import (
	"context"

	"SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/internal/modules/school/domain/repository"

	"gorm.io/gorm"
)

type rosterRepositoryImpl struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) repository.RosterRepository {
	return &rosterRepositoryImpl{db: db}
}

func (r *rosterRepositoryImpl) ListStudentsByIDs(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Student, error) {
	if len(studentIDs) == 0 {
		return []entity.Student{}, nil
	}
	var out []entity.Student
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id IN ?", tenantID, studentIDs).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *rosterRepositoryImpl) ListStudentIDs(ctx context.Context, tenantID string, classID string) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&entity.Student{}).
		Where("tenant_id = ? AND status = ?", tenantID, 0)
	if classID != "" {
		q = q.Where("class_id = ?", classID)
	}
	var ids []string
	err := q.Order("id ASC").Pluck("student_id", &ids).Error
	return ids, err
}

func (r *rosterRepositoryImpl) ListParentLinks(ctx context.Context, tenantID string, studentIDs []string) ([]entity.StudentParent, error) {
	if len(studentIDs) == 0 {
		return []entity.StudentParent{}, nil
	}
	var out []entity.StudentParent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id IN ?", tenantID, studentIDs).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

type catalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) repository.CatalogRepository {
	return &catalogRepositoryImpl{db: db}
}

func (r *catalogRepositoryImpl) GetClass(ctx context.Context, tenantID, classID string) (*entity.SchoolClass, error) {
	var c entity.SchoolClass
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND class_id = ?", tenantID, classID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *catalogRepositoryImpl) GetSubject(ctx context.Context, tenantID, subjectID string) (*entity.Subject, error) {
	var s entity.Subject
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND subject_id = ?", tenantID, subjectID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepositoryImpl) GetExam(ctx context.Context, tenantID, examID string) (*entity.Exam, error) {
	var e entity.Exam
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND exam_id = ?", tenantID, examID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *catalogRepositoryImpl) GetHomework(ctx context.Context, tenantID, homeworkID string) (*entity.Homework, error) {
	var h entity.Homework
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND homework_id = ?", tenantID, homeworkID).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}
