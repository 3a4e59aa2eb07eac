package service

import (
	"context"
	"errors"

	"SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/internal/modules/school/domain/repository"
	"SchoolLink/pkg/xerr"

	"gorm.io/gorm"
)

type CatalogQuery struct {
	ClassId    string
	SubjectId  string
	ExamId     string
	HomeworkId string
	StudentIds []string
	ActorId    string
}

// CatalogService 从学校目录读取事件上下文。被引用的记录不存在返回 NotFound，
// 读库失败返回服务端错误
type CatalogService interface {
	LoadEventCatalog(ctx context.Context, tenantID string, q CatalogQuery) (*entity.EventCatalog, error)
}

type catalogServiceImpl struct {
	catalogRepo repository.CatalogRepository
	rosterRepo  repository.RosterRepository
	accountRepo repository.AccountRepository
}

func NewCatalogService(catalogRepo repository.CatalogRepository, rosterRepo repository.RosterRepository, accountRepo repository.AccountRepository) CatalogService {
	return &catalogServiceImpl{
		catalogRepo: catalogRepo,
		rosterRepo:  rosterRepo,
		accountRepo: accountRepo,
	}
}

func (s *catalogServiceImpl) LoadEventCatalog(ctx context.Context, tenantID string, q CatalogQuery) (*entity.EventCatalog, error) {
	out := &entity.EventCatalog{}

	classID := q.ClassId
	if len(q.StudentIds) > 0 {
		students, err := s.rosterRepo.ListStudentsByIDs(ctx, tenantID, q.StudentIds)
		if err != nil {
			return nil, xerr.Wrap(xerr.InternalServerError, "读取学生失败", err)
		}
		names := make(map[string]string, len(students))
		for _, st := range students {
			names[st.StudentId] = st.FullName
		}
		// 单个学生的事件没给班级时，用学生所在班级
		if classID == "" && len(q.StudentIds) == 1 && len(students) == 1 {
			classID = students[0].ClassId
		}
		// 保持调用方给出的学生顺序
		for _, id := range q.StudentIds {
			if n, ok := names[id]; ok {
				out.StudentNames = append(out.StudentNames, n)
			}
		}
	}
	if classID != "" {
		c, err := s.catalogRepo.GetClass(ctx, tenantID, classID)
		if err != nil {
			return nil, missingErr("班级不存在", err)
		}
		out.ClassName = c.Name
		out.Section = c.Section
	}
	if q.SubjectId != "" {
		sub, err := s.catalogRepo.GetSubject(ctx, tenantID, q.SubjectId)
		if err != nil {
			return nil, missingErr("科目不存在", err)
		}
		out.SubjectName = sub.Name
	}
	if q.ExamId != "" {
		e, err := s.catalogRepo.GetExam(ctx, tenantID, q.ExamId)
		if err != nil {
			return nil, missingErr("考试不存在", err)
		}
		out.ExamName = e.Name
	}
	if q.HomeworkId != "" {
		h, err := s.catalogRepo.GetHomework(ctx, tenantID, q.HomeworkId)
		if err != nil {
			return nil, missingErr("作业不存在", err)
		}
		out.HomeworkTitle = h.Title
		out.DueDate = h.DueDate
	}
	if q.ActorId != "" {
		a, err := s.accountRepo.GetByUUID(ctx, q.ActorId)
		if err != nil {
			return nil, missingErr("操作人不存在", err)
		}
		if a.TenantId != tenantID {
			return nil, xerr.New(xerr.NotFound, "操作人不存在")
		}
		out.ActorName = a.FullName
	}
	return out, nil
}

func missingErr(msg string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return xerr.Wrap(xerr.NotFound, msg, err)
	}
	return xerr.Wrap(xerr.InternalServerError, "读取学校目录失败", err)
}
