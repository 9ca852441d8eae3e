// Package adapters はassessmentフィーチャーの永続化アダプターを提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
	"before_you_sign/internal/feature/assessment/usecase"
)

type assessmentGorm struct {
	db *gorm.DB
}

var _ usecase.AssessmentRepository = (*assessmentGorm)(nil)

// NewAssessmentRepository はgormによるAssessmentRepositoryを生成します。
func NewAssessmentRepository(db *gorm.DB) *assessmentGorm {
	return &assessmentGorm{db: db}
}

// AssessmentModel はassessmentsテーブルの行です。同じ文書（digest）は1行にまとめます。
type AssessmentModel struct {
	ID     string `gorm:"primaryKey;size:36"`
	Digest string `gorm:"size:64;not null;uniqueIndex"`
	Source string `gorm:"type:text;not null"`

	ServiceName      string `gorm:"type:text;not null"`
	ServiceNature    string `gorm:"type:text;not null"`
	DocumentType     string `gorm:"type:text;not null"`
	DocumentLanguage string `gorm:"type:text;not null"`

	Grade     string `gorm:"size:1;not null;index"`
	Comment   string `gorm:"type:text;not null"`
	Reasoning string `gorm:"type:text;not null"`
	RunDir    string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
}

func (AssessmentModel) TableName() string {
	return "assessments"
}

// FromEntity はエンティティをモデルに変換します。
func FromEntity(a *entity.Assessment) AssessmentModel {
	return AssessmentModel{
		ID:               a.ID,
		Digest:           a.Digest,
		Source:           a.Source,
		ServiceName:      a.Metadata.ServiceName,
		ServiceNature:    a.Metadata.ServiceNature,
		DocumentType:     a.Metadata.DocumentType,
		DocumentLanguage: a.Metadata.DocumentLanguage,
		Grade:            a.Summary.Score.String(),
		Comment:          a.Summary.Comment,
		Reasoning:        a.Reasoning,
		RunDir:           a.RunDir,
		CreatedAt:        a.CreatedAt,
	}
}

// ToEntity はモデルをエンティティに変換します。
func (m AssessmentModel) ToEntity() entity.Assessment {
	return entity.Assessment{
		ID:     m.ID,
		Digest: m.Digest,
		Source: m.Source,
		Metadata: entity.Metadata{
			ServiceName:      m.ServiceName,
			ServiceNature:    m.ServiceNature,
			DocumentType:     m.DocumentType,
			DocumentLanguage: m.DocumentLanguage,
		},
		Summary: entity.Summary{
			Score:   entity.Grade(m.Grade),
			Comment: m.Comment,
		},
		Reasoning: m.Reasoning,
		RunDir:    m.RunDir,
		CreatedAt: m.CreatedAt,
	}
}

// Save は評価を保存します。同じdigestの行があれば新しい評価で上書きします。
func (r *assessmentGorm) Save(ctx context.Context, a *entity.Assessment) error {
	m := FromEntity(a)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "digest"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"id", "source",
			"service_name", "service_nature", "document_type", "document_language",
			"grade", "comment", "reasoning", "run_dir", "created_at",
		}),
	}).Create(&m).Error
}

func (r *assessmentGorm) FindByDigest(ctx context.Context, digest string) (*entity.Assessment, error) {
	return r.first(ctx, "digest = ?", digest)
}

func (r *assessmentGorm) FindByID(ctx context.Context, id string) (*entity.Assessment, error) {
	return r.first(ctx, "id = ?", id)
}

// List は新しい順に最大limit件を返します。
func (r *assessmentGorm) List(ctx context.Context, limit int) ([]entity.Assessment, error) {
	var rows []AssessmentModel
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Assessment, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToEntity())
	}
	return out, nil
}

func (r *assessmentGorm) first(ctx context.Context, query string, arg any) (*entity.Assessment, error) {
	var m AssessmentModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a := m.ToEntity()
	return &a, nil
}
