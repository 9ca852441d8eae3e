package adapters

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&AssessmentModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func newAssessment(id, digest string, grade entity.Grade, created time.Time) *entity.Assessment {
	return &entity.Assessment{
		ID:     id,
		Digest: digest,
		Source: "text",
		Metadata: entity.Metadata{
			ServiceName:      "Acme",
			ServiceNature:    "a multiplayer online videogame",
			DocumentType:     "Terms of Service",
			DocumentLanguage: "English",
		},
		Summary:   entity.Summary{Score: grade, Comment: "Read the refund section."},
		Reasoning: "1. ...",
		RunDir:    "logs/run",
		CreatedAt: created,
	}
}

func TestAssessmentGorm_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	a := newAssessment("11111111-1111-1111-1111-111111111111", "d1", entity.GradeC, created)
	require.NoError(t, repo.Save(ctx, a))

	byDigest, err := repo.FindByDigest(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byDigest.ID)
	assert.Equal(t, a.Metadata, byDigest.Metadata)
	assert.Equal(t, a.Summary, byDigest.Summary)
	assert.True(t, created.Equal(byDigest.CreatedAt))

	byID, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "d1", byID.Digest)
}

// TestAssessmentModel_UnboundedColumns はモデルが生成した値や入力由来の値を長さ制限のない列に保存することを検証します。
func TestAssessmentModel_UnboundedColumns(t *testing.T) {
	s, err := schema.Parse(&AssessmentModel{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	for _, name := range []string{"Source", "ServiceName", "ServiceNature", "DocumentType", "DocumentLanguage", "Comment", "Reasoning", "RunDir"} {
		f := s.LookUpField(name)
		require.NotNil(t, f, name)
		assert.Equal(t, schema.DataType("text"), f.DataType, name)
		assert.Zero(t, f.Size, name)
	}

	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	a := newAssessment("22222222-2222-2222-2222-222222222222", "long", entity.GradeD, time.Now().UTC())
	a.Metadata.ServiceName = strings.Repeat("Acme Holdings ", 40)
	a.Metadata.DocumentType = strings.Repeat("Terms of Service and Privacy Notice ", 20)
	a.Metadata.DocumentLanguage = strings.Repeat("English (United Kingdom) ", 10)
	a.Source = "https://example.com/" + strings.Repeat("legal/", 80)
	require.NoError(t, repo.Save(context.Background(), a))

	got, err := repo.FindByDigest(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, a.Metadata, got.Metadata)
	assert.Equal(t, a.Source, got.Source)
}

func TestAssessmentGorm_NotFound(t *testing.T) {
	repo := NewAssessmentRepository(setupTestDB(t))

	_, err := repo.FindByDigest(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestAssessmentGorm_SaveUpsertsOnDigest は同じdigestの再評価が既存の行を置き換えることを検証します。
func TestAssessmentGorm_SaveUpsertsOnDigest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, newAssessment("11111111-1111-1111-1111-111111111111", "same", entity.GradeA, t0)))
	require.NoError(t, repo.Save(ctx, newAssessment("22222222-2222-2222-2222-222222222222", "same", entity.GradeE, t0.Add(time.Hour))))

	var count int64
	require.NoError(t, db.Model(&AssessmentModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindByDigest(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", got.ID)
	assert.Equal(t, entity.GradeE, got.Summary.Score)
}

func TestAssessmentGorm_List(t *testing.T) {
	repo := NewAssessmentRepository(setupTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i, g := range []entity.Grade{entity.GradeA, entity.GradeB, entity.GradeC} {
		id := []string{
			"11111111-1111-1111-1111-111111111111",
			"22222222-2222-2222-2222-222222222222",
			"33333333-3333-3333-3333-333333333333",
		}[i]
		require.NoError(t, repo.Save(ctx, newAssessment(id, string(g), g, t0.Add(time.Duration(i)*time.Minute))))
	}

	tests := []struct {
		name   string
		limit  int
		grades []entity.Grade
	}{
		{"newest first", 0, []entity.Grade{entity.GradeC, entity.GradeB, entity.GradeA}},
		{"limited", 2, []entity.Grade{entity.GradeC, entity.GradeB}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.limit)
			require.NoError(t, err)
			grades := make([]entity.Grade, 0, len(got))
			for _, a := range got {
				grades = append(grades, a.Summary.Score)
			}
			assert.Equal(t, tt.grades, grades)
		})
	}
}
