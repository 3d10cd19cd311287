package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type memoryCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{store: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.store {
		if strings.HasPrefix(key, prefix) {
			delete(m.store, key)
		}
	}
	return nil
}

func distributionRecord(id, studentID string, term models.Term, examType models.ExamType) models.ScoreRecord {
	return models.ScoreRecord{
		ID: id, StudentID: studentID, Subject: "Maths", ClassID: "5", SessionID: "2024-2025", Term: term, ExamType: examType,
		Components: []models.ScoreComponent{
			{ComponentID: "ca1", Label: "CA 1", Score: 15, MaxScore: ptrFloat(20)},
			{ComponentID: "exam", Label: "Exam", Score: 40, MaxScore: ptrFloat(60)},
		},
	}
}

func TestMarkDistributionServiceInfersWeights(t *testing.T) {
	store := newFakeScoreStore()
	store.add(
		distributionRecord("r1", "s1", models.TermFirst, models.ExamTypeFinal),
		distributionRecord("r2", "s2", models.TermFirst, models.ExamTypeFinal),
	)
	cacheRepo := newMemoryCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewMarkDistributionService(store, &fakeTemplateStore{}, cacheSvc, nil, nil, time.Minute)

	groups, err := svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, "2024-2025|FIRST|final", group.ID)
	assert.Equal(t, "First Term Final Examination", group.Title)
	assert.Equal(t, models.DistributionSourceInferred, group.Source)
	assert.Equal(t, 2, group.RecordCount)
	require.Len(t, group.Components, 2)
	assert.Equal(t, 25.0, group.Components[0].Weight)
	assert.Equal(t, 75.0, group.Components[1].Weight)

	store.listErr = errBoom
	cached, err := svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025"})
	require.NoError(t, err)
	assert.Equal(t, groups, cached)
}

type rawScoreLister struct {
	records []models.ScoreRecord
}

func (r rawScoreLister) List(context.Context, models.ScoreFilter) ([]models.ScoreRecord, error) {
	return r.records, nil
}

func TestMarkDistributionServiceTermlessRowsTakeQueryTerm(t *testing.T) {
	store := rawScoreLister{records: []models.ScoreRecord{distributionRecord("r1", "s1", "", models.ExamTypeMidterm)}}
	svc := NewMarkDistributionService(store, &fakeTemplateStore{}, nil, nil, nil, 0)

	groups, err := svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025", Term: "second"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-2025|SECOND|midterm", groups[0].ID)

	groups, err = svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-2025|All Terms|midterm", groups[0].ID)
}

func TestMarkDistributionServiceTemplateOverrides(t *testing.T) {
	store := newFakeScoreStore()
	store.add(distributionRecord("r1", "s1", models.TermFirst, models.ExamTypeFinal))
	templates := &fakeTemplateStore{templates: []models.MarkDistributionTemplate{
		{SessionID: "2024-2025", Term: models.TermFirst, ExamType: models.ExamTypeFinal, Components: []models.TemplateComponent{
			{ComponentID: "ca1", Weight: 40, Order: 1},
			{ComponentID: "exam", Weight: 60, Order: 2},
		}},
		{SessionID: "2024-2025", Term: models.TermFirst, ExamType: models.ExamTypeFinal, SchoolID: ptrString("sch-1"), Components: []models.TemplateComponent{
			{ComponentID: "exam", Weight: 70, Order: 2},
			{ComponentID: "ca1", Weight: 30, Order: 1},
		}},
		{SessionID: "2024-2025", Term: models.TermSecond, ExamType: models.ExamTypeMidterm, Components: []models.TemplateComponent{
			{ComponentID: "test", Weight: 100},
		}},
	}}
	svc := NewMarkDistributionService(store, templates, nil, nil, nil, 0)

	sessionWide, err := svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, sessionWide, 2)
	assert.Equal(t, models.DistributionSourceTemplate, sessionWide[0].Source)
	assert.Equal(t, 40.0, sessionWide[0].Components[0].Weight)
	assert.Equal(t, 1, sessionWide[0].RecordCount)
	assert.Equal(t, "Second Term Midterm Assessment", sessionWide[1].Title)

	school, err := svc.Get(context.Background(), models.DistributionQuery{SessionID: "2024-2025", SchoolID: "sch-1", Term: "FIRST"})
	require.NoError(t, err)
	require.Len(t, school, 1)
	assert.Equal(t, "ca1", school[0].Components[0].ComponentID)
	assert.Equal(t, 30.0, school[0].Components[0].Weight)
	assert.Equal(t, "ca1", school[0].Components[0].Label)
}

func TestMarkDistributionServiceGetValidation(t *testing.T) {
	svc := NewMarkDistributionService(newFakeScoreStore(), &fakeTemplateStore{}, nil, nil, nil, 0)
	_, err := svc.Get(context.Background(), models.DistributionQuery{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMarkDistributionServiceUpsertTemplate(t *testing.T) {
	templates := &fakeTemplateStore{}
	cacheRepo := newMemoryCacheRepo()
	svc := NewMarkDistributionService(newFakeScoreStore(), templates, NewCacheService(cacheRepo, nil, 0, nil, true), nil, nil, 0)
	ctx := context.Background()
	req := models.TemplateRequest{SessionID: "2024-2025", Term: "FIRST", ExamType: "midterm", Components: []models.TemplateComponent{
		{ComponentID: "ca1", Weight: 33.3},
		{ComponentID: "ca2", Weight: 33.3},
		{ComponentID: "test", Weight: 33.4},
	}}

	_, err := svc.UpsertTemplate(ctx, teacherActor(1, "5"), req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	saved, err := svc.UpsertTemplate(ctx, adminActor(), req)
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", saved.ID)
	assert.Equal(t, models.ExamTypeMidterm, saved.ExamType)
	assert.Equal(t, []string{"results:distribution:2024-2025:*"}, cacheRepo.invalidated)

	uneven := req
	uneven.Components = []models.TemplateComponent{{ComponentID: "ca1", Weight: 50}, {ComponentID: "ca1", Weight: 40}}
	_, err = svc.UpsertTemplate(ctx, adminActor(), uneven)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
	assert.Len(t, appErr.Details, 2)
}

func TestMarkDistributionServiceTemplateAccess(t *testing.T) {
	templates := &fakeTemplateStore{}
	svc := NewMarkDistributionService(newFakeScoreStore(), templates, nil, nil, nil, 0)
	ctx := context.Background()
	filter := models.TemplateFilter{SessionID: "2024-2025", Term: "FIRST", ExamType: "final"}

	_, err := svc.ListTemplates(ctx, parentActor("s1"), filter)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.ListTemplates(ctx, teacherActor(1, "5"), filter)
	assert.NoError(t, err)

	err = svc.DeleteTemplate(ctx, adminActor(), filter)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	templates.deleted = 1
	assert.NoError(t, svc.DeleteTemplate(ctx, adminActor(), filter))

	err = svc.DeleteTemplate(ctx, adminActor(), models.TemplateFilter{SessionID: "2024-2025"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMarkDistributionServiceWarmRefreshesCache(t *testing.T) {
	store := newFakeScoreStore()
	store.add(distributionRecord("r1", "s1", models.TermFirst, models.ExamTypeFinal))
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.store["results:distribution:2024-2025:stale"] = []byte("[]")
	svc := NewMarkDistributionService(store, &fakeTemplateStore{}, NewCacheService(cacheRepo, nil, 0, nil, true), nil, nil, 0)

	require.NoError(t, svc.Warm(context.Background(), "2024-2025", models.TermFirst, models.ExamTypeFinal))
	assert.NotContains(t, cacheRepo.store, "results:distribution:2024-2025:stale")
	assert.Contains(t, cacheRepo.store, distributionKey("2024-2025", "", "", "", ""))
	assert.Contains(t, cacheRepo.store, distributionKey("2024-2025", models.TermFirst, "", models.ExamTypeFinal, ""))
}
