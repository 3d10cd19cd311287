package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/internal/models"
)

type fakeScoreStore struct {
	mu      sync.Mutex
	records map[string]models.ScoreRecord
	order   []string

	chunks      [][]models.ScoreRecord
	failChunk   int
	chunkErr    error
	listErr     error
	findErr     error
	echoErr     error
	findCalls   int
	lastFilter  models.ScoreFilter
	upsertCalls int
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{records: map[string]models.ScoreRecord{}, failChunk: -1}
}

func (f *fakeScoreStore) UpsertChunk(_ context.Context, records []models.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.upsertCalls
	f.upsertCalls++
	if call == f.failChunk {
		return f.chunkErr
	}
	for i := range records {
		for _, id := range f.order {
			if f.records[id].IdentityKey() == records[i].IdentityKey() {
				records[i].ID = id
				break
			}
		}
		if records[i].ID == "" {
			records[i].ID = fmt.Sprintf("gen-%d", len(f.order)+1)
		}
		if _, ok := f.records[records[i].ID]; !ok {
			f.order = append(f.order, records[i].ID)
		}
		f.records[records[i].ID] = records[i]
	}
	f.chunks = append(f.chunks, append([]models.ScoreRecord(nil), records...))
	return nil
}

func (f *fakeScoreStore) List(_ context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.ScoreRecord{}
	for _, id := range f.order {
		r := f.records[id]
		if !matchesFilter(r, filter) {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeScoreStore) FindByIDs(_ context.Context, ids []string) ([]models.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.echoErr != nil && f.upsertCalls > 0 {
		return nil, f.echoErr
	}
	out := []models.ScoreRecord{}
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScoreStore) add(records ...models.ScoreRecord) {
	for _, r := range records {
		if r.SubjectKey == "" {
			r.SubjectKey = models.SubjectKey(r.Subject)
		}
		f.records[r.ID] = r
		f.order = append(f.order, r.ID)
	}
}

func matchesFilter(r models.ScoreRecord, f models.ScoreFilter) bool {
	switch {
	case f.ClassID != "" && r.ClassID != f.ClassID,
		f.Subject != "" && r.SubjectKey != models.SubjectKey(f.Subject),
		f.ExamType != "" && r.ExamType != f.ExamType,
		f.Term != "" && r.Term != f.Term,
		f.SessionID != "" && r.SessionID != f.SessionID,
		f.StudentID != "" && r.StudentID != f.StudentID:
		return false
	}
	return inSet(f.ClassIDs, r.ClassID) && inSet(f.SubjectKeys, r.SubjectKey) && inSet(f.StudentIDs, r.StudentID)
}

func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type fakeLockStore struct {
	mu        sync.Mutex
	locks     map[string]*models.ResultLock
	findErr   error
	mutateErr error
	nextID    int64
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: map[string]*models.ResultLock{}}
}

func (f *fakeLockStore) FindMany(_ context.Context, keys []models.LockKey) (map[string]*models.ResultLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := map[string]*models.ResultLock{}
	for _, k := range keys {
		if l, ok := f.locks[k.String()]; ok {
			copied := *l
			out[k.String()] = &copied
		}
	}
	return out, nil
}

func (f *fakeLockStore) List(_ context.Context, filter models.ResultLockFilter) ([]models.ResultLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ResultLock{}
	for _, l := range f.locks {
		if filter.SessionID != "" && l.SessionID != filter.SessionID {
			continue
		}
		if filter.ClassID != "" && l.ClassID != filter.ClassID {
			continue
		}
		if !inSet(filter.ClassIDs, l.ClassID) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLockStore) Mutate(_ context.Context, key models.LockKey, fn func(*models.ResultLock) error) (*models.ResultLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	current, ok := f.locks[key.String()]
	if !ok {
		f.nextID++
		current = &models.ResultLock{ID: f.nextID, LockKey: key, AllowedTeacherIDs: pq.Int64Array{}}
	}
	working := *current
	working.AllowedTeacherIDs = append(pq.Int64Array{}, current.AllowedTeacherIDs...)
	if err := fn(&working); err != nil {
		return nil, err
	}
	f.locks[key.String()] = &working
	result := working
	return &result, nil
}

type fakeTemplateStore struct {
	templates []models.MarkDistributionTemplate
	listErr   error
	upserts   []models.MarkDistributionTemplate
	deleted   int64
}

func (f *fakeTemplateStore) List(_ context.Context, sessionID string, term models.Term, examType models.ExamType, schoolID *string) ([]models.MarkDistributionTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.MarkDistributionTemplate{}
	for _, t := range f.templates {
		if t.SessionID != sessionID || (term != "" && t.Term != term) || (examType != "" && t.ExamType != examType) {
			continue
		}
		if t.SchoolID != nil && (schoolID == nil || *schoolID != *t.SchoolID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTemplateStore) Upsert(_ context.Context, template *models.MarkDistributionTemplate) error {
	template.ID = "tpl-1"
	f.upserts = append(f.upserts, *template)
	return nil
}

func (f *fakeTemplateStore) Delete(_ context.Context, _ string, _ models.Term, _ models.ExamType, _ *string) (int64, error) {
	return f.deleted, nil
}

type fakeAssignments struct {
	items []models.TeacherAssignment
	err   error
}

func (f *fakeAssignments) ListByTeacher(_ context.Context, teacherID int64) ([]models.TeacherAssignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.TeacherAssignment{}
	for _, a := range f.items {
		if a.TeacherID == teacherID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeAudience struct {
	ids   []string
	err   error
	calls int
}

func (f *fakeAudience) IDsForUser(_ context.Context, _ string, _ models.UserRole) ([]string, error) {
	f.calls++
	return f.ids, f.err
}

var errNotFound = sql.ErrNoRows

var errBoom = errors.New("boom")

func ptrFloat(v float64) *float64 {
	return &v
}

func ptrString(v string) *string {
	return &v
}

func adminActor() *models.Actor {
	return models.NewActor("admin-1", models.RoleAdmin)
}

func teacherActor(teacherID int64, classID string, subjects ...string) *models.Actor {
	actor := models.NewActor("teacher-user", models.RoleTeacher)
	actor.TeacherID = teacherID
	actor.GrantClass(classID)
	for _, s := range subjects {
		actor.GrantSubject(s)
	}
	return actor
}

func parentActor(studentIDs ...string) *models.Actor {
	actor := models.NewActor("parent-1", models.RoleParent)
	for _, id := range studentIDs {
		actor.StudentIDs[id] = struct{}{}
	}
	return actor
}
