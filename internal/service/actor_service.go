package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// TeacherAssignmentReader lists the class/subject pairs a teacher is assigned to.
type TeacherAssignmentReader interface {
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherAssignment, error)
}

// StudentAudienceReader resolves which students a student or parent account may see.
type StudentAudienceReader interface {
	IDsForUser(ctx context.Context, userID string, role models.UserRole) ([]string, error)
}

// ActorService turns verified token claims into the capability set every results operation consumes.
type ActorService struct {
	assignments TeacherAssignmentReader
	students    StudentAudienceReader
	logger      *zap.Logger
}

// NewActorService constructs an actor resolver.
func NewActorService(assignments TeacherAssignmentReader, students StudentAudienceReader, logger *zap.Logger) *ActorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActorService{assignments: assignments, students: students, logger: logger}
}

// Resolve builds the actor of claims.
func (s *ActorService) Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error) {
	if claims == nil || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	actor := models.NewActor(claims.UserID, claims.Role)
	switch {
	case actor.IsAdmin:
		return actor, nil
	case actor.IsTeacher:
		if claims.TeacherID == nil || *claims.TeacherID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher profile missing from token")
		}
		actor.TeacherID = *claims.TeacherID
		if err := s.grantAssignments(ctx, actor); err != nil {
			return nil, err
		}
		return actor, nil
	default:
		return s.resolveViewer(ctx, actor, claims)
	}
}

func (s *ActorService) grantAssignments(ctx context.Context, actor *models.Actor) error {
	if s.assignments == nil {
		return nil
	}
	assignments, err := s.assignments.ListByTeacher(ctx, actor.TeacherID)
	if err != nil {
		return storeError(err, "failed to load teacher assignments")
	}

	seen := make(map[string]string, len(assignments))
	for _, a := range assignments {
		actor.GrantClass(a.ClassID)
		key := models.SubjectKey(a.SubjectName)
		if prev, ok := seen[key]; ok && prev != a.SubjectName {
			s.logger.Warn("subject names differ only by case",
				zap.Int64("teacher_id", actor.TeacherID),
				zap.String("subject", a.SubjectName),
				zap.String("other", prev))
		}
		seen[key] = a.SubjectName
		actor.GrantSubject(a.SubjectName)
	}
	return nil
}

func (s *ActorService) resolveViewer(ctx context.Context, actor *models.Actor, claims *models.JWTClaims) (*models.Actor, error) {
	ids := claims.StudentIDs
	if len(ids) == 0 && s.students != nil {
		found, err := s.students.IDsForUser(ctx, claims.UserID, claims.Role)
		if err != nil {
			return nil, storeError(err, "failed to resolve student audience")
		}
		ids = found
	}
	for _, id := range ids {
		if id != "" {
			actor.StudentIDs[id] = struct{}{}
		}
	}
	return actor, nil
}
