package models

import "sort"

// Actor is the resolved capability set of the caller. Every results operation consumes it.
type Actor struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	IsAdmin   bool     `json:"is_admin"`
	IsTeacher bool     `json:"is_teacher"`
	TeacherID int64    `json:"teacher_id,omitempty"`

	AllowedClassIDs map[string]struct{} `json:"-"`
	// AllowedSubjects holds SubjectKey values.
	AllowedSubjects map[string]struct{} `json:"-"`
	// StudentIDs is the audience of a student or parent viewer.
	StudentIDs map[string]struct{} `json:"-"`
}

// NewActor builds an actor for role, deriving the admin/teacher flags.
func NewActor(userID string, role UserRole) *Actor {
	return &Actor{
		UserID:          userID,
		Role:            role,
		IsAdmin:         role.IsAdmin(),
		IsTeacher:       role == RoleTeacher,
		AllowedClassIDs: map[string]struct{}{},
		AllowedSubjects: map[string]struct{}{},
		StudentIDs:      map[string]struct{}{},
	}
}

// IsStaff is true for admins and teachers.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.IsAdmin || a.IsTeacher)
}

// IsViewer is true for read-only audiences (students and parents).
func (a *Actor) IsViewer() bool {
	return a != nil && !a.IsStaff()
}

// GrantClass adds classID to the teacher scope.
func (a *Actor) GrantClass(classID string) {
	if a.AllowedClassIDs == nil {
		a.AllowedClassIDs = map[string]struct{}{}
	}
	a.AllowedClassIDs[classID] = struct{}{}
}

// GrantSubject adds subject (any casing) to the teacher scope.
func (a *Actor) GrantSubject(subject string) {
	if a.AllowedSubjects == nil {
		a.AllowedSubjects = map[string]struct{}{}
	}
	a.AllowedSubjects[SubjectKey(subject)] = struct{}{}
}

// CanAccessClass reports whether the actor may touch classID.
func (a *Actor) CanAccessClass(classID string) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin {
		return true
	}
	_, ok := a.AllowedClassIDs[classID]
	return ok
}

// CanAccessSubject compares subjects by normalized key.
func (a *Actor) CanAccessSubject(subject string) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin {
		return true
	}
	_, ok := a.AllowedSubjects[SubjectKey(subject)]
	return ok
}

// CanSeeStudent reports whether a viewer may read studentID's results.
func (a *Actor) CanSeeStudent(studentID string) bool {
	if a == nil {
		return false
	}
	if a.IsStaff() {
		return true
	}
	_, ok := a.StudentIDs[studentID]
	return ok
}

// CanWrite applies the lock policy: admins always, teachers while draft or with an override.
// A nil lock is a group whose row does not exist yet and counts as draft.
func (a *Actor) CanWrite(lock *ResultLock) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin {
		return true
	}
	if !a.IsTeacher {
		return false
	}
	if !lock.Published() {
		return true
	}
	return lock.HasOverride(a.TeacherID)
}

// CanView hides unpublished groups from students and parents.
func (a *Actor) CanView(lock *ResultLock) bool {
	if a.IsStaff() {
		return true
	}
	return lock.Published()
}

// ClassIDs returns the allowed class ids as a slice.
func (a *Actor) ClassIDs() []string {
	return keys(a.AllowedClassIDs)
}

// SubjectKeys returns the allowed subject keys as a slice.
func (a *Actor) SubjectKeys() []string {
	return keys(a.AllowedSubjects)
}

// StudentIDList returns the viewer audience as a slice.
func (a *Actor) StudentIDList() []string {
	return keys(a.StudentIDs)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
