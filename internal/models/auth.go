package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the access token payload issued by the identity service.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	TeacherID  *int64   `json:"teacher_id,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"`
	SchoolID   string   `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}
