package domain

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

// User is the push-token owner. StudentID is the external identifier other
// collections reference; UserID is the document key.
type User struct {
	UserID          string   `json:"id" dynamodbav:"user_id"`
	StudentID       string   `json:"student_id,omitempty" dynamodbav:"student_id,omitempty"`
	Name            string   `json:"name" dynamodbav:"name"`
	Role            string   `json:"role" dynamodbav:"role"`
	IsActive        bool     `json:"is_active" dynamodbav:"is_active"`
	PushTokens      []string `json:"-" dynamodbav:"push_tokens,stringset,omitempty"`
	LatestPushToken string   `json:"-" dynamodbav:"latest_push_token,omitempty"`
}

// RecipientID is the identifier notifications are addressed to.
func (u *User) RecipientID() string {
	if u.StudentID != "" {
		return u.StudentID
	}
	return u.UserID
}
