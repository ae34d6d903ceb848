package submission

import (
	"time"

	"milkportal/domain/core"
)

// Role controls which submissions a user can see
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User is a portal account, keyed by email from the identity token
type User struct {
	ID           core.UserID `json:"id" db:"id"`
	Email        string      `json:"email" db:"email"`
	Name         string      `json:"name" db:"name"`
	Organization string      `json:"organization" db:"organization"`
	Role         Role        `json:"role" db:"role"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user may see every submission
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// TestSet is a sampled dataset handed to a user, along with the reference
// yields computed for it. The three slices are index-aligned.
type TestSet struct {
	ID              core.TestSetID `json:"id"`
	UserID          core.UserID    `json:"user_id"`
	BlobKey         string         `json:"-"`
	Filename        string         `json:"filename"`
	TestObjectIDs   []int64        `json:"test_object_ids"`
	Parities        []int          `json:"parities"`
	ReferenceYields []float64      `json:"reference_yields"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ReferenceByID maps each test object to its reference yield
func (t *TestSet) ReferenceByID() map[int64]float64 {
	out := make(map[int64]float64, len(t.TestObjectIDs))
	for i, id := range t.TestObjectIDs {
		if i < len(t.ReferenceYields) {
			out[id] = t.ReferenceYields[i]
		}
	}
	return out
}

// ParityByID maps each test object to its parity; missing parities are 0
func (t *TestSet) ParityByID() map[int64]int {
	out := make(map[int64]int, len(t.TestObjectIDs))
	for i, id := range t.TestObjectIDs {
		if i < len(t.Parities) {
			out[id] = t.Parities[i]
		}
	}
	return out
}

// Submission is an admitted results upload. TestObjectIDs and
// CalculatedYields are index-aligned, in upload row order.
type Submission struct {
	ID                core.SubmissionID `json:"id"`
	TestSetID         core.TestSetID    `json:"test_set_id"`
	UserID            core.UserID       `json:"user_id"`
	Organization      string            `json:"organization"`
	Country           string            `json:"country"`
	Notes             string            `json:"notes"`
	CalculationMethod string            `json:"calculation_method"`
	RespondentEmail   string            `json:"respondent_email"`
	OriginalFilename  string            `json:"original_filename"`
	BlobKey           string            `json:"-"`
	TestObjectIDs     []int64           `json:"test_object_ids"`
	CalculatedYields  []float64         `json:"calculated_yields"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// YieldByID maps each submitted test object to its calculated yield
func (s *Submission) YieldByID() map[int64]float64 {
	out := make(map[int64]float64, len(s.TestObjectIDs))
	for i, id := range s.TestObjectIDs {
		if i < len(s.CalculatedYields) {
			out[id] = s.CalculatedYields[i]
		}
	}
	return out
}

// OwnedBy reports whether the submission belongs to the user
func (s *Submission) OwnedBy(userID core.UserID) bool {
	return s.UserID == userID
}
