package dto

import (
	"time"

	"uconnect/internal/access"
)

type StudentRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=255"`
	Password  string `json:"password" form:"password" validate:"required,max=255"`
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=100,singleline"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=100,singleline"`
}

type SchoolRequest struct {
	StudentID   int64  `json:"sid" form:"sid" validate:"positive"`
	Name        string `json:"name" form:"name" validate:"required,max=255,singleline"`
	Domain      string `json:"domain" form:"domain" validate:"required,domain"`
	Address     string `json:"address" form:"address" validate:"max=255"`
	Description string `json:"description" form:"description" validate:"max=2000"`
	NumStudents *int   `json:"num_students" form:"num_students" validate:"omitempty,gte=0"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type EventRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=255,singleline"`
	Type int64  `json:"type" form:"type" validate:"positive"`
	// Organization is 0 for a school event.
	Organization int64  `json:"organization" form:"organization" validate:"gte=0"`
	Public       bool   `json:"public" form:"public"`
	Date         string `json:"date" form:"date" validate:"required,ymd"`
	TimeFrom     string `json:"time_from" form:"timeFrom" validate:"required,hhmm"`
	TimeTo       string `json:"time_to" form:"timeTo" validate:"required,hhmm"`
	Address      string `json:"address" form:"address" validate:"max=255"`
	Description  string `json:"description" form:"description" validate:"max=2000"`
}

type OrganizationRequest struct {
	Name        string  `json:"name" form:"name" validate:"required,max=255,singleline"`
	Description string  `json:"description" form:"description" validate:"max=2000"`
	Phone       string  `json:"phone" form:"phone" validate:"max=50"`
	Email       string  `json:"email" form:"email" validate:"omitempty,email"`
	Members     []int64 `json:"members" form:"members"`
}

type CommentRequest struct {
	Message string `json:"message" form:"message"`
}

type RatingRequest struct {
	Rating int `json:"rating" form:"rating"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

// ViewerResponse describes the signed-in student.
type ViewerResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	School    string `json:"school"`
}

func NewViewerResponse(v access.Viewer) *ViewerResponse {
	if !v.IsAuthenticated() {
		return nil
	}
	return &ViewerResponse{
		ID:        v.StudentID,
		Email:     v.Email,
		FirstName: v.FirstName,
		LastName:  v.LastName,
		School:    v.SchoolDomain,
	}
}

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
