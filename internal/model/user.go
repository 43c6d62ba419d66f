package model

// GhostUsername is the reserved username of the placeholder user that owns
// content whose author could not be mapped.
const GhostUsername = "ghost"

// User is a destination system account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
	Admin    bool   `json:"admin"`
	Ghost    bool   `json:"ghost"`
}

// Group owns projects and group-level labels and milestones.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=255"`
	Path string `json:"path" validate:"required,max=255"`
}
