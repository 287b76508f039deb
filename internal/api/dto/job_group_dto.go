package dto

type CreateJobGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type JobGroupDTO struct {
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ListJobGroupsResponse struct {
	Groups []JobGroupDTO `json:"groups"`
}
