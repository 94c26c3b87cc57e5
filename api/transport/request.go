package transport

import "github.com/fastygo/todo/domain"

type TaskCreateRequest struct {
	Description string `json:"description"`
}

// TaskUpdateRequest carries the optional fields of a partial update.
type TaskUpdateRequest struct {
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (r TaskUpdateRequest) Patch() domain.TaskPatch {
	return domain.TaskPatch{Description: r.Description, Status: r.Status}
}

type AuthEventRequest struct {
	UserName string `json:"userName"`
	Request  struct {
		UserAttributes map[string]string `json:"userAttributes"`
	} `json:"request"`
}

func (r AuthEventRequest) Event() domain.AuthEvent {
	return domain.AuthEvent{Username: r.UserName, Attributes: r.Request.UserAttributes}
}

type MessageResponse struct {
	Message string `json:"message"`
}
