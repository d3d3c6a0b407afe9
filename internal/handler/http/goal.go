package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
)

// GoalHandler exposes a member's study goals inside a room.
type GoalHandler struct {
	goals *service.GoalService
}

func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	if goals == nil {
		panic("GoalService cannot be nil for GoalHandler")
	}
	return &GoalHandler{goals: goals}
}

type CreateGoal struct {
	Content string `json:"content" binding:"required"`
}

type ManageGoalsRequest struct {
	CreateGoals []CreateGoal `json:"createGoals" binding:"dive"`
	DeleteGoals []uint       `json:"deleteGoals"`
	IsSecret    *bool        `json:"isSecret"`
}

type CompleteGoalRequest struct {
	IsCompleted *bool `json:"isCompleted" binding:"required"`
}

type GoalResponse struct {
	GoalID      uint   `json:"goalId"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"isCompleted"`
}

type MemberGoalsResponse struct {
	UserID   uint           `json:"userId"`
	IsSecret bool           `json:"isSecret"`
	Goals    []GoalResponse `json:"goals"`
}

func toGoalResponses(goals []domain.Goal) []GoalResponse {
	out := make([]GoalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalResponse{GoalID: g.ID, Content: g.Content, IsCompleted: g.IsCompleted})
	}
	return out
}

// ListGoals handles GET /api/rooms/:roomId/goals.
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	members, err := h.goals.List(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	resp := make([]MemberGoalsResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, MemberGoalsResponse{UserID: m.UserID, IsSecret: m.IsSecret, Goals: toGoalResponses(m.Goals)})
	}
	SuccessResponse(c, http.StatusOK, resp)
}

// ManageGoals handles PUT /api/rooms/:roomId/goals.
func (h *GoalHandler) ManageGoals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var req ManageGoalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("Handler.ManageGoals: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	in := service.ManageGoalsInput{Delete: req.DeleteGoals, IsSecret: req.IsSecret}
	for _, g := range req.CreateGoals {
		in.Create = append(in.Create, g.Content)
	}
	goals, err := h.goals.Manage(c.Request.Context(), roomID, userID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, toGoalResponses(goals))
}

// CompleteGoal handles PATCH /api/rooms/:roomId/goals/:goalId.
func (h *GoalHandler) CompleteGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	raw := c.Param("goalId")
	goalID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || goalID == 0 {
		logrus.WithField("goal_id", raw).Warn("Handler: invalid goal ID format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid goal ID format")
		return
	}
	var req CompleteGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: isCompleted is required")
		return
	}

	goal, err := h.goals.Complete(c.Request.Context(), roomID, userID, uint(goalID), *req.IsCompleted)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, GoalResponse{GoalID: goal.ID, Content: goal.Content, IsCompleted: goal.IsCompleted})
}
