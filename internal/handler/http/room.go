package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
)

// RoomHandler exposes the durable room operations over HTTP.
type RoomHandler struct {
	rooms *service.RoomStateCoordinator
}

func NewRoomHandler(rooms *service.RoomStateCoordinator) *RoomHandler {
	if rooms == nil {
		panic("RoomStateCoordinator cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms}
}

type CreateRoomRequest struct {
	RoomName        string `json:"roomName" binding:"required,max=100"`
	Capacity        int    `json:"capacity" binding:"required"`
	Duration        string `json:"duration" binding:"required"`
	ImagePath       string `json:"imagePath"`
	MicAvailability *bool  `json:"micAvailability"`
}

type RoomResponse struct {
	RoomID           uint       `json:"roomId"`
	RoomName         string     `json:"roomName"`
	Capacity         int        `json:"capacity"`
	ParticipantCount int        `json:"participantCount"`
	Active           bool       `json:"active"`
	StartedAt        time.Time  `json:"startedAt"`
	EndsAt           time.Time  `json:"endsAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	Notice           string     `json:"notice"`
	MicAvailability  bool       `json:"micAvailability"`
	ImagePath        string     `json:"imagePath,omitempty"`
	Members          []Member   `json:"members,omitempty"`
}

type Member struct {
	UserID  uint `json:"userId"`
	IsAdmin bool `json:"isAdmin"`
}

func toRoomResponse(r *domain.Room) RoomResponse {
	return RoomResponse{
		RoomID:           r.ID,
		RoomName:         r.Name,
		Capacity:         r.Capacity,
		ParticipantCount: r.ParticipantCount,
		Active:           r.Active,
		StartedAt:        r.StartedAt,
		EndsAt:           r.EndsAt(),
		EndedAt:          r.EndedAt,
		Notice:           r.Notice,
		MicAvailability:  r.MicAvailability,
		ImagePath:        r.ImagePath,
	}
}

func roomIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("roomId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		logrus.WithField("room_id", raw).Warn("Handler: invalid room ID format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid room ID format")
		return 0, false
	}
	return uint(id), true
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("Handler.CreateRoom: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), userID, service.CreateRoomInput{
		Name:            req.RoomName,
		Capacity:        req.Capacity,
		Duration:        req.Duration,
		ImagePath:       req.ImagePath,
		MicAvailability: req.MicAvailability,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, toRoomResponse(room))
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	detail, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	resp := toRoomResponse(detail.Room)
	for _, m := range detail.Members {
		resp.Members = append(resp.Members, Member{UserID: m.UserID, IsAdmin: m.IsAdmin})
	}
	SuccessResponse(c, http.StatusOK, resp)
}

// Enter handles POST /api/rooms/:roomId/enter.
func (h *RoomHandler) Enter(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	res, err := h.rooms.Enter(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"roomId":  roomID,
		"count":   res.Count,
		"isAdmin": res.IsAdmin,
	})
}

// Exit handles POST /api/rooms/:roomId/exit.
func (h *RoomHandler) Exit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	res, err := h.rooms.Exit(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	body := gin.H{"roomId": roomID, "count": res.Count, "ended": res.Ended}
	if res.NewAdminID != 0 {
		body["newAdminId"] = res.NewAdminID
	}
	if res.Ended {
		body["durationSeconds"] = int64(res.FinalDuration / time.Second)
	}
	SuccessResponse(c, http.StatusOK, body)
}

type UpdateNoticeRequest struct {
	Notice string `json:"notice" binding:"required"`
}

// UpdateNotice handles PUT /api/rooms/:roomId/notice.
func (h *RoomHandler) UpdateNotice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var req UpdateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: notice is required")
		return
	}
	if err := h.rooms.UpdateNotice(c.Request.Context(), roomID, userID, req.Notice); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus handles PUT /api/rooms/:roomId/status.
func (h *RoomHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var status domain.Status
	if err := c.ShouldBindJSON(&status); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := h.rooms.UpdateStatus(c.Request.Context(), roomID, userID, status); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
