package dto

// MessageType tags every payload published on a room's data topic.
type MessageType string

const (
	TypeUserEnterUpdated MessageType = "USER_ENTER_UPDATED"
	TypeUserExitUpdated  MessageType = "USER_EXIT_UPDATED"
	TypeAdminUpdated     MessageType = "ADMIN_UPDATED"
	TypeNoticeUpdated    MessageType = "NOTICE_UPDATED"
	TypeStatusUpdated    MessageType = "STATUS_UPDATED"
	TypeRoomEndAlert     MessageType = "ROOM_END_ALERT"
	TypeRoomEnded        MessageType = "ROOM_ENDED"
	TypeGoalListUpdated  MessageType = "GOAL_LIST_UPDATED"
	TypeGoalCompleted    MessageType = "GOAL_COMPLETE_UPDATED"
)

// UserEnterUpdate announces a participant entering the room.
type UserEnterUpdate struct {
	Type     MessageType `json:"type"`
	UserID   uint        `json:"userId"`
	Username string      `json:"username"`
	Count    int         `json:"count"`
}

// UserExitUpdate announces a participant leaving the room.
type UserExitUpdate struct {
	Type   MessageType `json:"type"`
	UserID uint        `json:"userId"`
	Count  int         `json:"count"`
}

// AdminUpdate announces an admin delegation.
type AdminUpdate struct {
	Type            MessageType `json:"type"`
	PreviousAdminID uint        `json:"previousAdminId"`
	NewAdminID      uint        `json:"newAdminId"`
}

type NoticeUpdate struct {
	Type   MessageType `json:"type"`
	Notice string      `json:"notice"`
}

type StatusUpdate struct {
	Type       MessageType `json:"type"`
	UserID     uint        `json:"userId"`
	WorkStatus *bool       `json:"workStatus,omitempty"`
	CamStatus  *bool       `json:"camStatus,omitempty"`
	MicStatus  *bool       `json:"micStatus,omitempty"`
}

type RoomEndAlert struct {
	Type        MessageType `json:"type"`
	MinutesLeft int         `json:"minutesLeft"`
}

// RoomEnded is published when the last participant leaves.
type RoomEnded struct {
	Type            MessageType `json:"type"`
	DurationSeconds int64       `json:"durationSeconds"`
}

// Goal is one goal as clients see it.
type Goal struct {
	GoalID      uint   `json:"goalId"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"isCompleted"`
}

// GoalListUpdate carries a participant's whole goal list after a change.
// Goals is empty when IsSecret is set.
type GoalListUpdate struct {
	Type     MessageType `json:"type"`
	UserID   uint        `json:"userId"`
	Goals    []Goal      `json:"goals"`
	IsSecret bool        `json:"isSecret"`
}

// GoalCompleteUpdate announces one goal being checked or unchecked.
type GoalCompleteUpdate struct {
	Type        MessageType `json:"type"`
	UserID      uint        `json:"userId"`
	GoalID      uint        `json:"goalId"`
	Content     string      `json:"content,omitempty"`
	IsCompleted bool        `json:"isCompleted"`
}
