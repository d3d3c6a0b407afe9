// Package topic names the pub/sub channels a room exposes.
package topic

import (
	"fmt"
	"strings"
)

const (
	CategoryData     = "data"
	CategoryRTCOffer = "rtc/offer"
	CategoryRTCIce   = "rtc/ice"
)

// Categories lists every per-room topic category clients may subscribe to.
var Categories = []string{CategoryData, CategoryRTCOffer, CategoryRTCIce}

// Room builds the topic name for a room key and category, e.g. "room/12/data".
func Room(roomKey string, category string) string {
	return fmt.Sprintf("room/%s/%s", roomKey, category)
}

// RoomData is the roster/notice/status channel of a durable room.
func RoomData(roomID uint) string {
	return Room(fmt.Sprint(roomID), CategoryData)
}

func RoomOffer(roomKey string) string { return Room(roomKey, CategoryRTCOffer) }

func RoomIce(roomKey string) string { return Room(roomKey, CategoryRTCIce) }

// ValidCategory reports whether category is one of Categories.
func ValidCategory(category string) bool {
	category = strings.Trim(category, "/")
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
