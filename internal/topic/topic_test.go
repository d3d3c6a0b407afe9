package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "room/12/data", RoomData(12))
	assert.Equal(t, "room/study/rtc/offer", RoomOffer("study"))
	assert.Equal(t, "room/study/rtc/ice", RoomIce("study"))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("data"))
	assert.True(t, ValidCategory("/rtc/ice"))
	assert.True(t, ValidCategory("rtc/offer"))
	assert.False(t, ValidCategory("rtc"))
	assert.False(t, ValidCategory(""))
}
