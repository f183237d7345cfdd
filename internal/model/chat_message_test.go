package model_test

import (
	"testing"

	"school-im/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessage_SoftDelete(t *testing.T) {
	msg := &model.ChatMessage{State: model.MessageStateActive}
	require.True(t, msg.Visible())

	err := msg.SoftDelete()
	require.NoError(t, err)
	assert.Equal(t, model.MessageStateSoftDeleted, msg.State)
	assert.False(t, msg.Visible())

	// 重复删除返回错误，状态不变
	err = msg.SoftDelete()
	assert.ErrorIs(t, err, model.ErrAlreadyDeleted)
	assert.Equal(t, model.MessageStateSoftDeleted, msg.State)
}

func TestChatRoom_Participants(t *testing.T) {
	room := &model.ChatRoom{
		RoomID: "r1",
		Members: []model.ChatRoomMember{
			{RoomID: "r1", UserID: 4, Position: 0},
			{RoomID: "r1", UserID: 10, Position: 1},
		},
	}

	assert.Equal(t, []uint{4, 10}, room.ParticipantIDs())
	assert.True(t, room.HasParticipant(4))
	assert.True(t, room.HasParticipant(10))
	assert.False(t, room.HasParticipant(7))
}
