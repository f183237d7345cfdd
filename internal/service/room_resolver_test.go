package service_test

import (
	"testing"

	"school-im/internal/model"
	"school-im/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoomName_OrderIndependent(t *testing.T) {
	assert.Equal(t, service.RoomName(3, 7), service.RoomName(7, 3))
	assert.Equal(t, "teacher-parent-3-7", service.RoomName(7, 3))
	assert.Equal(t, "teacher-parent-3-7", service.RoomName(3, 7))
}

func TestRoomName_DistinctPairs(t *testing.T) {
	assert.NotEqual(t, service.RoomName(1, 2), service.RoomName(1, 3))
	assert.NotEqual(t, service.RoomName(1, 2), service.RoomName(2, 3))
}

func TestRoomResolver_ExistingRoom(t *testing.T) {
	parent := &model.User{ID: 10, TenantID: 1, Role: model.RoleParent}
	teacher := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}

	existing := &model.ChatRoom{RoomID: "room-uuid", Name: service.RoomName(10, 4)}

	creator := new(MockRoomCreator)
	verifier := new(MockVerifier)
	creator.On("GetByName", "teacher-parent-4-10").Return(existing, nil)

	resolver := service.NewRoomResolver(creator, verifier)

	room, err := resolver.Resolve(parent, teacher)
	require.NoError(t, err)
	assert.Equal(t, existing, room)

	// 已存在的聊天室不再触发关系校验
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	creator.AssertNotCalled(t, "GetOrCreate", mock.Anything)
}

func TestRoomResolver_CreatesRoom(t *testing.T) {
	parent := &model.User{ID: 10, TenantID: 1, Role: model.RoleParent}
	teacher := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}

	creator := new(MockRoomCreator)
	verifier := new(MockVerifier)
	creator.On("GetByName", "teacher-parent-4-10").Return(nil, nil)
	verifier.On("Verify", teacher, parent).Return(parent, teacher, nil)

	var created *model.ChatRoom
	creator.On("GetOrCreate", mock.AnythingOfType("*model.ChatRoom")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*model.ChatRoom)
		}).
		Return(&model.ChatRoom{RoomID: "room-uuid"}, nil)

	resolver := service.NewRoomResolver(creator, verifier)

	// 参数顺序与角色无关
	room, err := resolver.Resolve(teacher, parent)
	require.NoError(t, err)
	assert.Equal(t, "room-uuid", room.RoomID)

	require.NotNil(t, created)
	assert.Equal(t, "teacher-parent-4-10", created.Name)
	assert.Equal(t, model.RoomTypeDirect, created.Type)
	assert.Equal(t, uint(1), created.TenantID)
	assert.NotEmpty(t, created.RoomID)
	require.Len(t, created.Members, 2)
	assert.Equal(t, uint(4), created.Members[0].UserID)
	assert.Equal(t, uint(10), created.Members[1].UserID)
	assert.Equal(t, 0, created.Members[0].Position)
	assert.Equal(t, 1, created.Members[1].Position)
}

func TestRoomResolver_RelationshipRejected(t *testing.T) {
	parent := &model.User{ID: 10, TenantID: 1, Role: model.RoleParent}
	teacher := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}

	creator := new(MockRoomCreator)
	verifier := new(MockVerifier)
	creator.On("GetByName", "teacher-parent-4-10").Return(nil, nil)
	verifier.On("Verify", parent, teacher).Return(nil, nil, service.ErrInvalidRelationship)

	resolver := service.NewRoomResolver(creator, verifier)

	_, err := resolver.Resolve(parent, teacher)
	assert.ErrorIs(t, err, service.ErrInvalidRelationship)
	creator.AssertNotCalled(t, "GetOrCreate", mock.Anything)
}

func TestRelationshipVerifier_SharedStudent(t *testing.T) {
	parent := &model.User{ID: 10, TenantID: 1, Role: model.RoleParent}
	teacher := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}

	students := new(MockRelationshipStore)
	students.On("SharedStudents", uint(10), uint(4)).Return([]uint{77}, nil)

	verifier := service.NewRelationshipVerifier(students)

	// 角色归位与参数顺序无关
	p, tt, err := verifier.Verify(teacher, parent)
	require.NoError(t, err)
	assert.Equal(t, parent, p)
	assert.Equal(t, teacher, tt)
}

func TestRelationshipVerifier_NoSharedStudent(t *testing.T) {
	parent := &model.User{ID: 10, TenantID: 1, Role: model.RoleParent}
	teacher := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}

	students := new(MockRelationshipStore)
	students.On("SharedStudents", uint(10), uint(4)).Return([]uint{}, nil)

	verifier := service.NewRelationshipVerifier(students)

	_, _, err := verifier.Verify(parent, teacher)
	assert.ErrorIs(t, err, service.ErrInvalidRelationship)
}

func TestRelationshipVerifier_InvalidPairs(t *testing.T) {
	students := new(MockRelationshipStore)
	verifier := service.NewRelationshipVerifier(students)

	parentA := &model.User{ID: 1, TenantID: 1, Role: model.RoleParent}
	parentB := &model.User{ID: 2, TenantID: 1, Role: model.RoleParent}
	teacherA := &model.User{ID: 3, TenantID: 1, Role: model.RoleTeacher}
	teacherB := &model.User{ID: 4, TenantID: 1, Role: model.RoleTeacher}
	otherTenant := &model.User{ID: 5, TenantID: 2, Role: model.RoleTeacher}

	_, _, err := verifier.Verify(parentA, parentB)
	assert.ErrorIs(t, err, service.ErrInvalidRelationship)

	_, _, err = verifier.Verify(teacherA, teacherB)
	assert.ErrorIs(t, err, service.ErrInvalidRelationship)

	// 跨租户禁止
	_, _, err = verifier.Verify(parentA, otherTenant)
	assert.ErrorIs(t, err, service.ErrInvalidRelationship)
}
