package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/metrics"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository/mocks"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
)

type coordinatorFixture struct {
	tx    *mocks.Transactor
	rooms *mocks.RoomRepository
	parts *mocks.ParticipationRepository
	users *mocks.UserRepository
	pub   *mocks.Publisher
	retry *mocks.PublishRetryQueue
}

func newCoordinatorFixture(opts ...service.CoordinatorOption) (*service.RoomStateCoordinator, *coordinatorFixture) {
	f := &coordinatorFixture{
		tx:    new(mocks.Transactor),
		rooms: new(mocks.RoomRepository),
		parts: new(mocks.ParticipationRepository),
		users: new(mocks.UserRepository),
		pub:   new(mocks.Publisher),
		retry: new(mocks.PublishRetryQueue),
	}
	f.tx.Repos = repository.TxRepositories{Rooms: f.rooms, Participations: f.parts}
	opts = append([]service.CoordinatorOption{service.WithPublishRetry(f.retry)}, opts...)
	svc := service.NewRoomStateCoordinator(f.tx, f.rooms, f.parts, f.users, f.pub, metrics.NewNop(), opts...)
	return svc, f
}

func (f *coordinatorFixture) assertAll(t *testing.T) {
	f.tx.AssertExpectations(t)
	f.rooms.AssertExpectations(t)
	f.parts.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.pub.AssertExpectations(t)
	f.retry.AssertExpectations(t)
}

func activeRoom(id uint, capacity, count int) *domain.Room {
	return &domain.Room{
		ID:               id,
		Name:             "study",
		Capacity:         capacity,
		ParticipantCount: count,
		Active:           true,
		StartedAt:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Duration:         2 * time.Hour,
		MicAvailability:  true,
	}
}

// --- Enter ---

func TestRoomStateCoordinator_Enter_Success(t *testing.T) {
	svc, f := newCoordinatorFixture()
	ctx := context.Background()
	room := activeRoom(1, 2, 1)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).Return(nil, repository.ErrParticipationNotFound).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.RoomID == 1 && p.UserID == 7 && p.IsParticipating && !p.IsAdmin
	})).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.ParticipantCount == 2
	})).Return(nil).Once()
	f.users.On("FindByID", mock.Anything, uint(7)).Return(&domain.User{ID: 7, Username: "bob"}, nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.UserEnterUpdate{
		Type: dto.TypeUserEnterUpdated, UserID: 7, Username: "bob", Count: 2,
	}).Return(nil).Once()

	res, err := svc.Enter(ctx, 1, 7)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.IsAdmin)
	assert.False(t, res.AlreadyParticipating)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_RoomFull(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 2, 2)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(9)).Return(nil, repository.ErrParticipationNotFound).Once()

	res, err := svc.Enter(context.Background(), 1, 9)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, service.ErrRoomFull))
	assert.Equal(t, 2, room.ParticipantCount, "count must not change")
	f.rooms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_Inactive(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 0)
	room.Active = false

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()

	_, err := svc.Enter(context.Background(), 1, 7)

	assert.True(t, errors.Is(err, service.ErrRoomInactive))
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_RoomNotFound(t *testing.T) {
	svc, f := newCoordinatorFixture()

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(42)).Return(nil, repository.ErrRoomNotFound).Once()

	_, err := svc.Enter(context.Background(), 42, 7)

	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_AlreadyParticipatingIsNoop(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 2, 1)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true}, nil).Once()

	res, err := svc.Enter(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.True(t, res.AlreadyParticipating)
	assert.True(t, res.IsAdmin)
	assert.Equal(t, 1, res.Count)
	f.parts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_RejoinKeepsAdminFlag(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 3, 1)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{ID: 3, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: false}, nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.ID == 3 && p.IsAdmin && p.IsParticipating
	})).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.users.On("FindByID", mock.Anything, uint(7)).Return(&domain.User{ID: 7, Username: "alice"}, nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", mock.AnythingOfType("dto.UserEnterUpdate")).Return(nil).Once()

	res, err := svc.Enter(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.True(t, res.IsAdmin)
	assert.Equal(t, 2, res.Count)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_PersistenceFailure(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 3, 1)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).Return(nil, repository.ErrParticipationNotFound).Once()
	f.parts.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	_, err := svc.Enter(context.Background(), 1, 7)

	assert.True(t, errors.Is(err, service.ErrInternalServer))
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Enter_PublishFailureIsQueuedForRetry(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 3, 0)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).Return(nil, repository.ErrParticipationNotFound).Once()
	f.parts.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.users.On("FindByID", mock.Anything, uint(7)).Return(nil, repository.ErrUserNotFound).Once()
	payload := dto.UserEnterUpdate{Type: dto.TypeUserEnterUpdated, UserID: 7, Count: 1}
	f.pub.On("Publish", mock.Anything, "room/1/data", payload).Return(errors.New("redis down")).Once()
	f.retry.On("EnqueueRosterPublish", mock.Anything, "room/1/data", payload).Return(nil).Once()

	res, err := svc.Enter(context.Background(), 1, 7)

	require.NoError(t, err, "a failed publish must not fail a committed enter")
	assert.Equal(t, 1, res.Count)
	f.assertAll(t)
}

// --- Exit ---

func TestRoomStateCoordinator_Exit_LastParticipantEndsRoom(t *testing.T) {
	room := activeRoom(1, 2, 1)
	now := room.StartedAt.Add(45 * time.Minute)
	svc, f := newCoordinatorFixture(service.WithClock(func() time.Time { return now }))

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true}, nil).Once()
	f.parts.On("EndAllByRoom", mock.Anything, uint(1)).Return(int64(1), nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return !r.Active && r.ParticipantCount == 0 && r.EndedAt != nil
	})).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.UserExitUpdate{Type: dto.TypeUserExitUpdated, UserID: 7, Count: 0}).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.RoomEnded{Type: dto.TypeRoomEnded, DurationSeconds: 2700}).Return(nil).Once()

	res, err := svc.Exit(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 45*time.Minute, res.FinalDuration)
	assert.Zero(t, res.NewAdminID, "no one is left to delegate to")
	f.parts.AssertNotCalled(t, "FindAllActiveByRoom", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_AdminDelegatesToRandomMember(t *testing.T) {
	var pickedFrom int
	svc, f := newCoordinatorFixture(service.WithPicker(func(n int) int {
		pickedFrom = n
		return 1
	}))
	room := activeRoom(1, 4, 3)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true}, nil).Once()
	f.parts.On("FindAllActiveByRoom", mock.Anything, uint(1)).Return([]domain.Participation{
		{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true},
		{ID: 2, RoomID: 1, UserID: 8, IsParticipating: true},
		{ID: 3, RoomID: 1, UserID: 9, IsParticipating: true},
	}, nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.UserID == 9 && p.IsAdmin && p.IsParticipating
	})).Return(nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.UserID == 7 && !p.IsAdmin && !p.IsParticipating
	})).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.Active && r.ParticipantCount == 2
	})).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.UserExitUpdate{Type: dto.TypeUserExitUpdated, UserID: 7, Count: 2}).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.AdminUpdate{Type: dto.TypeAdminUpdated, PreviousAdminID: 7, NewAdminID: 9}).Return(nil).Once()

	res, err := svc.Exit(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Equal(t, 2, pickedFrom, "the exiting admin is not a candidate")
	assert.Equal(t, uint(9), res.NewAdminID)
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.Ended)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_NonAdminOnlyDecrements(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 2)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(8)).
		Return(&domain.Participation{RoomID: 1, UserID: 8, IsParticipating: true}, nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.UserID == 8 && !p.IsParticipating
	})).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.UserExitUpdate{Type: dto.TypeUserExitUpdated, UserID: 8, Count: 1}).Return(nil).Once()

	res, err := svc.Exit(context.Background(), 1, 8)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Zero(t, res.NewAdminID)
	f.parts.AssertNotCalled(t, "FindAllActiveByRoom", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_NotParticipant(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 2)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Twice()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Twice()
	f.parts.On("Find", mock.Anything, uint(1), uint(5)).Return(nil, repository.ErrParticipationNotFound).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(6)).
		Return(&domain.Participation{RoomID: 1, UserID: 6, IsParticipating: false}, nil).Once()

	_, err := svc.Exit(context.Background(), 1, 5)
	assert.True(t, errors.Is(err, service.ErrNotParticipant))

	_, err = svc.Exit(context.Background(), 1, 6)
	assert.True(t, errors.Is(err, service.ErrNotParticipant))

	f.rooms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_TransactionFailure(t *testing.T) {
	svc, f := newCoordinatorFixture()

	f.tx.On("WithinTransaction", mock.Anything).Return(errors.New("deadlock found")).Once()

	_, err := svc.Exit(context.Background(), 1, 7)

	assert.True(t, errors.Is(err, service.ErrInternalServer))
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_SuccessorSaveFailureRollsBack(t *testing.T) {
	svc, f := newCoordinatorFixture(service.WithPicker(func(int) int { return 0 }))
	room := activeRoom(1, 4, 2)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true}, nil).Once()
	f.parts.On("FindAllActiveByRoom", mock.Anything, uint(1)).Return([]domain.Participation{
		{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true},
		{ID: 2, RoomID: 1, UserID: 8, IsParticipating: true},
	}, nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.UserID == 8 && p.IsAdmin
	})).Return(errors.New("lock wait timeout")).Once()

	res, err := svc.Exit(context.Background(), 1, 7)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, service.ErrInternalServer))
	f.parts.AssertNumberOfCalls(t, "Save", 1)
	f.rooms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.retry.AssertNotCalled(t, "EnqueueRosterPublish", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRoomStateCoordinator_Exit_AdminWithoutSuccessorDropsRole(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 3)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true}, nil).Once()
	f.parts.On("FindAllActiveByRoom", mock.Anything, uint(1)).Return([]domain.Participation{
		{ID: 1, RoomID: 1, UserID: 7, IsAdmin: true, IsParticipating: true},
	}, nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.UserID == 7 && !p.IsAdmin && !p.IsParticipating
	})).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.Active && r.ParticipantCount == 2
	})).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.UserExitUpdate{Type: dto.TypeUserExitUpdated, UserID: 7, Count: 2}).Return(nil).Once()

	res, err := svc.Exit(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Zero(t, res.NewAdminID)
	assert.Equal(t, 2, res.Count)
	f.assertAll(t)
}

// --- CreateRoom / GetRoom ---

func TestRoomStateCoordinator_CreateRoom_Success(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, f := newCoordinatorFixture(service.WithClock(func() time.Time { return now }))
	mic := false

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.ID == 0 && r.Active && r.ParticipantCount == 1 && r.Capacity == 4
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 11
	}).Return(nil).Once()
	f.parts.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participation) bool {
		return p.RoomID == 11 && p.UserID == 7 && p.IsAdmin && p.IsParticipating
	})).Return(nil).Once()

	room, err := svc.CreateRoom(context.Background(), 7, service.CreateRoomInput{
		Name:            "  algorithms  ",
		Capacity:        4,
		Duration:        "01:30",
		MicAvailability: &mic,
	})

	require.NoError(t, err)
	assert.Equal(t, uint(11), room.ID)
	assert.Equal(t, "algorithms", room.Name)
	assert.Equal(t, 90*time.Minute, room.Duration)
	assert.Equal(t, now, room.StartedAt)
	assert.False(t, room.MicAvailability)
	assert.Equal(t, domain.DefaultNotice, room.Notice)
	f.assertAll(t)
}

func TestRoomStateCoordinator_CreateRoom_InvalidInput(t *testing.T) {
	svc, f := newCoordinatorFixture()
	cases := []service.CreateRoomInput{
		{Name: "", Capacity: 2, Duration: "01:00"},
		{Name: "r", Capacity: 0, Duration: "01:00"},
		{Name: "r", Capacity: service.MaxRoomCapacity + 1, Duration: "01:00"},
		{Name: "r", Capacity: 2, Duration: "90m"},
		{Name: "r", Capacity: 2, Duration: "00:00"},
	}
	for _, in := range cases {
		_, err := svc.CreateRoom(context.Background(), 7, in)
		assert.True(t, errors.Is(err, service.ErrInvalidInput), "input %+v", in)
	}
	f.tx.AssertNotCalled(t, "WithinTransaction", mock.Anything)
}

func TestRoomStateCoordinator_GetRoom(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 2)
	members := []domain.Participation{{UserID: 7, IsAdmin: true, IsParticipating: true}, {UserID: 8, IsParticipating: true}}

	f.rooms.On("FindByID", mock.Anything, uint(1)).Return(room, nil).Once()
	f.parts.On("FindAllActiveByRoom", mock.Anything, uint(1)).Return(members, nil).Once()
	f.rooms.On("FindByID", mock.Anything, uint(2)).Return(nil, repository.ErrRoomNotFound).Once()

	detail, err := svc.GetRoom(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, room, detail.Room)
	assert.Len(t, detail.Members, 2)

	_, err = svc.GetRoom(context.Background(), 2)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
	f.assertAll(t)
}

// --- UpdateNotice / UpdateStatus ---

func TestRoomStateCoordinator_UpdateNotice(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 2)

	f.tx.On("WithinTransaction", mock.Anything).Return(nil).Twice()
	f.rooms.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(room, nil).Twice()
	f.parts.On("IsAdmin", mock.Anything, uint(1), uint(7)).Return(true, nil).Once()
	f.parts.On("IsAdmin", mock.Anything, uint(1), uint(8)).Return(false, nil).Once()
	f.rooms.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.Notice == "quiet please"
	})).Return(nil).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.NoticeUpdate{Type: dto.TypeNoticeUpdated, Notice: "quiet please"}).Return(nil).Once()

	require.NoError(t, svc.UpdateNotice(context.Background(), 1, 7, " quiet please "))

	err := svc.UpdateNotice(context.Background(), 1, 8, "mine now")
	assert.True(t, errors.Is(err, service.ErrNotAdmin))

	err = svc.UpdateNotice(context.Background(), 1, 7, "   ")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
	f.assertAll(t)
}

func TestRoomStateCoordinator_UpdateStatus(t *testing.T) {
	svc, f := newCoordinatorFixture()
	room := activeRoom(1, 4, 2)
	room.MicAvailability = false
	on, off := true, false

	f.rooms.On("FindByID", mock.Anything, uint(1)).Return(room, nil).Times(3)
	f.parts.On("Find", mock.Anything, uint(1), uint(7)).
		Return(&domain.Participation{RoomID: 1, UserID: 7, IsParticipating: true}, nil).Once()
	f.parts.On("Find", mock.Anything, uint(1), uint(9)).Return(nil, repository.ErrParticipationNotFound).Once()
	f.pub.On("Publish", mock.Anything, "room/1/data", dto.StatusUpdate{
		Type: dto.TypeStatusUpdated, UserID: 7, CamStatus: &on, MicStatus: &off,
	}).Return(nil).Once()

	require.NoError(t, svc.UpdateStatus(context.Background(), 1, 7, domain.Status{Cam: &on, Mic: &off}))

	err := svc.UpdateStatus(context.Background(), 1, 9, domain.Status{Work: &on})
	assert.True(t, errors.Is(err, service.ErrNotParticipant))

	err = svc.UpdateStatus(context.Background(), 1, 7, domain.Status{Mic: &on})
	assert.True(t, errors.Is(err, service.ErrInvalidInput), "mic cannot be turned on when the room disables it")

	err = svc.UpdateStatus(context.Background(), 1, 7, domain.Status{})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
	f.assertAll(t)
}
