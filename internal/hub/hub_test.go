package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/registry"
	"github.com/slumio/Bro-code/internal/repository"
	"github.com/slumio/Bro-code/internal/repository/mocks"
	"github.com/slumio/Bro-code/internal/service"
)

// testHub wires a Hub onto mocked repositories. handleClientAction is called
// directly, the way the Run loop calls it, so no sockets are involved.
type testHub struct {
	hub       *Hub
	roomRepo  *mocks.RoomRepository
	fileRepo  *mocks.FileRepository
	chatRepo  *mocks.ChatRepository
	userRepo  *mocks.UserRepository
	stateRepo *mocks.StateRepository
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	th := &testHub{
		roomRepo:  new(mocks.RoomRepository),
		fileRepo:  new(mocks.FileRepository),
		chatRepo:  new(mocks.ChatRepository),
		userRepo:  new(mocks.UserRepository),
		stateRepo: new(mocks.StateRepository),
	}
	reconciler := service.NewReconciler(th.fileRepo, nil)
	tree := service.NewTreeService(th.fileRepo, th.roomRepo, reconciler, nil)
	presence := service.NewPresenceService(registry.New(), th.userRepo, nil)
	room := service.NewRoomService(th.roomRepo, th.chatRepo, th.fileRepo, th.userRepo, th.stateRepo, nil)
	th.hub = NewHub(presence, room, tree, nil)
	return th
}

func (th *testHub) newClient(id string) *Client {
	return NewClient(th.hub, nil, id)
}

// joinClient drives a client through a successful join-request.
func (th *testHub) joinClient(t *testing.T, c *Client, username, roomID string) {
	t.Helper()
	th.roomRepo.On("FindByRoomID", mock.Anything, roomID).Return(&domain.Room{ID: 1, RoomID: roomID}, nil).Once()
	th.userRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	payload, _ := json.Marshal(dto.JoinRequest{RoomID: roomID, Username: username})
	th.dispatch(c, dto.EventJoinRequest, payload)
	require.True(t, c.joined, "client should be joined after accepted join-request")
}

func (th *testHub) dispatch(c *Client, event string, payload json.RawMessage) {
	raw, _ := json.Marshal(dto.Envelope{Event: event, Payload: payload})
	th.hub.handleClientAction(HubMessage{Type: MessageAction, Client: c, RawData: raw})
}

// drain empties a client's send channel and returns the decoded envelopes.
func drain(t *testing.T, c *Client) []dto.Envelope {
	t.Helper()
	var out []dto.Envelope
	for {
		select {
		case frame := <-c.send:
			var env dto.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventNames(envs []dto.Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Event)
	}
	return names
}

func TestHub_Join_AcceptedWithMemberList(t *testing.T) {
	th := newTestHub(t)
	c := th.newClient("conn-1")

	th.joinClient(t, c, "ada", "room-1")

	envs := drain(t, c)
	require.Len(t, envs, 1)
	assert.Equal(t, dto.EventJoinAccepted, envs[0].Event)

	var accepted dto.JoinAccepted
	require.NoError(t, json.Unmarshal(envs[0].Payload, &accepted))
	assert.Equal(t, "ada", accepted.User.Username)
	assert.Len(t, accepted.Users, 1)
}

func TestHub_Join_UsernameTakenStaysUnjoined(t *testing.T) {
	th := newTestHub(t)
	first := th.newClient("conn-1")
	th.joinClient(t, first, "ada", "room-1")
	drain(t, first)

	second := th.newClient("conn-2")
	th.roomRepo.On("FindByRoomID", mock.Anything, "room-1").Return(&domain.Room{ID: 1, RoomID: "room-1"}, nil).Once()
	payload, _ := json.Marshal(dto.JoinRequest{RoomID: "room-1", Username: "ada"})
	th.dispatch(second, dto.EventJoinRequest, payload)

	assert.False(t, second.joined)
	envs := drain(t, second)
	require.Len(t, envs, 1)
	assert.Equal(t, dto.EventUsernameExists, envs[0].Event)
	// The existing member must not be notified of the failed join.
	assert.Empty(t, drain(t, first))
}

// A join announcement reaches existing members but never echoes to the
// joining connection.
func TestHub_Join_AnnouncesToOthersOnly(t *testing.T) {
	th := newTestHub(t)
	first := th.newClient("conn-1")
	th.joinClient(t, first, "ada", "room-1")
	drain(t, first)

	second := th.newClient("conn-2")
	th.joinClient(t, second, "bob", "room-1")

	firstEvents := eventNames(drain(t, first))
	assert.Equal(t, []string{dto.EventUserJoined}, firstEvents)

	secondEvents := eventNames(drain(t, second))
	assert.Equal(t, []string{dto.EventJoinAccepted}, secondEvents)
}

func TestHub_EventsBeforeJoinAreIgnored(t *testing.T) {
	th := newTestHub(t)
	c := th.newClient("conn-1")

	payload, _ := json.Marshal(dto.FileCreated{NewFile: dto.NewNode{TransientID: "tmp-1", Name: "main.go"}})
	th.dispatch(c, dto.EventFileCreated, payload)

	assert.False(t, c.joined)
	assert.Empty(t, drain(t, c))
	th.fileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// A tree mutation from one member reaches the other members with both the
// specific event and the full structure refresh, and never echoes back.
func TestHub_FileCreated_BroadcastExcludesOrigin(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.fileRepo.On("FindByTransientID", mock.Anything, "room-1", "tmp-1").Return(nil, repository.ErrNotFound).Once()
	th.fileRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.FileNode).ID = 5
	}).Return(nil).Once()
	th.roomRepo.On("TouchActivity", mock.Anything, "room-1", mock.Anything).Return(nil).Once()
	th.fileRepo.On("ListByRoom", mock.Anything, "room-1").Return([]domain.FileNode{
		{ID: 5, TransientID: "tmp-1", Name: "main.go", Type: domain.NodeTypeFile},
	}, nil).Once()

	payload, _ := json.Marshal(dto.FileCreated{NewFile: dto.NewNode{TransientID: "tmp-1", Name: "main.go"}})
	th.dispatch(origin, dto.EventFileCreated, payload)

	assert.Empty(t, drain(t, origin), "mutation must not echo to the origin")

	otherEnvs := drain(t, other)
	require.Equal(t, []string{dto.EventFileCreated, dto.EventFileStructureUpdated}, eventNames(otherEnvs))

	var created dto.FileCreatedOut
	require.NoError(t, json.Unmarshal(otherEnvs[0].Payload, &created))
	assert.Equal(t, uint(5), created.NewFile.DurableID)
	assert.Equal(t, "tmp-1", created.NewFile.TransientID)

	var structure dto.FileStructure
	require.NoError(t, json.Unmarshal(otherEnvs[1].Payload, &structure))
	require.Len(t, structure.Files, 1)
	assert.Equal(t, uint(5), structure.Files[0].DurableID)
}

// Deleting a node that is already gone is a silent no-op for everyone.
func TestHub_FileDeleted_StaleReferenceIsSilent(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.fileRepo.On("FindByID", mock.Anything, "room-1", uint(99)).Return(nil, repository.ErrNotFound).Once()
	th.fileRepo.On("ListByRoom", mock.Anything, "room-1").Return([]domain.FileNode{}, nil).Once()

	payload, _ := json.Marshal(dto.FileDeleted{FileID: dto.DurableRef(99)})
	th.dispatch(origin, dto.EventFileDeleted, payload)

	assert.Empty(t, drain(t, origin))
	assert.Empty(t, drain(t, other))
}

func TestHub_ChatMessage_FanOut(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.chatRepo.On("Append", mock.Anything, mock.MatchedBy(func(m *domain.ChatMessage) bool {
		return m.Username == "ada" && m.Message == "hello"
	})).Return(nil).Once()
	th.roomRepo.On("TouchActivity", mock.Anything, "room-1", mock.Anything).Return(nil).Once()

	payload, _ := json.Marshal(dto.ChatEvent{Message: dto.ChatMessageDTO{Message: "hello"}})
	th.dispatch(origin, dto.EventSendMessage, payload)

	assert.Empty(t, drain(t, origin))
	envs := drain(t, other)
	require.Equal(t, []string{dto.EventReceiveMessage}, eventNames(envs))

	var chat dto.ChatEvent
	require.NoError(t, json.Unmarshal(envs[0].Payload, &chat))
	assert.Equal(t, "ada", chat.Message.Username)
	assert.Equal(t, "hello", chat.Message.Message)
}

// request-drawing answers only the requesting connection.
func TestHub_RequestDrawing_RepliesToOriginOnly(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.stateRepo.On("GetDrawingCache", mock.Anything, "room-1").Return(`{"v":2}`, nil).Once()

	th.dispatch(origin, dto.EventRequestDrawing, nil)

	envs := drain(t, origin)
	require.Equal(t, []string{dto.EventSyncDrawing}, eventNames(envs))
	var sync dto.SyncDrawing
	require.NoError(t, json.Unmarshal(envs[0].Payload, &sync))
	assert.JSONEq(t, `{"v":2}`, string(sync.DrawingData))

	assert.Empty(t, drain(t, other))
}

func TestHub_TypingStart_FanOut(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.userRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	payload, _ := json.Marshal(dto.TypingStart{CursorPosition: 17})
	th.dispatch(origin, dto.EventTypingStart, payload)

	envs := drain(t, other)
	require.Equal(t, []string{dto.EventTypingStart}, eventNames(envs))
	var typing dto.TypingEvent
	require.NoError(t, json.Unmarshal(envs[0].Payload, &typing))
	assert.Equal(t, "ada", typing.User.Username)
	assert.Equal(t, 17, typing.CursorPosition)
	assert.Empty(t, drain(t, origin))
}

// Disconnecting a joined client notifies the room with the user's final
// state before the presence entry disappears.
func TestHub_Unregister_BroadcastsDisconnect(t *testing.T) {
	th := newTestHub(t)
	origin := th.newClient("conn-1")
	other := th.newClient("conn-2")
	th.joinClient(t, origin, "ada", "room-1")
	th.joinClient(t, other, "bob", "room-1")
	drain(t, origin)
	drain(t, other)

	th.userRepo.On("SetStatus", mock.Anything, "conn-1", domain.StatusOffline).Return(nil).Once()

	th.hub.unregisterClient(origin)

	envs := drain(t, other)
	require.Equal(t, []string{dto.EventUserDisconnected}, eventNames(envs))
	var gone dto.UserEvent
	require.NoError(t, json.Unmarshal(envs[0].Payload, &gone))
	assert.Equal(t, "ada", gone.User.Username)

	// The send channel is closed so the write pump exits.
	_, open := <-origin.send
	assert.False(t, open)
}

func TestHub_MalformedEnvelopeIsDropped(t *testing.T) {
	th := newTestHub(t)
	c := th.newClient("conn-1")
	th.joinClient(t, c, "ada", "room-1")
	drain(t, c)

	th.hub.handleClientAction(HubMessage{Type: MessageAction, Client: c, RawData: []byte(`{not json`)})

	assert.Empty(t, drain(t, c))
}
