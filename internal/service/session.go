package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/google/uuid"
)

type State int

const (
	StateConnecting State = iota
	StateAwaitingName
	StateLobby
	StateMakeRoom      // waiting for a new room name
	StateConfirmCreate // no rooms to join, offered to create one
	StateJoinRoom      // waiting for a room name to join
	StateInRoom
	StateConfirmExit // asked whether to join another room
	StateChooseNext  // asked for /join or /make
	StateClosed
)

var stateNames = [...]string{
	StateConnecting:    "connecting",
	StateAwaitingName:  "awaiting_name",
	StateLobby:         "lobby",
	StateMakeRoom:      "make_room",
	StateConfirmCreate: "confirm_create",
	StateJoinRoom:      "join_room",
	StateInRoom:        "in_room",
	StateConfirmExit:   "confirm_exit",
	StateChooseNext:    "choose_next",
	StateClosed:        "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

const (
	cmdMake = "/make"
	cmdJoin = "/join"
	cmdExit = "/exit"
)

// Wire prompts.
const (
	msgEnterName     = "Enter your name"
	msgEnterRoomName = "Enter the room name"
	msgRoomExists    = "This room already exists"
	msgNoRooms       = "No rooms available. Do you want to create a room? (yes/no)"
	msgRoomNotFound  = "Room not found"
	msgWrongCommand  = "Wrong command"
	msgConnLost      = "Connection lost"
	msgRejoin        = "Do you want to join another room? (yes/no)"
	msgJoinOrMake    = "Do you want to join an existing room or create a new one? (/join--/make)"
	msgInvalidChoice = "Invalid choice. You will remain in your current room."
	msgJoinedRoom    = "Joined the room"
)

type RoomStore interface {
	Create(name string) error
	Join(name string, c *domain.Client) error
	Leave(name string, c *domain.Client) error
	Names() []string
	IsMember(name string, c *domain.Client) bool
}

type Announcer interface {
	Broadcast(ctx context.Context, room, from, text string, at time.Time) BroadcastResult
}

// Session is the protocol state of one connection. It is driven by a single
// goroutine; only RoomStore and Announcer are shared.
type Session struct {
	id    uuid.UUID
	out   domain.LineWriter
	rooms RoomStore
	bc    Announcer
	log   *slog.Logger
	now   func() time.Time

	state  State
	client *domain.Client
	room   string
}

func NewSession(id uuid.UUID, out domain.LineWriter, rooms RoomStore, bc Announcer, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:    id,
		out:   out,
		rooms: rooms,
		bc:    bc,
		log:   log,
		now:   time.Now,
		state: StateConnecting,
	}
}

func (s *Session) State() State           { return s.state }
func (s *Session) Room() string           { return s.room }
func (s *Session) Client() *domain.Client { return s.client }

// Start greets the connection and waits for a display name.
func (s *Session) Start(ctx context.Context) error {
	s.state = StateAwaitingName
	return s.reply(ctx, msgEnterName)
}

// Handle feeds one input line to the state machine. Input is trimmed and
// otherwise taken as is: a blank line is an empty name, an unknown lobby
// command or an empty chat message. A non-nil error means the reply could
// not be written and the connection should be dropped.
func (s *Session) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)

	switch s.state {
	case StateAwaitingName:
		return s.onName(ctx, line)
	case StateLobby:
		return s.onLobby(ctx, line)
	case StateMakeRoom:
		return s.onMakeRoom(ctx, line)
	case StateConfirmCreate:
		return s.onConfirmCreate(ctx, line)
	case StateJoinRoom:
		return s.onJoinRoom(ctx, line)
	case StateInRoom:
		return s.onInRoom(ctx, line)
	case StateConfirmExit:
		return s.onConfirmExit(ctx, line)
	case StateChooseNext:
		return s.onChooseNext(ctx, line)
	case StateClosed:
		return nil
	default:
		return fmt.Errorf("session %s: unexpected state %s", s.id, s.state)
	}
}

// Close releases room membership and moves to Closed. Safe to call more
// than once; the connection handler calls it on every exit path.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.leaveRoom()
	s.state = StateClosed
}

func (s *Session) onName(ctx context.Context, name string) error {
	s.client = domain.NewClient(s.id, name, s.out)
	s.log = s.log.With(slog.String("client", name))
	s.log.Info("joined the server")

	s.state = StateLobby
	return s.reply(ctx, fmt.Sprintf("Your name: %s\nwrite a %s command to create a room\nwrite a %s to enter a room", name, cmdMake, cmdJoin))
}

func (s *Session) onLobby(ctx context.Context, cmd string) error {
	s.log.Info("lobby command", slog.String("cmd", cmd))

	switch cmd {
	case cmdMake:
		return s.promptMake(ctx)
	case cmdJoin:
		return s.promptJoin(ctx, "Enter the room you want to join:")
	case cmdExit:
		return s.disconnect(ctx)
	default:
		return s.reply(ctx, msgWrongCommand)
	}
}

func (s *Session) onMakeRoom(ctx context.Context, name string) error {
	if err := s.rooms.Create(name); err != nil {
		if errors.Is(err, domain.ErrRoomExists) {
			return s.reply(ctx, msgRoomExists)
		}
		return fmt.Errorf("create room %q: %w", name, err)
	}
	s.log.Info("created the room", slog.String("room", name))

	if err := s.rooms.Join(name, s.client); err != nil && !errors.Is(err, domain.ErrAlreadyMember) {
		return fmt.Errorf("join created room %q: %w", name, err)
	}
	s.enterRoom(name)
	return s.reply(ctx, fmt.Sprintf("You created and joined the room %s. Type '%s' to leave.", name, cmdExit))
}

func (s *Session) onConfirmCreate(ctx context.Context, answer string) error {
	if strings.EqualFold(answer, "yes") {
		return s.promptMake(ctx)
	}
	return s.disconnect(ctx)
}

func (s *Session) onJoinRoom(ctx context.Context, name string) error {
	if name == cmdMake {
		return s.promptMake(ctx)
	}

	err := s.rooms.Join(name, s.client)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		if err := s.reply(ctx, msgRoomNotFound); err != nil {
			return err
		}
		return s.promptJoin(ctx, fmt.Sprintf("Enter the room you want to join or type '%s' to create a new room:", cmdMake))
	case errors.Is(err, domain.ErrAlreadyMember):
		s.enterRoom(name)
		return s.reply(ctx, fmt.Sprintf("You're already in the room %s.", name))
	case err != nil:
		return fmt.Errorf("join room %q: %w", name, err)
	}

	s.enterRoom(name)
	s.roomLog().Info("joined the room")
	if err := s.reply(ctx, fmt.Sprintf("You joined the room %s. Type '%s' to leave.", name, cmdExit)); err != nil {
		return err
	}
	s.bc.Broadcast(ctx, name, s.client.Name(), msgJoinedRoom, s.now())
	return nil
}

func (s *Session) onInRoom(ctx context.Context, line string) error {
	s.roomLog().Info("sent", slog.String("text", line))

	if !s.rooms.IsMember(s.room, s.client) {
		// evicted by a failed delivery
		name := s.room
		s.room = ""
		s.state = StateLobby
		return s.reply(ctx, fmt.Sprintf("You were removed from the room %s. Use %s or %s to continue.", name, cmdJoin, cmdMake))
	}

	if line == cmdExit {
		s.state = StateConfirmExit
		return s.reply(ctx, msgRejoin)
	}

	s.bc.Broadcast(ctx, s.room, s.client.Name(), line, s.now())
	return nil
}

func (s *Session) onConfirmExit(ctx context.Context, answer string) error {
	if strings.EqualFold(answer, "yes") {
		s.state = StateChooseNext
		return s.reply(ctx, msgJoinOrMake)
	}
	return s.disconnect(ctx)
}

func (s *Session) onChooseNext(ctx context.Context, choice string) error {
	switch strings.ToLower(choice) {
	case cmdJoin:
		s.leaveRoom()
		return s.promptJoin(ctx, "Enter the room you want to join:")
	case cmdMake:
		s.leaveRoom()
		return s.promptMake(ctx)
	default:
		s.state = StateInRoom
		return s.reply(ctx, msgInvalidChoice)
	}
}

func (s *Session) promptMake(ctx context.Context) error {
	s.state = StateMakeRoom
	return s.reply(ctx, msgEnterRoomName)
}

func (s *Session) promptJoin(ctx context.Context, header string) error {
	names := s.rooms.Names()
	if len(names) == 0 {
		s.state = StateConfirmCreate
		return s.reply(ctx, msgNoRooms)
	}
	s.state = StateJoinRoom
	return s.reply(ctx, header+"\n"+strings.Join(names, "\n"))
}

func (s *Session) disconnect(ctx context.Context) error {
	err := s.reply(ctx, msgConnLost)
	s.Close()
	return err
}

func (s *Session) enterRoom(name string) {
	s.room = name
	s.state = StateInRoom
}

func (s *Session) leaveRoom() {
	if s.room == "" || s.client == nil {
		return
	}
	log := s.roomLog()
	if err := s.rooms.Leave(s.room, s.client); err != nil {
		log.Warn("leave room failed", slog.Any("err", err))
	}
	log.Info("left the room")
	s.room = ""
}

func (s *Session) roomLog() *slog.Logger {
	return s.log.With(slog.String("room", s.room))
}

func (s *Session) reply(ctx context.Context, text string) error {
	return s.out.WriteLine(ctx, domain.ServerMessage(text))
}
