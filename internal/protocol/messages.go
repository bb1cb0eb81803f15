package protocol

// Client -> server event names. Each outbound message serializes to a JSON
// object whose event_type field names the event, with the payload flattened
// beside it. PlayerAction is the exception: its action name is the event
// type itself.
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventChat        = "chat"
	EventResync      = "resync"
	EventPing        = "ping"
	EventUpdateScore = "update_score"
	EventStartGame   = "start_game"
)

// Server -> client event names.
const (
	EventPong           = "pong"
	EventTimerUpdate    = "timer_update"
	EventBoardUpdate    = "board_update"
	EventFinalScores    = "final_scores"
	EventScoreInChat    = "show_score_in_chat"
	EventGameOver       = "game_over"
	EventError          = "error"
	EventStateSnapshot  = "state_snapshot"
	EventScoreUpdate    = "score_update"
	EventShowBackButton = "show_back_button"
)

// Normalized frame type names. Some server paths emit frames already shaped
// like the domain messages below, keyed by a type field instead of
// event_type; the codec accepts both encodings.
const (
	TypeStateSnapshot  = "state_snapshot"
	TypeDeltaUpdate    = "delta_update"
	TypeScoreUpdate    = "score_update"
	TypeChat           = "chat"
	TypeScoreInChat    = "score_in_chat"
	TypeError          = "error"
	TypePong           = "pong"
	TypeFinalScores    = "final_scores"
	TypeShowBackButton = "show_back_button"
)

// OutboundMessage is a client -> server message.
type OutboundMessage interface{ isOutbound() }

type JoinRoom struct {
	RoomID string `json:"room_id"`
}

type LeaveRoom struct {
	RoomID string `json:"room_id"`
}

// PlayerAction is a free-form in-game action. Action becomes the wire event
// type and Data is spread at the top level of the frame.
type PlayerAction struct {
	Action string
	Data   map[string]any
}

type ChatSend struct {
	Message string `json:"message"`
}

// Resync asks the server to resend updates since the last seen sequence
// number, or since a wall-clock timestamp when no update has been seen yet.
type Resync struct {
	LastSeq       *int64 `json:"last_seq,omitempty"`
	LastTimestamp *int64 `json:"last_timestamp,omitempty"`
}

type Ping struct{}

type UpdateScore struct {
	FinalScore    int      `json:"final_score"`
	BestWord      string   `json:"best_word"`
	BestWordScore int      `json:"best_word_score"`
	WordsFound    int      `json:"number_of_words_found"`
	Words         []string `json:"which_words_found"`
}

type StartGame struct{}

func (JoinRoom) isOutbound()     {}
func (LeaveRoom) isOutbound()    {}
func (PlayerAction) isOutbound() {}
func (ChatSend) isOutbound()     {}
func (Resync) isOutbound()       {}
func (Ping) isOutbound()         {}
func (UpdateScore) isOutbound()  {}
func (StartGame) isOutbound()    {}

// InboundMessage is a server -> client message.
type InboundMessage interface{ isInbound() }

type StateSnapshot struct {
	Seq   int64     `json:"seq"`
	State GameState `json:"state"`
}

type DeltaUpdate struct {
	Seq   int64     `json:"seq"`
	Delta GameDelta `json:"delta"`
}

type ScoreUpdate struct {
	Seq    int64          `json:"seq"`
	Scores map[string]int `json:"scores"`
}

type ChatMessage struct {
	Seq       int64  `json:"seq"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type ScoreInChat struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Timestamp  int64  `json:"timestamp"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Pong struct{}

type FinalScores struct {
	Seq           int64                 `json:"seq"`
	FinalScores   map[string]FinalScore `json:"final_scores"`
	TotalPoints   *int                  `json:"total_points,omitempty"`
	WordsByLength *WordsByLength        `json:"words_by_length,omitempty"`
}

type ShowBackButton struct{}

func (StateSnapshot) isInbound()  {}
func (DeltaUpdate) isInbound()    {}
func (ScoreUpdate) isInbound()    {}
func (ChatMessage) isInbound()    {}
func (ScoreInChat) isInbound()    {}
func (ErrorMessage) isInbound()   {}
func (Pong) isInbound()           {}
func (FinalScores) isInbound()    {}
func (ShowBackButton) isInbound() {}
