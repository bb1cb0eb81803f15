package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by Decode for an event name this client does
// not recognize. Callers log and drop the frame; forward-incompatible
// frames must never take the connection down.
var ErrUnknownEvent = errors.New("unknown event")

// Encode translates a domain message into its wire frame.
func Encode(msg OutboundMessage) ([]byte, error) {
	switch m := msg.(type) {
	case JoinRoom:
		return encodeEvent(EventJoinRoom, map[string]any{"room_id": m.RoomID})
	case LeaveRoom:
		return encodeEvent(EventLeaveRoom, map[string]any{"room_id": m.RoomID})
	case PlayerAction:
		fields := make(map[string]any, len(m.Data))
		for k, v := range m.Data {
			fields[k] = v
		}
		return encodeEvent(m.Action, fields)
	case ChatSend:
		return encodeEvent(EventChat, map[string]any{"message": m.Message})
	case Resync:
		fields := map[string]any{}
		if m.LastSeq != nil {
			fields["last_seq"] = *m.LastSeq
		}
		if m.LastTimestamp != nil {
			fields["last_timestamp"] = *m.LastTimestamp
		}
		return encodeEvent(EventResync, fields)
	case Ping:
		return encodeEvent(EventPing, nil)
	case UpdateScore:
		return encodeEvent(EventUpdateScore, map[string]any{
			"final_score":           m.FinalScore,
			"best_word":             m.BestWord,
			"best_word_score":       m.BestWordScore,
			"number_of_words_found": m.WordsFound,
			"which_words_found":     m.Words,
		})
	case StartGame:
		return encodeEvent(EventStartGame, nil)
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", msg)
	}
}

func encodeEvent(event string, fields map[string]any) ([]byte, error) {
	frame := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		frame[k] = v
	}
	frame["event_type"] = event
	return json.Marshal(frame)
}

// envelope carries only the dispatch keys of an inbound frame.
type envelope struct {
	EventType string `json:"event_type"`
	Type      string `json:"type"`
	Seq       int64  `json:"seq"`
}

// Decode translates a wire frame into a domain message. Frames keyed by
// event_type are the server's native encoding; frames keyed by type are
// passed through as already-normalized domain messages.
func Decode(data []byte) (InboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if env.EventType != "" {
		return decodeEvent(env, data)
	}
	if env.Type != "" {
		return decodeNormalized(env.Type, data)
	}
	return nil, fmt.Errorf("%w: frame has neither event_type nor type", ErrUnknownEvent)
}

func decodeEvent(env envelope, data []byte) (InboundMessage, error) {
	switch env.EventType {
	case EventPong:
		return Pong{}, nil

	case EventTimerUpdate:
		var frame struct {
			Timer        *int   `json:"timer"`
			InitialTimer *int   `json:"initial_timer"`
			Status       string `json:"status"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		delta := GameDelta{
			TimeRemaining: frame.Timer,
			InitialTimer:  frame.InitialTimer,
		}
		if frame.Status != "" {
			status := GameStatus(frame.Status)
			delta.GameStatus = &status
		}
		return DeltaUpdate{Seq: env.Seq, Delta: delta}, nil

	case EventBoardUpdate:
		// A single board_update fans out into every round-scoped field:
		// late joiners receive the whole round context in one frame.
		var frame struct {
			BoardLetters  Board          `json:"board_letters"`
			BoardWords    WordSet        `json:"board_words"`
			BoardSublists *WordsByLength `json:"board_sublists"`
			BoojumBonus   Board          `json:"boojum_bonus"`
			Snark         *string        `json:"snark"`
			Boojum        *string        `json:"boojum"`
			OneShot       *bool          `json:"one_shot"`
			GameRoundID   *string        `json:"game_round_id"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return DeltaUpdate{Seq: env.Seq, Delta: GameDelta{
			Board:         frame.BoardLetters,
			BoardWords:    frame.BoardWords,
			WordsByLength: frame.BoardSublists,
			BoojumBonus:   frame.BoojumBonus,
			Snark:         frame.Snark,
			Boojum:        frame.Boojum,
			OneShot:       frame.OneShot,
			GameRoundID:   frame.GameRoundID,
		}}, nil

	case EventGameOver:
		// Structurally this resembles a status push, but it is a round
		// transition, never an application error.
		status := StatusFinished
		return DeltaUpdate{Seq: env.Seq, Delta: GameDelta{GameStatus: &status}}, nil

	case EventFinalScores:
		var frame struct {
			FinalScores   map[string]FinalScore `json:"final_scores"`
			WordsByLength *WordsByLength        `json:"words_by_length"`
			TotalPoints   *int                  `json:"total_points"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return FinalScores{
			Seq:           env.Seq,
			FinalScores:   frame.FinalScores,
			TotalPoints:   frame.TotalPoints,
			WordsByLength: frame.WordsByLength,
		}, nil

	case EventScoreInChat:
		var frame struct {
			PlayerName string `json:"player_name"`
			Score      int    `json:"score"`
			Timestamp  int64  `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return ScoreInChat{PlayerName: frame.PlayerName, Score: frame.Score, Timestamp: frame.Timestamp}, nil

	case EventChat:
		var msg ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return msg, nil

	case EventError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return msg, nil

	case EventStateSnapshot:
		var msg StateSnapshot
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		msg.Seq = env.Seq
		return msg, nil

	case EventScoreUpdate:
		var msg ScoreUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return msg, nil

	case EventShowBackButton:
		return ShowBackButton{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.EventType)
	}
}

func decodeNormalized(typ string, data []byte) (InboundMessage, error) {
	switch typ {
	case TypeStateSnapshot:
		var msg StateSnapshot
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeDeltaUpdate:
		var msg DeltaUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeScoreUpdate:
		var msg ScoreUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeChat:
		var msg ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeScoreInChat:
		var msg ScoreInChat
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypePong:
		return Pong{}, nil
	case TypeFinalScores:
		var msg FinalScores
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return msg, nil
	case TypeShowBackButton:
		return ShowBackButton{}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownEvent, typ)
	}
}
