package protocol

import (
	"encoding/json"
	"sort"
)

// GameStatus is the lifecycle phase of a round within a room.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
)

// Player is one seat in a room. IDs are unique per connection.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Board is the grid of letters for a round (4x4 for the standard game).
type Board [][]string

// WordSet is the set of valid words for a round. The wire carries it as a
// flat array; in memory it is a membership map.
type WordSet map[string]bool

func (ws WordSet) MarshalJSON() ([]byte, error) {
	words := make([]string, 0, len(ws))
	for w := range ws {
		words = append(words, w)
	}
	sort.Strings(words)
	return json.Marshal(words)
}

func (ws *WordSet) UnmarshalJSON(data []byte) error {
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}
	set := make(WordSet, len(words))
	for _, w := range words {
		set[w] = true
	}
	*ws = set
	return nil
}

// FinalScore is one player's end-of-round result.
type FinalScore struct {
	Score         int      `json:"final_score"`
	BestWord      string   `json:"best_word,omitempty"`
	BestWordScore int      `json:"best_word_score,omitempty"`
	WordsFound    int      `json:"number_of_words_found,omitempty"`
	Words         []string `json:"which_words_found,omitempty"`
}

// GameState is the canonical state for a room. It is owned by the
// reconciler; consumers only ever see copies.
type GameState struct {
	RoomID          string                `json:"room_id,omitempty"`
	Players         []Player              `json:"players,omitempty"`
	CurrentPlayerID string                `json:"current_player_id,omitempty"`
	GameStatus      GameStatus            `json:"game_status,omitempty"`
	GameRoundID     string                `json:"game_round_id,omitempty"`
	CurrentRound    int                   `json:"current_round,omitempty"`
	TimeRemaining   *int                  `json:"time_remaining,omitempty"`
	InitialTimer    *int                  `json:"initial_timer,omitempty"`
	Board           Board                 `json:"board,omitempty"`
	BoardWords      WordSet               `json:"board_words,omitempty"`
	FinalScores     map[string]FinalScore `json:"final_scores,omitempty"`
	TotalPoints     *int                  `json:"total_points,omitempty"`
	WordsByLength   *WordsByLength        `json:"words_by_length,omitempty"`
	Boojum          string                `json:"boojum,omitempty"`
	Snark           string                `json:"snark,omitempty"`
	BoojumBonus     Board                 `json:"boojum_bonus,omitempty"`
	OneShot         bool                  `json:"one_shot,omitempty"`
}

// GameDelta is a partial GameState. A nil pointer or nil map/slice means
// the field was absent from the update, which the reconciler reads as
// "unchanged", not "cleared".
type GameDelta struct {
	RoomID          *string               `json:"room_id,omitempty"`
	Players         []Player              `json:"players,omitempty"`
	CurrentPlayerID *string               `json:"current_player_id,omitempty"`
	GameStatus      *GameStatus           `json:"game_status,omitempty"`
	GameRoundID     *string               `json:"game_round_id,omitempty"`
	CurrentRound    *int                  `json:"current_round,omitempty"`
	TimeRemaining   *int                  `json:"time_remaining,omitempty"`
	InitialTimer    *int                  `json:"initial_timer,omitempty"`
	Board           Board                 `json:"board,omitempty"`
	BoardWords      WordSet               `json:"board_words,omitempty"`
	FinalScores     map[string]FinalScore `json:"final_scores,omitempty"`
	TotalPoints     *int                  `json:"total_points,omitempty"`
	WordsByLength   *WordsByLength        `json:"words_by_length,omitempty"`
	Boojum          *string               `json:"boojum,omitempty"`
	Snark           *string               `json:"snark,omitempty"`
	BoojumBonus     Board                 `json:"boojum_bonus,omitempty"`
	OneShot         *bool                 `json:"one_shot,omitempty"`
}
