package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// WordsFormat discriminates the two shapes words_by_length takes on the
// wire: a plain word list per length while a round is running, and a
// word -> detail map once the round has ended.
type WordsFormat string

const (
	WordsFormatSimple WordsFormat = "simple"
	WordsFormatFinal  WordsFormat = "final"
)

// WordData is the per-word detail attached once a round ends.
type WordData struct {
	Score      int    `json:"score"`
	Definition string `json:"definition,omitempty"`
}

// WordsByLength holds the round's words grouped by word length. Exactly one
// of Simple or Final is populated, matching Format. Older server builds do
// not send the format key, so decoding falls back to sniffing the value
// shape; the discriminant is authoritative when present.
type WordsByLength struct {
	Format WordsFormat
	Simple map[int][]string
	Final  map[int]map[string]WordData
}

// IsFinal reports whether the payload carries per-word detail.
func (w *WordsByLength) IsFinal() bool {
	return w != nil && w.Format == WordsFormatFinal
}

func (w WordsByLength) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage)
	out["format"] = json.RawMessage(strconv.Quote(string(w.Format)))
	switch w.Format {
	case WordsFormatFinal:
		for length, words := range w.Final {
			raw, err := json.Marshal(words)
			if err != nil {
				return nil, err
			}
			out[strconv.Itoa(length)] = raw
		}
	default:
		for length, words := range w.Simple {
			raw, err := json.Marshal(words)
			if err != nil {
				return nil, err
			}
			out[strconv.Itoa(length)] = raw
		}
	}
	return json.Marshal(out)
}

func (w *WordsByLength) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	format := WordsFormat("")
	if f, ok := raw["format"]; ok {
		var s string
		if err := json.Unmarshal(f, &s); err != nil {
			return fmt.Errorf("words_by_length format: %w", err)
		}
		format = WordsFormat(s)
		delete(raw, "format")
	}
	if format == "" {
		format = sniffWordsFormat(raw)
	}

	w.Format = format
	w.Simple = nil
	w.Final = nil

	switch format {
	case WordsFormatFinal:
		w.Final = make(map[int]map[string]WordData, len(raw))
		for key, val := range raw {
			length, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("words_by_length key %q: %w", key, err)
			}
			var words map[string]WordData
			if err := json.Unmarshal(val, &words); err != nil {
				return fmt.Errorf("words_by_length[%d]: %w", length, err)
			}
			w.Final[length] = words
		}
	default:
		w.Format = WordsFormatSimple
		w.Simple = make(map[int][]string, len(raw))
		for key, val := range raw {
			length, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("words_by_length key %q: %w", key, err)
			}
			var words []string
			if err := json.Unmarshal(val, &words); err != nil {
				return fmt.Errorf("words_by_length[%d]: %w", length, err)
			}
			w.Simple[length] = words
		}
	}
	return nil
}

// sniffWordsFormat inspects the first value: an object whose entries carry a
// score key means the final shape, anything else is the in-play word list.
func sniffWordsFormat(raw map[string]json.RawMessage) WordsFormat {
	for _, val := range raw {
		var asMap map[string]map[string]json.RawMessage
		if err := json.Unmarshal(val, &asMap); err != nil {
			return WordsFormatSimple
		}
		for _, entry := range asMap {
			if _, ok := entry["score"]; ok {
				return WordsFormatFinal
			}
			return WordsFormatSimple
		}
		return WordsFormatSimple
	}
	return WordsFormatSimple
}
