package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordsByLengthSniffsSimpleShape(t *testing.T) {
	var w WordsByLength
	require.NoError(t, json.Unmarshal([]byte(`{"3":["CAT","DOG"],"4":["BIRD"]}`), &w))

	assert.Equal(t, WordsFormatSimple, w.Format)
	assert.False(t, w.IsFinal())
	assert.Equal(t, []string{"CAT", "DOG"}, w.Simple[3])
	assert.Equal(t, []string{"BIRD"}, w.Simple[4])
	assert.Nil(t, w.Final)
}

func TestWordsByLengthSniffsFinalShape(t *testing.T) {
	var w WordsByLength
	require.NoError(t, json.Unmarshal([]byte(`{"3":{"CAT":{"score":3},"DOG":{"score":4}}}`), &w))

	assert.Equal(t, WordsFormatFinal, w.Format)
	assert.True(t, w.IsFinal())
	assert.Equal(t, 3, w.Final[3]["CAT"].Score)
	assert.Equal(t, 4, w.Final[3]["DOG"].Score)
	assert.Nil(t, w.Simple)
}

func TestWordsByLengthExplicitFormatWins(t *testing.T) {
	// An empty final map is structurally ambiguous; the discriminant
	// resolves it.
	var w WordsByLength
	require.NoError(t, json.Unmarshal([]byte(`{"format":"final","3":{}}`), &w))
	assert.Equal(t, WordsFormatFinal, w.Format)
	assert.Empty(t, w.Final[3])
}

func TestWordsByLengthRoundTripCarriesFormat(t *testing.T) {
	in := WordsByLength{
		Format: WordsFormatFinal,
		Final:  map[int]map[string]WordData{5: {"SNARK": {Score: 25}}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out WordsByLength
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, WordsFormatFinal, out.Format)
	assert.Equal(t, 25, out.Final[5]["SNARK"].Score)
}

func TestWordsByLengthRejectsNonNumericKey(t *testing.T) {
	var w WordsByLength
	err := json.Unmarshal([]byte(`{"three":["CAT"]}`), &w)
	assert.Error(t, err)
}

func TestWordSetRoundTrip(t *testing.T) {
	var ws WordSet
	require.NoError(t, json.Unmarshal([]byte(`["DOG","CAT"]`), &ws))
	assert.True(t, ws["CAT"])
	assert.True(t, ws["DOG"])
	assert.False(t, ws["EEL"])

	data, err := json.Marshal(ws)
	require.NoError(t, err)
	assert.JSONEq(t, `["CAT","DOG"]`, string(data))
}
