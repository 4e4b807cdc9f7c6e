package protocol

import (
	"bytes"
	"testing"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	var single entity.Board
	single = single.Place(35, entity.SideSecond)

	cases := []struct {
		name string
		msg  Message
	}{
		{"empty text", Text{Content: ""}},
		{"unicode text", Text{Content: "olá, adversário ♟ 你好"}},
		{"text with newline", Text{Content: "line one\nline two"}},
		{"mouse position", MoveMouse{X: 120.5, Y: -3.25}},
		{"empty board", ChangeBoard{Board: entity.Board{}}},
		{"full board", ChangeBoard{Board: entity.StartingLayout()}},
		{"single piece board", ChangeBoard{Board: single}},
		{"no selection", SelectedCell{Cell: entity.NoSelection}},
		{"first cell", SelectedCell{Cell: 0}},
		{"last cell", SelectedCell{Cell: 35}},
		{"change turn", ChangeTurn{}},
		{"surrender", Surrender{}},
		{"finish game", FinishGame{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// When: encoding and decoding the message
			data, err := Encode(tc.msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)

			// Then: the record is a single line and the message survives
			assert.False(t, bytes.ContainsRune(data, '\n'))
			assert.Equal(t, tc.msg, decoded)
			assert.Equal(t, tc.msg.Kind(), decoded.Kind())
		})
	}
}

func TestEncode_WireShape(t *testing.T) {
	data, err := Encode(SelectedCell{Cell: 4})

	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"SELECTED_CELL","payload":{"cell":4}}`, string(data))

	data, err = Encode(ChangeTurn{})

	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"CHANGE_TURN"}`, string(data))
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		record string
	}{
		{"not json", `hello`},
		{"unknown kind", `{"kind":"TELEPORT"}`},
		{"missing kind", `{"payload":{"text":"hi"}}`},
		{"text without payload", `{"kind":"TEXT"}`},
		{"text without field", `{"kind":"TEXT","payload":{}}`},
		{"mouse missing y", `{"kind":"MOVE_MOUSE","payload":{"x":1}}`},
		{"board missing", `{"kind":"CHANGE_BOARD","payload":{}}`},
		{"board null", `{"kind":"CHANGE_BOARD","payload":{"board":null}}`},
		{"board cell out of range", `{"kind":"CHANGE_BOARD","payload":{"board":{"36":"FIRST"}}}`},
		{"board unknown side", `{"kind":"CHANGE_BOARD","payload":{"board":{"3":"GREEN"}}}`},
		{"board non numeric key", `{"kind":"CHANGE_BOARD","payload":{"board":{"a":"FIRST"}}}`},
		{"cell missing", `{"kind":"SELECTED_CELL","payload":{}}`},
		{"cell below range", `{"kind":"SELECTED_CELL","payload":{"cell":-2}}`},
		{"cell above range", `{"kind":"SELECTED_CELL","payload":{"cell":36}}`},
		{"cell wrong type", `{"kind":"SELECTED_CELL","payload":{"cell":"one"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// When: decoding a broken record
			msg, err := Decode([]byte(tc.record))

			// Then: it is reported as malformed
			require.ErrorIs(t, err, apperror.ErrMalformedMessage)
			assert.Nil(t, msg)
		})
	}
}

func TestDecode_ToleratesPayloadOnSignals(t *testing.T) {
	msg, err := Decode([]byte(`{"kind":"SURRENDER","payload":{"ignored":true}}`))

	require.NoError(t, err)
	assert.Equal(t, Surrender{}, msg)
}
