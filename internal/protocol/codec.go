package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
)

var ErrUnknownKind = errors.New("unknown message kind")

// envelope is the JSON record sent over the wire, one per line or frame.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type textPayload struct {
	Text *string `json:"text"`
}

type mousePayload struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type boardPayload struct {
	Board map[int]entity.Side `json:"board"`
}

type cellPayload struct {
	Cell *int `json:"cell"`
}

var decoders = map[Kind]func(payload json.RawMessage) (Message, error){
	KindText:         decodeText,
	KindMoveMouse:    decodeMoveMouse,
	KindChangeBoard:  decodeChangeBoard,
	KindSelectedCell: decodeSelectedCell,
	KindChangeTurn:   func(json.RawMessage) (Message, error) { return ChangeTurn{}, nil },
	KindSurrender:    func(json.RawMessage) (Message, error) { return Surrender{}, nil },
	KindFinishGame:   func(json.RawMessage) (Message, error) { return FinishGame{}, nil },
}

// Encode serialises msg into a single record without a trailing newline.
func Encode(msg Message) ([]byte, error) {
	var payload any

	switch m := msg.(type) {
	case Text:
		payload = textPayload{Text: &m.Content}
	case MoveMouse:
		payload = mousePayload{X: &m.X, Y: &m.Y}
	case ChangeBoard:
		payload = boardPayload{Board: m.Board.ToMap()}
	case SelectedCell:
		payload = cellPayload{Cell: &m.Cell}
	case ChangeTurn, Surrender, FinishGame:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, msg)
	}

	record := envelope{Kind: msg.Kind()}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msg.Kind(), err)
		}
		record.Payload = raw
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.Kind(), err)
	}

	return data, nil
}

// Decode parses one record. Every failure wraps apperror.ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var record envelope
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	decode, ok := decoders[record.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", apperror.ErrMalformedMessage, ErrUnknownKind, record.Kind)
	}

	msg, err := decode(record.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperror.ErrMalformedMessage, record.Kind, err)
	}

	return msg, nil
}

func unmarshalPayload(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return errMissingField("payload")
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}

func decodeText(payload json.RawMessage) (Message, error) {
	var p textPayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}

	if p.Text == nil {
		return nil, errMissingField("text")
	}

	return Text{Content: *p.Text}, nil
}

func decodeMoveMouse(payload json.RawMessage) (Message, error) {
	var p mousePayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}

	if p.X == nil || p.Y == nil {
		return nil, errMissingField("x/y")
	}

	return MoveMouse{X: *p.X, Y: *p.Y}, nil
}

func decodeChangeBoard(payload json.RawMessage) (Message, error) {
	var p boardPayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}

	if p.Board == nil {
		return nil, errMissingField("board")
	}

	board, err := entity.BoardFromMap(p.Board)
	if err != nil {
		return nil, err
	}

	return ChangeBoard{Board: board}, nil
}

func decodeSelectedCell(payload json.RawMessage) (Message, error) {
	var p cellPayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}

	if p.Cell == nil {
		return nil, errMissingField("cell")
	}

	if *p.Cell != entity.NoSelection && !entity.ValidCell(*p.Cell) {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidCell, *p.Cell)
	}

	return SelectedCell{Cell: *p.Cell}, nil
}

func errMissingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}
