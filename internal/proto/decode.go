package proto

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode unmarshals data into v and validates its struct tags.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}

// DecodeJoin accepts either {"name": "..."} or a bare string.
func DecodeJoin(data json.RawMessage) (JoinData, error) {
	var join JoinData
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		join.Name = name
		return join, validate.Struct(join)
	}
	err := Decode(data, &join)
	return join, err
}

// DecodeMessage accepts either {"msg": "..."} or a bare string.
func DecodeMessage(data json.RawMessage) (MessageData, error) {
	var msg MessageData
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		msg.Msg = text
		return msg, validate.Struct(msg)
	}
	err := Decode(data, &msg)
	return msg, err
}
