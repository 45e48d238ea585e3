package question

import "encoding/json"

// Older clients send question_text, type and option_text.
// The adapters below fold those aliases into the canonical fields while decoding, the canonical name wins.

func (in *OptionInput) UnmarshalJSON(data []byte) error {
	type canonical OptionInput
	var wire struct {
		canonical
		OptionText *string `json:"option_text"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*in = OptionInput(wire.canonical)
	if in.Text == "" && wire.OptionText != nil {
		in.Text = *wire.OptionText
	}
	return nil
}

func (nq *NewQuestion) UnmarshalJSON(data []byte) error {
	type canonical NewQuestion
	var wire struct {
		canonical
		QuestionText *string `json:"question_text"`
		Type         *string `json:"type"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*nq = NewQuestion(wire.canonical)
	if nq.Text == "" && wire.QuestionText != nil {
		nq.Text = *wire.QuestionText
	}
	if nq.QuestionType == "" && wire.Type != nil {
		nq.QuestionType = *wire.Type
	}
	return nil
}

func (uq *UpdateQuestion) UnmarshalJSON(data []byte) error {
	type canonical UpdateQuestion
	var wire struct {
		canonical
		QuestionText *string `json:"question_text"`
		Type         *string `json:"type"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*uq = UpdateQuestion(wire.canonical)
	if uq.Text == nil {
		uq.Text = wire.QuestionText
	}
	if uq.QuestionType == nil {
		uq.QuestionType = wire.Type
	}
	return nil
}
