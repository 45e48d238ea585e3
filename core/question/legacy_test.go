package question

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestion_legacyAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want NewQuestion
	}{
		{
			name: "canonical",
			body: `{"exam_id": 1, "text": "2+2?", "question_type": "single_choice", "options": [{"text": "4", "is_correct": true}]}`,
			want: NewQuestion{ExamID: 1, Text: "2+2?", QuestionType: TypeSingleChoice, Options: []OptionInput{{Text: "4", IsCorrect: true}}},
		},
		{
			name: "legacy",
			body: `{"exam_id": 1, "question_text": "2+2?", "type": "multiple_choice", "options": [{"option_text": "4"}]}`,
			want: NewQuestion{ExamID: 1, Text: "2+2?", QuestionType: TypeMultipleChoice, Options: []OptionInput{{Text: "4"}}},
		},
		{
			name: "canonical wins",
			body: `{"exam_id": 1, "text": "new", "question_text": "old", "question_type": "text", "type": "true_false"}`,
			want: NewQuestion{ExamID: 1, Text: "new", QuestionType: TypeText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nq NewQuestion
			require.NoError(t, json.Unmarshal([]byte(tt.body), &nq))
			assert.Equal(t, tt.want, nq)
		})
	}
}

func TestUpdateQuestion_legacyAliases(t *testing.T) {
	var uq UpdateQuestion
	require.NoError(t, json.Unmarshal([]byte(`{"question_text": "why?", "type": "text"}`), &uq))
	require.NotNil(t, uq.Text)
	require.NotNil(t, uq.QuestionType)
	assert.Equal(t, "why?", *uq.Text)
	assert.Equal(t, TypeText, *uq.QuestionType)
	assert.Nil(t, uq.Options, "absent options must stay nil")

	uq = UpdateQuestion{}
	require.NoError(t, json.Unmarshal([]byte(`{"options": []}`), &uq))
	assert.NotNil(t, uq.Options, "an empty options array is a replacement")
	assert.Nil(t, uq.Text)
}

func TestNewQuestion_Clean(t *testing.T) {
	nq := NewQuestion{Text: " Essay ", QuestionType: " TEXT ", Options: []OptionInput{{Text: "x"}}}
	nq.Clean()
	assert.Equal(t, "Essay", nq.Text)
	assert.Equal(t, TypeText, nq.QuestionType)
	assert.Nil(t, nq.Options, "text questions carry no options")
}

func TestOptions(t *testing.T) {
	opts := Options(9, []OptionInput{{Text: " a "}, {Text: "b", IsCorrect: true}, {Text: "c"}})
	require.Len(t, opts, 3)
	for i, opt := range opts {
		assert.Equal(t, 9, opt.QuestionID)
		assert.Equal(t, i+1, opt.Order)
	}
	assert.Equal(t, "a", opts[0].Text)
	assert.True(t, opts[1].IsCorrect)
}
