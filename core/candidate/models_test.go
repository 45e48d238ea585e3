package candidate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core"
)

func TestNew(t *testing.T) {
	now := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	cand := New("", " Jane.Doe@Test.cd ", 4, "Go 101", true)
	assert.Equal(t, "jane.doe@test.cd", cand.Email)
	assert.Equal(t, "jane.doe", cand.Name, "name defaults to the email local part")
	assert.Equal(t, "Go 101", cand.ExamTitle)
	assert.True(t, cand.InvitationSent)
	require.NotNil(t, cand.LastInvitedAt)
	assert.Equal(t, now, *cand.LastInvitedAt)
	assert.Nil(t, cand.TestStartTime)
	assert.Nil(t, cand.TestEndTime)
	assert.Equal(t, "invited", cand.Status())

	_, err := uuid.Parse(cand.UniqueLink)
	assert.NoError(t, err)
	assert.Equal(t, "/exam/"+cand.UniqueLink, cand.Link())

	other := New("Bob", "bob@test.cd", 4, "Go 101", false)
	assert.NotEqual(t, cand.UniqueLink, other.UniqueLink)
	assert.False(t, other.InvitationSent)
	assert.Nil(t, other.LastInvitedAt)
	assert.Equal(t, "created", other.Status())
}

func TestCreateRequest_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantBulk bool
	}{
		{name: "single", body: `{"name": "A", "email": "a@test.cd", "exam_id": 1}`},
		{name: "bulk", body: `{"emails": ["a@test.cd", "b@test.cd"], "exam_id": 1}`, wantBulk: true},
		{name: "null emails is single", body: `{"emails": null, "email": "a@test.cd", "exam_id": 1}`},
		{name: "empty emails is bulk", body: `{"emails": [], "exam_id": 1}`, wantBulk: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cr CreateRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cr))
			if tt.wantBulk {
				require.NotNil(t, cr.Bulk)
				assert.Nil(t, cr.Single)
				assert.Equal(t, cr.Bulk, cr.Variant())
			} else {
				require.NotNil(t, cr.Single)
				assert.Nil(t, cr.Bulk)
				assert.Equal(t, 1, cr.Single.ExamID)
			}
		})
	}

	var cr CreateRequest
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &cr))
}
