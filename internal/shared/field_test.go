package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mask struct {
	Active Field[bool]    `json:"active"`
	Note   Field[*string] `json:"note"`
}

func TestFieldTracksPresenceAndNull(t *testing.T) {
	var m mask
	require.NoError(t, json.Unmarshal([]byte(`{"active": null, "note": null}`), &m))
	assert.True(t, m.Active.Set)
	assert.True(t, m.Active.Null)
	assert.ErrorIs(t, m.Active.NotNull("active"), ErrValidation)
	assert.True(t, m.Note.Set)
	assert.Nil(t, m.Note.Value)

	m = mask{}
	require.NoError(t, json.Unmarshal([]byte(`{"active": false}`), &m))
	assert.True(t, m.Active.Set)
	assert.False(t, m.Active.Null)
	assert.NoError(t, m.Active.NotNull("active"))
	assert.False(t, m.Note.Set)
	assert.NoError(t, m.Note.NotNull("note"))
}
