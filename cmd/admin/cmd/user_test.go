package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Kyushi/pemoi/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUsers(t *testing.T) {
	gone := &model.User{ID: 3, Username: "carol", Email: "carol@example.com"}
	gone.Anonymize()

	var out bytes.Buffer
	require.NoError(t, writeUsers(&out, []*model.User{
		{ID: 1, Username: "alice", Email: "alice@example.com"},
		gone,
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "USERNAME", "EMAIL", "DELETED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "alice", "alice@example.com", "false"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"3", "user_3_deleted", "user_3_@deleted", "true"}, strings.Fields(lines[2]))
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = parseID("alice")
	assert.EqualError(t, err, `invalid user id "alice"`)
}
