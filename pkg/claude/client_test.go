package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchReply(t *testing.T) {
	out, err := parseBatchReply(`["Milk", "Cheese"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk", "Cheese"}, out)
}

func TestParseBatchReplyCodeFence(t *testing.T) {
	reply := "```json\n[\"Milk\", \"Cheese\"]\n```"
	out, err := parseBatchReply(reply)
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk", "Cheese"}, out)
}

func TestParseBatchReplyBareFence(t *testing.T) {
	reply := "```\n[\"Milk\"]\n```"
	out, err := parseBatchReply(reply)
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk"}, out)
}

func TestParseBatchReplyNotJSON(t *testing.T) {
	_, err := parseBatchReply("Sure! Here are the translations: Milk, Cheese")
	assert.Error(t, err)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Dutch", languageName("nl"))
	assert.Equal(t, "English", languageName("en"))
	assert.Equal(t, "xx", languageName("xx"))
}
