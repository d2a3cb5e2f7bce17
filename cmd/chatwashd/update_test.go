package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decodeMessage(t *testing.T, raw string) *apiMessage {
	t.Helper()
	var m apiMessage
	assert.NoError(t, json.Unmarshal([]byte(raw), &m))
	return &m
}

func TestToMessageEntityOffsets(t *testing.T) {
	assert := assert.New(t)

	// offsets count UTF-16 code units: the emoji occupies two
	m := decodeMessage(t, `{
		"message_id": 10,
		"chat": {"id": -100, "type": "supergroup"},
		"from": {"id": 7, "first_name": "Test"},
		"text": "😀 t.me/spamchat",
		"entities": [{"type": "url", "offset": 3, "length": 13}]
	}`)
	msg := toMessage(m, 999)
	assert.Equal([]string{"t.me/spamchat"}, msg.AllLinks())
}

func TestToMessageMentionOffsets(t *testing.T) {
	assert := assert.New(t)

	m := decodeMessage(t, `{
		"message_id": 11,
		"chat": {"id": -100, "type": "supergroup"},
		"from": {"id": 7, "first_name": "Test"},
		"text": "😀 hi @spam",
		"entities": [{"type": "mention", "offset": 6, "length": 5}]
	}`)
	msg := toMessage(m, 999)
	assert.Len(msg.Entities, 1)
	assert.Equal("@spam", msg.Entities[0].Text)
}

func TestToMessageCaptionEntities(t *testing.T) {
	assert := assert.New(t)

	m := decodeMessage(t, `{
		"message_id": 12,
		"chat": {"id": -100, "type": "supergroup"},
		"from": {"id": 7, "first_name": "Test"},
		"caption": "grab https://evil.example/p.scr",
		"caption_entities": [{"type": "url", "offset": 5, "length": 26}],
		"document": {"file_name": "p.scr", "file_unique_id": "d1"}
	}`)
	msg := toMessage(m, 999)
	assert.Equal([]string{"evil.example/p.scr"}, msg.AllLinks())
	assert.NotNil(msg.Document)
}
