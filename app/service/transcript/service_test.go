package transcript

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndLoad(t *testing.T) {
	svc, err := NewService(filepath.Join(t.TempDir(), "nested", "transcripts.jsonl"))
	require.NoError(t, err)

	records, err := svc.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, svc.Append(Record{
		ConversationID: "first",
		StartedAt:      now,
		ClosedAt:       now.Add(time.Minute),
		Messages: []Message{
			{Role: RoleBot, Text: "Hi", Timestamp: now},
			{Role: RoleUser, Text: "top movies", Timestamp: now},
		},
	}))
	require.NoError(t, svc.Append(Record{
		ConversationID: "second",
		Messages:       []Message{{Role: RoleUser, Text: "end", Timestamp: now}},
	}))

	records, err = svc.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].ConversationID)
	assert.Equal(t, "top movies", records[0].Messages[1].Text)
	assert.True(t, now.Equal(records[0].StartedAt))
	assert.Equal(t, "second", records[1].ConversationID)
}

func TestAppendSkipsConversationsWithoutUserInput(t *testing.T) {
	svc, err := NewService(filepath.Join(t.TempDir(), "transcripts.jsonl"))
	require.NoError(t, err)

	require.NoError(t, svc.Append(Record{
		ConversationID: "greeting-only",
		Messages:       []Message{{Role: RoleBot, Text: "Hi"}},
	}))

	records, err := svc.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}
