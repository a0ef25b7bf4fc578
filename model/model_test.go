package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedAndEcho(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("ping", "pong")

	resp, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "ping"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content)

	resp, err = m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "anything"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: anything", resp.Content)
}

func TestMockModel_EmptyRequest(t *testing.T) {
	m := NewMockModel("test-model")
	_, err := m.Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMockModel_RespectsCancellation(t *testing.T) {
	m := NewMockModel("test-model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, Request{Messages: []Message{{Role: "user", Content: "x"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
