package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOnlyMode(t *testing.T) {
	eb := New(nil, func(string, []byte) { t.Fatal("nothing should be delivered") })

	eb.Start()
	eb.Publish("g1", []byte(`{}`))
	require.NoError(t, eb.EnsureIndexes(context.Background()))
	eb.Stop()
}

func TestDispatchSkipsOwnEvents(t *testing.T) {
	var got []string
	eb := New(nil, func(sessionID string, message []byte) {
		got = append(got, sessionID+":"+string(message))
	})
	assert.Len(t, eb.MachineID(), 16)

	assert.False(t, eb.dispatch(GameEvent{OriginMachineID: eb.MachineID(), SessionID: "g1", Message: []byte("a")}))
	assert.True(t, eb.dispatch(GameEvent{OriginMachineID: "elsewhere", SessionID: "g2", Message: []byte("b")}))

	assert.Equal(t, []string{"g2:b"}, got)
	assert.NotEqual(t, eb.MachineID(), New(nil, nil).MachineID())
}
