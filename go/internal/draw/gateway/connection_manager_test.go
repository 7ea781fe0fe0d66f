package gateway

import (
	"encoding/json"
	"testing"
)

func registerTestConnection(cm *ConnectionManager, id string) *Connection {
	conn := &Connection{ID: id, Send: make(chan []byte, 8), Manager: cm}
	cm.registerConnection(conn)
	return conn
}

func drainQueue(cm *ConnectionManager) {
	for len(cm.broadcastCh) > 0 {
		cm.handleBroadcast(<-cm.broadcastCh)
	}
}

func receivedTypes(t *testing.T, conn *Connection) []MessageType {
	t.Helper()
	var types []MessageType
	for len(conn.Send) > 0 {
		var msg Message
		if err := json.Unmarshal(<-conn.Send, &msg); err != nil {
			t.Fatalf("failed to decode queued message: %v", err)
		}
		types = append(types, msg.Type)
	}
	return types
}

func TestSendToKeepsBroadcastOrder(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	joining := registerTestConnection(cm, "joining")
	watching := registerTestConnection(cm, "watching")

	added, _ := NewMessage(MessageHistoryAdded, NumberPayload{Number: 12})
	state, _ := NewMessage(MessageState, StatePayload{})

	// a delta queued before the state sync must reach the client first
	cm.Broadcast(added)
	if err := cm.SendTo(joining, state); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}
	drainQueue(cm)

	got := receivedTypes(t, joining)
	if len(got) != 2 || got[0] != MessageHistoryAdded || got[1] != MessageState {
		t.Errorf("Expected history_added then state, got %v", got)
	}
	if got := receivedTypes(t, watching); len(got) != 1 || got[0] != MessageHistoryAdded {
		t.Errorf("Expected only the broadcast on the other connection, got %v", got)
	}
}

func TestSendToClosedConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := registerTestConnection(cm, "gone")
	cm.unregisterConnection(conn)

	state, _ := NewMessage(MessageState, StatePayload{})
	if err := cm.SendTo(conn, state); err == nil {
		t.Error("Expected SendTo on a closed connection to fail")
	}
}
