package session

import (
    "context"
    "encoding/json"
    "testing"
    "time"
)

func TestEventPayloadShape(t *testing.T) {
    ev := Event{Kind: SignedIn, UserID: 7, Username: "alice_sax", At: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)}
    body, err := json.Marshal(ev)
    if err != nil {
        t.Fatalf("marshal: %v", err)
    }
    var got map[string]any
    if err := json.Unmarshal(body, &got); err != nil {
        t.Fatalf("unmarshal: %v", err)
    }
    for _, key := range []string{"kind", "user_id", "username", "at"} {
        if _, ok := got[key]; !ok {
            t.Errorf("payload missing %q: %s", key, body)
        }
    }

    var back Event
    if err := json.Unmarshal(body, &back); err != nil {
        t.Fatalf("round trip: %v", err)
    }
    if back != ev {
        t.Fatalf("round trip changed event: %+v", back)
    }
}

func TestNilClientDegradesToNoop(t *testing.T) {
    n := NewNotifier(nil)

    // Publish must not panic without Redis.
    n.Publish(context.Background(), Event{Kind: SignedOut, UserID: 1})

    // Subscribe yields an immediately-closed stream.
    events, cancel := n.Subscribe(context.Background())
    defer cancel()
    select {
    case _, open := <-events:
        if open {
            t.Fatal("received an event from a nil client")
        }
    case <-time.After(time.Second):
        t.Fatal("stream not closed for nil client")
    }
}
