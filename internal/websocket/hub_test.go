package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubRoutesActivityToOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	ann := bson.NewObjectID()
	bob := bson.NewObjectID()

	annTab1 := NewClient(hub, nil, ann.Hex())
	annTab2 := NewClient(hub, nil, ann.Hex())
	bobTab := NewClient(hub, nil, bob.Hex())
	for _, c := range []*Client{annTab1, annTab2, bobTab} {
		if !hub.Join(c) {
			t.Fatal("Join() on a running hub returned false")
		}
	}

	hub.PublishActivity(models.Event{ID: bson.NewObjectID(), UserID: ann, Type: models.EventChildCreate, Message: "Added child Leo"})

	for _, c := range []*Client{annTab1, annTab2} {
		var msg struct {
			Action  string       `json:"action"`
			Payload models.Event `json:"payload"`
		}
		if err := json.Unmarshal(receive(t, c), &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		if msg.Action != ActionActivity || msg.Payload.Message != "Added child Leo" {
			t.Errorf("unexpected message %+v", msg)
		}
	}

	select {
	case msg := <-bobTab.Send:
		t.Errorf("other user received %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubLeaveClosesDone(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil, bson.NewObjectID().Hex())
	hub.Join(c)
	hub.Leave(c)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed")
	}
	if c.Reply([]byte("late")) {
		t.Error("Reply() after Leave should report false")
	}
}

func TestReplyRacesWithDrop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	for i := 0; i < 50; i++ {
		c := NewClient(hub, nil, "user")
		hub.Join(c)

		replied := make(chan struct{})
		go func() {
			defer close(replied)
			for j := 0; j < sendBuffer*2; j++ {
				c.Reply([]byte("pong"))
			}
		}()
		hub.Leave(c)
		<-replied

		select {
		case <-c.Done():
		case <-time.After(time.Second):
			t.Fatal("Done was not closed")
		}
	}
}

func TestReplyFullBuffer(t *testing.T) {
	c := NewClient(nil, nil, "user")
	for i := 0; i < sendBuffer; i++ {
		if !c.Reply([]byte("pong")) {
			t.Fatalf("Reply() %d failed before the buffer was full", i)
		}
	}
	if c.Reply([]byte("pong")) {
		t.Error("Reply() on a full buffer should report false")
	}
}

func TestHubStopped(t *testing.T) {
	hub := NewHub()
	finished := make(chan struct{})
	go func() {
		hub.Run()
		close(finished)
	}()
	hub.Stop()
	<-finished

	c := NewClient(hub, nil, "user")
	if hub.Join(c) {
		t.Error("Join() after Stop should return false")
	}
	hub.Leave(c)
}
