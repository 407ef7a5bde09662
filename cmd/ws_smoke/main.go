package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"cypher_arena/internal/realtime"
	"cypher_arena/internal/ws"
)

// Smoke test against a running server: two players log in, A listens on a
// room channel and B chats on it through the relay.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port

	tokenA := login(base, "smokeA")
	tokenB := login(base, "smokeB")

	connA := dial(base, tokenA)
	defer connA.Close()
	connB := dial(base, tokenB)
	defer connB.Close()

	channel := realtime.RoomChannel("SMOKE1")
	mustWrite(connA, ws.Frame{Type: ws.MsgSubscribe, Channel: channel})
	waitFor(connA, "A", ws.MsgSubscribed)

	chat, _ := json.Marshal(map[string]string{"username": "smokeB", "message": "hello"})
	mustWrite(connB, ws.Frame{Type: ws.MsgPublish, Channel: channel, Event: realtime.EventChat, Payload: chat})

	f := waitFor(connA, "A", ws.MsgMessage)
	log.Printf("A got %s on %s: %s", f.Event, f.Channel, string(f.Payload))
	log.Println("smoke test finished")
}

func login(base, username string) string {
	body, _ := json.Marshal(map[string]string{"username": username})
	res, err := http.Post("http://"+base+"/api/v1/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("auth %s: %v", username, err)
	}
	defer res.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.Token == "" {
		log.Fatalf("auth %s: status %d: %v", username, res.StatusCode, err)
	}
	return out.Token
}

func dial(base, token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", base, token), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	return conn
}

func mustWrite(conn *websocket.Conn, f ws.Frame) {
	if err := conn.WriteJSON(f); err != nil {
		log.Fatalf("write: %v", err)
	}
}

// waitFor drains frames until one of type want arrives.
func waitFor(conn *websocket.Conn, name, want string) ws.Frame {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var f ws.Frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Fatalf("%s read error: %v", name, err)
		}
		if f.Type == want {
			return f
		}
		if f.Type == ws.MsgError {
			log.Fatalf("%s got error: %s", name, string(f.Payload))
		}
	}
	log.Fatalf("%s timed out waiting for %s", name, want)
	return ws.Frame{}
}
