package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cast"

	"gsd/internal/structures"
)

// WebsocketSource reads gift events from a relay endpoint over a websocket.
// One dial per target; the relay scopes the feed via the unique_id query
// parameter and authenticates with the operator's API key.
type WebsocketSource struct {
	url    string
	apiKey func() string
	dialer *websocket.Dialer
}

func NewWebsocketSource(conf *structures.Config, state *StateStore) EventSource {
	return &WebsocketSource{
		url:    conf.Monitor.SourceURL,
		apiKey: state.APIKey,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

func (s *WebsocketSource) Open(ctx context.Context, username string) (EventConn, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("source url: %w", err)
	}
	q := u.Query()
	q.Set("unique_id", username)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if key := s.apiKey(); key != "" {
		header.Set("X-Api-Key", key)
	}

	conn, resp, err := s.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial feed for %s: %w (status %d)", username, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial feed for %s: %w", username, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// giftFrame is the relay's wire format. GiftID and RepeatCount arrive as a
// number or a string depending on the relay version.
type giftFrame struct {
	Type        string      `json:"type"`
	GiftID      interface{} `json:"gift_id"`
	GiftName    string      `json:"gift_name"`
	RepeatCount interface{} `json:"repeat_count"`
	Timestamp   int64       `json:"timestamp"`
}

func (c *wsConn) Next() (*GiftEvent, error) {
	for {
		var frame giftFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return nil, err
		}
		if frame.Type != "gift" {
			continue
		}

		at := time.Now()
		if frame.Timestamp > 0 {
			at = time.Unix(frame.Timestamp, 0)
		}
		return &GiftEvent{
			GiftID:      cast.ToString(frame.GiftID),
			GiftName:    frame.GiftName,
			RepeatCount: cast.ToInt(frame.RepeatCount),
			At:          at,
		}, nil
	}
}

func (c *wsConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
