package controller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"phishmail/cache"
	"phishmail/models"
)

// heartbeatInterval is how often idle subscribers receive a content-
// free keep-alive, to detect dead connections and keep intermediaries
// from timing the stream out.
const heartbeatInterval = 25 * time.Second

type StreamController struct {
	cache  *cache.Mailbox
	logger *log.Logger
}

func NewStreamController(mbox *cache.Mailbox, logger *log.Logger) *StreamController {
	return &StreamController{
		cache:  mbox,
		logger: logger,
	}
}

// eventSink is one subscriber's transport. pump is written against it
// so the SSE and websocket paths share the same delivery loop.
type eventSink interface {
	WriteEvent(role models.Role, snapshot []models.MessageSummary) error
	Heartbeat() error
}

// pump drives one subscriber: the full snapshot of every folder first,
// then one event per folder whose fingerprint changed on each wake.
//
// The wake channel is captured before fingerprints are read. A change
// that lands while a batch is being written closes that captured
// channel, so the next pass picks it up; fetching the channel only when
// waiting would race against the notifier's close-and-swap and could
// sit on a change until an unrelated later wake.
func (sc *StreamController) pump(sink eventSink, stop <-chan struct{}) {
	notifier := sc.cache.Notifier()
	last := make(map[models.Role]uint64, 4)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		wake := notifier.Done()
		for _, role := range models.Roles() {
			fp := sc.cache.Fingerprint(role)
			if seen, ok := last[role]; ok && fp == seen {
				continue
			}
			if err := sink.WriteEvent(role, sc.cache.Snapshot(role)); err != nil {
				return
			}
			last[role] = fp
		}

		select {
		case <-wake:
		case <-heartbeat.C:
			if err := sink.Heartbeat(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// sseSink writes server-sent events, flushing after every write so the
// client sees each event as it happens.
type sseSink struct {
	w *bufio.Writer
}

func (s sseSink) WriteEvent(role models.Role, snapshot []models.MessageSummary) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", role, data); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s sseSink) Heartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// socketFrame mirrors one SSE event over the websocket transport.
type socketFrame struct {
	Event string                  `json:"event"`
	Data  []models.MessageSummary `json:"data"`
}

type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) WriteEvent(role models.Role, snapshot []models.MessageSummary) error {
	return s.conn.WriteJSON(socketFrame{Event: string(role), Data: snapshot})
}

func (s wsSink) Heartbeat() error {
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// Stream serves the SSE change stream. Each subscriber first receives
// the full current snapshot of every folder, then one event per folder
// whose fingerprint changed, with the whole snapshot as payload.
func (sc *StreamController) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	subID := uuid.NewString()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		sc.logger.Printf("Subscriber %s connected", subID)
		defer sc.logger.Printf("Subscriber %s disconnected", subID)
		sc.pump(sseSink{w: w}, nil)
	}))
	return nil
}

// Socket serves the same change stream over a websocket for clients
// behind proxies that mangle SSE.
func (sc *StreamController) Socket(conn *websocket.Conn) {
	defer conn.Close()

	subID := uuid.NewString()
	sc.logger.Printf("WS subscriber %s connected", subID)
	defer sc.logger.Printf("WS subscriber %s disconnected", subID)

	sc.pump(wsSink{conn: conn}, nil)
}
