package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/sandbox"
)

const commandTimeout = 5 * time.Second

type scaleData struct {
	Scale string `json:"scale"`
}

type songData struct {
	Song string `json:"song"`
}

type resizeData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type importData struct {
	Text string `json:"text"`
}

// handleMessage applies one inbound message to the client's session.
// Failures are reported to this client as error notices.
func (c *Client) handleMessage(msg WSMessage) {
	var err error
	switch msg.Type {
	case "pointer":
		var ev sandbox.PointerEvent
		if err = json.Unmarshal(msg.Data, &ev); err != nil {
			c.sendNotice("error", "Invalid pointer data")
			return
		}
		err = c.do(func(s *sandbox.Session) error {
			_, err := s.HandlePointer(ev)
			return err
		})

	case "params":
		var patch sandbox.ParamsPatch
		if err = json.Unmarshal(msg.Data, &patch); err != nil {
			c.sendNotice("error", "Invalid parameter data")
			return
		}
		err = c.do(func(s *sandbox.Session) error { return s.UpdateParams(patch) })

	case "apply_scale":
		var data scaleData
		json.Unmarshal(msg.Data, &data)
		err = c.do(func(s *sandbox.Session) error { return s.ApplyScale(data.Scale) })

	case "play_song":
		var data songData
		json.Unmarshal(msg.Data, &data)
		err = c.do(func(s *sandbox.Session) error { return s.PlaySong(data.Song) })

	case "stop_song":
		err = c.do(func(s *sandbox.Session) error {
			s.StopSong()
			return nil
		})

	case "clear_all":
		err = c.do(func(s *sandbox.Session) error {
			s.ClearAll()
			return nil
		})

	case "toggle_recording":
		err = c.do(func(s *sandbox.Session) error {
			s.ToggleRecording()
			return nil
		})

	case "export":
		var text string
		err = c.do(func(s *sandbox.Session) (err error) {
			text, err = s.ExportRecording()
			return err
		})
		if err == nil {
			c.sendEvent(sandbox.NewEvent(c.sessionID, sandbox.EventMelodyExport, map[string]interface{}{"text": text}))
		}

	case "import":
		text := importText(msg.Data)
		err = c.do(func(s *sandbox.Session) error { return s.ImportAndPlay(text) })

	case "resize":
		var data resizeData
		if err = json.Unmarshal(msg.Data, &data); err != nil {
			c.sendNotice("error", "Invalid resize data")
			return
		}
		err = c.do(func(s *sandbox.Session) error { return s.Resize(data.Width, data.Height) })

	case "get_state":
		c.sendState()
		return

	default:
		c.sendNotice("error", "Unknown message type")
		return
	}

	if err != nil {
		c.sendNotice("error", noticeText(err))
	}
}

func (c *Client) do(fn func(*sandbox.Session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return c.mgr.Do(ctx, c.sessionID, fn)
}

func (c *Client) sendState() {
	var snap sandbox.Snapshot
	err := c.do(func(s *sandbox.Session) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		c.sendNotice("error", noticeText(err))
		return
	}
	c.sendEvent(sandbox.NewEvent(c.sessionID, sandbox.EventState, map[string]interface{}{"state": snap}))
}

// importText accepts the melody as a JSON string, as {"text": ...}, or as
// the melody array itself.
func importText(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	var d importData
	if json.Unmarshal(data, &d) == nil && d.Text != "" {
		return d.Text
	}
	return string(data)
}

// noticeText turns an error into the message shown to the user.
func noticeText(err error) string {
	switch {
	case errors.Is(err, music.ErrInvalidMelody), errors.Is(err, music.ErrUnknownNote):
		return "Invalid melody: " + err.Error()
	case errors.Is(err, sandbox.ErrNothingRecorded):
		return "Nothing recorded yet"
	case errors.Is(err, sandbox.ErrSessionNotFound), errors.Is(err, sandbox.ErrSessionClosed):
		return "Session is closed"
	case errors.Is(err, context.DeadlineExceeded):
		return "Session is busy, try again"
	}
	return err.Error()
}
