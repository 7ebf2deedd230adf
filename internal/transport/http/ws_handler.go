package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// WSOptions tunes per-connection limits.
type WSOptions struct {
	MaxMessageBytes   int64
	MessagesPerMinute int
}

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	user, err := h.auth.Authenticate(ctx, tokenFromRequest(r))
	if err != nil {
		h.reject(ctx, conn, err)
		return
	}

	session := h.hub.Open(ctx, user)

	// Commands the read loop accepted are handled even after the client goes
	// away; the session leaves the registry only once they are done.
	opCtx := context.WithoutCancel(ctx)
	served := make(chan struct{})
	go func() {
		defer close(served)
		h.hub.Serve(opCtx, session)
	}()
	defer func() {
		<-served
		h.hub.Disconnect(opCtx, session)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		defer session.EndCommands()
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Int64("user_id", session.UserID).Str("session_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// reject reports a failed handshake to the client and closes the connection.
// Credential problems close with 1008; anything else is a server-side failure.
func (h *WSHandler) reject(ctx context.Context, conn *websocket.Conn, err error) {
	code, status := core.ErrCodeUnauthenticated, websocket.StatusPolicyViolation
	msg := "unauthenticated"
	if !errors.Is(err, auth.ErrUnauthenticated) {
		code, status = core.ErrCodeStoreUnavailable, websocket.StatusInternalError
		msg = "try again later"
		h.log.Error().Err(err).Msg("ws authenticate")
	} else {
		h.log.Debug().Err(err).Msg("ws unauthenticated")
	}

	writeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = wsjson.Write(writeCtx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
	conn.Close(status, code)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.opts.MessagesPerMinute)
	limiter.startReset(ctx.Done())

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			h.sendProtocolError(session, core.ErrCodeRateLimited, "too many messages")
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID).Msg("malformed inbound frame")
			h.sendProtocolError(session, core.ErrCodeInvalidMessage, "malformed frame")
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.sendProtocolError(session, protoErr.Code, protoErr.Msg)
			continue
		}

		select {
		case session.Commands <- cmd:
		case <-session.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) sendProtocolError(session *core.Session, code, msg string) {
	session.Send(&core.Event{Kind: core.EventError, Error: &core.CoreError{Code: code, Message: msg}})
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-session.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
