package httpapi

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// streamEvents subscribes the caller to one room and relays its events as
// server-sent events until the client disconnects.
func (s *Server) streamEvents(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := s.authorizeRoom(ctx, c.Param("kind"), c.Param("id"), actor(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	sub := s.c.Hub.Subscribe(room)
	defer s.c.Hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("subscribed", gin.H{"room": room})
	c.Writer.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-sub.Events():
			if !open {
				return false
			}
			c.SSEvent(ev.Name, ev)
			return true
		case <-heartbeat.C:
			_, err := fmt.Fprint(w, ": ping\n\n")
			return err == nil
		}
	})
}

// authorizeRoom resolves a room name and checks the actor may listen to it.
func (s *Server) authorizeRoom(ctx context.Context, kind, id, actor string) (string, error) {
	switch kind {
	case "project":
		if _, err := s.c.ShowProjectUseCase().Execute(ctx, usecase.ShowProjectInput{ProjectID: id, Actor: actor}); err != nil {
			return "", err
		}
		return domain.ProjectRoom(id), nil
	case "sprint":
		if _, err := s.c.ShowSprintUseCase().Execute(ctx, usecase.ShowSprintInput{SprintID: id, Actor: actor}); err != nil {
			return "", err
		}
		return domain.SprintRoom(id), nil
	case "user":
		if id != actor {
			return "", fmt.Errorf("%w: cannot listen to another user's room", domain.ErrForbidden)
		}
		return domain.UserRoom(id), nil
	default:
		return "", &domain.ValidationError{Field: "kind", Reason: "must be project, sprint or user"}
	}
}
