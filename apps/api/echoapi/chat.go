package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tshola/ngoma/core/chat"
	"github.com/tshola/ngoma/core/member"
)

func (s *server) registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	hg := g.Group("/chat", jwt)

	hg.POST("/messages", s.chatSend)
	hg.GET("/inbox", s.chatInbox)
	hg.GET("/conversations/:key/messages", s.chatHistory)
	hg.POST("/conversations/:key/open", s.chatOpen)
	hg.POST("/conversations/:key/close", s.chatClose)
	hg.GET("/conversations/:key/live", s.chatLive)
}

// canAccessConversation restricts members to conversations they take part in;
// support staff and admins see everything.
func canAccessConversation(mbr member.Member, conversationKey string) bool {
	if mbr.Can(member.CapAnswerSupport) {
		return true
	}
	switch {
	case conversationKey == chat.BroadcastConvos:
		return true
	case strings.HasPrefix(conversationKey, chat.SupportPrefix):
		return conversationKey == chat.SupportConversationKey(mbr.Key)
	case strings.HasPrefix(conversationKey, chat.TrainerPrefix):
		rest := strings.TrimPrefix(conversationKey, chat.TrainerPrefix)
		parts := strings.SplitN(rest, ":", 2)
		return len(parts) == 2 && (parts[0] == mbr.Key || parts[1] == mbr.Key)
	}
	return false
}

// Handlers

func (s *server) chatSend(ctx echo.Context) error {
	data := new(chat.NewMessage)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	if !canAccessConversation(mbr, data.ConversationKey) {
		return errHTTPForbidden
	}

	msg, err := s.opts.ChatSvc.Send(ctx.Request().Context(), *data, &mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (s *server) chatInbox(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	msgs, err := s.opts.ChatSvc.Inbox(&mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (s *server) chatHistory(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	convKey := ctx.Param("key")
	if !canAccessConversation(mbr, convKey) {
		return errHTTPForbidden
	}
	return ctx.JSON(http.StatusOK, s.opts.ChatSvc.History(convKey))
}

func (s *server) chatOpen(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	convKey := ctx.Param("key")
	if !canAccessConversation(mbr, convKey) {
		return errHTTPForbidden
	}
	if err = s.opts.ChatSvc.OpenConversation(convKey); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) chatClose(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	convKey := ctx.Param("key")
	if !canAccessConversation(mbr, convKey) {
		return errHTTPForbidden
	}
	s.opts.ChatSvc.CloseConversation(convKey)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) chatLive(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	convKey := ctx.Param("key")
	if !canAccessConversation(mbr, convKey) {
		return errHTTPForbidden
	}
	return ctx.JSON(http.StatusOK, s.opts.ChatSvc.Live(convKey))
}
