package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"session-chat/internal/config"
	"session-chat/internal/db"
	"session-chat/internal/llm"
	"session-chat/internal/repository"
	"session-chat/internal/service"
)

// Cliente de terminal para probar turnos de chat contra el mismo stack de
// servicios que usa el API, sin pasar por HTTP.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal(err)
	}

	sessionRepo := repository.NewPgSessionRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	var provider llm.Provider = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	if os.Getenv("CLI_CHAT_OFFLINE") != "" {
		provider = &llm.MockProvider{Response: "(offline) recibido"}
	}

	sessionSvc := service.NewSessionService(sessionRepo, nil, cfg.SessionTTL())
	chatSvc := service.NewChatService(sessionSvc, conversationRepo, messageRepo, provider)

	session, err := sessionSvc.Create(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("session %s (expira %s)\n", session.Token, session.ExpiresAt.Format("15:04:05"))
	fmt.Println("escribe un mensaje, o /salir para terminar")

	conversationID := ""
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/salir" {
			return
		}

		result, err := chatSvc.HandleTurn(ctx, service.TurnInput{
			Message:        line,
			SessionToken:   session.Token,
			ConversationID: conversationID,
		})
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		conversationID = result.ConversationID
		fmt.Println(result.ReplyText)
	}
}
