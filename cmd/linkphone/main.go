// Command linkphone links a Retell phone number to an outbound agent. It
// fixes the "No outbound agent id set up for phone number" rejection without
// going through the dashboard.
//
// Usage:
//
//	linkphone -number +13135551234 [-agent agent_xxx]
//
// The agent defaults to RETELL_AGENT_ID.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	httpadapter "github.com/ClareAI/astra-verify-service/internal/adapters/http"
	"github.com/ClareAI/astra-verify-service/internal/config"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	number := flag.String("number", "", "phone number to link (any format, normalized to E.164)")
	agent := flag.String("agent", "", "agent id to set as outbound agent (defaults to RETELL_AGENT_ID)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if _, err := logger.Init(cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	agentID := *agent
	if agentID == "" {
		agentID = cfg.RetellAgentID
	}
	if *number == "" || agentID == "" {
		log.Fatal("both -number and an agent id (via -agent or RETELL_AGENT_ID) are required")
	}
	if cfg.RetellAPIKey == "" {
		log.Fatal("RETELL_API_KEY is not configured")
	}

	client := httpadapter.NewRetellClient(cfg.RetellBaseURL, cfg.RetellAPIKey, cfg.RetellFromNumber, cfg.DefaultCountryCode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.LinkPhoneNumberToAgent(ctx, *number, agentID); err != nil {
		logger.Base().Fatal("failed to link phone number", zap.Error(err))
	}

	logger.Base().Info("phone number linked",
		zap.String("phone_number", *number),
		zap.String("agent_id", agentID))
}
