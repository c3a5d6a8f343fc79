// Command validate-deploy checks a deployment's configuration before the
// bot goes live: the Telegram token, the webhook URL and the market data
// sidecar must all be reachable or explicitly absent.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/tradepulse/tradepulse-go/internal/config"
)

func main() {
	fmt.Println("🔧 Validating TradePulse deployment configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := runChecks(ctx, cfg); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n🎉 All deployment checks passed!")
}

func runChecks(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis parameters invalid: %w", err)
	}
	fmt.Printf("✅ Analysis parameters valid (minimum window %d bars)\n", cfg.Analysis.MinBars())

	if err := checkMarketData(ctx, cfg.MarketData.ServiceURL); err != nil {
		fmt.Printf("⚠️  Market data sidecar unreachable: %v\n", err)
	} else {
		fmt.Printf("✅ Market data sidecar reachable: %s\n", cfg.MarketData.ServiceURL)
	}

	if cfg.Telegram.BotToken == "" {
		fmt.Println("⚠️  TELEGRAM_BOT_TOKEN is not configured, bot will be disabled")
		return nil
	}

	b, err := bot.New(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	botInfo, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("Telegram API rejected the token: %w", err)
	}
	fmt.Printf("✅ Bot authenticated: @%s (%d)\n", botInfo.Username, botInfo.ID)

	if cfg.Telegram.WebhookURL == "" {
		fmt.Println("⚠️  telegram.webhook_url is not configured, webhook will not be registered")
	} else {
		fmt.Printf("✅ Webhook URL configured: %s\n", cfg.Telegram.WebhookURL)
	}
	if cfg.Admin.ChatID == 0 {
		fmt.Println("⚠️  admin.chat_id is not configured, approval notifications disabled")
	}
	return nil
}

func checkMarketData(ctx context.Context, serviceURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health endpoint answered %d", resp.StatusCode)
	}
	return nil
}
