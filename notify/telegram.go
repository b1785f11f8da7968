package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

// TelegramNotifier sends alerts to a Telegram chat via the bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	enabled bool
	client  *http.Client
}

func NewTelegram(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		enabled: token != "" && chatID != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) send(text string) {
	if !t.enabled {
		return
	}

	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("telegram: marshal message: %v", err)
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		log.Printf("telegram: send failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("telegram: send returned status %d", resp.StatusCode)
	}
}

func (t *TelegramNotifier) TradeEntry(symbol string, side market.Side, qty, price float64, tp, sl *float64) {
	msg := fmt.Sprintf("ENTRY %s %s\nqty: %.6f @ $%.2f", side, symbol, qty, price)
	if tp != nil && sl != nil {
		msg += fmt.Sprintf("\nTP: $%.2f  SL: $%.2f", *tp, *sl)
	}
	t.send(msg)
}

func (t *TelegramNotifier) TradeExit(symbol string, side market.Side, qty, price, pnl, pnlPct float64) {
	t.send(fmt.Sprintf("EXIT %s %s\nqty: %.6f @ $%.2f\nP&L: $%.2f (%+.2f%%)",
		side, symbol, qty, price, pnl, pnlPct*100))
}

func (t *TelegramNotifier) RiskStop(msg string) {
	t.send("RISK STOP\n" + msg)
}

func (t *TelegramNotifier) Error(title, msg string) {
	t.send(fmt.Sprintf("ERROR: %s\n%s", title, msg))
}
