package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// NOTIFICATION DISPATCHER
// ==============================================

// Sender is the channel primitive the dispatcher delivers through
type Sender interface {
	Enabled() bool
	SendMessage(ctx context.Context, chatID, text string) error
}

// Dispatcher delivers messages to a user's linked channel with a fallback
// to a fixed operator chat. Delivery is best-effort: outcomes are logged
// and never influence the issuance flow.
type Dispatcher struct {
	sender      Sender
	adminChatID string
}

func NewDispatcher(sender Sender, adminChatID string) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		adminChatID: adminChatID,
	}
}

// ==============================================
// CREDENTIAL DELIVERY
// ==============================================

// DeliverCredentials sends issued credentials to the identity's linked
// channel. On channel failure the message goes to the operator chat
// annotated with the original recipient; identities without a linked
// channel go straight to the operator chat.
func (d *Dispatcher) DeliverCredentials(ctx context.Context, identity *models.Identity, phone, message string) {
	if !d.sender.Enabled() {
		log.Printf("[NOTIFY] Skipped - no bot token configured, Phone: %s", phone)
		return
	}

	if identity != nil && identity.HasTelegram() {
		err := d.sender.SendMessage(ctx, identity.TelegramID.String, message)
		if err == nil {
			log.Printf("[NOTIFY] Delivered credentials to user - Phone: %s", phone)
			return
		}
		log.Printf("[NOTIFY] User delivery failed - Phone: %s, Err: %v", phone, err)
		d.deliverToOperator(ctx, fmt.Sprintf("📋 *New trial for %s*\n⚠️ *User channel unreachable*\n\n%s", phone, message))
		return
	}

	log.Printf("[NOTIFY] No linked channel - Phone: %s", phone)
	d.deliverToOperator(ctx, fmt.Sprintf("📋 *New trial for %s*\n⚠️ *User has not registered a Telegram ID*\n\n%s", phone, message))
}

// DeliverOTP sends a one-time code to the identity's linked channel.
// No operator fallback: codes are secrets scoped to the user.
func (d *Dispatcher) DeliverOTP(ctx context.Context, telegramID, code string) {
	if !d.sender.Enabled() || telegramID == "" {
		return
	}

	text := fmt.Sprintf("🔐 Your verification code: %s\n\nIt expires in 10 minutes.", code)
	if err := d.sender.SendMessage(ctx, telegramID, text); err != nil {
		log.Printf("[NOTIFY] OTP delivery failed - ChatID: %s, Err: %v", telegramID, err)
	}
}

func (d *Dispatcher) deliverToOperator(ctx context.Context, message string) {
	if d.adminChatID == "" {
		log.Printf("[NOTIFY] No operator chat configured for fallback")
		return
	}

	if err := d.sender.SendMessage(ctx, d.adminChatID, message); err != nil {
		log.Printf("[NOTIFY] Operator delivery failed: %v", err)
	}
}

// ==============================================
// MESSAGE TEMPLATES
// ==============================================

// CredentialsMessage renders the credential hand-off text for a trial
func CredentialsMessage(username, password, expiresAt string) string {
	return fmt.Sprintf(`🎉 *Your Trial is Ready!*

📺 *Username:* `+"`%s`"+`
🔐 *Password:* `+"`%s`"+`
⏰ *Expires:* %s

🚀 *How to use:*
1. Open your player app
2. Log in with these credentials
3. Enjoy!

💎 *Want to extend your access?*
Visit the pricing page.`, username, password, expiresAt)
}

// NudgeMessage renders the mid-trial upsell text
func NudgeMessage() string {
	return "👍 Trial working? Get full access now."
}
