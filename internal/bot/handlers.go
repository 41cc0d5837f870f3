package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/shops"
	"github.com/ucfagri/sambot/internal/users"
)

func (e *Engine) handleMainMenu(ctx context.Context, t *turn) {
	if isGreeting(t.text) {
		if !t.user.HasProfile() {
			e.setState(t, StateAwaitingName)
			e.reply(ctx, t, namePromptText)
			return
		}
		e.reply(ctx, t, fmt.Sprintf("👋 Welcome back, %s!\n\n%s", t.user.Name, mainMenuText))
		return
	}

	switch t.text {
	case "1":
		e.setState(t, StateProductQA)
		e.reply(ctx, t, productQAPromptText)
	case "2":
		e.clearCalc(t.key())
		e.setState(t, StateCalcPlant)
		e.reply(ctx, t, calcPlantPromptText)
	case "3":
		e.setState(t, StateAwaitingGuide)
		e.reply(ctx, t, "📚 *Farming Guides*\n\n"+catalog.FormatGuideList(e.guidesFor(t))+"\n\nReply with a number to get the guide.")
	case "4":
		e.setState(t, StateAwaitingExpertEm)
		e.reply(ctx, t, expertEmailPromptText)
	case "5":
		e.reply(ctx, t, locationPromptText)
	case "6":
		if e.premiumActive(t) {
			e.setState(t, StatePremiumMenu)
			e.reply(ctx, t, premiumMenuText)
			return
		}
		e.setState(t, StatePremiumAccessInfo)
		e.reply(ctx, t, premiumPromptText)
	case "7":
		e.reply(ctx, t, helpText)
	default:
		e.freeFormReply(ctx, t)
	}
}

// freeFormReply hands unmatched main-menu input to the assistant, falling
// back to re-showing the menu.
func (e *Engine) freeFormReply(ctx context.Context, t *turn) {
	if e.deps.Assistant != nil {
		e.notifyProcessing(ctx, t.msg.ChatID)
		if answer, err := e.deps.Assistant.Reply(ctx, t.user.Name, t.text); err == nil && answer != "" {
			e.reply(ctx, t, answer)
			return
		} else if err != nil {
			e.logger.Warn("assistant reply", slog.String("error", err.Error()))
		}
	}
	e.reply(ctx, t, "I didn't catch that.\n\n"+mainMenuText)
}

func (e *Engine) handlePremiumMenu(ctx context.Context, t *turn) {
	// Premium can lapse mid-conversation; re-check on every selection.
	if !e.premiumActive(t) {
		e.setState(t, StatePremiumAccessInfo)
		e.reply(ctx, t, "⚠️ Your premium access has expired.\n\n"+premiumPromptText)
		return
	}
	switch t.text {
	case "1":
		e.setState(t, StateAwaitingCropImage)
		e.reply(ctx, t, "📷 Send me a clear photo of the affected crop and I'll take a look.")
	case "2":
		e.setState(t, StateAwaitingGuide)
		e.reply(ctx, t, "📚 *Exclusive Guides*\n\n"+catalog.FormatGuideList(e.guidesFor(t))+"\n\nReply with a number to get the guide.")
	case "3":
		e.reply(ctx, t, "🌱 You're on the list! I'll send you a farming tip every morning at 10:00.")
	case "4":
		e.setState(t, StateProductQA)
		e.reply(ctx, t, productQAPromptText)
	case "5":
		e.clearCalc(t.key())
		e.setState(t, StateCalcPlant)
		e.reply(ctx, t, calcPlantPromptText)
	case "6":
		e.setState(t, StateAwaitingExpertEm)
		e.reply(ctx, t, expertEmailPromptText)
	case "7":
		e.toMainMenu(ctx, t)
	default:
		e.reply(ctx, t, "Please reply with a number from 1 to 7.\n\n"+premiumMenuText)
	}
}

func (e *Engine) handleAwaitingName(ctx context.Context, t *turn) {
	name := strings.TrimSpace(t.text)
	if name == "" || len(name) > 100 {
		e.reply(ctx, t, "Please tell me your name.")
		return
	}
	updated, err := e.deps.Users.Update(t.user.ID, func(u *users.User) { u.Name = name })
	if err != nil {
		e.logger.Warn("save name", slog.String("error", err.Error()))
	} else {
		t.user = updated
	}
	e.setState(t, StateAwaitingPhone)
	e.reply(ctx, t, fmt.Sprintf("Nice to meet you, %s! What's your phone number?", name))
}

func (e *Engine) handleAwaitingPhone(ctx context.Context, t *turn) {
	phone := strings.TrimSpace(t.text)
	if len(strings.Map(keepDigits, phone)) < 7 {
		e.reply(ctx, t, "That doesn't look like a phone number. Please send it with the area code, e.g. 0771234567.")
		return
	}
	if updated, err := e.deps.Users.Update(t.user.ID, func(u *users.User) { u.Phone = phone }); err == nil {
		t.user = updated
	}
	e.setState(t, StateMainMenu)
	e.reply(ctx, t, "✅ You're all set!\n\n"+mainMenuText)
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func (e *Engine) handleExpertEmail(ctx context.Context, t *turn) {
	email := strings.TrimSpace(t.text)
	if !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		e.reply(ctx, t, "Please send a valid email address, e.g. farmer@example.com.")
		return
	}
	if updated, err := e.deps.Users.Update(t.user.ID, func(u *users.User) { u.Email = email }); err == nil {
		t.user = updated
	}
	e.setState(t, StateAwaitingExpertIss)
	e.reply(ctx, t, expertIssuePromptText)
}

func (e *Engine) handleExpertIssue(ctx context.Context, t *turn) {
	issue := strings.TrimSpace(t.text)
	if len(issue) < 10 {
		e.reply(ctx, t, "Please describe your issue in a bit more detail so the agronomist can help you.")
		return
	}
	inq := e.recordInquiry(t, t.user.Email, issue)

	if e.deps.ExpertChatID != "" {
		forward := fmt.Sprintf("👨‍🌾 *New farmer inquiry*\n\nFrom: %s\nEmail: %s\n\n%s",
			fmtUserTag(t.user), inq.Email, issue)
		e.send(ctx, e.deps.ExpertChatID, forward)
	}

	e.setState(t, StateMainMenu)
	e.reply(ctx, t, expertDoneText)
}

func (e *Engine) handleProductQA(ctx context.Context, t *turn) {
	matches := e.deps.Catalog.SearchProducts(t.text)
	e.notifyProcessing(ctx, t.msg.ChatID)

	if e.deps.Assistant != nil {
		answer, err := e.deps.Assistant.AnswerProductQuestion(ctx, t.text, matches)
		if err == nil && answer != "" {
			e.reply(ctx, t, answer+"\n\nAnything else? Type *menu* to go back.")
			return
		}
		if err != nil {
			e.logger.Warn("product answer", slog.String("error", err.Error()))
		}
	}
	switch {
	case len(matches) == 1:
		e.reply(ctx, t, catalog.FormatProduct(matches[0])+"\n\nType *menu* to go back.")
	case len(matches) > 1:
		e.reply(ctx, t, "🌿 I found a few products that might fit:\n\n"+catalog.FormatProductList(matches)+"\n\nAsk about one by name, or type *menu* to go back.")
	default:
		e.reply(ctx, t, "I couldn't find a matching product. Try another name, or type *menu* to go back.")
	}
}

func (e *Engine) guidesFor(t *turn) []catalog.Guide {
	return e.deps.Catalog.GuidesFor(e.premiumActive(t))
}

func (e *Engine) handleGuideSelection(ctx context.Context, t *turn) {
	guides := e.guidesFor(t)
	choice, err := strconv.Atoi(t.text)
	if err != nil || choice < 1 || choice > len(guides) {
		e.reply(ctx, t, "Please reply with one of the numbers below.\n\n"+catalog.FormatGuideList(guides))
		return
	}
	g := guides[choice-1]
	e.reply(ctx, t, fmt.Sprintf("📖 *%s*\n\n%s\n\nDownload: %s\n\nType *menu* to go back.", g.Title, g.Summary, g.URL))
}

func (e *Engine) handlePremiumAccessInfo(ctx context.Context, t *turn) {
	switch t.text {
	case "1":
		e.setState(t, StateAwaitingReceipt)
		e.reply(ctx, t, receiptInstructionsText)
	case "2":
		e.toMainMenu(ctx, t)
	default:
		e.reply(ctx, t, "Please reply 1 to submit your receipt, or 2 to go back.\n\n"+premiumPromptText)
	}
}

// Text while the bot expects a receipt photo.
func (e *Engine) handleAwaitingReceiptText(ctx context.Context, t *turn) {
	e.reply(ctx, t, "I'm waiting for a photo of your receipt. "+receiptInstructionsText)
}

// Text while the bot expects a crop photo.
func (e *Engine) handleAwaitingCropImageText(ctx context.Context, t *turn) {
	e.reply(ctx, t, "Please send a photo of the affected crop, or type *menu* to go back.")
}

// Text while the bot expects a soil analysis photo.
func (e *Engine) handleAwaitingSoilImageText(ctx context.Context, t *turn) {
	e.reply(ctx, t, "I'm waiting for a photo of your soil analysis results, or type *menu* to go back.")
}

func (e *Engine) handleLocation(ctx context.Context, t *turn) {
	loc := t.msg.Location
	if _, err := e.deps.Users.Update(t.user.ID, func(u *users.User) { u.Location = loc }); err != nil {
		e.logger.Warn("save location", slog.String("error", err.Error()))
	}
	nearby := shops.Nearest(e.deps.Catalog.Shops, loc.Latitude, loc.Longitude, 3)
	e.reply(ctx, t, shops.FormatMessage(nearby))
}
