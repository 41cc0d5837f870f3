package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/ledger"
	"github.com/ucfagri/sambot/internal/media"
	"github.com/ucfagri/sambot/internal/verify"
)

// handleMedia routes an inbound photo. Receipt submitters and non-premium
// users go straight to verification, soil analysis photos work for anyone
// in that flow, premium users in the diagnosis flow get their crop looked
// at; anything else gets asked.
func (e *Engine) handleMedia(ctx context.Context, t *turn) {
	staged, err := e.stageAttachment(ctx, t)
	if err != nil {
		e.logger.Warn("stage attachment", slog.String("error", err.Error()))
		if errors.Is(err, media.ErrAssetTooLarge) {
			e.reply(ctx, t, "⚠️ That photo is too large. Please send a smaller one.")
			return
		}
		e.reply(ctx, t, apologyText)
		return
	}

	state := e.deps.Sessions.Get(t.key())
	switch {
	case state == StateAwaitingReceipt:
		e.verifyReceipt(ctx, t, staged)
	case state == StateAwaitingSoilImage:
		e.analyzeSoil(ctx, t, staged)
	case !e.premiumActive(t):
		e.verifyReceipt(ctx, t, staged)
	case state == StateAwaitingCropImage:
		e.diagnoseCrop(ctx, t, staged)
	default:
		e.setPending(t.key(), staged)
		e.setState(t, StateAwaitingImgChoice)
		e.reply(ctx, t, imageChoiceText)
	}
}

func (e *Engine) handleImageChoice(ctx context.Context, t *turn) {
	switch t.text {
	case "1":
		staged, ok := e.takePending(t.key())
		if !ok {
			e.reply(ctx, t, "That photo has expired. Please send it again.")
			e.setState(t, StateMainMenu)
			return
		}
		e.verifyReceipt(ctx, t, staged)
	case "2":
		if !e.premiumActive(t) {
			e.clearPending(t.key())
			e.setState(t, StatePremiumAccessInfo)
			e.reply(ctx, t, "📷 Crop diagnosis is a premium feature.\n\n"+premiumPromptText)
			return
		}
		staged, ok := e.takePending(t.key())
		if !ok {
			e.reply(ctx, t, "That photo has expired. Please send it again.")
			e.setState(t, StateMainMenu)
			return
		}
		e.diagnoseCrop(ctx, t, staged)
	case "3":
		staged, ok := e.takePending(t.key())
		if !ok {
			e.reply(ctx, t, "That photo has expired. Please send it again.")
			e.setState(t, StateMainMenu)
			return
		}
		e.analyzeSoil(ctx, t, staged)
	case "4":
		e.clearPending(t.key())
		e.toMainMenu(ctx, t)
	default:
		e.reply(ctx, t, imageChoiceText)
	}
}

func (e *Engine) stageAttachment(ctx context.Context, t *turn) (media.Staged, error) {
	var att channel.Attachment
	for _, a := range t.msg.Attachments {
		if a.HasReference() {
			att = a
			break
		}
	}
	reader, mime, err := e.deps.Resolver.ResolveAttachment(ctx, att)
	if err != nil {
		return media.Staged{}, fmt.Errorf("resolve attachment: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	if mime == "" {
		mime = att.Mime
	}
	return e.deps.Media.Stage(reader, mime)
}

// verifyReceipt runs the full premium flow: pipeline, anti-replay check,
// grant. Every submission lands in the ledger whatever the outcome.
func (e *Engine) verifyReceipt(ctx context.Context, t *turn, staged media.Staged) {
	defer e.deps.Media.Remove(staged.Path)

	e.reply(ctx, t, analyzingText)
	e.notifyProcessing(ctx, t.msg.ChatID)

	imageURL := e.archiveReceipt(ctx, staged)
	e.forwardToAdmin(ctx, t, staged, imageURL)

	result := e.deps.Verifier.Process(ctx, staged.Path)
	doc := ledger.Document{
		UserID:      t.user.ID,
		ImageURL:    imageURL,
		Receipt:     result.Receipt,
		Fingerprint: fingerprintFor(result.Receipt),
	}

	// The receipt flow always ends back on the main menu.
	e.setState(t, StateMainMenu)

	switch result.Outcome {
	case verify.OutcomeVerified:
		doc.Status = ledger.StatusApproved
		recorded, err := e.deps.Ledger.CheckAndRecord(doc)
		if err != nil {
			if errors.Is(err, ledger.ErrReceiptUsed) {
				// The replay attempt still leaves an audit record.
				doc.Status = ledger.StatusPending
				doc.Receipt.ValidationErrors = append(doc.Receipt.ValidationErrors, "Receipt already used")
				e.recordDocument(doc)
				e.reply(ctx, t, receiptUsedText)
				return
			}
			e.logger.Error("record approved receipt", slog.String("error", err.Error()))
			e.reply(ctx, t, apologyText)
			return
		}
		granted, err := e.deps.Entitlement.Grant(t.user.ID, imageURL)
		if err != nil {
			e.logger.Error("grant premium", slog.String("error", err.Error()))
			e.reply(ctx, t, apologyText)
			return
		}
		e.reply(ctx, t, premiumGrantedText(recorded, *granted.PremiumExpiry))

	case verify.OutcomeRejected:
		doc.Status = ledger.StatusRejected
		e.recordDocument(doc)
		e.reply(ctx, t, noSponsorText(e.deps.SponsorKeyword))

	default:
		doc.Status = ledger.StatusPending
		e.recordDocument(doc)
		switch result.Reason {
		case verify.ReasonQRRequired:
			e.reply(ctx, t, qrRequiredText)
		case verify.ReasonUnreadable:
			e.reply(ctx, t, unreadableText)
		default:
			e.reply(ctx, t, validationFailedText(result.Errors))
		}
	}
}

func (e *Engine) recordDocument(doc ledger.Document) {
	if _, err := e.deps.Ledger.Record(doc); err != nil {
		e.logger.Error("record receipt", slog.String("error", err.Error()))
	}
}

// fingerprintFor derives the replay key when the identifying fields are
// all present.
func fingerprintFor(r verify.Receipt) string {
	if r.RetailerName == "" || r.PurchaseDate == "" || r.TotalAmount == "" {
		return ""
	}
	return ledger.Fingerprint(r.RetailerName, r.PurchaseDate, r.TotalAmount)
}

// archiveReceipt uploads the staged image for the audit trail. Best-effort.
func (e *Engine) archiveReceipt(ctx context.Context, staged media.Staged) string {
	if e.deps.Uploader == nil {
		return ""
	}
	url, err := e.deps.Uploader.Upload(ctx, staged.Path)
	if err != nil {
		e.logger.Warn("archive receipt", slog.String("error", err.Error()))
		return ""
	}
	return url
}

// forwardToAdmin mirrors the submitted photo to the operations chat.
func (e *Engine) forwardToAdmin(ctx context.Context, t *turn, staged media.Staged, imageURL string) {
	if e.deps.AdminChatID == "" {
		return
	}
	caption := fmt.Sprintf("🧾 Receipt submitted by %s", fmtUserTag(t.user))
	if imageURL != "" {
		caption += "\n" + imageURL
	}
	err := e.deps.Sender.Send(ctx, channel.OutboundMessage{
		ChatID:    e.deps.AdminChatID,
		Text:      caption,
		PhotoPath: staged.Path,
	})
	if err != nil {
		e.logger.Warn("forward to admin", slog.String("error", err.Error()))
	}
}

func (e *Engine) diagnoseCrop(ctx context.Context, t *turn, staged media.Staged) {
	defer e.deps.Media.Remove(staged.Path)

	e.setState(t, StateMainMenu)
	if e.deps.Assistant == nil {
		e.reply(ctx, t, "Crop diagnosis is unavailable right now. Please try again later.")
		return
	}

	e.reply(ctx, t, "🔬 Looking at your crop photo, one moment...")
	e.notifyProcessing(ctx, t.msg.ChatID)

	advice, err := e.deps.Assistant.DiagnoseCrop(ctx, staged.Path)
	if err != nil || advice == "" {
		if err != nil {
			e.logger.Warn("diagnose crop", slog.String("error", err.Error()))
		}
		e.reply(ctx, t, "I couldn't analyze that photo. Please try a closer, well-lit shot of the affected leaves, or ask an expert from the main menu.")
		return
	}

	if err := e.diagnoses.Update(func(items []Diagnosis) ([]Diagnosis, error) {
		return append(items, Diagnosis{
			ID:        uuid.NewString(),
			UserID:    t.user.ID,
			Advice:    advice,
			CreatedAt: time.Now(),
		}), nil
	}); err != nil {
		e.logger.Warn("record diagnosis", slog.String("error", err.Error()))
	}

	e.reply(ctx, t, advice+"\n\nType *menu* to go back.")
}

// analyzeSoil reads a soil test report photo and turns it into a fertilizer
// program, tailored to the calculator's crop when one is in progress.
func (e *Engine) analyzeSoil(ctx context.Context, t *turn, staged media.Staged) {
	defer e.deps.Media.Remove(staged.Path)

	crop := e.calcFor(t.key()).crop
	e.clearCalc(t.key())
	e.setState(t, StateMainMenu)
	if e.deps.Assistant == nil {
		e.reply(ctx, t, "Soil analysis reading is unavailable right now. Please share your results with your UCF agronomist (option 4 on the main menu) instead.")
		return
	}

	e.reply(ctx, t, "🧪 Reading your soil analysis, one moment...")
	e.notifyProcessing(ctx, t.msg.ChatID)

	advice, err := e.deps.Assistant.AnalyzeSoil(ctx, crop, staged.Path)
	if err != nil || advice == "" {
		if err != nil {
			e.logger.Warn("analyze soil", slog.String("error", err.Error()))
		}
		e.reply(ctx, t, "I couldn't read that report. Please try a sharper photo of the full results page, or ask an expert from the main menu.")
		return
	}

	if err := e.soils.Update(func(items []SoilReport) ([]SoilReport, error) {
		return append(items, SoilReport{
			ID:        uuid.NewString(),
			UserID:    t.user.ID,
			Crop:      crop,
			Advice:    advice,
			CreatedAt: time.Now(),
		}), nil
	}); err != nil {
		e.logger.Warn("record soil report", slog.String("error", err.Error()))
	}

	e.reply(ctx, t, advice+"\n\nType *menu* to go back.")
}
