// Package bot is the conversation core: a per-user state machine over the
// messaging channel, plus the receipt verification flow that earns premium
// access.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/entitlement"
	"github.com/ucfagri/sambot/internal/ledger"
	"github.com/ucfagri/sambot/internal/media"
	"github.com/ucfagri/sambot/internal/session"
	"github.com/ucfagri/sambot/internal/store"
	"github.com/ucfagri/sambot/internal/users"
	"github.com/ucfagri/sambot/internal/verify"
)

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, msg channel.OutboundMessage) error
}

// AttachmentResolver fetches attachment bytes from the channel.
type AttachmentResolver interface {
	ResolveAttachment(ctx context.Context, att channel.Attachment) (io.ReadCloser, string, error)
}

// Notifier shows a processing hint in the chat. Optional.
type Notifier interface {
	ProcessingStarted(ctx context.Context, chatID string) error
}

// Verifier runs the receipt pipeline.
type Verifier interface {
	Process(ctx context.Context, imagePath string) verify.Result
}

// Assistant is the AI collaborator. Every call is best-effort.
type Assistant interface {
	Reply(ctx context.Context, userName, text string) (string, error)
	AnswerProductQuestion(ctx context.Context, question string, matches []catalog.Product) (string, error)
	DiagnoseCrop(ctx context.Context, imagePath string) (string, error)
	AnalyzeSoil(ctx context.Context, crop, imagePath string) (string, error)
}

// Inquiry is an expert escalation record.
type Inquiry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Issue     string    `json:"issue"`
	CreatedAt time.Time `json:"created_at"`
}

// Diagnosis is a stored crop diagnosis result.
type Diagnosis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url,omitempty"`
	Advice    string    `json:"advice"`
	CreatedAt time.Time `json:"created_at"`
}

// SoilReport is a stored soil analysis reading.
type SoilReport struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Crop      string    `json:"crop,omitempty"`
	Advice    string    `json:"advice"`
	CreatedAt time.Time `json:"created_at"`
}

// Deps are the engine's collaborators.
type Deps struct {
	Sessions    *session.Store
	Users       *users.Service
	Entitlement *entitlement.Service
	Ledger      *ledger.Service
	Verifier    Verifier
	Sender      Sender
	Resolver    AttachmentResolver
	Notifier    Notifier
	Media       *media.Service
	Uploader    media.Uploader
	Assistant   Assistant
	Catalog     *catalog.Catalog

	DataDir        string
	SponsorKeyword string
	AdminChatID    string
	ExpertChatID   string
}

type handlerFunc func(ctx context.Context, t *turn)

// turn carries one inbound message through its handler.
type turn struct {
	msg  channel.InboundMessage
	user users.User
	text string
}

func (t *turn) key() string { return t.msg.Identity.Key() }

// calcState is the calculator's per-identity scratch pad.
type calcState struct {
	crop string
}

// Engine dispatches inbound messages to state handlers, one turn at a time
// per identity.
type Engine struct {
	deps     Deps
	logger   *slog.Logger
	handlers map[string]handlerFunc

	inquiries *store.Collection[Inquiry]
	diagnoses *store.Collection[Diagnosis]
	soils     *store.Collection[SoilReport]

	mu      sync.Mutex
	queues  map[string]chan channel.InboundMessage
	calc    map[string]*calcState
	pending map[string]media.Staged

	runCtx context.Context
}

// NewEngine creates the conversation engine.
func NewEngine(log *slog.Logger, deps Deps) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		deps:      deps,
		logger:    log.With(slog.String("service", "bot")),
		inquiries: store.NewCollection[Inquiry](log, filepath.Join(deps.DataDir, "inquiries.json")),
		diagnoses: store.NewCollection[Diagnosis](log, filepath.Join(deps.DataDir, "diagnoses.json")),
		soils:     store.NewCollection[SoilReport](log, filepath.Join(deps.DataDir, "soil_analysis.json")),
		queues:    make(map[string]chan channel.InboundMessage),
		calc:      make(map[string]*calcState),
		pending:   make(map[string]media.Staged),
		runCtx:    context.Background(),
	}
	e.handlers = map[string]handlerFunc{
		StateMainMenu:          e.handleMainMenu,
		StatePremiumMenu:       e.handlePremiumMenu,
		StateAwaitingName:      e.handleAwaitingName,
		StateAwaitingPhone:     e.handleAwaitingPhone,
		StateAwaitingExpertEm:  e.handleExpertEmail,
		StateAwaitingExpertIss: e.handleExpertIssue,
		StateProductQA:         e.handleProductQA,
		StateAwaitingGuide:     e.handleGuideSelection,
		StatePremiumAccessInfo: e.handlePremiumAccessInfo,
		StateAwaitingImgChoice: e.handleImageChoice,
		StateAwaitingReceipt:   e.handleAwaitingReceiptText,
		StateAwaitingCropImage: e.handleAwaitingCropImageText,
		StateAwaitingSoilImage: e.handleAwaitingSoilImageText,
		StateCalcPlant:         e.handleCalcPlant,
		StateCalcYield:         e.handleCalcYield,
		StateCalcSoilCheck:     e.handleCalcSoilCheck,
	}
	return e
}

// Start binds the engine to its run context. Queued turns keep processing
// until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.runCtx = ctx
}

// HandleInbound enqueues a message for its identity's worker. Turns for one
// identity process strictly in arrival order; identities run in parallel.
func (e *Engine) HandleInbound(ctx context.Context, msg channel.InboundMessage) {
	key := msg.Identity.Key()
	e.mu.Lock()
	q, ok := e.queues[key]
	if !ok {
		q = make(chan channel.InboundMessage, 16)
		e.queues[key] = q
		go e.worker(q)
	}
	e.mu.Unlock()

	select {
	case q <- msg:
	default:
		e.logger.Warn("inbound queue full, dropping message", slog.String("identity", key))
	}
}

func (e *Engine) worker(q chan channel.InboundMessage) {
	for {
		select {
		case <-e.runCtx.Done():
			return
		case msg := <-q:
			e.ProcessTurn(e.runCtx, msg)
		}
	}
}

// ProcessTurn runs one inbound message through the state machine. A panic
// inside a handler is logged and answered with an apology; the session
// survives.
func (e *Engine) ProcessTurn(ctx context.Context, msg channel.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn panicked",
				slog.String("identity", msg.Identity.Key()),
				slog.Any("panic", r),
			)
			e.send(ctx, msg.ChatID, apologyText)
		}
	}()

	user, err := e.deps.Users.GetOrCreate(msg.Identity, msg.ChatID)
	if err != nil {
		e.logger.Error("load user", slog.String("error", err.Error()))
		e.send(ctx, msg.ChatID, apologyText)
		return
	}
	t := &turn{msg: msg, user: user, text: msg.PlainText()}

	if msg.Location != nil {
		e.handleLocation(ctx, t)
		return
	}
	if msg.HasMedia() {
		e.handleMedia(ctx, t)
		return
	}
	if t.text == "" {
		return
	}

	// Global escape hatch, checked before any state handler.
	if strings.EqualFold(t.text, "menu") {
		e.toMainMenu(ctx, t)
		return
	}

	state := e.deps.Sessions.Get(t.key())
	handler, ok := e.handlers[state]
	if !ok {
		handler = e.handleMainMenu
		e.deps.Sessions.Put(t.key(), StateMainMenu)
	}
	handler(ctx, t)
}

// --- shared helpers ---

func (e *Engine) send(ctx context.Context, chatID, text string) {
	if err := e.deps.Sender.Send(ctx, channel.OutboundMessage{ChatID: chatID, Text: text}); err != nil {
		e.logger.Warn("send reply", slog.String("chat_id", chatID), slog.String("error", err.Error()))
	}
}

func (e *Engine) reply(ctx context.Context, t *turn, text string) {
	e.send(ctx, t.msg.ChatID, text)
}

func (e *Engine) setState(t *turn, state string) {
	e.deps.Sessions.Put(t.key(), state)
}

func (e *Engine) toMainMenu(ctx context.Context, t *turn) {
	e.clearCalc(t.key())
	e.clearPending(t.key())
	e.setState(t, StateMainMenu)
	e.reply(ctx, t, mainMenuText)
}

func (e *Engine) premiumActive(t *turn) bool {
	return e.deps.Entitlement.IsActive(t.user)
}

func (e *Engine) notifyProcessing(ctx context.Context, chatID string) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.ProcessingStarted(ctx, chatID); err != nil {
		e.logger.Debug("processing notice", slog.String("error", err.Error()))
	}
}

func (e *Engine) clearCalc(key string) {
	e.mu.Lock()
	delete(e.calc, key)
	e.mu.Unlock()
}

func (e *Engine) calcFor(key string) *calcState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.calc[key]; ok {
		return c
	}
	c := &calcState{}
	e.calc[key] = c
	return c
}

func (e *Engine) setPending(key string, staged media.Staged) {
	e.mu.Lock()
	e.pending[key] = staged
	e.mu.Unlock()
}

func (e *Engine) takePending(key string) (media.Staged, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	staged, ok := e.pending[key]
	delete(e.pending, key)
	return staged, ok
}

func (e *Engine) clearPending(key string) {
	e.mu.Lock()
	staged, ok := e.pending[key]
	delete(e.pending, key)
	e.mu.Unlock()
	if ok && e.deps.Media != nil {
		e.deps.Media.Remove(staged.Path)
	}
}

func (e *Engine) recordInquiry(t *turn, email, issue string) Inquiry {
	inq := Inquiry{
		ID:        uuid.NewString(),
		UserID:    t.user.ID,
		Name:      t.user.Name,
		Email:     email,
		Issue:     issue,
		CreatedAt: time.Now(),
	}
	if err := e.inquiries.Update(func(items []Inquiry) ([]Inquiry, error) {
		return append(items, inq), nil
	}); err != nil {
		e.logger.Warn("record inquiry", slog.String("error", err.Error()))
	}
	return inq
}

// Inquiries returns every expert escalation, newest last.
func (e *Engine) Inquiries() []Inquiry {
	return e.inquiries.Load()
}

// SoilReports returns every stored soil analysis reading, newest last.
func (e *Engine) SoilReports() []SoilReport {
	return e.soils.Load()
}

func isGreeting(text string) bool {
	return greetings[strings.ToLower(strings.Trim(text, " !.?"))]
}

func fmtUserTag(u users.User) string {
	if u.Name != "" {
		return fmt.Sprintf("%s (%s)", u.Name, u.ID)
	}
	return u.ID
}
