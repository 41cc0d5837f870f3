package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/entitlement"
	"github.com/ucfagri/sambot/internal/ledger"
	"github.com/ucfagri/sambot/internal/media"
	"github.com/ucfagri/sambot/internal/session"
	"github.com/ucfagri/sambot/internal/users"
	"github.com/ucfagri/sambot/internal/verify"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []channel.OutboundMessage
}

func (f *fakeSender) Send(_ context.Context, msg channel.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) last() channel.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return channel.OutboundMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeResolver struct{}

func (fakeResolver) ResolveAttachment(context.Context, channel.Attachment) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("fake receipt image bytes")), "image/jpeg", nil
}

type fakeVerifier struct {
	mu      sync.Mutex
	result  verify.Result
	calls   int
	blockCh chan struct{}
}

func (f *fakeVerifier) Process(context.Context, string) verify.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.blockCh != nil {
		<-f.blockCh
	}
	return f.result
}

type fakeAssistant struct {
	reply string
	err   error
}

func (f fakeAssistant) Reply(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func (f fakeAssistant) AnswerProductQuestion(context.Context, string, []catalog.Product) (string, error) {
	return f.reply, f.err
}

func (f fakeAssistant) DiagnoseCrop(context.Context, string) (string, error) {
	return f.reply, f.err
}

func (f fakeAssistant) AnalyzeSoil(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type fixture struct {
	engine  *Engine
	sender  *fakeSender
	verif   *fakeVerifier
	users   *users.Service
	entitle *entitlement.Service
	ledger  *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	sender := &fakeSender{}
	verif := &fakeVerifier{result: verify.Result{Outcome: verify.OutcomePending, Reason: verify.ReasonQRRequired}}
	userSvc := users.NewService(nil, dataDir)
	entitle := entitlement.NewService(nil, userSvc, 1)
	ledg := ledger.NewService(nil, dataDir)

	engine := NewEngine(nil, Deps{
		Sessions:       session.NewStore(nil, StateMainMenu),
		Users:          userSvc,
		Entitlement:    entitle,
		Ledger:         ledg,
		Verifier:       verif,
		Sender:         sender,
		Resolver:       fakeResolver{},
		Media:          media.NewService(nil, t.TempDir(), time.Minute, 1<<20),
		Assistant:      fakeAssistant{reply: "canned answer"},
		Catalog:        testCatalog(),
		DataDir:        dataDir,
		SponsorKeyword: "UCF",
	})
	return &fixture{engine: engine, sender: sender, verif: verif, users: userSvc, entitle: entitle, ledger: ledg}
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Products: []catalog.Product{{Name: "Compound D", Category: "Basal"}},
		Guides: []catalog.Guide{
			{Title: "Maize Basics", URL: "https://g/1"},
			{Title: "Pro Soil Health", URL: "https://g/2", Premium: true},
		},
		Shops: []catalog.Shop{{Name: "Harare CBD", Latitude: -17.83, Longitude: 31.05}},
	}
}

func textMsg(userID, text string) channel.InboundMessage {
	return channel.InboundMessage{
		Identity: channel.Identity{Channel: channel.ChannelTelegram, UserID: userID},
		ChatID:   userID,
		Text:     text,
	}
}

func photoMsg(userID string) channel.InboundMessage {
	msg := textMsg(userID, "")
	msg.Attachments = []channel.Attachment{{Reference: "file-1", Mime: "image/jpeg"}}
	return msg
}

func (f *fixture) turn(t *testing.T, userID, text string) string {
	t.Helper()
	f.engine.ProcessTurn(context.Background(), textMsg(userID, text))
	return f.sender.last().Text
}

func (f *fixture) makePremium(t *testing.T, userID string) {
	t.Helper()
	u, err := f.users.GetOrCreate(channel.Identity{Channel: channel.ChannelTelegram, UserID: userID}, userID)
	require.NoError(t, err)
	_, err = f.entitle.Grant(u.ID, "")
	require.NoError(t, err)
}

func TestMenuEscapesEveryState(t *testing.T) {
	states := []string{
		StateMainMenu, StatePremiumMenu, StateAwaitingName, StateAwaitingPhone,
		StateAwaitingExpertEm, StateAwaitingExpertIss, StateProductQA,
		StateAwaitingGuide, StatePremiumAccessInfo, StateAwaitingImgChoice,
		StateAwaitingReceipt, StateAwaitingCropImage, StateAwaitingSoilImage,
		StateCalcPlant, StateCalcYield, StateCalcSoilCheck,
	}
	for _, state := range states {
		t.Run(state, func(t *testing.T) {
			f := newFixture(t)
			f.engine.deps.Sessions.Put("telegram:1", state)

			reply := f.turn(t, "1", "MENU")
			assert.Contains(t, reply, "Main Menu")
			assert.Equal(t, StateMainMenu, f.engine.deps.Sessions.Get("telegram:1"))
		})
	}
}

func TestGreetingOnMainMenuShowsNamePromptForNewUsers(t *testing.T) {
	f := newFixture(t)
	reply := f.turn(t, "1", "hello")
	assert.Contains(t, reply, "what's your name")
	assert.Equal(t, StateAwaitingName, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestGreetingOnMainMenuWelcomesKnownUsers(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "hi")
	f.turn(t, "1", "Rudo")
	f.turn(t, "1", "0771234567")

	reply := f.turn(t, "1", "Hey!")
	assert.Contains(t, reply, "Welcome back, Rudo")
	assert.Contains(t, reply, "Main Menu")
}

func TestGreetingElsewhereIsOrdinaryInput(t *testing.T) {
	f := newFixture(t)
	f.engine.deps.Sessions.Put("telegram:1", StateAwaitingName)

	reply := f.turn(t, "1", "hello")
	// "hello" becomes the user's name, not a greeting.
	assert.Contains(t, reply, "Nice to meet you, hello")
}

func TestPremiumOptionRedirectsNonEntitledUsers(t *testing.T) {
	f := newFixture(t)
	reply := f.turn(t, "1", "6")
	assert.Contains(t, reply, "Unlock Premium")
	assert.Equal(t, StatePremiumAccessInfo, f.engine.deps.Sessions.Get("telegram:1"))

	reply = f.turn(t, "1", "1")
	assert.Contains(t, reply, "photo of your purchase receipt")
	assert.Equal(t, StateAwaitingReceipt, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestPremiumOptionOpensPremiumMenuForEntitledUsers(t *testing.T) {
	f := newFixture(t)
	f.makePremium(t, "1")

	reply := f.turn(t, "1", "6")
	assert.Contains(t, reply, "Premium Menu")
	assert.Equal(t, StatePremiumMenu, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestPremiumMenuReChecksEntitlement(t *testing.T) {
	f := newFixture(t)
	f.engine.deps.Sessions.Put("telegram:1", StatePremiumMenu)

	reply := f.turn(t, "1", "1")
	assert.Contains(t, reply, "expired")
	assert.Equal(t, StatePremiumAccessInfo, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestCalculatorMidBracket(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "2")
	f.turn(t, "1", "Maize")

	reply := f.turn(t, "1", "3")
	assert.Contains(t, reply, "300 kg/ha")
	assert.Contains(t, reply, "Maize")
	assert.Contains(t, reply, "soil analysis")
	assert.Equal(t, StateMainMenu, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestCalculatorLowBracket(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "2")
	f.turn(t, "1", "sorghum")

	reply := f.turn(t, "1", "1.5")
	assert.Contains(t, reply, "150 kg/ha")
}

func TestCalculatorHighYieldAsksForSoilCheck(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "2")
	f.turn(t, "1", "maize")
	reply := f.turn(t, "1", "8")
	assert.Contains(t, reply, "soil analysis")
	assert.Equal(t, StateCalcSoilCheck, f.engine.deps.Sessions.Get("telegram:1"))

	reply = f.turn(t, "1", "2")
	assert.Contains(t, reply, "essential")
	assert.Equal(t, StateMainMenu, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestCalculatorSoilYesAsksForResultsPhoto(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "2")
	f.turn(t, "1", "maize")
	f.turn(t, "1", "8")

	reply := f.turn(t, "1", "1")
	assert.Contains(t, reply, "soil analysis results")
	assert.Equal(t, StateAwaitingSoilImage, f.engine.deps.Sessions.Get("telegram:1"))

	// Text instead of a photo re-prompts.
	reply = f.turn(t, "1", "here you go")
	assert.Contains(t, reply, "waiting for a photo")

	f.engine.ProcessTurn(context.Background(), photoMsg("1"))
	assert.Equal(t, 0, f.verif.calls)
	assert.Contains(t, f.sender.last().Text, "canned answer")
	assert.Equal(t, StateMainMenu, f.engine.deps.Sessions.Get("telegram:1"))

	reports := f.engine.SoilReports()
	require.Len(t, reports, 1)
	assert.Equal(t, "telegram:1", reports[0].UserID)
	assert.Equal(t, "maize", reports[0].Crop)
	assert.Equal(t, "canned answer", reports[0].Advice)
}

func TestCalculatorRejectsNonNumericYield(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "1", "2")
	f.turn(t, "1", "maize")

	reply := f.turn(t, "1", "plenty")
	assert.Contains(t, reply, "number of tonnes")
	assert.Equal(t, StateCalcYield, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestUnknownStateFallsBackToMainMenu(t *testing.T) {
	f := newFixture(t)
	f.engine.deps.Sessions.Put("telegram:1", "fertilizer_legacy")

	f.turn(t, "1", "7")
	assert.Equal(t, StateMainMenu, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestGuideSelectionGatesPremiumGuides(t *testing.T) {
	f := newFixture(t)
	reply := f.turn(t, "1", "3")
	assert.Contains(t, reply, "Maize Basics")
	assert.NotContains(t, reply, "Pro Soil Health")

	reply = f.turn(t, "1", "1")
	assert.Contains(t, reply, "https://g/1")
}

func TestProductQAListsMultipleMatchesWithoutAssistant(t *testing.T) {
	f := newFixture(t)
	f.engine.deps.Assistant = nil
	f.engine.deps.Catalog = &catalog.Catalog{Products: []catalog.Product{
		{Name: "Compound D", Category: "Basal"},
		{Name: "Compound J", Category: "Basal"},
	}}
	f.engine.deps.Sessions.Put("telegram:1", StateProductQA)

	reply := f.turn(t, "1", "compound")
	assert.Contains(t, reply, "1. Compound D (Basal)")
	assert.Contains(t, reply, "2. Compound J (Basal)")
}

func TestExpertFlowRecordsInquiry(t *testing.T) {
	f := newFixture(t)
	f.engine.deps.ExpertChatID = "999"

	f.turn(t, "1", "4")
	reply := f.turn(t, "1", "not-an-email")
	assert.Contains(t, reply, "valid email")

	f.turn(t, "1", "farmer@example.com")
	reply = f.turn(t, "1", "my maize has purple streaks on the lower leaves")
	assert.Contains(t, reply, "agronomy team")

	inquiries := f.engine.Inquiries()
	require.Len(t, inquiries, 1)
	assert.Equal(t, "farmer@example.com", inquiries[0].Email)

	forwarded := false
	for _, m := range f.sender.sent {
		if m.ChatID == "999" && strings.Contains(m.Text, "purple streaks") {
			forwarded = true
		}
	}
	assert.True(t, forwarded)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.engine.handlers[StateProductQA] = func(ctx context.Context, t *turn) {
		panic("boom")
	}
	f.engine.deps.Sessions.Put("telegram:1", StateProductQA)

	reply := f.turn(t, "1", "anything")
	assert.Contains(t, reply, "Sorry")
	// Session is intact.
	assert.Equal(t, StateProductQA, f.engine.deps.Sessions.Get("telegram:1"))
}

func TestPerIdentitySerializationIsFIFO(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.Start(ctx)

	// Sequence: name prompt flow relies on strict ordering.
	f.engine.HandleInbound(ctx, textMsg("9", "hi"))
	f.engine.HandleInbound(ctx, textMsg("9", "Rudo"))
	f.engine.HandleInbound(ctx, textMsg("9", "0771234567"))

	require.Eventually(t, func() bool {
		u, ok := f.users.Get("telegram:9")
		return ok && u.Name == "Rudo" && u.Phone == "0771234567"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDistinctIdentitiesProcessIndependently(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.Start(ctx)

	for i := 0; i < 5; i++ {
		f.engine.HandleInbound(ctx, textMsg(fmt.Sprintf("u%d", i), "7"))
	}
	require.Eventually(t, func() bool {
		return len(f.users.All()) == 5
	}, 2*time.Second, 10*time.Millisecond)
}
