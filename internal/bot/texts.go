package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/ucfagri/sambot/internal/ledger"
)

const mainMenuText = `🌾 *UCF Agri-Assistant — Main Menu*

1. 🌿 Our Products
2. 🧮 Fertilizer Calculator
3. 📚 Farming Guides
4. 👨‍🌾 Ask an Expert
5. 📍 Nearest UCF Dealer
6. ⭐ Premium Features
7. ❓ Help

Reply with a number, or type *menu* anytime to come back here.`

const premiumMenuText = `⭐ *Premium Menu*

1. 📷 Crop Photo Diagnosis
2. 📚 Exclusive Guides
3. 🌱 Daily Farming Tips
4. 🌿 Our Products
5. 🧮 Fertilizer Calculator
6. 👨‍🌾 Ask an Expert
7. 🏠 Main Menu

Reply with a number.`

const premiumPromptText = `⭐ *Unlock Premium Features*

Premium gives you crop photo diagnosis, exclusive guides, and daily tips for a full month — free with any UCF purchase!

To activate, buy any UCF product from an authorized dealer and send me a clear photo of your fiscal receipt (the QR code must be visible).

1. 📸 Submit my receipt now
2. 🏠 Back to main menu`

const receiptInstructionsText = `📸 Great! Please send a clear photo of your purchase receipt.

Make sure:
• The QR code is fully visible
• The whole receipt is in the frame
• The photo is sharp and well lit`

const helpText = `❓ *Help*

I'm Sam, your UCF agronomy assistant. I can answer product questions, calculate fertilizer rates, share guides, connect you with an expert, and find your nearest dealer.

Type *menu* at any time to see the main menu, or just ask me a farming question.`

const apologyText = `Sorry, I ran into a problem handling that. Please try again, or type *menu* to start over.`

const analyzingText = `🔍 Analyzing your receipt, please wait a moment...`

const qrRequiredText = `⚠️ *QR Code Required*

I could not find a QR code on your receipt. Fiscal receipts from authorized dealers carry a QR code, and I need it to verify your purchase.

Your submission has been saved for manual review. You can also try again with a clearer photo showing the QR code.`

const receiptUsedText = `⚠️ *Receipt Already Used*

This receipt has already been submitted. Each receipt can only unlock premium access once.

If you believe this is a mistake, please contact your UCF dealer.`

const unreadableText = `⚠️ I could not read any text from that photo. Please try again with a sharper, well-lit picture of the whole receipt.`

const imageChoiceText = `📷 I received your photo. What would you like me to do with it?

1. 🧾 Verify it as a purchase receipt
2. 🌿 Diagnose a crop problem (premium)
3. 🧪 Read my soil analysis results
4. ❌ Nothing, cancel`

const soilImagePromptText = `🧪 Great! Send me a clear photo of your soil analysis results (the full results page) and I'll build a fertilizer program from them.`

const namePromptText = `👋 Welcome! I'm Sam, your UCF agronomy assistant.

Before we start, what's your name?`

const locationPromptText = `📍 Please share your location (attach → location) and I'll find the UCF dealers closest to you.`

const expertEmailPromptText = `👨‍🌾 I'll connect you with a UCF agronomist.

First, what's your email address so they can reply to you?`

const expertIssuePromptText = `Thanks! Now describe your issue in as much detail as you can — crop, symptoms, and how long it's been happening.`

const expertDoneText = `✅ Thank you! Your issue has been sent to our agronomy team. They will contact you within 48 hours.

Type *menu* to go back to the main menu.`

const productQAPromptText = `🌿 Ask me anything about UCF products — for example "which fertilizer for maize at planting?"

Type *menu* to go back.`

const calcPlantPromptText = `🧮 *Fertilizer Calculator*

What crop are you planting? (e.g. maize, wheat, soya)`

const calcYieldPromptText = `How many tonnes per hectare do you expect to harvest? Reply with a number, e.g. *3*.`

const calcSoilPromptText = `For yields above 5 t/ha I recommend a soil analysis first.

Have you done a soil analysis in the last 2 years?
1. Yes
2. No`

func validationFailedText(errs []string) string {
	var b strings.Builder
	b.WriteString("❌ *Invoice Validation Failed*\n\nYour receipt could not be verified:\n")
	for _, e := range errs {
		b.WriteString("• " + e + "\n")
	}
	b.WriteString("\nYour submission has been saved for manual review.")
	return b.String()
}

func noSponsorText(keyword string) string {
	return fmt.Sprintf(`❌ *No %s Products Found*

I could not find any %s products on this receipt. Premium access requires a purchase of %s products from an authorized dealer.`, keyword, keyword, keyword)
}

func premiumGrantedText(doc ledger.Document, expiry time.Time) string {
	var b strings.Builder
	b.WriteString("🎉 *Receipt Verified — Premium Unlocked!*\n\n")
	if doc.Receipt.InvoiceNumber != "" {
		fmt.Fprintf(&b, "🧾 Invoice: %s\n", doc.Receipt.InvoiceNumber)
	}
	if doc.Receipt.RetailerName != "" {
		fmt.Fprintf(&b, "🏪 Retailer: %s\n", doc.Receipt.RetailerName)
	}
	if doc.Receipt.PurchaseDate != "" {
		fmt.Fprintf(&b, "📅 Date: %s\n", doc.Receipt.PurchaseDate)
	}
	if doc.Receipt.TotalAmount != "" {
		fmt.Fprintf(&b, "💵 Total: %s %s\n", doc.Receipt.TotalAmount, doc.Receipt.Currency)
	}
	if len(doc.Receipt.Products) > 0 {
		fmt.Fprintf(&b, "🌿 UCF products: %s\n", strings.Join(doc.Receipt.Products, ", "))
	}
	fmt.Fprintf(&b, "\n⭐ Premium is active until *%s*.\n\nType *menu* and pick Premium Features to explore.", expiry.Format("2 January 2006"))
	return b.String()
}

func calcBasalText(crop string, rate int) string {
	return fmt.Sprintf(`🧮 *Recommendation for %s*

Apply *%d kg/ha* of UCF Compound D as a basal dressing at planting, then top-dress with Ammonium Nitrate at 4-6 weeks.

Type *menu* to go back.`, crop, rate)
}

const soilTipText = `

💡 Tip: at this yield level a soil analysis pays for itself. Ask your UCF dealer about sampling kits.`
