package bot

// Conversation states. Unknown states fall back to the main menu handler,
// so every (state, input) pair resolves to something.
const (
	StateMainMenu          = "main_menu"
	StatePremiumMenu       = "premium_menu"
	StateAwaitingName      = "awaiting_name"
	StateAwaitingPhone     = "awaiting_phone"
	StateAwaitingExpertEm  = "awaiting_expert_email"
	StateAwaitingExpertIss = "awaiting_expert_issue"
	StateProductQA         = "product_qa"
	StateAwaitingGuide     = "awaiting_guide_selection"
	StatePremiumAccessInfo = "premium_access_info"
	StateAwaitingImgChoice = "awaiting_image_choice"
	StateAwaitingReceipt   = "awaiting_receipt"
	StateAwaitingCropImage = "awaiting_crop_image"
	StateAwaitingSoilImage = "awaiting_soil_image"
	StateCalcPlant         = "calculator_plant"
	StateCalcYield         = "calculator_yield"
	StateCalcSoilCheck     = "calculator_soil_check"
)

// greetings are only special on the main menu; everywhere else they are
// ordinary input.
var greetings = map[string]bool{
	"hi":      true,
	"hello":   true,
	"hey":     true,
	"namaste": true,
	"start":   true,
	"hola":    true,
}
