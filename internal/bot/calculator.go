package bot

import (
	"context"
	"strconv"
	"strings"
)

// Basal fertilizer rates by expected yield bracket, kg/ha.
const (
	lowYieldRate = 150
	midYieldRate = 300
	lowYieldMaxT = 2.0
	midYieldMaxT = 5.0
)

func (e *Engine) handleCalcPlant(ctx context.Context, t *turn) {
	crop := strings.TrimSpace(t.text)
	if crop == "" {
		e.reply(ctx, t, calcPlantPromptText)
		return
	}
	e.calcFor(t.key()).crop = crop
	e.setState(t, StateCalcYield)
	e.reply(ctx, t, calcYieldPromptText)
}

func (e *Engine) handleCalcYield(ctx context.Context, t *turn) {
	raw := strings.ReplaceAll(strings.TrimSpace(t.text), ",", ".")
	yield, err := strconv.ParseFloat(raw, 64)
	if err != nil || yield <= 0 {
		e.reply(ctx, t, "Please reply with the expected yield as a number of tonnes per hectare, e.g. *3*.")
		return
	}

	crop := e.calcFor(t.key()).crop
	switch {
	case yield <= lowYieldMaxT:
		e.finishCalc(ctx, t, calcBasalText(crop, lowYieldRate))
	case yield <= midYieldMaxT:
		e.finishCalc(ctx, t, calcBasalText(crop, midYieldRate)+soilTipText)
	default:
		e.setState(t, StateCalcSoilCheck)
		e.reply(ctx, t, calcSoilPromptText)
	}
}

func (e *Engine) handleCalcSoilCheck(ctx context.Context, t *turn) {
	switch t.text {
	case "1":
		// Keep the calculator scratch so the reading knows the crop.
		e.setState(t, StateAwaitingSoilImage)
		e.reply(ctx, t, soilImagePromptText)
	case "2":
		e.finishCalc(ctx, t, "For yields above 5 t/ha a soil analysis is essential — guessing rates at that level wastes money. Your nearest UCF dealer can arrange sampling.\n\nType *menu* to go back.")
	default:
		e.reply(ctx, t, calcSoilPromptText)
	}
}

func (e *Engine) finishCalc(ctx context.Context, t *turn, text string) {
	e.clearCalc(t.key())
	e.setState(t, StateMainMenu)
	e.reply(ctx, t, text)
}
