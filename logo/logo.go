package logo

import (
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Display prints the Metro banner.
func Display() {
	s, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("M", pterm.FgLightBlue.ToStyle()),
		putils.LettersFromStringWithStyle("etro", pterm.FgLightCyan.ToStyle())).Srender()
	pterm.DefaultCenter.Println(s)
	pterm.DefaultCenter.WithCenterEachLineSeparately().
		Println("Metro wallet\nsigns locally, verifies every byte\nbefore it leaves the machine.")
}
