package feedback

import (
	"fmt"
	"maps"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key names a feedback message. Levels override messages by key.
type Key string

const (
	KeyEmptyConstruct   Key = "emptyConstruct"
	KeyTooFewNodes      Key = "tooFewNodes"
	KeyLevelIncomplete  Key = "levelIncomplete"
	KeyMissingConstruct Key = "missingConstruct"
	KeyTooManyNodes     Key = "tooManyNodes"
	KeyOneStar          Key = "oneStar"
	KeyTwoStar          Key = "twoStar"
	KeyNotBlackColour   Key = "notBlackColour"
	KeyNoColour         Key = "noColour"
	KeyTooFewColours    Key = "tooFewColours"
	KeyWrongColour      Key = "wrongColour"
	KeyFreePlay         Key = "freePlay"
	KeyNextLevel        Key = "nextLevel"
	KeyFinalLevel       Key = "finalLevel"
	KeyHintTitle        Key = "hintTitle"
	KeyUserProgramError Key = "userProgramError"
	KeyBudgetExceeded   Key = "budgetExceeded"
	KeyCarryMissing     Key = "carryMissing"
)

var english = map[Key]string{
	KeyEmptyConstruct:   "The 'repeat' or 'if' blocks need to have other blocks inside them to work. Make sure the inner block fits properly inside the containing block.",
	KeyTooFewNodes:      "You are using all the necessary types of blocks, but try using more of these types of blocks to complete this puzzle.",
	KeyLevelIncomplete:  "You are using all the necessary types of blocks but not in the right way.",
	KeyMissingConstruct: "You're not using all of the blocks you need. Try one or more of the blocks below to solve this puzzle.",
	KeyTooManyNodes:     "This puzzle can be solved with %[1]d blocks. You used %[2]d.",
	KeyOneStar:          "You solved the puzzle, but not the way it was meant to be solved. Try again with fewer blocks.",
	KeyTwoStar:          "You solved the puzzle, but there is a simpler way. Try again.",
	KeyNotBlackColour:   "You need to set a colour other than black for this puzzle.",
	KeyNoColour:         "You need to draw something in colour for this puzzle.",
	KeyTooFewColours:    "You need to use at least %[1]d different colours for this puzzle. You used only %[2]d.",
	KeyWrongColour:      "Your picture is not the right colour. For this puzzle, it needs to be %[1]s.",
	KeyFreePlay:         "Here is your drawing! Keep working on it or continue to the next puzzle.",
	KeyNextLevel:        "Congratulations! You are ready to proceed to the next puzzle.",
	KeyFinalLevel:       "Congratulations! You have solved the final puzzle.",
	KeyHintTitle:        "Hint:",
	KeyUserProgramError: "Your program stopped with an error: %[1]s",
	KeyBudgetExceeded:   "Your program ran for too long and was stopped. Check that every loop can finish.",
	KeyCarryMissing:     "This puzzle continues from the previous one, but your program from there is missing. Go back and solve it first.",
}

// Messages returns the built-in English messages by key.
func Messages() map[Key]string {
	return maps.Clone(english)
}

// messageArgs are sample arguments for the messages that take some.
var messageArgs = map[Key][]any{
	KeyTooManyNodes:     {7, 9},
	KeyTooFewColours:    {3, 2},
	KeyWrongColour:      {"red"},
	KeyUserProgramError: {"x is not defined"},
}

// CheckOverride reports whether text can replace the message k. Text for
// a formatted message may use its arguments, by index when it skips one.
func CheckOverride(k Key, text string) error {
	if _, ok := english[k]; !ok {
		return fmt.Errorf("unknown hint key %q", k)
	}
	args := messageArgs[k]
	if len(args) == 0 || !strings.Contains(text, "%") {
		return nil
	}
	if out := fmt.Sprintf(text, args...); strings.Contains(out, "%!") {
		return fmt.Errorf("hint %q does not fit its %d argument(s): %s", k, len(args), out)
	}
	return nil
}

// DefaultCatalog returns the built-in English catalog.
func DefaultCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for k, msg := range english {
		// SetString only fails on malformed tags
		_ = b.SetString(language.English, string(k), msg)
	}
	return b
}

func newPrinter(tag language.Tag, cat catalog.Catalog) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}
