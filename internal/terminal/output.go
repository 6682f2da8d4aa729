package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/buger/goterm"
	"github.com/fatih/color"
)

var (
	userColor      = color.New(color.FgWhite, color.Bold)
	botColor       = color.New(color.FgCyan, color.Bold)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	hintColor      = color.New(color.FgHiBlack)
	promptColor    = color.New(color.FgHiBlue)
)

// width returns the terminal width, or 80 when it cannot be determined.
func width() int {
	if w := goterm.Width(); w > 0 {
		return w
	}
	return 80
}

// Output writes styled text to a terminal.
type Output struct {
	w     io.Writer
	width int
}

func NewOutput(w io.Writer) *Output {
	return &Output{w: w, width: width()}
}

func (o *Output) Title(text string, args ...any) {
	title := "  " + fmt.Sprintf(text, args...) + "  "
	left := max(0, (o.width-len([]rune(title)))/2)
	right := max(0, o.width-len([]rune(title))-left)
	titleColor.Fprintln(o.w, strings.Repeat("-", left)+title+strings.Repeat("-", right))
}

func (o *Output) Separator() {
	separatorColor.Fprintln(o.w, strings.Repeat("-", o.width))
}

func (o *Output) Info(text string, args ...any) {
	infoColor.Fprintf(o.w, text+"\n", args...)
}

func (o *Output) Hint(text string, args ...any) {
	hintColor.Fprintf(o.w, text+"\n", args...)
}

func (o *Output) Error(text string, args ...any) {
	errorColor.Fprintf(o.w, "⚠️  "+text+"\n", args...)
}

// Raw writes text as is.
func (o *Output) Raw(text string) {
	fmt.Fprint(o.w, text)
}
