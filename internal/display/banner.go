package display

import (
	"fmt"
	"io"

	"github.com/backmassage/imgpipe/internal/term"
)

const banner = ` _                        _
(_)_ __ ___   __ _ _ __ (_)_ __   ___
| | '_ ` + "`" + ` _ \ / _` + "`" + ` | '_ \| | '_ \ / _ \
| | | | | | | (_| | |_) | | |_) |  __/
|_|_| |_| |_|\__, | .__/|_| .__/ \___|
             |___/|_|     |_|`

// PrintBanner prints the ASCII art banner in magenta when colors are on.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, term.Paint(term.Magenta, banner))
	fmt.Fprintln(w)
}
