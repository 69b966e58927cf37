package cmdutils

import (
	"encoding/json"
	"fmt"
	"io"
)

const Logo = "🛍️"

// PrintResponse prints an agent reply in the terminal chat format.
func PrintResponse(w io.Writer, text string) {
	if text == "" {
		return
	}

	fmt.Fprintf(w, "\n%s monica\n%s\n\n", Logo, text)
}

// PrintJSON writes v as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
