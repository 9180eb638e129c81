package device

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/orrn/printqueue/internal/core"
)

var monoFamilies = []string{"mono", "courier", "consol", "menlo", "fixed", "typewriter"}

type fontVariant struct {
	mono   bool
	bold   bool
	italic bool
}

var fontData = map[fontVariant][]byte{
	{false, false, false}: goregular.TTF,
	{false, true, false}:  gobold.TTF,
	{false, false, true}:  goitalic.TTF,
	{false, true, true}:   gobolditalic.TTF,
	{true, false, false}:  gomono.TTF,
	{true, true, false}:   gomonobold.TTF,
	{true, false, true}:   gomonoitalic.TTF,
	{true, true, true}:    gomonobolditalic.TTF,
}

var (
	parsedMu sync.Mutex
	parsed   = make(map[fontVariant]*opentype.Font)
)

// variantFor picks the bundled Go font closest to the requested family.
// Fixed-pitch families map to Go Mono, everything else to Go.
func variantFor(f core.Font) fontVariant {
	family := strings.ToLower(f.Family)
	v := fontVariant{
		bold:   f.Style.Has(core.FontBold),
		italic: f.Style.Has(core.FontItalic),
	}
	for _, m := range monoFamilies {
		if strings.Contains(family, m) {
			v.mono = true
			break
		}
	}
	return v
}

func loadFont(v fontVariant) (*opentype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()

	if f, ok := parsed[v]; ok {
		return f, nil
	}
	f, err := opentype.Parse(fontData[v])
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	parsed[v] = f
	return f, nil
}
