package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

var alignmentNames = map[Alignment]string{
	AlignLeft:    "left",
	AlignCenter:  "center",
	AlignRight:   "right",
	AlignJustify: "justify",
}

func (a Alignment) String() string {
	if s, ok := alignmentNames[a]; ok {
		return s
	}
	return alignmentNames[AlignLeft]
}

func (a Alignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts names (case-insensitive) or the numeric value.
// Unknown values decode to left.
func (a *Alignment) UnmarshalJSON(data []byte) error {
	*a = AlignLeft
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if _, ok := alignmentNames[Alignment(n)]; ok {
			*a = Alignment(n)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for k, v := range alignmentNames {
		if strings.EqualFold(v, s) {
			*a = k
		}
	}
	return nil
}

type PaperSize int

const (
	PaperA4 PaperSize = iota
	PaperA3
	PaperA5
	PaperLetter
	PaperLegal
	PaperCustom
	PaperThermal58mm
	PaperThermal80mm
)

var paperSizeNames = map[PaperSize]string{
	PaperA4:          "A4",
	PaperA3:          "A3",
	PaperA5:          "A5",
	PaperLetter:      "Letter",
	PaperLegal:       "Legal",
	PaperCustom:      "Custom",
	PaperThermal58mm: "Thermal58mm",
	PaperThermal80mm: "Thermal80mm",
}

func (p PaperSize) String() string {
	if s, ok := paperSizeNames[p]; ok {
		return s
	}
	return paperSizeNames[PaperA4]
}

// IsReceipt reports whether p is one of the narrow thermal receipt sizes.
func (p PaperSize) IsReceipt() bool {
	return p == PaperThermal58mm || p == PaperThermal80mm
}

func (p PaperSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PaperSize) UnmarshalJSON(data []byte) error {
	*p = PaperA4
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if _, ok := paperSizeNames[PaperSize(n)]; ok {
			*p = PaperSize(n)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	*p = ParsePaperSize(s)
	return nil
}

// ParsePaperSize maps a paper size name to its value; unknown names map to A4.
func ParsePaperSize(s string) PaperSize {
	for k, v := range paperSizeNames {
		if strings.EqualFold(v, s) {
			return k
		}
	}
	return PaperA4
}

type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

func (o Orientation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Orientation) UnmarshalJSON(data []byte) error {
	*o = Portrait
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n == int(Landscape) {
			*o = Landscape
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && strings.EqualFold(s, "landscape") {
		*o = Landscape
	}
	return nil
}

// Margins are edge distances in hundredths of an inch.
type Margins struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

type TextColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// FormatSettings controls how a job's text is laid out on the page.
// It is a value type; a job holds its own copy.
type FormatSettings struct {
	FontName        string      `json:"fontName"`
	FontSize        float64     `json:"fontSize"`
	Alignment       Alignment   `json:"alignment"`
	Bold            bool        `json:"bold"`
	Italic          bool        `json:"italic"`
	Underline       bool        `json:"underline"`
	PaperSize       PaperSize   `json:"paperSize"`
	Orientation     Orientation `json:"orientation"`
	Margins         Margins     `json:"margins"`
	TextColor       TextColor   `json:"textColor"`
	LineSpacing     float64     `json:"lineSpacing"`
	FitToPage       bool        `json:"fitToPage"`
	WrapText        bool        `json:"wrapText"`
	MaxLinesPerPage int         `json:"maxLinesPerPage"`
}

const (
	DefaultFontName    = "Arial"
	DefaultFontSize    = 12
	DefaultMargin      = 50
	DefaultLineSpacing = 1.0
)

func DefaultFormatSettings() FormatSettings {
	return FormatSettings{
		FontName:    DefaultFontName,
		FontSize:    DefaultFontSize,
		Alignment:   AlignLeft,
		PaperSize:   PaperA4,
		Orientation: Portrait,
		Margins: Margins{
			Top:    DefaultMargin,
			Bottom: DefaultMargin,
			Left:   DefaultMargin,
			Right:  DefaultMargin,
		},
		LineSpacing: DefaultLineSpacing,
		FitToPage:   true,
		WrapText:    true,
	}
}

// UnmarshalJSON starts from the defaults so omitted fields keep them.
func (s *FormatSettings) UnmarshalJSON(data []byte) error {
	type plain FormatSettings
	v := plain(DefaultFormatSettings())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = FormatSettings(v)
	return nil
}

func (s FormatSettings) normalized() FormatSettings {
	if s.FontName == "" {
		s.FontName = DefaultFontName
	}
	if s.FontSize <= 0 {
		s.FontSize = DefaultFontSize
	}
	if s.LineSpacing <= 0 {
		s.LineSpacing = DefaultLineSpacing
	}
	return s
}

// PrintJob is immutable after creation.
type PrintJob struct {
	ID          string
	PrinterName string
	Text        string
	Settings    FormatSettings
	CreatedAt   time.Time
}

// NewPrintJob creates a job with a fresh id. Nil settings select the defaults.
func NewPrintJob(printerName, text string, settings *FormatSettings) *PrintJob {
	s := DefaultFormatSettings()
	if settings != nil {
		s = settings.normalized()
	}
	return &PrintJob{
		ID:          uuid.NewString(),
		PrinterName: printerName,
		Text:        text,
		Settings:    s,
		CreatedAt:   time.Now(),
	}
}

type QueueStatus struct {
	PendingJobs  int     `json:"pendingJobs"`
	IsProcessing bool    `json:"isProcessing"`
	CurrentJobID *string `json:"currentJobId"`
}

// PrinterInfo is a point-in-time snapshot of a printer's capabilities.
type PrinterInfo struct {
	Name                 string   `json:"name"`
	IsOnline             bool     `json:"isOnline"`
	IsValid              bool     `json:"isValid"`
	IsDefault            bool     `json:"isDefault"`
	IsNetworkPrinter     bool     `json:"isNetworkPrinter"`
	CanDuplex            bool     `json:"canDuplexing"`
	CanColor             bool     `json:"canColor"`
	SupportedPaperSizes  []string `json:"supportedPaperSizes"`
	SupportedResolutions []int    `json:"supportedResolutions"`
	Status               string   `json:"status"`
	MaximumPage          int      `json:"maximumPage"`
	MinimumPage          int      `json:"minimumPage"`
}
