package ui

import "github.com/nholik/goact-stack/internal/health"

const (
	// DefaultDocsURL is the documentation link shown on the card.
	DefaultDocsURL = "https://v3.heroui.com"
	// RefreshPath is where the refresh action posts.
	RefreshPath = "/api/refresh"

	cardTitle       = "GoAct Stack"
	cardDescription = "Full-stack boilerplate with Go + React + Vite + HeroUI"
	loadingText     = "loading..."
)

var techStack = []string{
	"Go with Echo framework",
	"React 19 with TypeScript",
	"Vite for development & bundling",
	"Tailwind CSS v4",
	"HeroUI v3 components",
}

// Tone selects how the status line is styled.
type Tone string

const (
	ToneLoading Tone = "loading"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// StatusLine is the rendered form of a ViewState.
type StatusLine struct {
	Tone Tone
	Text string
}

// Card is the view model of the landing page.
type Card struct {
	Title       string
	Description string
	Status      StatusLine
	TechStack   []string
	RefreshPath string
	DocsURL     string
}

// NewCard builds the card for the given state. An empty docsURL uses
// DefaultDocsURL.
func NewCard(state health.ViewState, docsURL string) Card {
	if docsURL == "" {
		docsURL = DefaultDocsURL
	}
	return Card{
		Title:       cardTitle,
		Description: cardDescription,
		Status:      Status(state),
		TechStack:   append([]string(nil), techStack...),
		RefreshPath: RefreshPath,
		DocsURL:     docsURL,
	}
}

// Status maps a ViewState to its status line.
func Status(state health.ViewState) StatusLine {
	switch state.Kind {
	case health.KindReady:
		return StatusLine{Tone: ToneSuccess, Text: state.DisplayText()}
	case health.KindFailed:
		return StatusLine{Tone: ToneDanger, Text: state.DisplayText()}
	default:
		return StatusLine{Tone: ToneLoading, Text: loadingText}
	}
}
