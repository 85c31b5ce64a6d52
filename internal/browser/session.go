package browser

import (
	"fmt"

	"github.com/go-rod/rod"
)

// PageSession adapts a rod page to the guard's Session capability. Title
// and Content are best-effort: any read failure degrades to "", which the
// guard treats as absence of evidence rather than a blocking signal.
type PageSession struct {
	page *rod.Page
}

func NewPageSession(page *rod.Page) *PageSession {
	return &PageSession{page: page}
}

func (s *PageSession) Load(url string) error {
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("page never finished loading: %w", err)
	}
	return nil
}

func (s *PageSession) Title() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (s *PageSession) Content() string {
	res, err := s.page.Eval(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
