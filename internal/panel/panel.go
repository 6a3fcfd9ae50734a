// Package panel holds the per-session view state of the teaching and learning board:
// one Panel per category plus the Board that owns the fetched entries.
package panel

import (
	"fmt"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
)

// FormData is the transient create/edit form. A non-empty ID marks edit mode.
type FormData struct {
	ID          string
	Title       string
	ClassName   string
	Section     string
	Description string
	URL         string
}

// Request converts the form into a save payload for the given category.
func (f FormData) Request(category string) dto.TeachingLearningRequest {
	return dto.TeachingLearningRequest{
		ID:          f.ID,
		Category:    category,
		Title:       f.Title,
		ClassName:   f.ClassName,
		Section:     f.Section,
		Description: f.Description,
		URL:         f.URL,
	}
}

// FormDataFromDTO copies a client supplied form.
func FormDataFromDTO(form *dto.BoardForm) FormData {
	if form == nil {
		return FormData{}
	}
	return FormData{
		ID:          form.ID,
		Title:       form.Title,
		ClassName:   form.ClassName,
		Section:     form.Section,
		Description: form.Description,
		URL:         form.URL,
	}
}

func (f FormData) toDTO() *dto.BoardForm {
	return &dto.BoardForm{
		ID:          f.ID,
		Title:       f.Title,
		ClassName:   f.ClassName,
		Section:     f.Section,
		Description: f.Description,
		URL:         f.URL,
	}
}

// Panel is the view state of one category. Expanded and FormOpen are independent flags;
// every combination is valid.
type Panel struct {
	category string
	expanded bool
	formOpen bool
	form     FormData
}

// NewPanel returns a collapsed panel with a closed form.
func NewPanel(category string) *Panel {
	return &Panel{category: category}
}

// Category returns the panel's category label.
func (p *Panel) Category() string {
	return p.category
}

// Expanded reports whether the entry list is shown.
func (p *Panel) Expanded() bool {
	return p.expanded
}

// FormOpen reports whether the create/edit form is shown.
func (p *Panel) FormOpen() bool {
	return p.formOpen
}

// Form returns the current form contents.
func (p *Panel) Form() FormData {
	return p.form
}

// Editing reports whether the open form targets an existing entry.
func (p *Panel) Editing() bool {
	return p.formOpen && p.form.ID != ""
}

// ToggleViewMore flips the expanded flag.
func (p *Panel) ToggleViewMore() {
	p.expanded = !p.expanded
}

// ToggleForm opens a blank create form, or closes and clears an open one.
func (p *Panel) ToggleForm() {
	if p.formOpen {
		p.Cancel()
		return
	}
	p.form = FormData{}
	p.formOpen = true
}

// BeginEdit prefills the form from an entry and opens it.
func (p *Panel) BeginEdit(entry dto.TeachingLearningResponse) {
	p.form = FormData{
		ID:          entry.ID,
		Title:       entry.Title,
		ClassName:   entry.ClassName,
		Section:     entry.Section,
		Description: entry.Description,
		URL:         entry.URL,
	}
	p.formOpen = true
}

// SetForm replaces the form contents, opening the form if needed.
func (p *Panel) SetForm(form FormData) {
	p.form = form
	p.formOpen = true
}

// Cancel clears and closes the form.
func (p *Panel) Cancel() {
	p.form = FormData{}
	p.formOpen = false
}

// View renders the panel for the given bucket of entries.
func (p *Panel) View(entries []dto.TeachingLearningResponse) dto.PanelView {
	view := dto.PanelView{
		Category:     p.category,
		Count:        len(entries),
		CountLabel:   CountLabel(len(entries)),
		ShowViewMore: len(entries) > 0,
		Expanded:     p.expanded,
		Entries:      []dto.TeachingLearningResponse{},
		FormOpen:     p.formOpen,
		Editing:      p.Editing(),
	}
	if p.expanded {
		view.Entries = append(view.Entries, entries...)
	}
	if p.formOpen {
		view.Form = p.form.toDTO()
	}
	return view
}

// CountLabel renders the entry count shown on a collapsed panel.
func CountLabel(count int) string {
	return fmt.Sprintf("%d Entries", count)
}
