package dto

import "time"

// Board command types accepted over the websocket session.
const (
	BoardCommandRefresh        = "refresh"
	BoardCommandToggleViewMore = "toggle_view_more"
	BoardCommandToggleForm     = "toggle_form"
	BoardCommandEdit           = "edit"
	BoardCommandCancel         = "cancel"
	BoardCommandSave           = "save"
	BoardCommandDelete         = "delete"
)

// BoardCommand is a user action sent by the panel client.
type BoardCommand struct {
	Type     string     `json:"type" validate:"required,oneof=refresh toggle_view_more toggle_form edit cancel save delete"`
	Category string     `json:"category"`
	EntryID  string     `json:"entry_id"`
	Form     *BoardForm `json:"form"`
}

// BoardForm mirrors the entry fields edited in a panel form.
type BoardForm struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	ClassName   string `json:"class_name"`
	Section     string `json:"section"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// PanelView is the rendered state of one category panel.
type PanelView struct {
	Category     string                     `json:"category"`
	Count        int                        `json:"count"`
	CountLabel   string                     `json:"count_label"`
	ShowViewMore bool                       `json:"show_view_more"`
	Expanded     bool                       `json:"expanded"`
	Entries      []TeachingLearningResponse `json:"entries"`
	FormOpen     bool                       `json:"form_open"`
	Editing      bool                       `json:"editing"`
	Form         *BoardForm                 `json:"form,omitempty"`
}

// BoardSnapshot is the full panel board sent to the client after every change.
type BoardSnapshot struct {
	TeacherID   string      `json:"teacher_id"`
	Resolved    bool        `json:"resolved"`
	Panels      []PanelView `json:"panels"`
	Error       string      `json:"error,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
}
