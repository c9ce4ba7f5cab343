// Package dialog models the forms a push page opens as dialogs.
//
// Each dialog is an independent type composed over [Form]; all of them
// satisfy [Dialog]. A form is initialized lazily the first time it is opened,
// so closing, toggling closed or querying an untouched form does nothing.
package dialog

import "github.com/jpalmerr/pushwatch/pageurl"

// Dialog is the behaviour shared by every page dialog.
type Dialog interface {
	Open()
	Close()
	Toggle()
	IsOpen() bool
}

// Options describe how a dialog is presented.
type Options struct {
	Title  string
	Width  int
	Height int
	// Top is the vertical offset; dialogs are centred horizontally.
	Top int
}

// Form is a dialog-backed form: its presentation options, the action it
// posts to and its field values.
type Form struct {
	opts        Options
	action      string
	fields      map[string]string
	initialized bool
	open        bool
}

func newForm(opts Options) Form {
	return Form{opts: opts, fields: make(map[string]string)}
}

// Open initializes the form if needed and opens it.
func (f *Form) Open() {
	f.initialized = true
	f.open = true
}

// Close closes an open form. It is a no-op on a form never opened.
func (f *Form) Close() {
	if f.initialized && f.open {
		f.open = false
	}
}

// Toggle closes an open form and opens a closed one.
func (f *Form) Toggle() {
	if f.IsOpen() {
		f.Close()
		return
	}
	f.Open()
}

// IsOpen reports whether the form has been initialized and is open.
func (f *Form) IsOpen() bool {
	return f.initialized && f.open
}

// Initialized reports whether the form has ever been opened.
func (f *Form) Initialized() bool {
	return f.initialized
}

// Options returns the form's presentation options.
func (f *Form) Options() Options {
	return f.opts
}

// Action returns the URL the form posts to.
func (f *Form) Action() string {
	return f.action
}

// Field returns the value of the named field.
func (f *Form) Field(name string) string {
	return f.fields[name]
}

// SetField sets the value of the named field.
func (f *Form) SetField(name, value string) {
	f.fields[name] = value
}

// prefillFields are the request fields a link can carry in its query.
var prefillFields = []string{"subject", "message", "branch"}

// MakeRequest is the "Make Request" dialog.
type MakeRequest struct {
	Form
}

// NewMakeRequest creates the dialog, copies any non-empty subject, message
// and branch values from q into the form, and opens it if it copied any.
func NewMakeRequest(q pageurl.Query) *MakeRequest {
	d := &MakeRequest{Form: newForm(Options{Title: "Make Request", Width: 700, Height: 500, Top: 100})}

	shouldOpen := false
	for _, name := range prefillFields {
		if v := q[name]; v != "" {
			d.SetField(name, v)
			shouldOpen = true
		}
	}
	if shouldOpen {
		d.Open()
	}
	return d
}

// StartPush is the "Start Push" dialog.
type StartPush struct {
	Form
}

// NewStartPush creates the dialog.
func NewStartPush() *StartPush {
	return &StartPush{Form: newForm(Options{Title: "Start Push", Width: 500, Height: 100, Top: 100})}
}

// SendToStage is the "Send to Stage" dialog.
type SendToStage struct {
	Form
}

// NewSendToStage creates the dialog.
func NewSendToStage() *SendToStage {
	return &SendToStage{Form: newForm(Options{Title: "Send to Stage", Width: 500, Height: 100, Top: 100})}
}

// SetAction sets the push URL the stage form posts to.
func (d *SendToStage) SetAction(action string) *SendToStage {
	d.action = action
	return d
}

// RejectRequest is the "Reject Request" dialog.
type RejectRequest struct {
	Form
	subject string
}

// NewRejectRequest creates the dialog.
func NewRejectRequest() *RejectRequest {
	return &RejectRequest{Form: newForm(Options{Title: "Reject Request", Width: 500, Height: 300, Top: 100})}
}

// SetRequest points the form at the request at uri. returnURL is where the
// server sends the user after rejecting.
func (d *RejectRequest) SetRequest(uri, subject, returnURL string) *RejectRequest {
	d.action = uri
	d.subject = subject
	d.SetField("return_url", returnURL)
	return d
}

// Subject returns the subject of the request being rejected.
func (d *RejectRequest) Subject() string {
	return d.subject
}
