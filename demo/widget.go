package demo

import "github.com/chazu/objbridge/meta"

// Widget is a minimal visual element with a title and a size.
type Widget struct {
	meta.Base

	_ meta.Signal `signal:"clicked()"`
	_ meta.Signal `signal:"resized(int,int)"`
	_ meta.Signal `signal:"titleChanged(string)"`

	Title   string `prop:"title"`
	Width   int    `prop:"width,readonly"`
	Height  int    `prop:"height,readonly"`
	Enabled bool   `prop:"enabled"`
}

// NewWidget creates an enabled widget.
func NewWidget() *Widget {
	w := &Widget{Enabled: true}
	meta.Init(w)
	return w
}

// SetTitle changes the title and emits titleChanged.
func (w *Widget) SetTitle(title string) {
	if w.Title == title {
		return
	}
	w.Title = title
	meta.Emit(w, "titleChanged(string)", meta.NewString(title))
}

// Resize sets the size and emits resized.
func (w *Widget) Resize(width, height int) {
	w.Width, w.Height = width, height
	meta.Emit(w, "resized(int,int)", meta.NewInt(int64(width)), meta.NewInt(int64(height)))
}

// Click emits clicked if the widget is enabled.
func (w *Widget) Click() {
	if w.Enabled {
		meta.Emit(w, "clicked()")
	}
}

func (w *Widget) Area() int {
	return w.Width * w.Height
}

// AddChild makes child a child of w. Destroying w destroys child.
func (w *Widget) AddChild(child *Widget) {
	if child != nil {
		meta.SetParent(child, w)
	}
}

// FindChild returns the first child widget with the given object name.
func (w *Widget) FindChild(name string) *Widget {
	for _, c := range meta.Children(w) {
		if cw, ok := c.(widgetObject); ok && meta.ObjectName(c) == name {
			return cw.asWidget()
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Button
// ---------------------------------------------------------------------------

// Button is a Widget that can be checkable.
type Button struct {
	Widget

	_ meta.Signal `signal:"toggled(bool)"`

	Checkable bool `prop:"checkable"`
	Checked   bool `prop:"checked"`
}

// NewButton creates an enabled, uncheckable button.
func NewButton() *Button {
	b := &Button{}
	b.Enabled = true
	meta.Init(b)
	return b
}

// SetChecked changes the checked state of a checkable button and emits
// toggled.
func (b *Button) SetChecked(checked bool) {
	if !b.Checkable || b.Checked == checked {
		return
	}
	b.Checked = checked
	meta.Emit(b, "toggled(bool)", meta.NewBool(checked))
}

func (b *Button) Toggle() {
	b.SetChecked(!b.Checked)
}
