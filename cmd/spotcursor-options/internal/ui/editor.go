package ui

import (
	"image"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"spotcursor/cmd/spotcursor-options/internal/theme"
	"spotcursor/internal/options"
)

// SaveFunc persists the edited form.
type SaveFunc func(*options.Form) error

// Editor is the options window: one slider per setting, Save and Cancel.
type Editor struct {
	theme *theme.Theme
	form  *options.Form

	save    SaveFunc
	onClose func()

	sliders   []widget.Float
	saveBtn   widget.Clickable
	cancelBtn widget.Clickable
	saveErr   error
}

// NewEditor creates the editor for form. onClose is called after a
// successful save and on cancel.
func NewEditor(t *theme.Theme, form *options.Form, save SaveFunc, onClose func()) *Editor {
	e := &Editor{
		theme:   t,
		form:    form,
		save:    save,
		onClose: onClose,
		sliders: make([]widget.Float, len(form.Fields)),
	}
	for i, f := range form.Fields {
		e.sliders[i].Value = f.Fraction()
	}
	return e
}

// update applies input gathered since the previous frame.
func (e *Editor) update(gtx layout.Context) {
	for i, f := range e.form.Fields {
		if e.sliders[i].Update(gtx) {
			f.SetFraction(e.sliders[i].Value)
		}
		// Snap the knob to the stored value.
		e.sliders[i].Value = f.Fraction()
	}

	if e.saveBtn.Clicked(gtx) {
		e.saveErr = e.save(e.form)
		if e.saveErr == nil {
			e.onClose()
		}
	}
	if e.cancelBtn.Clicked(gtx) {
		e.onClose()
	}
}

// Layout renders the editor.
func (e *Editor) Layout(gtx layout.Context) layout.Dimensions {
	e.update(gtx)
	paint.Fill(gtx.Ops, e.theme.Palette.Background)

	children := []layout.FlexChild{
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			title := material.H6(e.theme.Theme, "SpotCursor options")
			title.Color = e.theme.Palette.Primary
			title.TextSize = e.theme.Config.FontTitle
			return title.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: e.theme.Config.Padding}.Layout),
	}
	for i := range e.form.Fields {
		children = append(children,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return e.layoutField(gtx, i)
			}),
			layout.Rigid(layout.Spacer{Height: e.theme.Config.Spacing}.Layout),
		)
	}
	if e.saveErr != nil {
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			l := material.Body2(e.theme.Theme, "Could not save: "+e.saveErr.Error())
			l.Color = e.theme.Palette.Error
			return l.Layout(gtx)
		}))
	}
	children = append(children,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Dimensions{Size: image.Pt(gtx.Constraints.Min.X, 0)}
		}),
		layout.Rigid(e.layoutButtons),
	)

	return layout.UniformInset(e.theme.Config.Padding).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
	})
}

func (e *Editor) layoutField(gtx layout.Context, i int) layout.Dimensions {
	f := e.form.Fields[i]
	gtx.Constraints.Min.X = gtx.Constraints.Max.X
	return e.card(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min.X = gtx.Constraints.Max.X
				return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
					layout.Rigid(material.Body1(e.theme.Theme, f.Label).Layout),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						v := material.Body1(e.theme.Theme, f.Text())
						v.Color = e.theme.Palette.TextMuted
						return v.Layout(gtx)
					}),
				)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min.X = gtx.Constraints.Max.X
				return material.Slider(e.theme.Theme, &e.sliders[i]).Layout(gtx)
			}),
		)
	})
}

// card draws w on a rounded surface panel.
func (e *Editor) card(gtx layout.Context, w layout.Widget) layout.Dimensions {
	return layout.Background{}.Layout(gtx,
		func(gtx layout.Context) layout.Dimensions {
			size := gtx.Constraints.Min
			rr := gtx.Dp(e.theme.Config.CornerRadius)
			paint.FillShape(gtx.Ops, e.theme.Palette.Surface,
				clip.UniformRRect(image.Rectangle{Max: size}, rr).Op(gtx.Ops))
			return layout.Dimensions{Size: size}
		},
		func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(e.theme.Config.Spacing).Layout(gtx, w)
		},
	)
}

func (e *Editor) layoutButtons(gtx layout.Context) layout.Dimensions {
	gtx.Constraints.Min.X = gtx.Constraints.Max.X
	return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceStart}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			b := material.Button(e.theme.Theme, &e.cancelBtn, "Cancel")
			b.Background = e.theme.Palette.Border
			b.Color = e.theme.Palette.Text
			return b.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(material.Button(e.theme.Theme, &e.saveBtn, "Save").Layout),
	)
}
