package main

import (
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/interact"
	"github.com/ha1tch/imgmark/pkg/render"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleMenu       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleMenuSel    = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleSidebarDim = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleLabel      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray) // Help bar on default background
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

var helpLines = []string{
	"Mouse",
	"  Left click        add a vertex / place an arrow point",
	"  Click first dot   close the zone (3+ vertices)",
	"  Left drag dot     move a vertex or arrow end",
	"  Right click dot   remove a zone vertex",
	"  Click a shape     select it",
	"",
	"Keys",
	"  p / a             zone / arrow mode",
	"  Esc               discard unfinished shape, clear selection",
	"  Tab / Enter       next annotation / expand it",
	"  l / d             edit label / description",
	"  u, Ctrl+Z         undo last annotation",
	"  e, Ctrl+S         export annotations.json",
	"  r / t             render image / toggle PNG or SVG",
	"  o                 open image",
	"  b                 toggle sidebar",
	"  q, Ctrl+C         quit",
}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	canvasW := w - ed.currentSidebarWidth()
	canvasH := h - 2
	ed.drawCanvas(canvasW, canvasH)
	ed.drawSidebar(w, h)

	switch ed.mode {
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeFilePicker:
		ed.drawFilePicker(w, h)
	case ModeHelp:
		ed.drawHelp(w, h)
	}

	ed.drawStatusBar(w, h)
}

func (ed *Editor) drawCanvas(cw, ch int) {
	if cw < 1 || ch < 1 {
		return
	}
	ed.canvasWidth, ed.canvasHeight = cw, ch

	_, _, surface := ed.surfaceFor(cw, ch)
	ed.sess.SetSurface(surface)

	r := newRaster(cw, ch*2)
	img := ed.fittedImage(cw, ch*2)
	if img == nil {
		msg := "No image. Press o to open one."
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				ed.screen.SetContent(x, y, ' ', nil, styleDefault)
			}
		}
		ed.drawString(max(0, (cw-len(msg))/2), ch/2, msg, styleHelp)
		return
	}
	r.drawImage(img, int(surface.X), int(surface.Y))

	sc := ed.sess.Scene()
	r.drawScene(sc, surface)

	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			glyph, st := r.cell(x, y)
			ed.screen.SetContent(x, y, glyph, nil, st)
		}
	}
	ed.drawLabels(sc, surface, cw, ch)
}

// drawLabels writes annotation labels over the canvas.
func (ed *Editor) drawLabels(sc render.Scene, surface geom.Rect, cw, ch int) {
	for _, p := range sc.Primitives {
		if p.Label == "" || p.Preview {
			continue
		}
		if p.Kind != render.PrimRegion && p.Kind != render.PrimLine {
			continue
		}
		pts := geom.AbsoluteAll(p.Points, surface)
		var cx, cy float64
		for _, v := range pts {
			cx += v.X
			cy += v.Y
		}
		cx /= float64(len(pts))
		cy /= float64(len(pts))

		text := truncate(p.Label, cw)
		x := px(cx) - len(text)/2
		y := px(cy / 2)
		if p.Kind == render.PrimLine {
			y--
		}
		if y < 0 || y >= ch {
			continue
		}
		x = max(0, min(x, cw-len(text)))
		st := styleLabel
		if p.Selected {
			st = styleMenuSel
		}
		ed.drawString(x, y, text, st)
	}
}

func (ed *Editor) drawSidebar(w, h int) {
	dividerX := w - ed.currentSidebarWidth()
	for y := 0; y < h-2; y++ {
		ed.screen.SetContent(dividerX, y, '│', nil, styleBorder)
	}
	ed.sidebarRows = ed.sidebarRows[:0]
	if ed.sidebarCollapsed {
		return
	}

	x := dividerX + 2
	width := ed.sidebarWidth - 4
	items := ed.sess.Annotations()

	// Title
	title := "Annotations"
	if ed.imagePath != "" {
		title = filepath.Base(ed.imagePath)
	}
	ed.drawString(x, 0, truncate(title, width), styleSidebarH)
	ed.drawString(x, 1, truncate(fmt.Sprintf("Mode: %s  (%d shapes)", ed.sess.Mode(), len(items)), width), styleSidebar)

	// Annotation list, scrolled
	var lines []sidebarRow
	var texts []string
	var styles []tcell.Style
	add := func(row sidebarRow, text string, st tcell.Style) {
		lines = append(lines, row)
		texts = append(texts, text)
		styles = append(styles, st)
	}

	edit, editing := ed.sess.Editing()
	for i, a := range items {
		id := a.AnnotationID()
		label, desc := annotation.Text(a)
		marker := "▸"
		if ed.sess.IsExpanded(id) {
			marker = "▾"
		}
		st := styleSidebar
		if ed.sess.IsSelected(id) {
			st = styleMenuSel
		}
		add(sidebarRow{id: id}, fmt.Sprintf("%s %d %s [%s]", marker, i+1, label, a.Kind()), st)

		if !ed.sess.IsExpanded(id) {
			continue
		}
		for _, f := range []annotation.Field{annotation.FieldLabel, annotation.FieldDescription} {
			value := label
			name := "Label"
			if f == annotation.FieldDescription {
				value, name = desc, "Desc"
			}
			st := styleSidebarDim
			if editing && edit.ID == id && edit.Field == f {
				value, st = edit.Draft+"_", styleInput
			} else if value == "" {
				value = "(none)"
			}
			add(sidebarRow{id: id, field: f}, fmt.Sprintf("    %s: %s", name, value), st)
		}
		if p, ok := a.(annotation.Polygon); ok {
			add(sidebarRow{y: -1}, fmt.Sprintf("    %d vertices", len(p.Points)), styleSidebarDim)
		}
	}

	top := 3
	visible := h - 2 - top
	if ed.sidebarScrollY > len(lines)-visible {
		ed.sidebarScrollY = max(0, len(lines)-visible)
	}
	for i := ed.sidebarScrollY; i < len(lines) && i-ed.sidebarScrollY < visible; i++ {
		y := top + i - ed.sidebarScrollY
		ed.drawString(x, y, truncate(texts[i], width), styles[i])
		if lines[i].y != -1 {
			row := lines[i]
			row.y = y
			ed.sidebarRows = append(ed.sidebarRows, row)
		}
	}
	if len(items) == 0 {
		ed.drawString(x, top, "(none yet)", styleSidebarDim)
	}
}

// flashInverted reports whether a flashing message is shown inverted
// elapsed milliseconds after it appeared.
// Pattern: normal, inverted, normal, inverted, each 125ms, then normal.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= 500 {
		return false
	}
	phaseNum := elapsed / 125
	return phaseNum == 1 || phaseNum == 3
}

func flashes(t MessageType) bool {
	switch t {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	}
	return false
}

func messageStyle(t MessageType, elapsed int64) tcell.Style {
	style := styleMsgInfo
	switch t {
	case MsgError:
		style = styleMsgError
	case MsgSuccess:
		style = styleMsgSuccess
	case MsgWarning:
		style = styleMsgWarning
	}
	if flashes(t) && flashInverted(elapsed) {
		style = style.Reverse(true)
	}
	return style
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	// File info
	fileInfo := "[No image]"
	if ed.imagePath != "" {
		fileInfo = filepath.Base(ed.imagePath)
		if img := ed.sess.Image(); img != nil {
			iw, ih := img.Size()
			fileInfo += fmt.Sprintf(" %dx%d", iw, ih)
		}
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	// Mode
	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	// Message
	if ed.message != "" {
		elapsed := nowMillis() - ed.messageFlashStart.Load()
		msg := truncate(ed.message, max(0, w/2-len(modeStr)/2-3))
		ed.drawString(w-len([]rune(msg))-2, y, msg, messageStyle(ed.messageType, elapsed))
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := min(60, w-4)
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)

	text := ed.inputBuffer + "_"
	room := boxW - 4 - len(ed.inputPrompt)
	if r := []rune(text); room > 0 && len(r) > room {
		text = string(r[len(r)-room:])
	}
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len(ed.inputPrompt), boxY+1, text, styleInput)
}

func (ed *Editor) drawFilePicker(w, h int) {
	// Two-column file picker: directories on left, images on right
	totalW := 80
	if totalW > w-4 {
		totalW = w - 4
	}
	dirW := totalW / 3
	fileW := totalW - dirW - 1

	maxItems := max(len(ed.dirList), len(ed.fileList))
	boxH := maxItems + 6
	if boxH > h-4 {
		boxH = h - 4
	}
	if boxH < 10 {
		boxH = 10
	}

	boxX := (w - totalW) / 2
	boxY := 2

	ed.drawBox(boxX, boxY, totalW, boxH, styleDefault)

	pathDisplay := ed.currentDir
	if len(pathDisplay) > totalW-4 {
		pathDisplay = "..." + pathDisplay[len(pathDisplay)-(totalW-7):]
	}
	ed.drawString(boxX+2, boxY+1, pathDisplay, styleSidebarH)

	dirStyle, fileStyle := styleSidebarH, styleMenuSel
	if ed.filePickerFocus == 0 {
		dirStyle, fileStyle = styleMenuSel, styleSidebarH
	}
	ed.drawString(boxX+2, boxY+3, "Directories", dirStyle)
	ed.drawString(boxX+dirW+2, boxY+3, "Images", fileStyle)

	for y := boxY + 3; y < boxY+boxH-1; y++ {
		ed.drawString(boxX+dirW, y, "│", styleDefault)
	}

	visibleItems := boxH - 6
	for i, d := range ed.dirList {
		if i >= visibleItems {
			break
		}
		style := styleMenu
		if ed.filePickerFocus == 0 && i == ed.dirSelected {
			style = styleMenuSel
		}
		display := "[/] " + d
		if d == ".." {
			display = "[^] .."
		}
		maxLen := dirW - 3
		line := fmt.Sprintf(" %-*s", maxLen, truncate(display, maxLen))
		ed.drawString(boxX+1, boxY+5+i, line, style)
	}

	if len(ed.fileList) == 0 {
		ed.drawString(boxX+dirW+2, boxY+5, "(no images)", styleDefault)
	} else {
		for i, f := range ed.fileList {
			if i >= visibleItems {
				break
			}
			style := styleMenu
			if ed.filePickerFocus == 1 && i == ed.fileSelected {
				style = styleMenuSel
			}
			line := fmt.Sprintf(" %-*s", fileW-3, truncate(f, fileW-3))
			ed.drawString(boxX+dirW+1, boxY+5+i, line, style)
		}
	}

	help := "←/→ or Tab: switch | ↑/↓: navigate | Enter: select | Esc: cancel"
	if len(help) > totalW-4 {
		help = "Tab:switch ↑↓:nav Enter:sel Esc:quit"
	}
	ed.drawString(boxX+2, boxY+boxH-1, help, styleDefault)
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := min(70, w-4)
	boxH := min(len(helpLines)+4, h-4)
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2
	ed.drawBox(boxX, boxY, boxW, boxH, styleDefault)
	ed.drawString(boxX+2, boxY, " Help ", styleSidebarH)

	for i := 0; i < boxH-2; i++ {
		n := ed.helpScrollOffset + i
		if n >= len(helpLines) {
			break
		}
		ed.drawString(boxX+2, boxY+1+i, truncate(helpLines[n], boxW-4), styleMenu)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	// Horizontal borders
	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}

	// Vertical borders
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeInput:
		return "EDIT"
	case ModeFilePicker:
		return "OPEN IMAGE"
	case ModeHelp:
		return "HELP"
	}
	st := ed.sess.State()
	switch {
	case st.Drag != nil:
		return "MOVE"
	case st.Drawing != nil && st.Mode == interact.ModeArrow:
		return "ARROW: click end point"
	case st.Drawing != nil:
		return "ZONE: click first dot to close"
	case st.Mode == interact.ModeArrow:
		return "ARROW"
	}
	return "ZONE"
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Type text  Enter:Save  Esc:Cancel"
	case ModeFilePicker:
		return "↑↓:Select  Enter:Open  Esc:Cancel"
	case ModeHelp:
		return "↑↓:Scroll  Esc:Close"
	}
	return "P:Zone  A:Arrow  Tab:Next  L:Label  D:Desc  U:Undo  E:Export  R:Render  O:Open  ?:Help  Q:Quit"
}

// truncate shortens s to maxLen runes, marking the cut with dots.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(0, maxLen)])
	}
	return string(r[:maxLen-3]) + "..."
}
