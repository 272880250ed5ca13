// Command imgmark is a terminal editor for drawing zones and direction
// arrows over an image.
package main

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/imgmark/internal/config"
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/imagefile"
	"github.com/ha1tch/imgmark/pkg/interact"
	"github.com/ha1tch/imgmark/pkg/render"
	"github.com/ha1tch/imgmark/pkg/session"
)

// Hit radii in canvas pixels. A cell is one pixel wide and two tall.
var cellRadii = interact.Radii{Vertex: 2, Handle: 2.5, Line: 1.5}

// Editor holds all editor state
type Editor struct {
	screen      tcell.Screen
	sess        *session.Session
	cfg         config.Config
	imagePath   string
	mode        Mode
	message     string
	messageType MessageType

	// Message flash state, read by the refresh goroutine
	messageFlashStart atomic.Int64

	// Canvas state
	canvasWidth  int
	canvasHeight int
	fitted       image.Image
	fittedFor    *imagefile.Handle
	fittedW      int
	fittedH      int

	// Mouse button tracking
	prevButtons   tcell.ButtonMask
	pressInCanvas bool

	// Sidebar
	sidebarWidth     int
	sidebarCollapsed bool
	sidebarScrollY   int
	sidebarRows      []sidebarRow

	// Input state
	inputBuffer string
	inputPrompt string
	inputAction func(string)
	inputChange func(string)
	inputCancel func()

	// File picker state
	fileList        []string
	fileSelected    int
	dirList         []string
	dirSelected     int
	currentDir      string
	filePickerFocus int // 0 = directories, 1 = files

	// Help scroll state
	helpScrollOffset int

	logFile *os.File
}

// sidebarRow maps a sidebar line to an annotation, and to one of its
// fields on expanded rows.
type sidebarRow struct {
	y     int
	id    annotation.ID
	field annotation.Field // empty for the header line
}

// Mode represents editor mode
type Mode int

const (
	ModeCanvas Mode = iota
	ModeInput
	ModeFilePicker
	ModeHelp
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

const sidebarDefaultWidth = 34

func main() {
	cfg, cfgErr := config.Load()

	ed := &Editor{
		cfg:          cfg,
		sidebarWidth: sidebarDefaultWidth,
	}
	if err := ed.openLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}

	mode, err := interact.ParseMode(cfg.DefaultMode)
	if err != nil {
		mode = interact.ModePolygon
	}
	opts := interact.DefaultOptions()
	opts.Mode = mode
	opts.Radii = cellRadii
	opts.PolygonLabel = cfg.Labels.Polygon
	opts.ArrowLabel = cfg.Labels.Arrow
	ed.sess = session.New(opts)

	// Check command line
	if len(os.Args) > 1 {
		if err := ed.loadImage(os.Args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
	}

	// Initialize screen
	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()
	ed.screen = screen

	if cfgErr != nil {
		ed.showMessage("Config: "+cfgErr.Error(), MsgWarning)
	} else if ed.imagePath == "" {
		ed.showMessage("Press o to open an image", MsgInfo)
	}

	ed.run()

	screen.Fini()
	ed.sess.Close()
	if ed.logFile != nil {
		ed.logFile.Close()
	}
}

// openLog directs the shared logger to the configured file. The terminal
// belongs to tcell, so nothing is logged when no file is set.
func (ed *Editor) openLog() error {
	if ed.cfg.LogFile == "" {
		return nil
	}
	f, err := os.OpenFile(ed.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(ed.cfg.LogLevel)
	ed.logFile = f
	session.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

func (ed *Editor) run() {
	// Use a goroutine to send periodic refresh events during any flash animation
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond) // 20fps for smooth flash
		defer ticker.Stop()
		for range ticker.C {
			start := ed.messageFlashStart.Load()
			if start > 0 {
				elapsed := nowMillis() - start
				if elapsed >= 0 && elapsed < 700 {
					ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
				}
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			// Refresh event for flash animation - just redraw
		}
	}
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return true
	}

	switch ed.mode {
	case ModeCanvas:
		return ed.handleCanvasKey(ev)
	case ModeInput:
		return ed.handleInputKey(ev)
	case ModeFilePicker:
		return ed.handleFilePickerKey(ev)
	case ModeHelp:
		return ed.handleHelpKey(ev)
	}
	return false
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		if res := ed.sess.Cancel(); res.Effect == interact.EffectAbandoned {
			ed.showMessage("Shape discarded", MsgWarning)
		} else {
			ed.sess.Clear()
		}
	case tcell.KeyTab:
		ed.cycleSelection()
	case tcell.KeyEnter:
		if id, ok := ed.sess.Selected(); ok {
			ed.sess.Expand(id)
		}
	case tcell.KeyCtrlZ:
		ed.undo()
	case tcell.KeyCtrlS:
		ed.export()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 'p', 'P':
			ed.setMode(interact.ModePolygon)
		case 'a', 'A':
			ed.setMode(interact.ModeArrow)
		case 'u', 'U':
			ed.undo()
		case 'e', 'E':
			ed.export()
		case 'r', 'R':
			ed.renderView()
		case 't', 'T':
			ed.toggleFileType()
		case 'o', 'O':
			ed.openFilePicker()
		case 'l', 'L':
			ed.editField(annotation.FieldLabel)
		case 'd', 'D':
			ed.editField(annotation.FieldDescription)
		case 'b', 'B':
			ed.toggleSidebarCollapse()
		case '?', 'h', 'H':
			ed.helpScrollOffset = 0
			ed.mode = ModeHelp
		}
	}
	return false
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) bool {
	changed := false
	switch ev.Key() {
	case tcell.KeyEscape:
		if ed.inputCancel != nil {
			ed.inputCancel()
		}
		ed.mode = ModeCanvas
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		if ed.inputAction != nil {
			ed.inputAction(ed.inputBuffer)
		}
		ed.inputBuffer = ""
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
			changed = true
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
		changed = true
	}
	if changed && ed.inputChange != nil {
		ed.inputChange(ed.inputBuffer)
	}
	return false
}

func (ed *Editor) startInput(prompt, initial string, action, change func(string), cancel func()) {
	ed.inputPrompt = prompt
	ed.inputBuffer = initial
	ed.inputAction = action
	ed.inputChange = change
	ed.inputCancel = cancel
	ed.mode = ModeInput
}

func (ed *Editor) handleFilePickerKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyTab:
		// Switch focus between directories and files
		ed.filePickerFocus = 1 - ed.filePickerFocus
	case tcell.KeyLeft:
		ed.filePickerFocus = 0
	case tcell.KeyRight:
		ed.filePickerFocus = 1
	case tcell.KeyUp:
		if ed.filePickerFocus == 0 {
			if ed.dirSelected > 0 {
				ed.dirSelected--
			}
		} else if ed.fileSelected > 0 {
			ed.fileSelected--
		}
	case tcell.KeyDown:
		if ed.filePickerFocus == 0 {
			if ed.dirSelected < len(ed.dirList)-1 {
				ed.dirSelected++
			}
		} else if ed.fileSelected < len(ed.fileList)-1 {
			ed.fileSelected++
		}
	case tcell.KeyEnter:
		if ed.filePickerFocus == 0 {
			selectedDir := ed.dirList[ed.dirSelected]
			if selectedDir == ".." {
				ed.currentDir = filepath.Dir(ed.currentDir)
			} else {
				ed.currentDir = filepath.Join(ed.currentDir, selectedDir)
			}
			ed.refreshFilePicker()
		} else if len(ed.fileList) > 0 {
			fullPath := filepath.Join(ed.currentDir, ed.fileList[ed.fileSelected])
			if err := ed.loadImage(fullPath); err != nil {
				ed.showMessage("Error: "+err.Error(), MsgError)
			} else {
				ed.cfg.LastDir = ed.currentDir
				if err := config.Save(ed.cfg); err != nil {
					ed.showMessage("Failed to save config: "+err.Error(), MsgError)
				} else {
					ed.showMessage("Loaded: "+filepath.Base(fullPath), MsgSuccess)
				}
				ed.mode = ModeCanvas
			}
		}
	}
	return false
}

func (ed *Editor) handleHelpKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyEnter:
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		if ed.helpScrollOffset > 0 {
			ed.helpScrollOffset--
		}
	case tcell.KeyDown:
		if ed.helpScrollOffset < len(helpLines)-1 {
			ed.helpScrollOffset++
		}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q', 'h', 'H', '?':
			ed.mode = ModeCanvas
		}
	}
	return false
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()

	held := buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)
	pressed := held &^ ed.prevButtons
	released := ed.prevButtons &^ held
	ed.prevButtons = held

	if ed.mode != ModeCanvas {
		return
	}

	w, _ := ed.screen.Size()
	dividerX := w - ed.currentSidebarWidth()

	// Handle mouse wheel scrolling in sidebar
	if x > dividerX && !ed.sidebarCollapsed {
		if buttons&tcell.WheelUp != 0 {
			ed.sidebarScrollY = max(0, ed.sidebarScrollY-3)
			return
		}
		if buttons&tcell.WheelDown != 0 {
			ed.sidebarScrollY += 3
			return
		}
	}

	inCanvas := x < ed.canvasWidth && y < ed.canvasHeight
	pos := cellToVec(x, y)

	if !inCanvas && !ed.pressInCanvas {
		if pressed&tcell.Button1 != 0 && x > dividerX {
			ed.sidebarClick(y)
		}
		return
	}

	switch {
	case pressed&tcell.Button1 != 0:
		ed.pressInCanvas = true
		ed.handleResult(ed.sess.PointerDown(pos, interact.ButtonPrimary))
	case pressed&tcell.Button2 != 0:
		ed.handleResult(ed.sess.PointerDown(pos, interact.ButtonSecondary))
		ed.handleResult(ed.sess.Click(pos, interact.ButtonSecondary))
	case released&tcell.Button1 != 0:
		ed.handleResult(ed.sess.PointerUp(pos))
		if ed.pressInCanvas && ed.sess.Surface().Contains(pos) {
			ed.handleResult(ed.sess.Click(pos, interact.ButtonPrimary))
		}
		ed.pressInCanvas = false
	case released != 0:
	default:
		ed.sess.PointerMove(pos)
	}
}

// handleResult reports interaction outcomes on the status bar.
func (ed *Editor) handleResult(res interact.Result) {
	switch res.Effect {
	case interact.EffectCommitted:
		if a, ok := ed.sess.Store().Get(res.ID); ok {
			ed.showMessage(fmt.Sprintf("Added %s %d", a.Kind(), ed.indexOf(res.ID)), MsgSuccess)
		}
	case interact.EffectSelected:
		ed.showMessage(fmt.Sprintf("Selected %d", ed.indexOf(res.ID)), MsgInfo)
	case interact.EffectVertexRemoved:
		ed.showMessage("Vertex removed", MsgInfo)
	case interact.EffectRefused:
		ed.showMessage(fmt.Sprintf("A zone needs at least %d vertices", annotation.MinVertices), MsgWarning)
	case interact.EffectDropped:
		if ed.sess.Image() == nil {
			ed.showMessage("Open an image first (o)", MsgWarning)
		}
	}
}

// indexOf returns the 1-based position of id in the list, or 0.
func (ed *Editor) indexOf(id annotation.ID) int {
	for i, a := range ed.sess.Annotations() {
		if a.AnnotationID() == id {
			return i + 1
		}
	}
	return 0
}

func (ed *Editor) sidebarClick(y int) {
	for _, row := range ed.sidebarRows {
		if row.y != y {
			continue
		}
		if row.field == "" {
			ed.sess.Select(row.id)
			ed.sess.Expand(row.id)
			return
		}
		ed.sess.Select(row.id)
		ed.editField(row.field)
		return
	}
}

func (ed *Editor) cycleSelection() {
	items := ed.sess.Annotations()
	if len(items) == 0 {
		return
	}
	next := 0
	if id, ok := ed.sess.Selected(); ok {
		next = ed.indexOf(id) % len(items)
	}
	ed.sess.Select(items[next].AnnotationID())
}

func (ed *Editor) setMode(m interact.Mode) {
	res := ed.sess.SetMode(m)
	if res.Effect == interact.EffectAbandoned {
		ed.showMessage("Unfinished shape discarded", MsgWarning)
		return
	}
	ed.showMessage("Mode: "+string(m), MsgInfo)
}

func (ed *Editor) undo() {
	a, ok := ed.sess.Undo()
	if !ok {
		ed.showMessage("Nothing to undo", MsgInfo)
		return
	}
	label, _ := annotation.Text(a)
	ed.showMessage(fmt.Sprintf("Removed %s %q", a.Kind(), label), MsgSuccess)
}

func (ed *Editor) export() {
	path, err := ed.sess.ExportFile(ed.cfg.ExportDir)
	if err != nil {
		ed.showMessage("Export failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Exported "+path, MsgSuccess)
}

// editField opens the input box on field of the selected annotation.
func (ed *Editor) editField(field annotation.Field) {
	id, ok := ed.sess.Selected()
	if !ok {
		ed.showMessage("Select an annotation first (Tab)", MsgWarning)
		return
	}
	if !ed.sess.IsExpanded(id) {
		ed.sess.Expand(id)
	}
	if err := ed.sess.BeginEdit(id, field); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	edit, _ := ed.sess.Editing()
	prompt := "Label: "
	if field == annotation.FieldDescription {
		prompt = "Description: "
	}
	ed.startInput(prompt, edit.Draft,
		func(string) {
			if err := ed.sess.CommitEdit(id, field); err != nil {
				ed.showMessage("Error: "+err.Error(), MsgError)
				return
			}
			ed.showMessage("Saved "+string(field), MsgSuccess)
		},
		ed.sess.ChangeEdit,
		ed.sess.CancelEdit,
	)
}

func (ed *Editor) toggleSidebarCollapse() {
	ed.sidebarCollapsed = !ed.sidebarCollapsed
}

func (ed *Editor) currentSidebarWidth() int {
	if ed.sidebarCollapsed {
		return 1
	}
	return ed.sidebarWidth
}

func (ed *Editor) toggleFileType() {
	if ed.cfg.Render.FileType == "png" {
		ed.cfg.Render.FileType = "svg"
	} else {
		ed.cfg.Render.FileType = "png"
	}
	if err := config.Save(ed.cfg); err != nil {
		ed.showMessage("Failed to save config: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Render type: "+strings.ToUpper(ed.cfg.Render.FileType), MsgInfo)
}

// renderView writes the annotated image next to the export.
func (ed *Editor) renderView() {
	name := "annotated." + ed.cfg.Render.FileType
	path := filepath.Join(ed.cfg.ExportDir, name)

	width, height := ed.cfg.Render.Width, ed.cfg.Render.Height
	if h := ed.sess.Image(); h != nil {
		width, height = h.Size()
	}

	var err error
	if ed.cfg.Render.FileType == "svg" {
		id, ok := ed.sess.Selected()
		sc := render.Project(ed.sess.Annotations(), interact.State{}, id, ok)
		opts := render.DefaultSVGOptions()
		opts.Width, opts.Height = width, height
		if ed.imagePath != "" {
			if href, aerr := filepath.Abs(ed.imagePath); aerr == nil {
				opts.ImageHref = href
			}
		}
		err = os.WriteFile(path, []byte(render.GenerateSVG(sc, opts)), 0644)
	} else {
		var f *os.File
		f, err = os.Create(path)
		if err == nil {
			opts := render.DefaultPNGOptions()
			opts.Width, opts.Height = width, height
			err = ed.sess.RenderPNG(f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		ed.showMessage("Render failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Rendered "+path, MsgSuccess)
}

func (ed *Editor) loadImage(path string) error {
	if err := ed.sess.LoadImage(path); err != nil {
		return err
	}
	ed.imagePath = path
	ed.fitted = nil
	ed.fittedFor = nil
	return nil
}

func (ed *Editor) openFilePicker() {
	// Start in last used directory
	ed.currentDir = ed.cfg.LastDir
	if ed.currentDir == "" {
		ed.currentDir, _ = os.Getwd()
	}

	ed.refreshFilePicker()
	ed.filePickerFocus = 1 // Start with files focused
	ed.mode = ModeFilePicker
}

func (ed *Editor) refreshFilePicker() {
	ed.dirList = []string{".."}
	ed.fileList = nil
	entries, err := os.ReadDir(ed.currentDir)
	if err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if e.IsDir() {
				ed.dirList = append(ed.dirList, e.Name())
			} else if imagefile.IsImageFile(e.Name()) {
				ed.fileList = append(ed.fileList, e.Name())
			}
		}
	}
	sort.Strings(ed.fileList)
	ed.dirSelected = 0
	ed.fileSelected = 0
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart.Store(nowMillis())
	// Trigger immediate refresh for flash animation
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

// fittedImage returns the image scaled to fit a canvas of pixW x pixH
// pixels, caching it between frames. Its size matches layout.
func (ed *Editor) fittedImage(pixW, pixH int) image.Image {
	h := ed.sess.Image()
	if h == nil {
		return nil
	}
	if ed.fitted != nil && ed.fittedFor == h && ed.fittedW == pixW && ed.fittedH == pixH {
		return ed.fitted
	}
	img, err := h.Fit(pixW, pixH)
	if err != nil {
		return nil
	}
	ed.fitted, ed.fittedFor, ed.fittedW, ed.fittedH = img, h, pixW, pixH
	return img
}

// surfaceFor lays out the loaded image on a canvas of cw x ch cells.
func (ed *Editor) surfaceFor(cw, ch int) (int, int, geom.Rect) {
	h := ed.sess.Image()
	if h == nil {
		return 0, 0, geom.Rect{}
	}
	iw, ih := h.Size()
	return layout(iw, ih, cw, ch)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
